package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"gymmanager/internal/logger"
)

const (
	otpPurgeInterval   = time.Hour
	queueGaugeInterval = 30 * time.Second
)

// OTPPurger removes reset codes that can no longer be redeemed.
type OTPPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// QueueMeter reports the outbound email backlog and publishes it as a gauge.
type QueueMeter interface {
	QueueLength(ctx context.Context) int64
}

// Tasks are the background jobs. Digest is required; the others are
// scheduled only when set.
type Tasks struct {
	Digest     *Digest
	OTPs       OTPPurger
	EmailQueue QueueMeter
}

type Scheduler struct {
	scheduler gocron.Scheduler
	digest    *Digest
	purger    OTPPurger
	queue     QueueMeter
}

// NewScheduler registers the daily digest on cronExpr (evaluated in loc),
// an hourly cleanup of expired reset codes and a periodic refresh of the
// email queue gauge.
func NewScheduler(tasks Tasks, cronExpr string, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	sch := &Scheduler{scheduler: s, digest: tasks.Digest, purger: tasks.OTPs, queue: tasks.EmailQueue}

	if _, err := s.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(sch.runDigest),
		gocron.WithName("expiring-digest"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule expiring digest %q: %w", cronExpr, err)
	}

	if sch.purger != nil {
		if _, err := s.NewJob(
			gocron.DurationJob(otpPurgeInterval),
			gocron.NewTask(sch.purgeOTPs),
			gocron.WithName("otp-purge"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			_ = s.Shutdown()
			return nil, fmt.Errorf("schedule otp purge: %w", err)
		}
	}

	if sch.queue != nil {
		if _, err := s.NewJob(
			gocron.DurationJob(queueGaugeInterval),
			gocron.NewTask(sch.measureQueue),
			gocron.WithName("email-queue-gauge"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		); err != nil {
			_ = s.Shutdown()
			return nil, fmt.Errorf("schedule email queue gauge: %w", err)
		}
	}

	return sch, nil
}

func (s *Scheduler) Start() {
	logger.Info("starting reminder scheduler", "jobs", len(s.scheduler.Jobs()))
	s.scheduler.Start()
}

func (s *Scheduler) Stop() error {
	logger.Info("stopping reminder scheduler")
	return s.scheduler.Shutdown()
}

func (s *Scheduler) runDigest() {
	if _, err := s.digest.Run(context.Background()); err != nil {
		logger.Error("expiring digest run failed", "error", err)
	}
}

func (s *Scheduler) purgeOTPs() {
	n, err := s.purger.DeleteExpired(context.Background(), time.Now())
	if err != nil {
		logger.Error("otp purge failed", "error", err)
		return
	}
	if n > 0 {
		logger.Debug("purged expired otps", "count", n)
	}
}

func (s *Scheduler) measureQueue() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.queue.QueueLength(ctx)
}
