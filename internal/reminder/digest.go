package reminder

import (
	"context"
	"fmt"
	"time"

	"gymmanager/internal/email"
	"gymmanager/internal/gym"
	"gymmanager/internal/lifecycle"
	"gymmanager/internal/logger"
	"gymmanager/internal/member"
	"gymmanager/internal/metrics"
)

type GymLister interface {
	ListAll(ctx context.Context) ([]gym.Gym, error)
}

type ExpiringLister interface {
	ListExpiring(ctx context.Context, gymID int, now time.Time, days int) ([]member.Member, error)
}

type DigestSender interface {
	SendExpiringDigest(ctx context.Context, to, gymName string, items []email.DigestItem) error
}

// Digest mails every gym owner the members expiring within three days.
type Digest struct {
	gyms    GymLister
	members ExpiringLister
	sender  DigestSender
	now     lifecycle.Clock
}

func NewDigest(gyms GymLister, members ExpiringLister, sender DigestSender, clock lifecycle.Clock) *Digest {
	if clock == nil {
		clock = lifecycle.SystemClock
	}
	return &Digest{gyms: gyms, members: members, sender: sender, now: clock}
}

// Result counts digest outcomes for one run.
type Result struct {
	Sent    int
	Skipped int
	Failed  int
}

// Run sends one digest per gym. A failure for one gym does not stop the
// others; only a failure to list gyms is returned.
func (d *Digest) Run(ctx context.Context) (Result, error) {
	var res Result

	gyms, err := d.gyms.ListAll(ctx)
	if err != nil {
		return res, fmt.Errorf("list gyms for digest: %w", err)
	}

	now := d.now()
	for _, g := range gyms {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		log := logger.WithFields(map[string]any{"job": "expiring-digest", "gym_id": g.ID})
		status, err := d.sendOne(ctx, g, now)
		metrics.RecordReminderDigest(status)
		switch status {
		case "sent":
			res.Sent++
		case "skipped":
			res.Skipped++
		default:
			res.Failed++
			log.Error("expiring digest failed", "error", err)
			continue
		}
		log.Debug("expiring digest processed", "status", status)
	}

	logger.Info("expiring digest run finished", "sent", res.Sent, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

func (d *Digest) sendOne(ctx context.Context, g gym.Gym, now time.Time) (string, error) {
	members, err := d.members.ListExpiring(ctx, g.ID, now, lifecycle.ExpiringSoonDays)
	if err != nil {
		return "failed", err
	}
	if len(members) == 0 {
		return "skipped", nil
	}

	items := make([]email.DigestItem, 0, len(members))
	for _, m := range members {
		items = append(items, email.DigestItem{
			Name:         m.Name,
			Phone:        m.Phone,
			NextBillDate: m.NextBillDate,
			DaysLeft:     lifecycle.DaysUntil(m.NextBillDate, now),
		})
	}

	if err := d.sender.SendExpiringDigest(ctx, g.Email, g.GymName, items); err != nil {
		return "failed", err
	}
	return "sent", nil
}
