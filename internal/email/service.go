package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"gymmanager/internal/lifecycle"
	"gymmanager/internal/logger"
	"gymmanager/internal/metrics"
)

const (
	QueueKey       = "gymmanager:emails"
	FailedQueueKey = "gymmanager:emails:failed"

	maxAttempts = 3
	popTimeout  = 2 * time.Second
)

const (
	TypePasswordReset  = "password_reset"
	TypeRenewalReceipt = "renewal_receipt"
	TypeExpiringDigest = "expiring_digest"
)

type Job struct {
	Type    string    `json:"type"`
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Sender delivers a single message. The SMTP implementation is used in
// production; tests substitute their own.
type Sender interface {
	Send(job Job) error
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Pass     string
	From     string
	FromName string
}

type smtpSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) Sender {
	return &smtpSender{cfg: cfg}
}

func (s *smtpSender) Send(job Job) error {
	message := s.compose(job)

	var auth smtp.Auth
	if s.cfg.User != "" && s.cfg.Pass != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	}

	addr := s.cfg.Host + ":" + s.cfg.Port
	return smtp.SendMail(addr, auth, s.cfg.From, []string{headerText(job.To)}, message)
}

func (s *smtpSender) compose(job Job) []byte {
	message := fmt.Sprintf("From: %s <%s>\r\n", headerValue(s.cfg.FromName), headerText(s.cfg.From))
	message += fmt.Sprintf("To: %s\r\n", headerText(job.To))
	message += fmt.Sprintf("Subject: %s\r\n", headerValue(job.Subject))
	message += "MIME-Version: 1.0\r\n"
	message += "Content-Type: text/plain; charset=\"utf-8\"\r\n"
	message += "\r\n" + job.Body
	return []byte(message)
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// headerText folds user supplied text onto a single line so it cannot
// start a new header.
func headerText(v string) string {
	return strings.TrimSpace(lineBreaks.Replace(v))
}

// headerValue is headerText plus RFC 2047 encoding for non-ASCII text.
func headerValue(v string) string {
	return mime.QEncoding.Encode("utf-8", headerText(v))
}

type Service struct {
	redis      *redis.Client
	sender     Sender
	retryDelay time.Duration
	now        lifecycle.Clock
}

func New(rdb *redis.Client, sender Sender) *Service {
	return &Service{
		redis:      rdb,
		sender:     sender,
		retryDelay: 5 * time.Second,
		now:        lifecycle.SystemClock,
	}
}

func (s *Service) Queue(ctx context.Context, job Job) error {
	job.Tries = 0
	job.Created = s.now()

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal email job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, QueueKey, string(data)).Err(); err != nil {
		logger.Error("failed to queue email", "to", job.To, "type", job.Type, "error", err)
		return fmt.Errorf("queue email: %w", err)
	}

	metrics.RecordEmail(job.Type, "queued")
	logger.Info("email queued", "to", job.To, "type", job.Type)
	return nil
}

// Start drains the queue until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	logger.Info("Email worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Email worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, popTimeout, QueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			logger.Warn("email queue pop failed", "error", err)
		}
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad email data: %v", err)
		return
	}

	job.Tries++
	logger.Debug("sending email", "to", job.To, "attempt", job.Tries)
	if err := s.sender.Send(job); err != nil {
		logger.Error("failed to send email", "to", job.To, "attempt", job.Tries, "error", err)

		if job.Tries < maxAttempts {
			s.retry(ctx, job)
		} else {
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordEmail(job.Type, "sent")
	logger.Info("email sent", "to", job.To, "type", job.Type)
}

func (s *Service) retry(ctx context.Context, job Job) {
	if s.retryDelay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(s.retryDelay):
		}
	}

	data, _ := json.Marshal(job)
	// Requeue even during shutdown so the job survives a restart.
	if err := s.redis.LPush(context.Background(), QueueKey, string(data)).Err(); err != nil {
		logger.Error("failed to requeue email", "to", job.To, "error", err)
		return
	}
	metrics.RecordEmail(job.Type, "retried")
}

func (s *Service) saveFailed(job Job, err error) {
	failed := map[string]any{
		"job":   job,
		"error": err.Error(),
		"time":  s.now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), FailedQueueKey, string(data))
	metrics.RecordEmail(job.Type, "failed")
	logger.Error("email moved to failed queue", "to", job.To, "attempts", job.Tries)
}

// QueueLength reads the pending backlog and publishes it on the queue gauge.
// On a Redis error the gauge keeps its last value.
func (s *Service) QueueLength(ctx context.Context) int64 {
	length, err := s.redis.LLen(ctx, QueueKey).Result()
	if err != nil {
		logger.Warn("failed to read email queue length", "error", err)
		return 0
	}
	metrics.EmailQueueLength.Set(float64(length))
	return length
}

func (s *Service) SendPasswordResetOTP(ctx context.Context, to, gymName, code string, expiresAt time.Time) error {
	body := fmt.Sprintf(`Hi %s,

We received a request to reset your password.

Your verification code is: %s

The code expires at %s. If you did not ask for a reset you can ignore this email.

- GymManager`, gymName, code, expiresAt.Format("Jan 2, 2006 at 3:04 PM"))

	return s.Queue(ctx, Job{
		Type:    TypePasswordReset,
		To:      to,
		Name:    gymName,
		Subject: "Your password reset code",
		Body:    body,
	})
}

type Receipt struct {
	MemberName   string
	PlanName     string
	Price        float64
	Paid         bool
	NextBillDate lifecycle.Date
}

func (s *Service) SendRenewalReceipt(ctx context.Context, to, gymName string, r Receipt) error {
	payment := "unpaid"
	if r.Paid {
		payment = "paid"
	}
	body := fmt.Sprintf(`Hi %s,

%s renewed their membership.

Plan: %s
Price: %.2f (%s)
Next bill date: %s

- GymManager`, gymName, r.MemberName, r.PlanName, r.Price, payment, r.NextBillDate)

	return s.Queue(ctx, Job{
		Type:    TypeRenewalReceipt,
		To:      to,
		Name:    gymName,
		Subject: "Membership renewed - " + r.MemberName,
		Body:    body,
	})
}

type DigestItem struct {
	Name         string
	Phone        string
	NextBillDate lifecycle.Date
	DaysLeft     int
}

func (s *Service) SendExpiringDigest(ctx context.Context, to, gymName string, items []DigestItem) error {
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "- %s (%s): due %s, %s\n", it.Name, it.Phone, it.NextBillDate, daysLabel(it.DaysLeft))
	}

	body := fmt.Sprintf(`Hi %s,

%d member(s) are due for renewal soon:

%s
- GymManager`, gymName, len(items), b.String())

	return s.Queue(ctx, Job{
		Type:    TypeExpiringDigest,
		To:      to,
		Name:    gymName,
		Subject: fmt.Sprintf("%d memberships expiring soon", len(items)),
		Body:    body,
	})
}

func daysLabel(n int) string {
	switch n {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", n)
	}
}
