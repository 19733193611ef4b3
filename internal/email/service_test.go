package email

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymmanager/internal/lifecycle"
	"gymmanager/internal/logger"
	"gymmanager/internal/metrics"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

type fakeSender struct {
	err  error
	sent []Job
}

func (f *fakeSender) Send(job Job) error {
	f.sent = append(f.sent, job)
	return f.err
}

var fixedNow = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

func newTestService(rdb *redis.Client, sender Sender) *Service {
	svc := New(rdb, sender)
	svc.retryDelay = 0
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func encodeJob(t *testing.T, job Job) string {
	data, err := json.Marshal(job)
	require.NoError(t, err)
	return string(data)
}

func TestQueue(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush(QueueKey, `.*`).SetVal(1)

	svc := newTestService(db, &fakeSender{})

	err := svc.Queue(ctx, Job{Type: TypePasswordReset, To: "owner@example.com", Subject: "Hello", Body: "Test body"})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush(QueueKey, `.*`).SetErr(assert.AnError)

	svc := newTestService(db, &fakeSender{})

	err := svc.Queue(ctx, Job{To: "owner@example.com"})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendPasswordResetOTP(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush(QueueKey, `.*482913.*`).SetVal(1)

	svc := newTestService(db, &fakeSender{})

	err := svc.SendPasswordResetOTP(ctx, "owner@example.com", "Iron Temple", "482913", fixedNow.Add(15*time.Minute))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendRenewalReceipt(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush(QueueKey, `.*2024-10-01.*`).SetVal(1)

	svc := newTestService(db, &fakeSender{})

	err := svc.SendRenewalReceipt(ctx, "owner@example.com", "Iron Temple", Receipt{
		MemberName:   "Jane",
		PlanName:     "Quarterly",
		Price:        59.99,
		Paid:         true,
		NextBillDate: lifecycle.NewDate(2024, 10, 1),
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendExpiringDigest(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush(QueueKey, `.*tomorrow.*`).SetVal(1)

	svc := newTestService(db, &fakeSender{})

	err := svc.SendExpiringDigest(ctx, "owner@example.com", "Iron Temple", []DigestItem{
		{Name: "Jane", Phone: "555-0100", NextBillDate: lifecycle.NewDate(2024, 7, 2), DaysLeft: 1},
		{Name: "Bob", Phone: "555-0101", NextBillDate: lifecycle.NewDate(2024, 7, 4), DaysLeft: 3},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNext_Sends(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()
	metrics.EmailsSentTotal.Reset()

	job := Job{Type: TypePasswordReset, To: "owner@example.com", Subject: "Code"}
	mock.ExpectBRPop(popTimeout, QueueKey).SetVal([]string{QueueKey, encodeJob(t, job)})

	sender := &fakeSender{}
	svc := newTestService(db, sender)
	svc.processNext(ctx)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "owner@example.com", sender.sent[0].To)
	assert.Equal(t, 1, sender.sent[0].Tries)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EmailsSentTotal.WithLabelValues(TypePasswordReset, "sent")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNext_RetriesOnFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	job := Job{Type: TypeExpiringDigest, To: "owner@example.com"}
	mock.ExpectBRPop(popTimeout, QueueKey).SetVal([]string{QueueKey, encodeJob(t, job)})
	mock.Regexp().ExpectLPush(QueueKey, `.*"tries":1.*`).SetVal(1)

	svc := newTestService(db, &fakeSender{err: errors.New("smtp down")})
	svc.processNext(ctx)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNext_MovesToFailedAfterLastAttempt(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()
	metrics.EmailsSentTotal.Reset()

	job := Job{Type: TypeExpiringDigest, To: "owner@example.com", Tries: maxAttempts - 1}
	mock.ExpectBRPop(popTimeout, QueueKey).SetVal([]string{QueueKey, encodeJob(t, job)})
	mock.Regexp().ExpectLPush(FailedQueueKey, `.*smtp down.*`).SetVal(1)

	svc := newTestService(db, &fakeSender{err: errors.New("smtp down")})
	svc.processNext(ctx)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EmailsSentTotal.WithLabelValues(TypeExpiringDigest, "failed")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNext_EmptyQueue(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.ExpectBRPop(popTimeout, QueueKey).RedisNil()

	sender := &fakeSender{}
	svc := newTestService(db, sender)
	svc.processNext(ctx)

	assert.Empty(t, sender.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueLength(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.ExpectLLen(QueueKey).SetVal(5)

	svc := newTestService(db, &fakeSender{})

	length := svc.QueueLength(ctx)
	assert.Equal(t, int64(5), length)
	assert.Equal(t, float64(5), testutil.ToFloat64(metrics.EmailQueueLength))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueLength_ErrorKeepsGauge(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	metrics.EmailQueueLength.Set(7)
	mock.ExpectLLen(QueueKey).SetErr(errors.New("connection refused"))

	svc := newTestService(db, &fakeSender{})

	assert.Equal(t, int64(0), svc.QueueLength(ctx))
	assert.Equal(t, float64(7), testutil.ToFloat64(metrics.EmailQueueLength))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompose_HeadersStayOnOneLine(t *testing.T) {
	s := &smtpSender{cfg: SMTPConfig{From: "noreply@gymmanager.local", FromName: "Gym\nManager"}}

	msg := string(s.compose(Job{
		To:      "owner@example.com\r\nBcc: thief@example.com",
		Subject: "Membership renewed - Jane\r\nBcc: thief@example.com",
		Body:    "hello",
	}))

	head, body, found := strings.Cut(msg, "\r\n\r\n")
	require.True(t, found)
	assert.Equal(t, "hello", body)

	for _, line := range strings.Split(head, "\r\n") {
		assert.False(t, strings.HasPrefix(line, "Bcc:"), line)
	}
	assert.Contains(t, head, "From: Gym Manager <noreply@gymmanager.local>\r\n")
	assert.Contains(t, head, "Subject: Membership renewed - Jane Bcc: thief@example.com\r\n")
	assert.NotContains(t, head, "\n\n")
}

func TestCompose_EncodesNonASCIISubject(t *testing.T) {
	s := &smtpSender{cfg: SMTPConfig{From: "noreply@gymmanager.local", FromName: "GymManager"}}

	msg := string(s.compose(Job{To: "owner@example.com", Subject: "Membership renewed - José"}))

	assert.Contains(t, msg, "Subject: =?utf-8?q?Membership_renewed_-_Jos=C3=A9?=\r\n")
}

func TestDaysLabel(t *testing.T) {
	assert.Equal(t, "today", daysLabel(0))
	assert.Equal(t, "tomorrow", daysLabel(1))
	assert.Equal(t, "in 3 days", daysLabel(3))
}
