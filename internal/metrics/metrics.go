package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymmanager_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gymmanager_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	MembersEnrolledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gymmanager_members_enrolled_total",
			Help: "Total number of members enrolled",
		},
	)

	RenewalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymmanager_renewals_total",
			Help: "Total number of membership renewals by plan duration",
		},
		[]string{"duration_months", "paid"},
	)

	MemberStatusChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymmanager_member_status_changes_total",
			Help: "Total number of active/paid flag changes",
		},
		[]string{"field", "value"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymmanager_emails_sent_total",
			Help: "Total number of emails processed",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gymmanager_email_queue_length",
			Help: "Current length of email queue",
		},
	)

	OTPsIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gymmanager_otps_issued_total",
			Help: "Total number of password reset codes issued",
		},
	)

	OTPLockoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gymmanager_otp_lockouts_total",
			Help: "Password reset codes revoked after too many wrong attempts",
		},
	)

	DashboardCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymmanager_dashboard_cache_total",
			Help: "Dashboard stats cache lookups by result",
		},
		[]string{"result"},
	)

	ReminderDigestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymmanager_reminder_digests_total",
			Help: "Expiring-soon digests by outcome",
		},
		[]string{"status"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordEnrollment() {
	MembersEnrolledTotal.Inc()
}

func RecordRenewal(durationMonths int, paid bool) {
	RenewalsTotal.WithLabelValues(strconv.Itoa(durationMonths), strconv.FormatBool(paid)).Inc()
}

func RecordStatusChange(field string, value bool) {
	MemberStatusChangesTotal.WithLabelValues(field, strconv.FormatBool(value)).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func RecordOTPIssued() {
	OTPsIssuedTotal.Inc()
}

func RecordOTPLockout() {
	OTPLockoutsTotal.Inc()
}

func RecordDashboardCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DashboardCacheTotal.WithLabelValues(result).Inc()
}

func RecordReminderDigest(status string) {
	ReminderDigestsTotal.WithLabelValues(status).Inc()
}
