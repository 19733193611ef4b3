package otp

import "time"

const (
	CodeLength = 6
	TTL        = 15 * time.Minute

	// MaxFailedAttempts wrong codes burn every outstanding code for the email.
	MaxFailedAttempts = 5
)

type OTP struct {
	ID        int       `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Code      string    `db:"code" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Expired reports whether the code can no longer be redeemed at now.
func (o *OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
