package otp

import (
	"context"
	"time"
)

type Repository interface {
	// Replace deletes any outstanding codes for email and stores a new one.
	Replace(ctx context.Context, email, code string, expiresAt time.Time) (*OTP, error)
	FindValid(ctx context.Context, email, code string, now time.Time) (*OTP, error)
	// RecordFailure counts a wrong code against the live codes for email and
	// deletes them once MaxFailedAttempts is reached. It reports whether they
	// were deleted.
	RecordFailure(ctx context.Context, email string, now time.Time) (bool, error)
	DeleteByEmail(ctx context.Context, email string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
