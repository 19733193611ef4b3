package otp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gymmanager/internal/db"
)

var ErrOTPNotFound = errors.New("otp not found")

type sqlxRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &sqlxRepository{db: db}
}

func (r *sqlxRepository) Replace(ctx context.Context, email, code string, expiresAt time.Time) (*OTP, error) {
	query := `
		INSERT INTO otps (email, code, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, email, code, expires_at, created_at
	`

	var o OTP
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM otps WHERE email = $1`, email); err != nil {
			return fmt.Errorf("delete previous otps: %w", err)
		}
		if err := tx.GetContext(ctx, &o, query, email, code, expiresAt); err != nil {
			return fmt.Errorf("insert otp: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *sqlxRepository) FindValid(ctx context.Context, email, code string, now time.Time) (*OTP, error) {
	query := `
		SELECT id, email, code, expires_at, created_at
		FROM otps
		WHERE email = $1 AND code = $2 AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	var o OTP
	err := r.db.GetContext(ctx, &o, query, email, code, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOTPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find otp: %w", err)
	}
	return &o, nil
}

func (r *sqlxRepository) RecordFailure(ctx context.Context, email string, now time.Time) (bool, error) {
	query := `
		WITH bumped AS (
			UPDATE otps SET failed_attempts = failed_attempts + 1
			WHERE email = $1 AND expires_at > $2
			RETURNING failed_attempts
		)
		SELECT COALESCE(MAX(failed_attempts), 0) FROM bumped
	`

	var locked bool
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var failures int
		if err := tx.GetContext(ctx, &failures, query, email, now); err != nil {
			return fmt.Errorf("count otp failure: %w", err)
		}
		if failures < MaxFailedAttempts {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM otps WHERE email = $1`, email); err != nil {
			return fmt.Errorf("delete locked otps: %w", err)
		}
		locked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return locked, nil
}

func (r *sqlxRepository) DeleteByEmail(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE email = $1`, email); err != nil {
		return fmt.Errorf("delete otps: %w", err)
	}
	return nil
}

func (r *sqlxRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge otps: %w", err)
	}
	return res.RowsAffected()
}
