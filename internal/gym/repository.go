package gym

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gymmanager/internal/db"
)

const gymColumns = `id, email, gym_name, username, password_hash, logo_url, created_at`

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

type sqlxRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &sqlxRepository{db: db}
}

func (r *sqlxRepository) Create(ctx context.Context, g *Gym) (*Gym, error) {
	query := `
		INSERT INTO gyms (email, gym_name, username, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + gymColumns

	var created Gym
	err := r.db.GetContext(ctx, &created, query, g.Email, g.GymName, g.Username, g.PasswordHash)
	if err != nil {
		return nil, conflict(err)
	}

	return &created, nil
}

func (r *sqlxRepository) GetByID(ctx context.Context, id int) (*Gym, error) {
	return r.getOne(ctx, `SELECT `+gymColumns+` FROM gyms WHERE id = $1`, id)
}

func (r *sqlxRepository) FindByUsername(ctx context.Context, username string) (*Gym, error) {
	return r.getOne(ctx, `SELECT `+gymColumns+` FROM gyms WHERE username = $1`, username)
}

func (r *sqlxRepository) FindByEmail(ctx context.Context, email string) (*Gym, error) {
	return r.getOne(ctx, `SELECT `+gymColumns+` FROM gyms WHERE email = $1`, email)
}

func (r *sqlxRepository) getOne(ctx context.Context, query string, arg any) (*Gym, error) {
	var g Gym
	err := r.db.GetContext(ctx, &g, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGymNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get gym: %w", err)
	}
	return &g, nil
}

func (r *sqlxRepository) ListAll(ctx context.Context) ([]Gym, error) {
	query := `SELECT ` + gymColumns + ` FROM gyms ORDER BY id ASC`

	gyms := []Gym{}
	if err := r.db.SelectContext(ctx, &gyms, query); err != nil {
		return nil, fmt.Errorf("list gyms: %w", err)
	}
	return gyms, nil
}

func (r *sqlxRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM gyms WHERE username = $1)`, username)
}

func (r *sqlxRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM gyms WHERE email = $1)`, email)
}

func (r *sqlxRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE gyms SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n == 0 {
		return ErrGymNotFound
	}
	return nil
}

func (r *sqlxRepository) SetLogoURL(ctx context.Context, id int, url string) (*Gym, error) {
	query := `UPDATE gyms SET logo_url = $1 WHERE id = $2 RETURNING ` + gymColumns

	var g Gym
	err := r.db.GetContext(ctx, &g, query, url, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGymNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("set logo: %w", err)
	}
	return &g, nil
}

// conflict maps a unique violation that slipped past the exists checks to
// the matching sentinel.
func conflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case "gyms_username_key":
			return ErrUsernameTaken
		case "gyms_email_key":
			return ErrEmailTaken
		}
	}
	return fmt.Errorf("insert gym: %w", err)
}
