package plan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const planColumns = `id, gym_id, name, duration_months, price, description, is_active, created_at`

type sqlxRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &sqlxRepository{db: db}
}

func (r *sqlxRepository) Create(ctx context.Context, p *Plan) (*Plan, error) {
	query := `
		INSERT INTO membership_plans (gym_id, name, duration_months, price, description, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + planColumns

	var created Plan
	err := r.db.GetContext(ctx, &created, query, p.GymID, p.Name, p.DurationMonths, p.Price, p.Description, p.IsActive)
	if err != nil {
		return nil, fmt.Errorf("insert plan: %w", err)
	}

	return &created, nil
}

func (r *sqlxRepository) ListByGym(ctx context.Context, gymID int, onlyActive bool) ([]Plan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM membership_plans
		WHERE gym_id = $1
	`
	if onlyActive {
		query += " AND is_active = TRUE"
	}
	query += " ORDER BY duration_months ASC, id ASC"

	plans := []Plan{}
	if err := r.db.SelectContext(ctx, &plans, query, gymID); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	return plans, nil
}

func (r *sqlxRepository) GetByID(ctx context.Context, gymID, id int) (*Plan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM membership_plans
		WHERE id = $1 AND gym_id = $2
	`

	var p Plan
	err := r.db.GetContext(ctx, &p, query, id, gymID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	return &p, nil
}

func (r *sqlxRepository) Update(ctx context.Context, p *Plan) (*Plan, error) {
	query := `
		UPDATE membership_plans
		SET name = $1, duration_months = $2, price = $3, description = $4, is_active = $5
		WHERE id = $6 AND gym_id = $7
		RETURNING ` + planColumns

	var updated Plan
	err := r.db.GetContext(ctx, &updated, query, p.Name, p.DurationMonths, p.Price, p.Description, p.IsActive, p.ID, p.GymID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}

	return &updated, nil
}

func (r *sqlxRepository) Delete(ctx context.Context, gymID, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM membership_plans WHERE id = $1 AND gym_id = $2`, id, gymID)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if rows == 0 {
		return ErrPlanNotFound
	}

	return nil
}
