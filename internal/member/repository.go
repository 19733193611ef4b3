package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gymmanager/internal/lifecycle"
)

const memberColumns = `id, gym_id, membership_plan_id, name, phone, address, photo_url,
	joining_date, next_bill_date, is_active, is_paid, created_at`

type sqlxRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &sqlxRepository{db: db}
}

func (r *sqlxRepository) Create(ctx context.Context, m *Member) (*Member, error) {
	query := `
		INSERT INTO members (gym_id, membership_plan_id, name, phone, address, photo_url,
			joining_date, next_bill_date, is_active, is_paid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + memberColumns

	var created Member
	err := r.db.GetContext(ctx, &created, query,
		m.GymID, m.MembershipPlanID, m.Name, m.Phone, m.Address, m.PhotoURL,
		m.JoiningDate, m.NextBillDate, m.IsActive, m.IsPaid)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}

	return &created, nil
}

func (r *sqlxRepository) GetByID(ctx context.Context, gymID, id int) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1 AND gym_id = $2`

	var m Member
	if err := r.db.GetContext(ctx, &m, query, id, gymID); err != nil {
		return nil, notFound(err, "get member")
	}

	return &m, nil
}

func (r *sqlxRepository) Update(ctx context.Context, m *Member) (*Member, error) {
	query := `
		UPDATE members
		SET membership_plan_id = $1, name = $2, phone = $3, address = $4, photo_url = $5,
			joining_date = $6, next_bill_date = $7, is_active = $8, is_paid = $9
		WHERE id = $10 AND gym_id = $11
		RETURNING ` + memberColumns

	var updated Member
	err := r.db.GetContext(ctx, &updated, query,
		m.MembershipPlanID, m.Name, m.Phone, m.Address, m.PhotoURL,
		m.JoiningDate, m.NextBillDate, m.IsActive, m.IsPaid, m.ID, m.GymID)
	if err != nil {
		return nil, notFound(err, "update member")
	}

	return &updated, nil
}

func (r *sqlxRepository) SetActive(ctx context.Context, gymID, id int, active bool) (*Member, error) {
	return r.updateOne(ctx, "set active", `is_active = $1`, id, gymID, active)
}

func (r *sqlxRepository) SetPaid(ctx context.Context, gymID, id int, paid bool) (*Member, error) {
	return r.updateOne(ctx, "set paid", `is_paid = $1`, id, gymID, paid)
}

func (r *sqlxRepository) SetPhotoURL(ctx context.Context, gymID, id int, url string) (*Member, error) {
	return r.updateOne(ctx, "set photo", `photo_url = $1`, id, gymID, url)
}

func (r *sqlxRepository) Renew(ctx context.Context, gymID, id, planID int, nextBill lifecycle.Date, paid bool) (*Member, error) {
	return r.updateOne(ctx, "renew member",
		`membership_plan_id = $1, next_bill_date = $2, is_paid = $3, is_active = TRUE`,
		id, gymID, planID, nextBill, paid)
}

// updateOne runs UPDATE members SET <set> on one gym-scoped row. Placeholders
// in set start at $1; id and gym id follow them.
func (r *sqlxRepository) updateOne(ctx context.Context, op, set string, id, gymID int, values ...any) (*Member, error) {
	n := len(values)
	query := fmt.Sprintf(`
		UPDATE members
		SET %s
		WHERE id = $%d AND gym_id = $%d
		RETURNING %s`, set, n+1, n+2, memberColumns)

	args := append(values, id, gymID)

	var m Member
	if err := r.db.GetContext(ctx, &m, query, args...); err != nil {
		return nil, notFound(err, op)
	}

	return &m, nil
}

func (r *sqlxRepository) Delete(ctx context.Context, gymID, id int) (*Member, error) {
	query := `DELETE FROM members WHERE id = $1 AND gym_id = $2 RETURNING ` + memberColumns

	var m Member
	if err := r.db.GetContext(ctx, &m, query, id, gymID); err != nil {
		return nil, notFound(err, "delete member")
	}

	return &m, nil
}

func (r *sqlxRepository) List(ctx context.Context, gymID int, f Filter, now time.Time, page, limit int) ([]Member, int, error) {
	c := newCriteria(gymID)
	c.apply(f, now)

	var total int
	countQuery := rebind(`SELECT COUNT(*) FROM members` + c.where())
	if err := r.db.GetContext(ctx, &total, countQuery, c.args...); err != nil {
		return nil, 0, fmt.Errorf("count members: %w", err)
	}

	members := []Member{}
	if total == 0 {
		return members, 0, nil
	}

	query := rebind(`SELECT ` + memberColumns + ` FROM members` + c.where() + orderFor(f.Status) + ` LIMIT ? OFFSET ?`)
	args := append(c.args, limit, (page-1)*limit)
	if err := r.db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list members: %w", err)
	}

	return members, total, nil
}

func (r *sqlxRepository) ListExpiring(ctx context.Context, gymID int, now time.Time, days int) ([]Member, error) {
	c := newCriteria(gymID)
	clause, args := expiringClause(now, days)
	c.add(clause, args...)
	return r.selectMembers(ctx, c, orderFor(lifecycle.StatusExpiringSoon), "list expiring members")
}

func (r *sqlxRepository) ListExpired(ctx context.Context, gymID int, now time.Time) ([]Member, error) {
	c := newCriteria(gymID)
	clause, args := statusClause(lifecycle.StatusExpired, now)
	c.add(clause, args...)
	return r.selectMembers(ctx, c, orderFor(lifecycle.StatusExpired), "list expired members")
}

func (r *sqlxRepository) selectMembers(ctx context.Context, c *criteria, order, op string) ([]Member, error) {
	query := rebind(`SELECT ` + memberColumns + ` FROM members` + c.where() + order)

	members := []Member{}
	if err := r.db.SelectContext(ctx, &members, query, c.args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return members, nil
}

func (r *sqlxRepository) Stats(ctx context.Context, gymID int, now time.Time) (*Stats, error) {
	first, last := lifecycle.MonthRange(now)
	soon, soonArgs := expiringClause(now, lifecycle.ExpiringSoonDays)
	week, weekArgs := expiringClause(now, lifecycle.ExpiringWeekDays)
	expired, expiredArgs := statusClause(lifecycle.StatusExpired, now)
	inactive, _ := statusClause(lifecycle.StatusInactive, now)
	active, activeArgs := statusClause(lifecycle.StatusActive, now)

	query := `
		SELECT
			COUNT(*) AS total_members,
			COUNT(*) FILTER (WHERE joining_date BETWEEN ? AND ?) AS joined_this_month,
			COUNT(*) FILTER (WHERE ` + soon + `) AS expiring_in_3_days,
			COUNT(*) FILTER (WHERE ` + week + `) AS expiring_in_week,
			COUNT(*) FILTER (WHERE ` + expired + `) AS expired,
			COUNT(*) FILTER (WHERE ` + inactive + `) AS inactive,
			COUNT(*) FILTER (WHERE ` + active + `) AS active
		FROM members
		WHERE gym_id = ?`

	args := []any{first, last}
	args = append(args, soonArgs...)
	args = append(args, weekArgs...)
	args = append(args, expiredArgs...)
	args = append(args, activeArgs...)
	args = append(args, gymID)

	var stats Stats
	if err := r.db.GetContext(ctx, &stats, rebind(query), args...); err != nil {
		return nil, fmt.Errorf("member stats: %w", err)
	}

	return &stats, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMemberNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
