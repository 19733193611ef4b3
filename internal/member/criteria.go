package member

import (
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"gymmanager/internal/lifecycle"
)

// criteria collects WHERE clauses written with ? placeholders. Bucket bounds
// come from lifecycle so SQL counts agree with Classify.
type criteria struct {
	clauses []string
	args    []any
}

func newCriteria(gymID int) *criteria {
	return &criteria{clauses: []string{"gym_id = ?"}, args: []any{gymID}}
}

func (c *criteria) add(clause string, args ...any) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

func (c *criteria) where() string {
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

func (c *criteria) apply(f Filter, now time.Time) {
	if f.Name != "" {
		c.add("name ILIKE ?", "%"+escapeLike(f.Name)+"%")
	}
	if f.Phone != "" {
		c.add("phone LIKE ?", "%"+escapeLike(f.Phone)+"%")
	}
	if f.Status != "" {
		clause, args := statusClause(f.Status, now)
		c.add(clause, args...)
	}
}

// statusClause mirrors lifecycle.Classify.
func statusClause(status lifecycle.Status, now time.Time) (string, []any) {
	today, soon := lifecycle.ExpiringWindow(now, lifecycle.ExpiringSoonDays)
	switch status {
	case lifecycle.StatusInactive:
		return "NOT is_active", nil
	case lifecycle.StatusExpired:
		return "is_active AND next_bill_date < ?", []any{today}
	case lifecycle.StatusExpiringSoon:
		return "is_active AND next_bill_date BETWEEN ? AND ?", []any{today, soon}
	default:
		return "is_active AND next_bill_date > ?", []any{soon}
	}
}

func expiringClause(now time.Time, days int) (string, []any) {
	from, to := lifecycle.ExpiringWindow(now, days)
	return "is_active AND next_bill_date BETWEEN ? AND ?", []any{from, to}
}

func orderFor(status lifecycle.Status) string {
	switch status {
	case lifecycle.StatusExpiringSoon, lifecycle.StatusExpired:
		return " ORDER BY next_bill_date ASC, id ASC"
	default:
		return " ORDER BY created_at DESC, id DESC"
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func rebind(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}
