package member

import (
	"context"
	"time"

	"gymmanager/internal/lifecycle"
)

type Repository interface {
	Create(ctx context.Context, m *Member) (*Member, error)
	GetByID(ctx context.Context, gymID, id int) (*Member, error)
	Update(ctx context.Context, m *Member) (*Member, error)
	SetActive(ctx context.Context, gymID, id int, active bool) (*Member, error)
	SetPaid(ctx context.Context, gymID, id int, paid bool) (*Member, error)
	Renew(ctx context.Context, gymID, id, planID int, nextBill lifecycle.Date, paid bool) (*Member, error)
	SetPhotoURL(ctx context.Context, gymID, id int, url string) (*Member, error)
	Delete(ctx context.Context, gymID, id int) (*Member, error)

	List(ctx context.Context, gymID int, f Filter, now time.Time, page, limit int) ([]Member, int, error)
	ListExpiring(ctx context.Context, gymID int, now time.Time, days int) ([]Member, error)
	ListExpired(ctx context.Context, gymID int, now time.Time) ([]Member, error)
	Stats(ctx context.Context, gymID int, now time.Time) (*Stats, error)
}
