package plan

import "context"

type Repository interface {
	Create(ctx context.Context, p *Plan) (*Plan, error)
	ListByGym(ctx context.Context, gymID int, onlyActive bool) ([]Plan, error)
	GetByID(ctx context.Context, gymID, id int) (*Plan, error)
	Update(ctx context.Context, p *Plan) (*Plan, error)
	Delete(ctx context.Context, gymID, id int) error
}
