package plan

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrPlanNotFound = errors.New("membership plan not found")
	ErrInvalidPlan  = errors.New("invalid membership plan")
)

type Service interface {
	Create(ctx context.Context, gymID int, req PlanRequest) (*Plan, error)
	List(ctx context.Context, gymID int, onlyActive bool) ([]Plan, error)
	Get(ctx context.Context, gymID, id int) (*Plan, error)
	Update(ctx context.Context, gymID, id int, req PlanRequest) (*Plan, error)
	Delete(ctx context.Context, gymID, id int) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
	}
}

func fromRequest(gymID int, req PlanRequest) (*Plan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.DurationMonths < 1 || req.Price == nil || *req.Price < 0 {
		return nil, ErrInvalidPlan
	}

	p := &Plan{
		GymID:          gymID,
		Name:           name,
		DurationMonths: req.DurationMonths,
		Price:          *req.Price,
		Description:    req.Description,
		IsActive:       true,
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	return p, nil
}

func (s *service) Create(ctx context.Context, gymID int, req PlanRequest) (*Plan, error) {
	p, err := fromRequest(gymID, req)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, p)
}

func (s *service) List(ctx context.Context, gymID int, onlyActive bool) ([]Plan, error) {
	return s.repo.ListByGym(ctx, gymID, onlyActive)
}

func (s *service) Get(ctx context.Context, gymID, id int) (*Plan, error) {
	return s.repo.GetByID(ctx, gymID, id)
}

func (s *service) Update(ctx context.Context, gymID, id int, req PlanRequest) (*Plan, error) {
	p, err := fromRequest(gymID, req)
	if err != nil {
		return nil, err
	}
	p.ID = id
	return s.repo.Update(ctx, p)
}

func (s *service) Delete(ctx context.Context, gymID, id int) error {
	return s.repo.Delete(ctx, gymID, id)
}
