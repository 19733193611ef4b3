package member

import (
	"context"
	"errors"
	"strings"

	"gymmanager/internal/email"
	"gymmanager/internal/lifecycle"
	"gymmanager/internal/logger"
	"gymmanager/internal/metrics"
	"gymmanager/internal/plan"
	"gymmanager/internal/storage"
)

var (
	ErrMemberNotFound     = errors.New("member not found")
	ErrInvalidMember      = errors.New("invalid member")
	ErrStorageUnavailable = errors.New("object storage is not configured")
)

// ValidationError reports the offending field. It matches ErrInvalidMember.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidMember }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

type PlanGetter interface {
	Get(ctx context.Context, gymID, id int) (*plan.Plan, error)
}

// StatsInvalidator drops cached dashboard numbers after a member changes.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, gymID int) error
}

type RenewalNotifier interface {
	NotifyRenewal(ctx context.Context, gymID int, receipt email.Receipt) error
}

type Service interface {
	Enroll(ctx context.Context, gymID int, req EnrollRequest) (*View, error)
	Get(ctx context.Context, gymID, id int) (*View, error)
	List(ctx context.Context, gymID int, f Filter, page, limit int) ([]View, int, error)
	Renew(ctx context.Context, gymID, id int, req RenewRequest) (*View, error)
	SetActive(ctx context.Context, gymID, id int, active bool) (*View, error)
	SetPaid(ctx context.Context, gymID, id int, paid bool) (*View, error)
	UpdateDetails(ctx context.Context, gymID, id int, req UpdateRequest) (*View, error)
	Delete(ctx context.Context, gymID, id int) error
	UploadPhoto(ctx context.Context, gymID, id int, up *storage.Upload) (*View, error)
}

type service struct {
	repo     Repository
	plans    PlanGetter
	store    storage.Store
	stats    StatsInvalidator
	notifier RenewalNotifier
	now      lifecycle.Clock
}

// NewService wires the member mutators. store, stats and notifier may be nil.
func NewService(
	repo Repository,
	plans PlanGetter,
	store storage.Store,
	stats StatsInvalidator,
	notifier RenewalNotifier,
	clock lifecycle.Clock,
) Service {
	if clock == nil {
		clock = lifecycle.SystemClock
	}
	return &service{
		repo:     repo,
		plans:    plans,
		store:    store,
		stats:    stats,
		notifier: notifier,
		now:      clock,
	}
}

func (s *service) view(m *Member) *View {
	v := NewView(*m, s.now())
	return &v
}

func (s *service) invalidate(ctx context.Context, gymID int) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Invalidate(ctx, gymID); err != nil {
		logger.Warn("failed to invalidate dashboard stats", "gym_id", gymID, "error", err)
	}
}

func required(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", invalid(field, field+" is required")
	}
	return v, nil
}

func (s *service) Enroll(ctx context.Context, gymID int, req EnrollRequest) (*View, error) {
	name, err := required("name", req.Name)
	if err != nil {
		return nil, err
	}
	phone, err := required("phone", req.Phone)
	if err != nil {
		return nil, err
	}
	address, err := required("address", req.Address)
	if err != nil {
		return nil, err
	}
	if req.JoiningDate == nil || req.JoiningDate.IsZero() {
		return nil, invalid("joiningDate", "joiningDate is required")
	}

	m := &Member{
		GymID:        gymID,
		Name:         name,
		Phone:        phone,
		Address:      address,
		PhotoURL:     req.PhotoURL,
		JoiningDate:  *req.JoiningDate,
		NextBillDate: *req.JoiningDate,
		IsActive:     true,
		IsPaid:       req.IsPaid,
	}
	if req.IsActive != nil {
		m.IsActive = *req.IsActive
	}

	if req.MembershipPlanID != nil {
		p, err := s.plans.Get(ctx, gymID, *req.MembershipPlanID)
		if err != nil {
			return nil, err
		}
		m.MembershipPlanID = &p.ID
		m.NextBillDate = lifecycle.NextBillDate(m.JoiningDate, p.DurationMonths)
	}

	created, err := s.repo.Create(ctx, m)
	if err != nil {
		return nil, err
	}

	metrics.RecordEnrollment()
	s.invalidate(ctx, gymID)
	logger.Info("member enrolled", "gym_id", gymID, "member_id", created.ID, "next_bill_date", created.NextBillDate.String())

	return s.view(created), nil
}

func (s *service) Get(ctx context.Context, gymID, id int) (*View, error) {
	m, err := s.repo.GetByID(ctx, gymID, id)
	if err != nil {
		return nil, err
	}
	return s.view(m), nil
}

func (s *service) List(ctx context.Context, gymID int, f Filter, page, limit int) ([]View, int, error) {
	now := s.now()
	members, total, err := s.repo.List(ctx, gymID, f, now, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return NewViews(members, now), total, nil
}

// Renew restarts the billing window from today with the given plan. Unused
// days left on the previous cycle are discarded.
func (s *service) Renew(ctx context.Context, gymID, id int, req RenewRequest) (*View, error) {
	if _, err := s.repo.GetByID(ctx, gymID, id); err != nil {
		return nil, err
	}
	p, err := s.plans.Get(ctx, gymID, req.MembershipPlanID)
	if err != nil {
		return nil, err
	}

	paid := true
	if req.IsPaid != nil {
		paid = *req.IsPaid
	}
	nextBill := lifecycle.NextBillDate(lifecycle.Today(s.now()), p.DurationMonths)

	renewed, err := s.repo.Renew(ctx, gymID, id, p.ID, nextBill, paid)
	if err != nil {
		return nil, err
	}

	metrics.RecordRenewal(p.DurationMonths, paid)
	s.invalidate(ctx, gymID)
	if s.notifier != nil {
		receipt := email.Receipt{
			MemberName:   renewed.Name,
			PlanName:     p.Name,
			Price:        p.Price,
			Paid:         paid,
			NextBillDate: renewed.NextBillDate,
		}
		if err := s.notifier.NotifyRenewal(ctx, gymID, receipt); err != nil {
			logger.Warn("failed to queue renewal receipt", "gym_id", gymID, "member_id", id, "error", err)
		}
	}

	return s.view(renewed), nil
}

func (s *service) SetActive(ctx context.Context, gymID, id int, active bool) (*View, error) {
	m, err := s.repo.SetActive(ctx, gymID, id, active)
	if err != nil {
		return nil, err
	}
	metrics.RecordStatusChange("active", active)
	s.invalidate(ctx, gymID)
	return s.view(m), nil
}

func (s *service) SetPaid(ctx context.Context, gymID, id int, paid bool) (*View, error) {
	m, err := s.repo.SetPaid(ctx, gymID, id, paid)
	if err != nil {
		return nil, err
	}
	metrics.RecordStatusChange("paid", paid)
	s.invalidate(ctx, gymID)
	return s.view(m), nil
}

func samePlan(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *service) UpdateDetails(ctx context.Context, gymID, id int, req UpdateRequest) (*View, error) {
	m, err := s.repo.GetByID(ctx, gymID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if m.Name, err = required("name", *req.Name); err != nil {
			return nil, err
		}
	}
	if req.Phone != nil {
		if m.Phone, err = required("phone", *req.Phone); err != nil {
			return nil, err
		}
	}
	if req.Address != nil {
		if m.Address, err = required("address", *req.Address); err != nil {
			return nil, err
		}
	}
	if req.PhotoURL != nil {
		m.PhotoURL = req.PhotoURL
	}
	if req.JoiningDate != nil {
		if req.JoiningDate.IsZero() {
			return nil, invalid("joiningDate", "joiningDate cannot be empty")
		}
		m.JoiningDate = *req.JoiningDate
	}
	if req.IsActive != nil {
		m.IsActive = *req.IsActive
	}
	if req.IsPaid != nil {
		m.IsPaid = *req.IsPaid
	}

	switch {
	case req.MembershipPlanID.Set && !samePlan(m.MembershipPlanID, req.MembershipPlanID.Value):
		m.NextBillDate = m.JoiningDate
		m.MembershipPlanID = nil
		if req.MembershipPlanID.Value != nil {
			p, err := s.plans.Get(ctx, gymID, *req.MembershipPlanID.Value)
			if err != nil {
				return nil, err
			}
			m.MembershipPlanID = &p.ID
			m.NextBillDate = lifecycle.NextBillDate(m.JoiningDate, p.DurationMonths)
		}
	case req.NextBillDate != nil:
		if req.NextBillDate.IsZero() {
			return nil, invalid("nextBillDate", "nextBillDate cannot be empty")
		}
		m.NextBillDate = *req.NextBillDate
	}

	updated, err := s.repo.Update(ctx, m)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, gymID)
	return s.view(updated), nil
}

func (s *service) Delete(ctx context.Context, gymID, id int) error {
	deleted, err := s.repo.Delete(ctx, gymID, id)
	if err != nil {
		return err
	}

	s.invalidate(ctx, gymID)
	if deleted.PhotoURL != nil {
		s.removeObject(ctx, *deleted.PhotoURL)
	}
	logger.Info("member deleted", "gym_id", gymID, "member_id", id)
	return nil
}

func (s *service) UploadPhoto(ctx context.Context, gymID, id int, up *storage.Upload) (*View, error) {
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}
	current, err := s.repo.GetByID(ctx, gymID, id)
	if err != nil {
		return nil, err
	}

	key := storage.ObjectKey(gymID, storage.KindMemberPhoto, up.Ext)
	url, err := s.store.Put(ctx, key, up.Reader, up.Size, up.ContentType)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.SetPhotoURL(ctx, gymID, id, url)
	if err != nil {
		s.removeObject(ctx, url)
		return nil, err
	}

	if current.PhotoURL != nil {
		s.removeObject(ctx, *current.PhotoURL)
	}
	return s.view(updated), nil
}

// removeObject deletes a stored image when the URL points into our bucket.
// Failures are logged only.
func (s *service) removeObject(ctx context.Context, url string) {
	if s.store == nil {
		return
	}
	key, err := s.store.KeyFromURL(url)
	if err != nil {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		logger.Warn("failed to remove stored photo", "key", key, "error", err)
	}
}
