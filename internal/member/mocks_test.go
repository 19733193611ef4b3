package member

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"gymmanager/internal/email"
	"gymmanager/internal/lifecycle"
	"gymmanager/internal/plan"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) member(args mock.Arguments) (*Member, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Member), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, mem *Member) (*Member, error) {
	return m.member(m.Called(ctx, mem))
}

func (m *MockRepository) GetByID(ctx context.Context, gymID, id int) (*Member, error) {
	return m.member(m.Called(ctx, gymID, id))
}

func (m *MockRepository) Update(ctx context.Context, mem *Member) (*Member, error) {
	return m.member(m.Called(ctx, mem))
}

func (m *MockRepository) SetActive(ctx context.Context, gymID, id int, active bool) (*Member, error) {
	return m.member(m.Called(ctx, gymID, id, active))
}

func (m *MockRepository) SetPaid(ctx context.Context, gymID, id int, paid bool) (*Member, error) {
	return m.member(m.Called(ctx, gymID, id, paid))
}

func (m *MockRepository) Renew(ctx context.Context, gymID, id, planID int, nextBill lifecycle.Date, paid bool) (*Member, error) {
	return m.member(m.Called(ctx, gymID, id, planID, nextBill, paid))
}

func (m *MockRepository) SetPhotoURL(ctx context.Context, gymID, id int, url string) (*Member, error) {
	return m.member(m.Called(ctx, gymID, id, url))
}

func (m *MockRepository) Delete(ctx context.Context, gymID, id int) (*Member, error) {
	return m.member(m.Called(ctx, gymID, id))
}

func (m *MockRepository) List(ctx context.Context, gymID int, f Filter, now time.Time, page, limit int) ([]Member, int, error) {
	args := m.Called(ctx, gymID, f, now, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]Member), args.Int(1), args.Error(2)
}

func (m *MockRepository) ListExpiring(ctx context.Context, gymID int, now time.Time, days int) ([]Member, error) {
	args := m.Called(ctx, gymID, now, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Member), args.Error(1)
}

func (m *MockRepository) ListExpired(ctx context.Context, gymID int, now time.Time) ([]Member, error) {
	args := m.Called(ctx, gymID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Member), args.Error(1)
}

func (m *MockRepository) Stats(ctx context.Context, gymID int, now time.Time) (*Stats, error) {
	args := m.Called(ctx, gymID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Stats), args.Error(1)
}

type MockPlans struct {
	mock.Mock
}

func (m *MockPlans) Get(ctx context.Context, gymID, id int) (*plan.Plan, error) {
	args := m.Called(ctx, gymID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*plan.Plan), args.Error(1)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, key, reader, size, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockStore) EnsureBucket(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockStore) KeyFromURL(url string) (string, error) {
	args := m.Called(url)
	return args.String(0), args.Error(1)
}

type MockStats struct {
	mock.Mock
}

func (m *MockStats) Invalidate(ctx context.Context, gymID int) error {
	return m.Called(ctx, gymID).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyRenewal(ctx context.Context, gymID int, receipt email.Receipt) error {
	return m.Called(ctx, gymID, receipt).Error(0)
}
