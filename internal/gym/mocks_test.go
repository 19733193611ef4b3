package gym

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"gymmanager/internal/email"
	"gymmanager/internal/otp"
	"gymmanager/internal/storage"
)

type MockRepository struct {
	mock.Mock
}

func gymOrNil(args mock.Arguments) (*Gym, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Gym), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, g *Gym) (*Gym, error) {
	return gymOrNil(m.Called(ctx, g))
}

func (m *MockRepository) GetByID(ctx context.Context, id int) (*Gym, error) {
	return gymOrNil(m.Called(ctx, id))
}

func (m *MockRepository) FindByUsername(ctx context.Context, username string) (*Gym, error) {
	return gymOrNil(m.Called(ctx, username))
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*Gym, error) {
	return gymOrNil(m.Called(ctx, email))
}

func (m *MockRepository) ListAll(ctx context.Context) ([]Gym, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Gym), args.Error(1)
}

func (m *MockRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *MockRepository) SetLogoURL(ctx context.Context, id int, url string) (*Gym, error) {
	return gymOrNil(m.Called(ctx, id, url))
}

type MockOTPs struct {
	mock.Mock
}

func (m *MockOTPs) Replace(ctx context.Context, email, code string, expiresAt time.Time) (*otp.OTP, error) {
	args := m.Called(ctx, email, code, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*otp.OTP), args.Error(1)
}

func (m *MockOTPs) FindValid(ctx context.Context, email, code string, now time.Time) (*otp.OTP, error) {
	args := m.Called(ctx, email, code, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*otp.OTP), args.Error(1)
}

func (m *MockOTPs) RecordFailure(ctx context.Context, email string, now time.Time) (bool, error) {
	args := m.Called(ctx, email, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockOTPs) DeleteByEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockOTPs) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
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

var _ storage.Store = (*MockStore)(nil)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendPasswordResetOTP(ctx context.Context, to, gymName, code string, expiresAt time.Time) error {
	return m.Called(ctx, to, gymName, code, expiresAt).Error(0)
}

func (m *MockMailer) SendRenewalReceipt(ctx context.Context, to, gymName string, r email.Receipt) error {
	return m.Called(ctx, to, gymName, r).Error(0)
}
