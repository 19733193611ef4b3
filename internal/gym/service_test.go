package gym

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gymmanager/internal/api"
	"gymmanager/internal/auth"
	"gymmanager/internal/email"
	"gymmanager/internal/lifecycle"
	"gymmanager/internal/logger"
	"gymmanager/internal/metrics"
	"gymmanager/internal/otp"
	"gymmanager/internal/storage"
)

const testSecret = "test-secret"

var fixedNow = time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	logger.Init()
	api.UseJSONFieldNames()
	os.Exit(m.Run())
}

type fixture struct {
	repo   *MockRepository
	otps   *MockOTPs
	store  *MockStore
	mailer *MockMailer
	svc    Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:   new(MockRepository),
		otps:   new(MockOTPs),
		store:  new(MockStore),
		mailer: new(MockMailer),
	}
	f.svc = NewService(Deps{
		Repo:      f.repo,
		OTPs:      f.otps,
		Store:     f.store,
		Mailer:    f.mailer,
		JWTSecret: testSecret,
		Clock:     func() time.Time { return fixedNow },
		Entropy:   bytes.NewReader(make([]byte, 64)),
	})
	return f
}

func hashed(t *testing.T, password string) string {
	h, err := auth.HashPassword(password)
	require.NoError(t, err)
	return h
}

func TestService_Register(t *testing.T) {
	f := newFixture()
	req := RegisterRequest{Email: " Owner@Iron.test ", GymName: "Iron Temple ", Username: "iron", Password: "supersecret"}

	f.repo.On("UsernameExists", mock.Anything, "iron").Return(false, nil)
	f.repo.On("EmailExists", mock.Anything, "owner@iron.test").Return(false, nil)
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(g *Gym) bool {
		return g.Email == "owner@iron.test" && g.GymName == "Iron Temple" &&
			auth.CheckPassword(g.PasswordHash, "supersecret")
	})).Return(&Gym{ID: 4, Email: "owner@iron.test", GymName: "Iron Temple", Username: "iron"}, nil)

	resp, err := f.svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Gym.ID)

	claims, err := auth.ValidateToken(resp.AccessToken, testSecret)
	require.NoError(t, err)
	assert.Equal(t, 4, claims.GymID)
	assert.NotEmpty(t, resp.RefreshToken)
	f.repo.AssertExpectations(t)
}

func TestService_Register_Conflicts(t *testing.T) {
	t.Run("username", func(t *testing.T) {
		f := newFixture()
		f.repo.On("UsernameExists", mock.Anything, "iron").Return(true, nil)

		_, err := f.svc.Register(context.Background(), RegisterRequest{Email: "a@b.test", Username: "iron", Password: "supersecret"})
		assert.ErrorIs(t, err, ErrUsernameTaken)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("email", func(t *testing.T) {
		f := newFixture()
		f.repo.On("UsernameExists", mock.Anything, "iron").Return(false, nil)
		f.repo.On("EmailExists", mock.Anything, "a@b.test").Return(true, nil)

		_, err := f.svc.Register(context.Background(), RegisterRequest{Email: "a@b.test", Username: "iron", Password: "supersecret"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestService_Login(t *testing.T) {
	f := newFixture()
	g := &Gym{ID: 2, Username: "iron", PasswordHash: hashed(t, "supersecret")}
	f.repo.On("FindByUsername", mock.Anything, "iron").Return(g, nil)
	f.repo.On("FindByUsername", mock.Anything, "ghost").Return(nil, ErrGymNotFound)

	resp, err := f.svc.Login(context.Background(), LoginRequest{Username: "iron", Password: "supersecret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = f.svc.Login(context.Background(), LoginRequest{Username: "iron", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), LoginRequest{Username: "ghost", Password: "supersecret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Refresh(t *testing.T) {
	f := newFixture()
	_, refresh, err := auth.GenerateTokens(2, "iron", testSecret)
	require.NoError(t, err)
	f.repo.On("GetByID", mock.Anything, 2).Return(&Gym{ID: 2, Username: "iron"}, nil)

	resp, err := f.svc.Refresh(context.Background(), refresh)
	require.NoError(t, err)
	assert.Empty(t, resp.RefreshToken)

	claims, err := auth.ValidateToken(resp.AccessToken, testSecret)
	require.NoError(t, err)
	assert.Equal(t, 2, claims.GymID)
}

func TestService_Refresh_RejectsAccessToken(t *testing.T) {
	f := newFixture()
	access, _, err := auth.GenerateTokens(2, "iron", testSecret)
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), access)
	assert.ErrorIs(t, err, auth.ErrInvalidTokenType)
}

func TestService_Refresh_DeletedGym(t *testing.T) {
	f := newFixture()
	_, refresh, err := auth.GenerateTokens(9, "gone", testSecret)
	require.NoError(t, err)
	f.repo.On("GetByID", mock.Anything, 9).Return(nil, ErrGymNotFound)

	_, err = f.svc.Refresh(context.Background(), refresh)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_ForgotPassword(t *testing.T) {
	f := newFixture()
	expires := fixedNow.Add(otp.TTL)
	g := &Gym{ID: 2, Email: "owner@iron.test", GymName: "Iron Temple"}
	before := testutil.ToFloat64(metrics.OTPsIssuedTotal)

	f.repo.On("FindByEmail", mock.Anything, "owner@iron.test").Return(g, nil)
	f.otps.On("Replace", mock.Anything, "owner@iron.test", "000000", expires).Return(&otp.OTP{ID: 1}, nil)
	f.mailer.On("SendPasswordResetOTP", mock.Anything, "owner@iron.test", "Iron Temple", "000000", expires).Return(nil)

	require.NoError(t, f.svc.ForgotPassword(context.Background(), "OWNER@iron.test"))
	f.otps.AssertExpectations(t)
	f.mailer.AssertExpectations(t)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.OTPsIssuedTotal))
}

func TestService_ForgotPassword_UnknownEmail(t *testing.T) {
	f := newFixture()
	f.repo.On("FindByEmail", mock.Anything, "ghost@nowhere.test").Return(nil, ErrGymNotFound)

	assert.NoError(t, f.svc.ForgotPassword(context.Background(), "ghost@nowhere.test"))
	f.otps.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.mailer.AssertNotCalled(t, "SendPasswordResetOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ForgotPassword_StoreError(t *testing.T) {
	f := newFixture()
	f.repo.On("FindByEmail", mock.Anything, "owner@iron.test").Return(&Gym{ID: 2, Email: "owner@iron.test"}, nil)
	f.otps.On("Replace", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	assert.Error(t, f.svc.ForgotPassword(context.Background(), "owner@iron.test"))
	f.mailer.AssertNotCalled(t, "SendPasswordResetOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ResetPassword(t *testing.T) {
	f := newFixture()
	req := ResetPasswordRequest{Email: "owner@iron.test", OTP: "123456", NewPassword: "brandnewpass"}

	f.otps.On("FindValid", mock.Anything, "owner@iron.test", "123456", fixedNow).Return(&otp.OTP{ID: 1}, nil)
	f.repo.On("FindByEmail", mock.Anything, "owner@iron.test").Return(&Gym{ID: 2, Email: "owner@iron.test"}, nil)
	f.repo.On("UpdatePassword", mock.Anything, 2, mock.MatchedBy(func(h string) bool {
		return auth.CheckPassword(h, "brandnewpass")
	})).Return(nil)
	f.otps.On("DeleteByEmail", mock.Anything, "owner@iron.test").Return(nil)

	require.NoError(t, f.svc.ResetPassword(context.Background(), req))
	f.repo.AssertExpectations(t)
	f.otps.AssertExpectations(t)
}

func TestService_ResetPassword_InvalidCode(t *testing.T) {
	f := newFixture()
	f.otps.On("FindValid", mock.Anything, "owner@iron.test", "999999", fixedNow).Return(nil, otp.ErrOTPNotFound)
	f.otps.On("RecordFailure", mock.Anything, "owner@iron.test", fixedNow).Return(false, nil)

	err := f.svc.ResetPassword(context.Background(), ResetPasswordRequest{Email: "owner@iron.test", OTP: "999999", NewPassword: "brandnewpass"})
	assert.ErrorIs(t, err, ErrInvalidOTP)
	f.repo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	f.otps.AssertExpectations(t)
}

func TestService_ResetPassword_LockoutLooksLikeWrongCode(t *testing.T) {
	f := newFixture()
	before := testutil.ToFloat64(metrics.OTPLockoutsTotal)

	f.otps.On("FindValid", mock.Anything, "owner@iron.test", "111111", fixedNow).Return(nil, otp.ErrOTPNotFound)
	f.otps.On("RecordFailure", mock.Anything, "owner@iron.test", fixedNow).Return(true, nil)

	err := f.svc.ResetPassword(context.Background(), ResetPasswordRequest{Email: " Owner@Iron.test", OTP: "111111", NewPassword: "brandnewpass"})
	assert.ErrorIs(t, err, ErrInvalidOTP)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.OTPLockoutsTotal))
	f.otps.AssertExpectations(t)
}

func TestService_ResetPassword_FailureCountErrorStillInvalid(t *testing.T) {
	f := newFixture()
	f.otps.On("FindValid", mock.Anything, "owner@iron.test", "111111", fixedNow).Return(nil, otp.ErrOTPNotFound)
	f.otps.On("RecordFailure", mock.Anything, "owner@iron.test", fixedNow).Return(false, errors.New("db down"))

	err := f.svc.ResetPassword(context.Background(), ResetPasswordRequest{Email: "owner@iron.test", OTP: "111111", NewPassword: "brandnewpass"})
	assert.ErrorIs(t, err, ErrInvalidOTP)
}

func TestService_UploadLogo(t *testing.T) {
	f := newFixture()
	old := "http://cdn/gym-media/gyms/2/logo/old.png"
	up := &storage.Upload{Reader: strings.NewReader("img"), Size: 3, ContentType: "image/png", Ext: ".png"}

	f.repo.On("GetByID", mock.Anything, 2).Return(&Gym{ID: 2, LogoURL: &old}, nil)
	f.store.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "gyms/2/logo/") && strings.HasSuffix(key, ".png")
	}), up.Reader, int64(3), "image/png").Return("http://cdn/gym-media/gyms/2/logo/new.png", nil)
	f.repo.On("SetLogoURL", mock.Anything, 2, "http://cdn/gym-media/gyms/2/logo/new.png").
		Return(&Gym{ID: 2}, nil)
	f.store.On("KeyFromURL", old).Return("gyms/2/logo/old.png", nil)
	f.store.On("Delete", mock.Anything, "gyms/2/logo/old.png").Return(nil)

	_, err := f.svc.UploadLogo(context.Background(), 2, up)
	require.NoError(t, err)
	f.store.AssertExpectations(t)
}

func TestService_UploadLogo_NoStore(t *testing.T) {
	svc := NewService(Deps{Repo: new(MockRepository)})

	_, err := svc.UploadLogo(context.Background(), 2, &storage.Upload{})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestNotifier_NotifyRenewal(t *testing.T) {
	repo, mailer := new(MockRepository), new(MockMailer)
	n := NewNotifier(repo, mailer)

	repo.On("GetByID", mock.Anything, 2).Return(&Gym{ID: 2, Email: "owner@iron.test", GymName: "Iron Temple"}, nil)
	mailer.On("SendRenewalReceipt", mock.Anything, "owner@iron.test", "Iron Temple", mock.Anything).Return(nil)

	require.NoError(t, n.NotifyRenewal(context.Background(), 2, emailReceipt()))
	mailer.AssertExpectations(t)
}

func emailReceipt() email.Receipt {
	return email.Receipt{MemberName: "Asha", PlanName: "Monthly", Price: 20, Paid: true, NextBillDate: lifecycle.NewDate(2024, 8, 1)}
}
