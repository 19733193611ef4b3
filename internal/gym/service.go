package gym

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"gymmanager/internal/auth"
	"gymmanager/internal/lifecycle"
	"gymmanager/internal/logger"
	"gymmanager/internal/metrics"
	"gymmanager/internal/otp"
	"gymmanager/internal/storage"
)

var (
	ErrGymNotFound        = errors.New("gym not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOTP         = errors.New("invalid or expired otp")
	ErrStorageUnavailable = errors.New("object storage is not configured")
)

// Mailer queues the account emails. *email.Service satisfies it.
type Mailer interface {
	SendPasswordResetOTP(ctx context.Context, to, gymName, code string, expiresAt time.Time) error
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Me(ctx context.Context, gymID int) (*Gym, error)
	UploadLogo(ctx context.Context, gymID int, up *storage.Upload) (*Gym, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

type Deps struct {
	Repo      Repository
	OTPs      otp.Repository
	Store     storage.Store
	Mailer    Mailer
	JWTSecret string
	Clock     lifecycle.Clock
	// Entropy feeds OTP generation; nil means crypto/rand.
	Entropy io.Reader
}

type service struct {
	repo      Repository
	otps      otp.Repository
	store     storage.Store
	mailer    Mailer
	jwtSecret string
	now       lifecycle.Clock
	entropy   io.Reader
}

func NewService(d Deps) Service {
	if d.Clock == nil {
		d.Clock = lifecycle.SystemClock
	}
	return &service{
		repo:      d.Repo,
		otps:      d.OTPs,
		store:     d.Store,
		mailer:    d.Mailer,
		jwtSecret: d.JWTSecret,
		now:       d.Clock,
		entropy:   d.Entropy,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)

	taken, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	taken, err = s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	g, err := s.repo.Create(ctx, &Gym{
		Email:        email,
		GymName:      strings.TrimSpace(req.GymName),
		Username:     username,
		PasswordHash: passwordHash,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("gym registered", "gym_id", g.ID, "username", g.Username)
	return s.issue(g)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	g, err := s.repo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, ErrGymNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(g.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(g)
}

func (s *service) issue(g *Gym) (*AuthResponse, error) {
	accessToken, refreshToken, err := auth.GenerateTokens(g.ID, g.Username, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{AccessToken: accessToken, RefreshToken: refreshToken, Gym: *g}, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	accessToken, claims, err := auth.RefreshAccessToken(refreshToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	g, err := s.repo.GetByID(ctx, claims.GymID)
	if err != nil {
		if errors.Is(err, ErrGymNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	return &AuthResponse{AccessToken: accessToken, Gym: *g}, nil
}

func (s *service) Me(ctx context.Context, gymID int) (*Gym, error) {
	return s.repo.GetByID(ctx, gymID)
}

func (s *service) UploadLogo(ctx context.Context, gymID int, up *storage.Upload) (*Gym, error) {
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}
	current, err := s.repo.GetByID(ctx, gymID)
	if err != nil {
		return nil, err
	}

	key := storage.ObjectKey(gymID, storage.KindGymLogo, up.Ext)
	url, err := s.store.Put(ctx, key, up.Reader, up.Size, up.ContentType)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.SetLogoURL(ctx, gymID, url)
	if err != nil {
		s.removeObject(ctx, url)
		return nil, err
	}

	if current.LogoURL != nil {
		s.removeObject(ctx, *current.LogoURL)
	}
	return updated, nil
}

func (s *service) removeObject(ctx context.Context, url string) {
	key, err := s.store.KeyFromURL(url)
	if err != nil {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		logger.Warn("failed to remove stored logo", "key", key, "error", err)
	}
}

// ForgotPassword issues and mails a reset code when the email belongs to a
// gym. An unknown email is not an error.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	g, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrGymNotFound) {
		logger.Debug("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	code, err := otp.GenerateCode(s.entropy)
	if err != nil {
		return err
	}

	expiresAt := s.now().Add(otp.TTL)
	if _, err := s.otps.Replace(ctx, g.Email, code, expiresAt); err != nil {
		return err
	}
	metrics.RecordOTPIssued()

	if s.mailer != nil {
		if err := s.mailer.SendPasswordResetOTP(ctx, g.Email, g.GymName, code, expiresAt); err != nil {
			return err
		}
	}

	logger.Info("password reset code issued", "gym_id", g.ID)
	return nil
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	email := normalizeEmail(req.Email)

	if _, err := s.otps.FindValid(ctx, email, req.OTP, s.now()); err != nil {
		if errors.Is(err, otp.ErrOTPNotFound) {
			s.recordOTPFailure(ctx, email)
			return ErrInvalidOTP
		}
		return err
	}

	g, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrGymNotFound) {
			return ErrInvalidOTP
		}
		return err
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, g.ID, passwordHash); err != nil {
		return err
	}

	if err := s.otps.DeleteByEmail(ctx, email); err != nil {
		return err
	}

	logger.Info("password reset", "gym_id", g.ID)
	return nil
}

// recordOTPFailure counts a wrong code. The caller answers ErrInvalidOTP
// either way, so a lockout looks the same as any other wrong code.
func (s *service) recordOTPFailure(ctx context.Context, email string) {
	locked, err := s.otps.RecordFailure(ctx, email, s.now())
	if err != nil {
		logger.Warn("failed to record otp failure", "error", err)
		return
	}
	if locked {
		metrics.RecordOTPLockout()
		logger.Warn("password reset codes revoked after repeated failures", "attempts", otp.MaxFailedAttempts)
	}
}
