// Package service implements the login session flow: password check, one-time
// code verification, token pair rotation and password reset. Passwords prove
// identity; possession of the mailbox (OTP, reset token) completes it.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"covergate/internal/audit"
	"covergate/internal/auth/notify"
	"covergate/internal/auth/tokens"
	"covergate/internal/identity/models"
	"covergate/internal/platform/metrics"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/platform/sentinel"
	"covergate/pkg/secrets"
)

// UserStore is the slice of the identity store this service needs.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	List(ctx context.Context) ([]*models.User, error)
}

// CredentialStore holds the transient credential side-channels.
type CredentialStore interface {
	SetOTP(ctx context.Context, userID uuid.UUID, code string, ttl time.Duration) error
	ConsumeOTP(ctx context.Context, userID uuid.UUID, code string) error
	SetResetToken(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error
	ConsumeResetToken(ctx context.Context, token string) (uuid.UUID, error)
	SetRefreshToken(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error
	MatchRefreshToken(ctx context.Context, userID uuid.UUID, token string) error
	DeleteRefreshToken(ctx context.Context, userID uuid.UUID) error
}

// TokenIssuer mints and validates the access/refresh pair.
type TokenIssuer interface {
	GeneratePair(userID uuid.UUID, role string) (access string, refresh string, err error)
	Validate(tokenString string, kind tokens.TokenKind) (*tokens.Claims, error)
	RefreshTTL() time.Duration
}

// AuditPublisher records security-relevant mutations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// TokenPair is the result of a completed login or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Service orchestrates registration and the two-step login session flow.
type Service struct {
	users    UserStore
	creds    CredentialStore
	issuer   TokenIssuer
	notifier notify.Notifier
	logger   *slog.Logger
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	otpTTL   time.Duration
	resetTTL time.Duration
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a Service.
func New(users UserStore, creds CredentialStore, issuer TokenIssuer, notifier notify.Notifier, otpTTL, resetTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		users:    users,
		creds:    creds,
		issuer:   issuer,
		notifier: notifier,
		logger:   slog.Default(),
		otpTTL:   otpTTL,
		resetTTL: resetTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRequest carries the sign-up payload.
type RegisterRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
	Phone    string      `json:"phone"`
	Age      int         `json:"age"`
}

// Register creates a new user account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if len(req.Password) < 8 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	hash, err := secrets.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := models.NewUser(uuid.New(), req.Name, req.Email, hash, req.Role, s.now())
	if err != nil {
		return nil, err
	}
	user.Phone = strings.TrimSpace(req.Phone)
	if req.Age != 0 {
		if req.Age < 18 || req.Age > 120 {
			return nil, dErrors.New(dErrors.CodeValidation, "age must be between 18 and 120")
		}
		user.Age = req.Age
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.emit(ctx, audit.Event{Action: audit.ActionUserRegistered, ActorID: user.ID.String(), Subject: user.ID.String()})
	if s.metrics != nil {
		s.metrics.UsersRegistered.Inc()
	}
	return user, nil
}

// invalidCredentials is shape-identical for unknown email and bad password
// so responses do not reveal which accounts exist.
func invalidCredentials() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}

// Login verifies the password and, on success, issues a one-time code
// through the notifier. The session is not established until VerifyOTP.
func (s *Service) Login(ctx context.Context, email, password string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.emit(ctx, audit.Event{Action: audit.ActionLoginFailed, Subject: email, Reason: "unknown email"})
			return invalidCredentials()
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	if err := secrets.VerifyPassword(password, user.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.emit(ctx, audit.Event{Action: audit.ActionLoginFailed, ActorID: user.ID.String(), Reason: "bad password"})
			return invalidCredentials()
		}
		return err
	}

	code, err := secrets.GenerateOTP()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate login code")
	}
	if err := s.creds.SetOTP(ctx, user.ID, code, s.otpTTL); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store login code")
	}
	if err := s.notifier.SendOTP(ctx, user.Email, code); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to deliver login code")
	}

	s.emit(ctx, audit.Event{Action: audit.ActionLoginStarted, ActorID: user.ID.String()})
	if s.metrics != nil {
		s.metrics.LoginsStarted.Inc()
	}
	return nil
}

// VerifyOTP consumes the pending login code and establishes the session:
// a fresh access/refresh pair, the refresh half persisted as the single
// valid one.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*models.User, TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, TokenPair{}, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired code")
		}
		return nil, TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	if err := s.creds.ConsumeOTP(ctx, user.ID, code); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound),
			errors.Is(err, sentinel.ErrExpired),
			errors.Is(err, sentinel.ErrInvalidState):
			return nil, TokenPair{}, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired code")
		default:
			return nil, TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify login code")
		}
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}

	s.emit(ctx, audit.Event{Action: audit.ActionLoginCompleted, ActorID: user.ID.String()})
	if s.metrics != nil {
		s.metrics.LoginsCompleted.Inc()
	}
	return user, pair, nil
}

// Refresh rotates the token pair. The presented token must be a valid
// refresh JWT and match the stored current one; the new pair supersedes it.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.User, TokenPair, error) {
	claims, err := s.issuer.Validate(refreshToken, tokens.KindRefresh)
	if err != nil {
		return nil, TokenPair{}, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, TokenPair{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	if err := s.creds.MatchRefreshToken(ctx, userID, refreshToken); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound),
			errors.Is(err, sentinel.ErrExpired),
			errors.Is(err, sentinel.ErrInvalidState):
			return nil, TokenPair{}, dErrors.New(dErrors.CodeUnauthorized, "refresh token is no longer valid")
		default:
			return nil, TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to match refresh token")
		}
	}

	// Re-read the user so a role change takes effect on rotation.
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, TokenPair{}, dErrors.New(dErrors.CodeUnauthorized, "refresh token is no longer valid")
		}
		return nil, TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.emit(ctx, audit.Event{Action: audit.ActionTokenRefreshed, ActorID: user.ID.String()})
	return user, pair, nil
}

func (s *Service) issuePair(ctx context.Context, user *models.User) (TokenPair, error) {
	access, refresh, err := s.issuer.GeneratePair(user.ID, string(user.Role))
	if err != nil {
		return TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue tokens")
	}
	if err := s.creds.SetRefreshToken(ctx, user.ID, refresh, s.issuer.RefreshTTL()); err != nil {
		return TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist refresh token")
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout invalidates the stored refresh token. The access token simply ages
// out.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.creds.DeleteRefreshToken(ctx, userID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to invalidate session")
	}
	s.emit(ctx, audit.Event{Action: audit.ActionLogout, ActorID: userID.String()})
	return nil
}

// RequestPasswordReset issues a single-use reset token through the notifier.
// Returns NotFound for unknown emails; the handler flattens that to a
// success-shaped response so the endpoint cannot be used to enumerate
// accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.emit(ctx, audit.Event{Action: audit.ActionPasswordResetRequested, Subject: email, Reason: "unknown email"})
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	token, err := secrets.GenerateToken()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate reset token")
	}
	if err := s.creds.SetResetToken(ctx, user.ID, token, s.resetTTL); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store reset token")
	}
	if err := s.notifier.SendPasswordReset(ctx, user.Email, token); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to deliver reset token")
	}

	s.emit(ctx, audit.Event{Action: audit.ActionPasswordResetRequested, ActorID: user.ID.String()})
	return nil
}

// ResetPassword consumes a reset token and replaces the password hash. All
// sessions are invalidated.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}

	userID, err := s.creds.ConsumeResetToken(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrExpired):
			return dErrors.New(dErrors.CodeUnauthorized, "invalid or expired reset token")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify reset token")
		}
	}

	hash, err := secrets.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid or expired reset token")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update password")
	}
	if err := s.creds.DeleteRefreshToken(ctx, userID); err != nil {
		s.logger.Warn("failed to invalidate sessions after password reset", "user_id", userID, "error", err)
	}

	s.emit(ctx, audit.Event{Action: audit.ActionPasswordReset, ActorID: userID.String()})
	return nil
}

// Me returns the caller's own profile.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of the update to the caller's
// profile.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if err := user.Apply(upd, s.now()); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
	}
	return user, nil
}

// ListUsers returns all users. The handler restricts this to ADMIN.
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Emit(ctx, event)
	}
}
