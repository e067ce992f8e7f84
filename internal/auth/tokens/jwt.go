package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

// TokenKind distinguishes the two halves of the token pair. A refresh token
// must never be accepted where an access token is expected.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims are the JWT claims for both token kinds.
type Claims struct {
	UserID string    `json:"user_id"`
	Role   string    `json:"role"`
	Kind   TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// JWTService mints and validates the access/refresh token pair.
type JWTService struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option configures a JWTService.
type Option func(*JWTService)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) { s.now = now }
}

func NewJWTService(signingKey, issuer string, accessTTL, refreshTTL time.Duration, opts ...Option) *JWTService {
	s := &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GeneratePair mints a fresh access/refresh pair bound to the user identity
// and role.
func (s *JWTService) GeneratePair(userID uuid.UUID, role string) (access string, refresh string, err error) {
	access, err = s.generate(userID, role, KindAccess, s.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.generate(userID, role, KindRefresh, s.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *JWTService) generate(userID uuid.UUID, role string, kind TokenKind, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID.String(),
		Role:   role,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// Validate parses and verifies a token of the expected kind.
func (s *JWTService) Validate(tokenString string, kind TokenKind) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Kind != kind {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "wrong token kind")
	}
	return claims, nil
}

// ValidatePrincipal validates an access token and returns the principal it
// carries. Implements the middleware TokenValidator interface.
func (s *JWTService) ValidatePrincipal(tokenString string) (requestcontext.Principal, error) {
	claims, err := s.Validate(tokenString, KindAccess)
	if err != nil {
		return requestcontext.Principal{}, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return requestcontext.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return requestcontext.Principal{UserID: userID, Role: claims.Role}, nil
}

// AccessTTL exposes the access token lifetime for cookie expiry.
func (s *JWTService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL exposes the refresh token lifetime for cookie expiry and the
// credentials store TTL.
func (s *JWTService) RefreshTTL() time.Duration { return s.refreshTTL }
