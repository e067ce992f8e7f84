package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"covergate/internal/auth/credentials"
	"covergate/internal/auth/service"
	"covergate/internal/auth/tokens"
	"covergate/internal/identity/models"
	"covergate/internal/identity/store"
)

type stubNotifier struct {
	mu   sync.Mutex
	otps map[string]string
}

func (n *stubNotifier) SendOTP(_ context.Context, email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.otps[email] = code
	return nil
}

func (n *stubNotifier) SendPasswordReset(context.Context, string, string) error { return nil }

func (n *stubNotifier) lastOTP(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.otps[email]
}

type AuthHandlerSuite struct {
	suite.Suite
	router   chi.Router
	notifier *stubNotifier
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	users := store.NewInMemory()
	creds := credentials.NewInMemory()
	issuer := tokens.NewJWTService("test-key", "covergate-test", 15*time.Minute, 7*24*time.Hour)
	s.notifier = &stubNotifier{otps: make(map[string]string)}

	svc := service.New(users, creds, issuer, s.notifier, 10*time.Minute, time.Hour, service.WithLogger(logger))
	h := New(svc, issuer, logger, issuer.AccessTTL(), issuer.RefreshTTL())

	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *AuthHandlerSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *AuthHandlerSuite) registerAndLogin(email string, role models.Role) sessionResponse {
	rec := s.do(http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Jo Vance", "email": email, "password": "sturdy-password", "role": role,
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": email, "password": "sturdy-password",
	})
	require.Equal(s.T(), http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/auth/verify-otp", "", map[string]string{
		"email": email, "code": s.notifier.lastOTP(email),
	})
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var session sessionResponse
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&session))
	return session
}

func (s *AuthHandlerSuite) TestFullLoginFlow() {
	session := s.registerAndLogin("jo@example.com", models.RoleCustomer)
	assert.NotEmpty(s.T(), session.AccessToken)
	assert.NotEmpty(s.T(), session.RefreshToken)
	assert.Equal(s.T(), "jo@example.com", session.User.Email)

	rec := s.do(http.MethodGet, "/auth/me", session.AccessToken, nil)
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var me models.User
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&me))
	assert.Equal(s.T(), session.User.ID, me.ID)
}

func (s *AuthHandlerSuite) TestVerifySetsSessionCookies() {
	rec := s.do(http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Jo", "email": "jo@example.com", "password": "sturdy-password",
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code)
	rec = s.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "jo@example.com", "password": "sturdy-password",
	})
	require.Equal(s.T(), http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/auth/verify-otp", "", map[string]string{
		"email": "jo@example.com", "code": s.notifier.lastOTP("jo@example.com"),
	})
	require.Equal(s.T(), http.StatusOK, rec.Code)

	names := map[string]bool{}
	for _, cookie := range rec.Result().Cookies() {
		names[cookie.Name] = cookie.HttpOnly
	}
	assert.True(s.T(), names["accessToken"])
	assert.True(s.T(), names["refreshToken"])
}

func (s *AuthHandlerSuite) TestWrongOTPRejected() {
	rec := s.do(http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Jo", "email": "jo@example.com", "password": "sturdy-password",
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code)
	rec = s.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "jo@example.com", "password": "sturdy-password",
	})
	require.Equal(s.T(), http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/auth/verify-otp", "", map[string]string{
		"email": "jo@example.com", "code": "000000",
	})
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}

func (s *AuthHandlerSuite) TestRefreshEndpointRotates() {
	session := s.registerAndLogin("jo@example.com", models.RoleCustomer)

	rec := s.do(http.MethodPost, "/auth/refresh", "", map[string]string{
		"refreshToken": session.RefreshToken,
	})
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var rotated sessionResponse
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&rotated))
	assert.NotEmpty(s.T(), rotated.AccessToken)

	// The superseded refresh token is dead.
	rec = s.do(http.MethodPost, "/auth/refresh", "", map[string]string{
		"refreshToken": session.RefreshToken,
	})
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}

func (s *AuthHandlerSuite) TestForgotPasswordShapeForUnknownEmail() {
	rec := s.do(http.MethodPost, "/auth/forgot-password", "", map[string]string{
		"email": "nobody@example.com",
	})
	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

func (s *AuthHandlerSuite) TestListUsersRequiresAdmin() {
	customer := s.registerAndLogin("cust@example.com", models.RoleCustomer)
	rec := s.do(http.MethodGet, "/auth/users", customer.AccessToken, nil)
	assert.Equal(s.T(), http.StatusForbidden, rec.Code)

	admin := s.registerAndLogin("admin@example.com", models.RoleAdmin)
	rec = s.do(http.MethodGet, "/auth/users", admin.AccessToken, nil)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

func (s *AuthHandlerSuite) TestMeRequiresToken() {
	rec := s.do(http.MethodGet, "/auth/me", "", nil)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}
