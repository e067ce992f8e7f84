// Package handler exposes the auth and profile endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"covergate/internal/auth/service"
	"covergate/internal/identity/models"
	"covergate/internal/platform/middleware"
	"covergate/internal/transport/http/shared"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

// Service defines the auth operations the handler needs.
type Service interface {
	Register(ctx context.Context, req service.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, email, password string) error
	VerifyOTP(ctx context.Context, email, code string) (*models.User, service.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.User, service.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// Handler handles /auth endpoints.
type Handler struct {
	auth       Service
	logger     *slog.Logger
	validator  middleware.TokenValidator
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// New creates an auth Handler.
func New(auth Service, validator middleware.TokenValidator, logger *slog.Logger, accessTTL, refreshTTL time.Duration) *Handler {
	return &Handler{
		auth:       auth,
		logger:     logger,
		validator:  validator,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Register mounts the auth routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/verify-otp", h.handleVerifyOTP)
		r.Post("/refresh", h.handleRefresh)
		r.Post("/forgot-password", h.handleForgotPassword)
		r.Post("/reset-password", h.handleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.validator, h.logger))
			r.Post("/logout", h.handleLogout)
			r.Get("/me", h.handleMe)
			r.Put("/profile", h.handleUpdateProfile)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(models.RoleAdmin)))
				r.Get("/users", h.handleListUsers)
			})
		})
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	user, err := h.auth.Register(r.Context(), req)
	if err != nil {
		h.logger.WarnContext(r.Context(), "registration failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.auth.Login(r.Context(), req.Email, req.Password); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "verification code sent",
	})
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type sessionResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	user, pair, err := h.auth.VerifyOTP(r.Context(), req.Email, req.Code)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	h.setSessionCookies(w, pair)
	shared.WriteJSON(w, http.StatusOK, sessionResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	// Body first; refresh-token cookie as fallback for browser clients.
	var req refreshRequest
	_ = shared.Decode(r, &req)
	if req.RefreshToken == "" {
		if cookie, err := r.Cookie("refreshToken"); err == nil {
			req.RefreshToken = cookie.Value
		}
	}
	if req.RefreshToken == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing refresh token"))
		return
	}

	user, pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	h.setSessionCookies(w, pair)
	shared.WriteJSON(w, http.StatusOK, sessionResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	if err := h.auth.Logout(r.Context(), principal.UserID); err != nil {
		shared.WriteError(w, err)
		return
	}

	h.clearSessionCookies(w)
	shared.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	// Success-shaped for unknown emails too; the endpoint must not reveal
	// which accounts exist.
	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "if the account exists, a reset link has been sent",
	})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	user, err := h.auth.Me(r.Context(), principal.UserID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var upd models.ProfileUpdate
	if err := shared.Decode(r, &upd); err != nil {
		shared.WriteError(w, err)
		return
	}

	user, err := h.auth.UpdateProfile(r.Context(), principal.UserID, upd)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) setSessionCookies(w http.ResponseWriter, pair service.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     "accessToken",
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(h.accessTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "refreshToken",
		Value:    pair.RefreshToken,
		Path:     "/auth",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: "", Path: "/auth", MaxAge: -1, HttpOnly: true})
}
