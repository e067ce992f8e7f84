// Package handler exposes the policy endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	identity "covergate/internal/identity/models"
	"covergate/internal/platform/middleware"
	"covergate/internal/policy/models"
	"covergate/internal/policy/plans"
	"covergate/internal/policy/service"
	"covergate/internal/transport/http/shared"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

// Service defines the policy operations the handler needs.
type Service interface {
	Apply(ctx context.Context, caller requestcontext.Principal, input service.ApplyInput) (*models.Policy, error)
	Get(ctx context.Context, caller requestcontext.Principal, id uuid.UUID) (*models.Policy, error)
	List(ctx context.Context, caller requestcontext.Principal) ([]*models.Policy, error)
	TransitionStatus(ctx context.Context, caller requestcontext.Principal, id uuid.UUID, input service.TransitionInput) (*models.Policy, error)
	Delete(ctx context.Context, caller requestcontext.Principal, id uuid.UUID) error
	Plans() []plans.Plan
	Recommend(profile plans.Profile) []plans.Recommendation
}

// Handler handles /policies endpoints.
type Handler struct {
	policies  Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

// New creates a policy Handler.
func New(policies Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{policies: policies, logger: logger, validator: validator}
}

// Register mounts the policy routes. Everything requires authentication.
func (h *Handler) Register(r chi.Router) {
	r.Route("/policies", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))

		r.Get("/plans", h.handlePlans)
		r.Post("/recommend", h.handleRecommend)
		r.Post("/apply", h.handleApply)
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(identity.RoleAdmin), string(identity.RoleAgent)))
			r.Patch("/{id}/status", h.handleTransition)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(identity.RoleAdmin)))
			r.Delete("/{id}", h.handleDelete)
		})
	})
}

func (h *Handler) handlePlans(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, h.policies.Plans())
}

func (h *Handler) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var profile plans.Profile
	if err := shared.Decode(r, &profile); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.policies.Recommend(profile))
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var input service.ApplyInput
	if err := shared.Decode(r, &input); err != nil {
		shared.WriteError(w, err)
		return
	}

	policy, err := h.policies.Apply(r.Context(), caller, input)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, policy)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	policies, err := h.policies.List(r.Context(), caller)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, policies)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	id, err := pathID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	policy, err := h.policies.Get(r.Context(), caller, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, policy)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	id, err := pathID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var input service.TransitionInput
	if err := shared.Decode(r, &input); err != nil {
		shared.WriteError(w, err)
		return
	}

	policy, err := h.policies.TransitionStatus(r.Context(), caller, id, input)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, policy)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	id, err := pathID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.policies.Delete(r.Context(), caller, id); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"message": "policy deleted"})
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid id")
	}
	return id, nil
}
