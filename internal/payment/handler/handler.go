// Package handler exposes the payment endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"covergate/internal/payment/models"
	"covergate/internal/payment/service"
	"covergate/internal/platform/middleware"
	"covergate/internal/transport/http/shared"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

// Service defines the payment operations the handler needs.
type Service interface {
	CreateIntent(ctx context.Context, caller requestcontext.Principal, input service.CreateIntentInput) (*service.IntentResult, error)
	Confirm(ctx context.Context, caller requestcontext.Principal, input service.ConfirmInput) (*models.Payment, error)
	List(ctx context.Context, caller requestcontext.Principal) ([]*models.Payment, error)
	ListByPolicy(ctx context.Context, caller requestcontext.Principal, policyID uuid.UUID) ([]*models.Payment, error)
}

// Handler handles /payments endpoints.
type Handler struct {
	payments  Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

// New creates a payment Handler.
func New(payments Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{payments: payments, logger: logger, validator: validator}
}

// Register mounts the payment routes. Everything requires authentication.
func (h *Handler) Register(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))

		r.Post("/create-intent", h.handleCreateIntent)
		r.Post("/confirm", h.handleConfirm)
		r.Get("/", h.handleList)
		r.Get("/policy/{policyId}", h.handleListByPolicy)
	})
}

func (h *Handler) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var input service.CreateIntentInput
	if err := shared.Decode(r, &input); err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.payments.CreateIntent(r.Context(), caller, input)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var input service.ConfirmInput
	if err := shared.Decode(r, &input); err != nil {
		shared.WriteError(w, err)
		return
	}

	payment, err := h.payments.Confirm(r.Context(), caller, input)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, payment)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	payments, err := h.payments.List(r.Context(), caller)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, payments)
}

func (h *Handler) handleListByPolicy(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	policyID, err := uuid.Parse(chi.URLParam(r, "policyId"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid policy id"))
		return
	}

	payments, err := h.payments.ListByPolicy(r.Context(), caller, policyID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, payments)
}
