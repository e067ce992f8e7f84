// Package handler exposes the assistant endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"covergate/internal/assistant/models"
	"covergate/internal/platform/middleware"
	"covergate/internal/transport/http/shared"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

// Service defines the assistant operations the handler needs.
type Service interface {
	Chat(ctx context.Context, caller requestcontext.Principal, message string) (string, error)
	History(ctx context.Context, caller requestcontext.Principal) ([]*models.Message, error)
}

// Handler handles /assistant endpoints.
type Handler struct {
	assistant Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

// New creates an assistant Handler.
func New(assistant Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{assistant: assistant, logger: logger, validator: validator}
}

// Register mounts the assistant routes. Everything requires authentication.
func (h *Handler) Register(r chi.Router) {
	r.Route("/assistant", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))

		r.Post("/chat", h.handleChat)
		r.Get("/history", h.handleHistory)
	})
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := shared.Decode(r, &body); err != nil {
		shared.WriteError(w, err)
		return
	}

	reply, err := h.assistant.Chat(r.Context(), caller, body.Message)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	messages, err := h.assistant.History(r.Context(), caller)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, messages)
}
