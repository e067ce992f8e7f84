// Package handler exposes the claim endpoints. Claim submission is a
// multipart form so supporting documents ride along with the claim itself.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"covergate/internal/claim/models"
	"covergate/internal/claim/service"
	identity "covergate/internal/identity/models"
	"covergate/internal/platform/middleware"
	"covergate/internal/transport/http/shared"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

// maxMemory bounds how much of the multipart body is buffered in memory.
const maxMemory = 8 << 20

// maxFiles matches the per-claim attachment cap enforced by the service.
const maxFiles = 5

// Service defines the claim operations the handler needs.
type Service interface {
	Create(ctx context.Context, caller requestcontext.Principal, input service.CreateInput, uploads []service.Upload) (*service.CreateResult, error)
	Get(ctx context.Context, caller requestcontext.Principal, id uuid.UUID) (*models.Claim, error)
	List(ctx context.Context, caller requestcontext.Principal) ([]*models.Claim, error)
	ListAll(ctx context.Context, caller requestcontext.Principal) ([]*models.Claim, error)
	Review(ctx context.Context, caller requestcontext.Principal, id uuid.UUID, to models.Status) (*models.Claim, error)
}

// Handler handles /claims endpoints.
type Handler struct {
	claims    Service
	logger    *slog.Logger
	validator middleware.TokenValidator
}

// New creates a claim Handler.
func New(claims Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{claims: claims, logger: logger, validator: validator}
}

// Register mounts the claim routes. The submission route takes multipart
// form data, so the JSON content-type guard is applied per route, not on the
// whole subtree.
func (h *Handler) Register(r chi.Router) {
	r.Route("/claims", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))

		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(identity.RoleAdmin), string(identity.RoleAgent)))
			r.Get("/admin/all", h.handleListAll)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(identity.RoleAdmin)))
			r.Put("/{id}/review", h.handleReview)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "expected multipart form data"))
		return
	}

	input, err := parseCreateForm(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	files := r.MultipartForm.File["documents"]
	if len(files) > maxFiles {
		shared.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "at most %d files per claim", maxFiles))
		return
	}
	uploads := make([]service.Upload, 0, len(files))
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable upload"))
			return
		}
		defer f.Close()
		uploads = append(uploads, service.Upload{FileName: header.Filename, Content: f})
	}

	result, err := h.claims.Create(r.Context(), caller, input, uploads)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	claims, err := h.claims.List(r.Context(), caller)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, claims)
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	claims, err := h.claims.ListAll(r.Context(), caller)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, claims)
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

	claim, err := h.claims.Get(r.Context(), caller, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, claim)
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
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

	var body struct {
		Status models.Status `json:"status"`
	}
	if err := shared.Decode(r, &body); err != nil {
		shared.WriteError(w, err)
		return
	}

	claim, err := h.claims.Review(r.Context(), caller, id, body.Status)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, claim)
}

func parseCreateForm(r *http.Request) (service.CreateInput, error) {
	var input service.CreateInput

	policyID, err := uuid.Parse(r.FormValue("policyId"))
	if err != nil {
		return input, dErrors.New(dErrors.CodeBadRequest, "invalid policyId")
	}
	amount, err := strconv.ParseFloat(r.FormValue("amount"), 64)
	if err != nil {
		return input, dErrors.New(dErrors.CodeBadRequest, "invalid amount")
	}
	incidentDate, err := parseDate(r.FormValue("incidentDate"))
	if err != nil {
		return input, err
	}

	input.PolicyID = policyID
	input.Amount = amount
	input.IncidentDate = incidentDate
	input.Description = r.FormValue("description")
	return input, nil
}

// parseDate accepts a full RFC 3339 timestamp or a bare date.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, dErrors.New(dErrors.CodeBadRequest, "invalid incidentDate")
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid id")
	}
	return id, nil
}
