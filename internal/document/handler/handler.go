// Package handler exposes the attachment endpoints. Upload is multipart,
// everything else JSON.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"covergate/internal/document/models"
	"covergate/internal/platform/middleware"
	"covergate/internal/transport/http/shared"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

// Service defines the attachment operations the handler needs.
type Service interface {
	Save(ctx context.Context, uploadedBy uuid.UUID, fileName string, relatedTo models.RelatedKind, relatedID uuid.UUID, r io.Reader) (*models.Attachment, error)
	Get(ctx context.Context, caller requestcontext.Principal, id uuid.UUID) (*models.Attachment, error)
	Open(ctx context.Context, caller requestcontext.Principal, id uuid.UUID) (*models.Attachment, io.ReadCloser, error)
	Delete(ctx context.Context, caller requestcontext.Principal, id uuid.UUID) error
	ListMine(ctx context.Context, caller requestcontext.Principal) ([]*models.Attachment, error)
}

// Handler handles /documents endpoints.
type Handler struct {
	documents Service
	logger    *slog.Logger
	validator middleware.TokenValidator
	maxMemory int64
}

// New creates a document Handler.
func New(documents Service, validator middleware.TokenValidator, logger *slog.Logger, maxFileSize int64) *Handler {
	return &Handler{documents: documents, logger: logger, validator: validator, maxMemory: maxFileSize}
}

// Register mounts the document routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/documents", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))

		r.Post("/upload", h.handleUpload)
		r.Get("/mine", h.handleListMine)
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/content", h.handleContent)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart body"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "no file uploaded"))
		return
	}
	defer file.Close()

	relatedTo := models.RelatedKind(r.FormValue("relatedTo"))
	relatedID, err := uuid.Parse(r.FormValue("relatedId"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "relatedTo and relatedId are required"))
		return
	}

	attachment, err := h.documents.Save(r.Context(), caller.UserID, header.Filename, relatedTo, relatedID, file)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, attachment)
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

	attachment, err := h.documents.Get(r.Context(), caller, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, attachment)
}

func (h *Handler) handleContent(w http.ResponseWriter, r *http.Request) {
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

	attachment, rc, err := h.documents.Open(r.Context(), caller, id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", attachment.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(attachment.Size, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+attachment.FileName+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(r.Context(), "attachment stream interrupted",
			"attachment_id", id, "error", err)
	}
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

	if err := h.documents.Delete(r.Context(), caller, id); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"message": "document deleted"})
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestcontext.PrincipalFrom(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	attachments, err := h.documents.ListMine(r.Context(), caller)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, attachments)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid id")
	}
	return id, nil
}
