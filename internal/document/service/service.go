// Package service manages attachments: blob + metadata writes, ownership
// gated reads and deletes, and the background orphan sweep.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"covergate/internal/audit"
	"covergate/internal/document/models"
	identity "covergate/internal/identity/models"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/platform/sentinel"
	"covergate/pkg/requestcontext"
)

// BlobStore holds attachment bytes.
type BlobStore interface {
	Save(r io.Reader) (storedName, contentType string, size int64, err error)
	Open(storedName string) (io.ReadCloser, error)
	Remove(storedName string) error
}

// AttachmentStore persists attachment metadata.
type AttachmentStore interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUploader(ctx context.Context, uploadedBy uuid.UUID) ([]*models.Attachment, error)
	Relink(ctx context.Context, ids []uuid.UUID, relatedTo models.RelatedKind, relatedID uuid.UUID) error
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]*models.Attachment, error)
}

// ReferenceResolver reports whether an attachment is still referenced. The
// orphan sweeper uses it to find dangling attachments; it receives the full
// attachment because liveness may hinge on more than the recorded reference
// (a claim can list an attachment whose relink to the claim id never ran).
type ReferenceResolver interface {
	Exists(ctx context.Context, attachment *models.Attachment) (bool, error)
}

// AuditPublisher records security-relevant mutations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service orchestrates attachment storage.
type Service struct {
	blobs    BlobStore
	meta     AttachmentStore
	resolver ReferenceResolver
	logger   *slog.Logger
	auditor  AuditPublisher
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

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithResolver wires the reference resolver used by the orphan sweep.
func WithResolver(resolver ReferenceResolver) Option {
	return func(s *Service) { s.resolver = resolver }
}

// New constructs a Service.
func New(blobs BlobStore, meta AttachmentStore, opts ...Option) *Service {
	s := &Service{
		blobs:  blobs,
		meta:   meta,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save validates, stores the bytes and records the metadata. If the metadata
// write fails the blob is removed again so nothing is left half-saved.
func (s *Service) Save(ctx context.Context, uploadedBy uuid.UUID, fileName string, relatedTo models.RelatedKind, relatedID uuid.UUID, r io.Reader) (*models.Attachment, error) {
	storedName, contentType, size, err := s.blobs.Save(r)
	if err != nil {
		return nil, err
	}

	attachment, err := models.New(uuid.New(), fileName, storedName, contentType, size, uploadedBy, relatedTo, relatedID, s.now())
	if err != nil {
		_ = s.blobs.Remove(storedName)
		return nil, err
	}
	if err := s.meta.Create(ctx, attachment); err != nil {
		_ = s.blobs.Remove(storedName)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record attachment")
	}

	s.emit(ctx, audit.Event{Action: audit.ActionDocumentUploaded, Subject: attachment.ID.String()})
	return attachment, nil
}

// Get returns attachment metadata. Owner or ADMIN.
func (s *Service) Get(ctx context.Context, caller requestcontext.Principal, id uuid.UUID) (*models.Attachment, error) {
	return s.fetchAuthorized(ctx, caller, id)
}

// Open returns the attachment bytes for streaming. Owner or ADMIN.
func (s *Service) Open(ctx context.Context, caller requestcontext.Principal, id uuid.UUID) (*models.Attachment, io.ReadCloser, error) {
	attachment, err := s.fetchAuthorized(ctx, caller, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(attachment.StoredName)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "attachment content missing")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open attachment")
	}
	return attachment, rc, nil
}

// Delete removes blob and metadata. Owner or ADMIN.
func (s *Service) Delete(ctx context.Context, caller requestcontext.Principal, id uuid.UUID) error {
	attachment, err := s.fetchAuthorized(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.blobs.Remove(attachment.StoredName); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove attachment content")
	}
	if err := s.meta.Delete(ctx, id); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove attachment")
	}
	s.emit(ctx, audit.Event{Action: audit.ActionDocumentDeleted, Subject: id.String()})
	return nil
}

// ListMine returns the caller's uploads, newest first.
func (s *Service) ListMine(ctx context.Context, caller requestcontext.Principal) ([]*models.Attachment, error) {
	attachments, err := s.meta.ListByUploader(ctx, caller.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attachments")
	}
	return attachments, nil
}

// Relink repoints attachments at a new related entity. Used by the claim
// two-phase attachment flow, not exposed over HTTP.
func (s *Service) Relink(ctx context.Context, ids []uuid.UUID, relatedTo models.RelatedKind, relatedID uuid.UUID) error {
	if err := s.meta.Relink(ctx, ids, relatedTo, relatedID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to relink attachments")
	}
	return nil
}

func (s *Service) fetchAuthorized(ctx context.Context, caller requestcontext.Principal, id uuid.UUID) (*models.Attachment, error) {
	attachment, err := s.meta.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "attachment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load attachment")
	}
	if attachment.UploadedBy != caller.UserID && identity.Role(caller.Role) != identity.RoleAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "you do not have access to this resource")
	}
	return attachment, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Emit(ctx, event)
	}
}
