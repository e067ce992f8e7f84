package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"covergate/internal/document/models"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested attachment does not exist
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// AttachmentStore persists attachment metadata.
type AttachmentStore interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUploader(ctx context.Context, uploadedBy uuid.UUID) ([]*models.Attachment, error)
	// Relink repoints a batch of attachments at a new related entity; used by
	// the two-phase claim attachment flow.
	Relink(ctx context.Context, ids []uuid.UUID, relatedTo models.RelatedKind, relatedID uuid.UUID) error
	// ListOlderThan returns attachments uploaded before the cutoff, for the
	// orphan sweeper.
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]*models.Attachment, error)
}
