package store

import (
	"context"

	"github.com/google/uuid"

	"covergate/internal/claim/models"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested claim does not exist
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// Filter narrows List to an ownership scope. Nil fields are unfiltered.
type Filter struct {
	CustomerID *uuid.UUID
	AgentID    *uuid.UUID
}

// ClaimStore persists claims.
type ClaimStore interface {
	Create(ctx context.Context, claim *models.Claim) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Claim, error)
	Update(ctx context.Context, claim *models.Claim) error
	List(ctx context.Context, filter Filter) ([]*models.Claim, error)
	// ExistsByID and ExistsByAttachmentID support the attachment orphan
	// sweep. The latter catches attachments a claim lists even though their
	// recorded reference never got relinked to the claim id.
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByAttachmentID(ctx context.Context, attachmentID uuid.UUID) (bool, error)
}
