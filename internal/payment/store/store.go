package store

import (
	"context"

	"github.com/google/uuid"

	"covergate/internal/payment/models"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested payment does not exist
// - Return sentinel.ErrConflict when the provider intent id is already taken
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// Filter narrows List. Nil fields are unfiltered.
type Filter struct {
	CustomerID *uuid.UUID
	PolicyID   *uuid.UUID
}

// PaymentStore persists payments.
type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	// UpdateStatusIfPending moves the payment out of PENDING atomically.
	// It reports false without error when the payment was already settled,
	// which is how repeated confirmations become no-ops.
	UpdateStatusIfPending(ctx context.Context, id uuid.UUID, to models.Status) (bool, error)
	List(ctx context.Context, filter Filter) ([]*models.Payment, error)
}
