package store

import (
	"context"

	"github.com/google/uuid"

	"covergate/internal/policy/models"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested policy does not exist
// - Return sentinel.ErrConflict when the policy number is already taken
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// Filter narrows List to an ownership scope. Nil fields are unfiltered.
type Filter struct {
	CustomerID *uuid.UUID
	AgentID    *uuid.UUID
}

// PolicyStore persists policies.
type PolicyStore interface {
	Create(ctx context.Context, policy *models.Policy) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Policy, error)
	Update(ctx context.Context, policy *models.Policy) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter Filter) ([]*models.Policy, error)
}
