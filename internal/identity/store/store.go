package store

import (
	"context"

	"github.com/google/uuid"

	"covergate/internal/identity/models"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested user does not exist
// - Return sentinel.ErrConflict when the email is already registered
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	List(ctx context.Context) ([]*models.User, error)
}
