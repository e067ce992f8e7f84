package store

import (
	"context"

	"github.com/google/uuid"

	"covergate/internal/assistant/models"
)

// MessageStore persists conversation history per user.
type MessageStore interface {
	Create(ctx context.Context, message *models.Message) error
	// ListByUser returns the user's messages oldest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Message, error)
	// ListRecent returns up to limit of the user's latest messages, oldest
	// first, for provider context.
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Message, error)
}
