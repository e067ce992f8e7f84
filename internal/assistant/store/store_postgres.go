package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"covergate/internal/assistant/models"
)

// PostgresMessageStore persists conversation history in PostgreSQL.
type PostgresMessageStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed message store.
func NewPostgres(db *sql.DB) *PostgresMessageStore {
	return &PostgresMessageStore{db: db}
}

const messageColumns = `id, user_id, text, sender, created_at`

func (s *PostgresMessageStore) Create(ctx context.Context, message *models.Message) error {
	query := `
		INSERT INTO assistant_messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		message.ID, message.UserID, message.Text, string(message.Sender), message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *PostgresMessageStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM assistant_messages WHERE user_id = $1 ORDER BY created_at`
	return s.query(ctx, query, userID)
}

func (s *PostgresMessageStore) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Message, error) {
	// Fetch latest first, then flip to chronological order.
	query := `
		SELECT ` + messageColumns + `
		FROM assistant_messages
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	messages, err := s.query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *PostgresMessageStore) query(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var message models.Message
		var sender string
		if err := rows.Scan(&message.ID, &message.UserID, &message.Text, &sender, &message.CreatedAt); err != nil {
			return nil, err
		}
		message.Sender = models.Sender(sender)
		messages = append(messages, &message)
	}
	return messages, rows.Err()
}
