package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"covergate/internal/document/models"
	"covergate/pkg/platform/sentinel"
)

// PostgresAttachmentStore persists attachment metadata in PostgreSQL.
type PostgresAttachmentStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed attachment store.
func NewPostgres(db *sql.DB) *PostgresAttachmentStore {
	return &PostgresAttachmentStore{db: db}
}

const attachmentColumns = `id, file_name, stored_name, content_type, size, uploaded_by, related_to, related_id, uploaded_at`

func (s *PostgresAttachmentStore) Create(ctx context.Context, a *models.Attachment) error {
	query := `
		INSERT INTO attachments (` + attachmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.FileName, a.StoredName, a.ContentType, a.Size,
		a.UploadedBy, string(a.RelatedTo), a.RelatedID, a.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (s *PostgresAttachmentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE id = $1`
	attachment, err := scanAttachment(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attachment not found: %w", sentinel.ErrNotFound)
	}
	return attachment, err
}

func (s *PostgresAttachmentStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("attachment not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresAttachmentStore) ListByUploader(ctx context.Context, uploadedBy uuid.UUID) ([]*models.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE uploaded_by = $1 ORDER BY uploaded_at DESC`
	return s.queryMany(ctx, query, uploadedBy)
}

func (s *PostgresAttachmentStore) Relink(ctx context.Context, ids []uuid.UUID, relatedTo models.RelatedKind, relatedID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE attachments SET related_to = $1, related_id = $2 WHERE id = ANY($3)`
	_, err := s.db.ExecContext(ctx, query, string(relatedTo), relatedID, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("relink attachments: %w", err)
	}
	return nil
}

func (s *PostgresAttachmentStore) ListOlderThan(ctx context.Context, cutoff time.Time) ([]*models.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE uploaded_at < $1`
	return s.queryMany(ctx, query, cutoff)
}

func (s *PostgresAttachmentStore) queryMany(ctx context.Context, query string, args ...any) ([]*models.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*models.Attachment
	for rows.Next() {
		attachment, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, attachment)
	}
	return attachments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttachment(row rowScanner) (*models.Attachment, error) {
	var a models.Attachment
	var relatedTo string
	if err := row.Scan(
		&a.ID, &a.FileName, &a.StoredName, &a.ContentType, &a.Size,
		&a.UploadedBy, &relatedTo, &a.RelatedID, &a.UploadedAt,
	); err != nil {
		return nil, err
	}
	a.RelatedTo = models.RelatedKind(relatedTo)
	return &a, nil
}
