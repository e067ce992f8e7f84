package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"covergate/internal/claim/models"
	"covergate/pkg/platform/sentinel"
)

// PostgresClaimStore persists claims in PostgreSQL. Risk factors and
// attachment ids are array columns; their order is significant and preserved.
type PostgresClaimStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed claim store.
func NewPostgres(db *sql.DB) *PostgresClaimStore {
	return &PostgresClaimStore{db: db}
}

const claimColumns = `id, policy_id, customer_id, agent_id, amount, incident_date, description,
	risk_score, risk_factors, status, attachment_ids, acted_by, created_at, updated_at`

func (s *PostgresClaimStore) Create(ctx context.Context, claim *models.Claim) error {
	query := `
		INSERT INTO claims (` + claimColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query,
		claim.ID, claim.PolicyID, claim.CustomerID, claim.AgentID,
		claim.Amount, claim.IncidentDate, claim.Description,
		claim.RiskScore, pq.Array(claim.RiskFactors), string(claim.Status),
		pq.Array(claim.AttachmentIDs), claim.ActedBy, claim.CreatedAt, claim.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (s *PostgresClaimStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = $1`
	claim, err := scanClaim(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("claim not found: %w", sentinel.ErrNotFound)
	}
	return claim, err
}

func (s *PostgresClaimStore) Update(ctx context.Context, claim *models.Claim) error {
	query := `
		UPDATE claims
		SET status = $2, attachment_ids = $3, acted_by = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		claim.ID, string(claim.Status), pq.Array(claim.AttachmentIDs), claim.ActedBy, claim.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("claim not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresClaimStore) List(ctx context.Context, filter Filter) ([]*models.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims`
	var args []any
	switch {
	case filter.CustomerID != nil:
		query += ` WHERE customer_id = $1`
		args = append(args, *filter.CustomerID)
	case filter.AgentID != nil:
		query += ` WHERE agent_id = $1`
		args = append(args, *filter.AgentID)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []*models.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

func (s *PostgresClaimStore) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM claims WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("claim exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresClaimStore) ExistsByAttachmentID(ctx context.Context, attachmentID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM claims WHERE $1 = ANY(attachment_ids))`,
		attachmentID.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("claim exists by attachment: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*models.Claim, error) {
	var claim models.Claim
	var status string
	var agentID, actedBy uuid.NullUUID
	var factors pq.StringArray
	var attachmentIDs []string
	if err := row.Scan(
		&claim.ID, &claim.PolicyID, &claim.CustomerID, &agentID,
		&claim.Amount, &claim.IncidentDate, &claim.Description,
		&claim.RiskScore, &factors, &status,
		pq.Array(&attachmentIDs), &actedBy, &claim.CreatedAt, &claim.UpdatedAt,
	); err != nil {
		return nil, err
	}
	claim.Status = models.Status(status)
	claim.RiskFactors = factors
	if agentID.Valid {
		claim.AgentID = &agentID.UUID
	}
	if actedBy.Valid {
		claim.ActedBy = &actedBy.UUID
	}
	for _, raw := range attachmentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt attachment id: %w", err)
		}
		claim.AttachmentIDs = append(claim.AttachmentIDs, id)
	}
	return &claim, nil
}
