package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"covergate/internal/policy/models"
	"covergate/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresPolicyStore persists policies in PostgreSQL. The unique index on
// policy_number turns number collisions into ErrConflict so the service can
// retry generation.
type PostgresPolicyStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed policy store.
func NewPostgres(db *sql.DB) *PostgresPolicyStore {
	return &PostgresPolicyStore{db: db}
}

const policyColumns = `id, policy_number, name, type, coverage, premium, duration_years,
	status, payment_status, last_payment_date, customer_id, agent_id, created_at, updated_at`

func (s *PostgresPolicyStore) Create(ctx context.Context, policy *models.Policy) error {
	query := `
		INSERT INTO policies (` + policyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query,
		policy.ID, policy.PolicyNumber, policy.Name, string(policy.Type),
		policy.Coverage, policy.Premium, policy.DurationYears,
		string(policy.Status), string(policy.PaymentStatus), policy.LastPaymentDate,
		policy.CustomerID, policy.AgentID, policy.CreatedAt, policy.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("policy number already taken: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert policy: %w", err)
	}
	return nil
}

func (s *PostgresPolicyStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies WHERE id = $1`
	policy, err := scanPolicy(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("policy not found: %w", sentinel.ErrNotFound)
	}
	return policy, err
}

func (s *PostgresPolicyStore) Update(ctx context.Context, policy *models.Policy) error {
	query := `
		UPDATE policies
		SET status = $2, payment_status = $3, last_payment_date = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		policy.ID, string(policy.Status), string(policy.PaymentStatus),
		policy.LastPaymentDate, policy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update policy: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresPolicyStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM policies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete policy: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresPolicyStore) List(ctx context.Context, filter Filter) ([]*models.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies`
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
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var policies []*models.Policy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}
	return policies, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*models.Policy, error) {
	var policy models.Policy
	var typ, status, paymentStatus string
	var lastPayment sql.NullTime
	var agentID uuid.NullUUID
	if err := row.Scan(
		&policy.ID, &policy.PolicyNumber, &policy.Name, &typ,
		&policy.Coverage, &policy.Premium, &policy.DurationYears,
		&status, &paymentStatus, &lastPayment,
		&policy.CustomerID, &agentID, &policy.CreatedAt, &policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	policy.Type = models.Type(typ)
	policy.Status = models.Status(status)
	policy.PaymentStatus = models.PaymentStatus(paymentStatus)
	if lastPayment.Valid {
		policy.LastPaymentDate = &lastPayment.Time
	}
	if agentID.Valid {
		policy.AgentID = &agentID.UUID
	}
	return &policy, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("policy not found: %w", sentinel.ErrNotFound)
	}
	return nil
}
