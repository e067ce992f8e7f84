package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"covergate/internal/payment/models"
	"covergate/pkg/platform/sentinel"
)

// PostgresPaymentStore persists payments in PostgreSQL. The provider intent
// id carries a unique constraint; idempotent confirmation rides on the
// conditional UPDATE in UpdateStatusIfPending.
type PostgresPaymentStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed payment store.
func NewPostgres(db *sql.DB) *PostgresPaymentStore {
	return &PostgresPaymentStore{db: db}
}

const paymentColumns = `id, policy_id, customer_id, amount, status, provider_intent_id, created_at, updated_at`

func (s *PostgresPaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		payment.ID, payment.PolicyID, payment.CustomerID, payment.Amount,
		string(payment.Status), payment.ProviderIntentID, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("intent id already recorded: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *PostgresPaymentStore) FindByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_intent_id = $1`
	payment, err := scanPayment(s.db.QueryRowContext(ctx, query, intentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment not found: %w", sentinel.ErrNotFound)
	}
	return payment, err
}

func (s *PostgresPaymentStore) UpdateStatusIfPending(ctx context.Context, id uuid.UUID, to models.Status) (bool, error) {
	query := `
		UPDATE payments
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = 'PENDING'
	`
	res, err := s.db.ExecContext(ctx, query, id, string(to), time.Now())
	if err != nil {
		return false, fmt.Errorf("update payment status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	// Distinguish "already settled" from "no such payment".
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("payment exists: %w", err)
	}
	if !exists {
		return false, fmt.Errorf("payment not found: %w", sentinel.ErrNotFound)
	}
	return false, nil
}

func (s *PostgresPaymentStore) List(ctx context.Context, filter Filter) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments`
	var args []any
	switch {
	case filter.CustomerID != nil:
		query += ` WHERE customer_id = $1`
		args = append(args, *filter.CustomerID)
	case filter.PolicyID != nil:
		query += ` WHERE policy_id = $1`
		args = append(args, *filter.PolicyID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var payment models.Payment
	var status string
	if err := row.Scan(
		&payment.ID, &payment.PolicyID, &payment.CustomerID, &payment.Amount,
		&status, &payment.ProviderIntentID, &payment.CreatedAt, &payment.UpdatedAt,
	); err != nil {
		return nil, err
	}
	payment.Status = models.Status(status)
	return &payment, nil
}
