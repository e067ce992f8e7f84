package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "covergate/pkg/domain-errors"
)

// Status is the settlement state of a payment.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSucceeded, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status can no longer change. Confirmations
// against a terminal payment are no-ops.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Payment records one premium settlement attempt against a policy. The
// provider intent id is unique: it is the idempotency key for confirmations.
type Payment struct {
	ID               uuid.UUID `json:"id"`
	PolicyID         uuid.UUID `json:"policyId"`
	CustomerID       uuid.UUID `json:"customerId"`
	Amount           float64   `json:"amount"`
	Status           Status    `json:"status"`
	ProviderIntentID string    `json:"providerIntentId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// New validates and constructs a PENDING payment.
func New(id, policyID, customerID uuid.UUID, amount float64, providerIntentID string, now time.Time) (*Payment, error) {
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if providerIntentID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "provider intent id is required")
	}
	return &Payment{
		ID:               id,
		PolicyID:         policyID,
		CustomerID:       customerID,
		Amount:           amount,
		Status:           StatusPending,
		ProviderIntentID: providerIntentID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
