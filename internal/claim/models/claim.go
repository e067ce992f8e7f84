package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "covergate/pkg/domain-errors"
)

// Status is the adjudication state of a claim.
type Status string

const (
	StatusSubmitted Status = "SUBMITTED"
	StatusReviewed  Status = "REVIEWED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusPaid      Status = "PAID"
)

func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusReviewed, StatusApproved, StatusRejected, StatusPaid:
		return true
	}
	return false
}

// ReviewOutcome reports whether the status is a decision an adjudicator may
// record. SUBMITTED and REVIEWED are system states, not decisions.
func (s Status) ReviewOutcome() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusPaid:
		return true
	}
	return false
}

// Claim is a submitted insurance claim. The risk score is computed once at
// creation and never recomputed.
type Claim struct {
	ID            uuid.UUID   `json:"id"`
	PolicyID      uuid.UUID   `json:"policyId"`
	CustomerID    uuid.UUID   `json:"customerId"`
	AgentID       *uuid.UUID  `json:"agentId,omitempty"`
	Amount        float64     `json:"amount"`
	IncidentDate  time.Time   `json:"incidentDate"`
	Description   string      `json:"description"`
	RiskScore     int         `json:"riskScore"`
	RiskFactors   []string    `json:"riskFactors"`
	Status        Status      `json:"status"`
	AttachmentIDs []uuid.UUID `json:"attachmentIds"`
	ActedBy       *uuid.UUID  `json:"actedBy,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// New validates and constructs a SUBMITTED claim.
func New(id, policyID, customerID uuid.UUID, agentID *uuid.UUID, amount float64, incidentDate time.Time, description string, riskScore int, riskFactors []string, attachmentIDs []uuid.UUID, now time.Time) (*Claim, error) {
	description = strings.TrimSpace(description)
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if incidentDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "incident date is required")
	}
	if incidentDate.After(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "incident date cannot be in the future")
	}
	if description == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "description is required")
	}
	return &Claim{
		ID:            id,
		PolicyID:      policyID,
		CustomerID:    customerID,
		AgentID:       agentID,
		Amount:        amount,
		IncidentDate:  incidentDate,
		Description:   description,
		RiskScore:     riskScore,
		RiskFactors:   riskFactors,
		Status:        StatusSubmitted,
		AttachmentIDs: attachmentIDs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Review records an adjudication decision. Re-reviews overwrite the previous
// decision: the latest ruling wins.
func (c *Claim) Review(to Status, actor uuid.UUID, now time.Time) error {
	if !to.ReviewOutcome() {
		return dErrors.New(dErrors.CodeValidation, "review status must be APPROVED, REJECTED or PAID")
	}
	c.Status = to
	c.ActedBy = &actor
	c.UpdatedAt = now
	return nil
}
