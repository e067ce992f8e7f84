package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "covergate/pkg/domain-errors"
)

// Type is the line of business a policy covers.
type Type string

const (
	TypeHealth Type = "HEALTH"
	TypeLife   Type = "LIFE"
	TypeTravel Type = "TRAVEL"
	TypeAuto   Type = "AUTO"
)

// Valid reports whether the type is a known line of business.
func (t Type) Valid() bool {
	switch t {
	case TypeHealth, TypeLife, TypeTravel, TypeAuto:
		return true
	}
	return false
}

// Status is the policy lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCancelled:
		return true
	}
	return false
}

// PaymentStatus is the billing state of a policy.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "UNPAID"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentOverdue PaymentStatus = "OVERDUE"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentUnpaid, PaymentPaid, PaymentOverdue:
		return true
	}
	return false
}

// statusTransitions is the staff transition table. CANCELLED is terminal.
var statusTransitions = map[Status]map[Status]struct{}{
	StatusPending:   {StatusActive: {}, StatusCancelled: {}},
	StatusActive:    {StatusCancelled: {}},
	StatusCancelled: {},
}

// paymentTransitions allows billing cycles to move between any two distinct
// states: a PAID policy becomes UNPAID again when the next premium falls due.
var paymentTransitions = map[PaymentStatus]map[PaymentStatus]struct{}{
	PaymentUnpaid:  {PaymentPaid: {}, PaymentOverdue: {}},
	PaymentOverdue: {PaymentPaid: {}, PaymentUnpaid: {}},
	PaymentPaid:    {PaymentUnpaid: {}, PaymentOverdue: {}},
}

// Policy is an issued (or pending) insurance contract.
type Policy struct {
	ID              uuid.UUID     `json:"id"`
	PolicyNumber    string        `json:"policyNumber"`
	Name            string        `json:"name"`
	Type            Type          `json:"type"`
	Coverage        float64       `json:"coverage"`
	Premium         float64       `json:"premium"`
	DurationYears   int           `json:"durationYears"`
	Status          Status        `json:"status"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	LastPaymentDate *time.Time    `json:"lastPaymentDate,omitempty"`
	CustomerID      uuid.UUID     `json:"customerId"`
	AgentID         *uuid.UUID    `json:"agentId,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// New validates and constructs a policy in its initial state: PENDING and
// UNPAID.
func New(id uuid.UUID, policyNumber, name string, typ Type, coverage, premium float64, durationYears int, customerID uuid.UUID, agentID *uuid.UUID, now time.Time) (*Policy, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "policy name is required")
	}
	if !typ.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid policy type")
	}
	if coverage <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "coverage must be positive")
	}
	if premium <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "premium must be positive")
	}
	if durationYears <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "duration must be at least one year")
	}
	if customerID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeValidation, "customer is required")
	}
	return &Policy{
		ID:            id,
		PolicyNumber:  policyNumber,
		Name:          name,
		Type:          typ,
		Coverage:      coverage,
		Premium:       premium,
		DurationYears: durationYears,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		CustomerID:    customerID,
		AgentID:       agentID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// TransitionStatus moves the lifecycle state along the transition table.
// Illegal moves, including anything out of CANCELLED, are a Conflict.
func (p *Policy) TransitionStatus(to Status, now time.Time) error {
	if !to.Valid() {
		return dErrors.New(dErrors.CodeValidation, "invalid policy status")
	}
	if to == p.Status {
		return nil
	}
	if _, ok := statusTransitions[p.Status][to]; !ok {
		return dErrors.Newf(dErrors.CodeConflict, "cannot transition policy from %s to %s", p.Status, to)
	}
	p.Status = to
	p.UpdatedAt = now
	return nil
}

// TransitionPayment moves the billing state. Reaching PAID stamps the
// payment date.
func (p *Policy) TransitionPayment(to PaymentStatus, now time.Time) error {
	if !to.Valid() {
		return dErrors.New(dErrors.CodeValidation, "invalid payment status")
	}
	if to == p.PaymentStatus {
		return nil
	}
	if _, ok := paymentTransitions[p.PaymentStatus][to]; !ok {
		return dErrors.Newf(dErrors.CodeConflict, "cannot transition payment from %s to %s", p.PaymentStatus, to)
	}
	p.PaymentStatus = to
	if to == PaymentPaid {
		paid := now
		p.LastPaymentDate = &paid
	}
	p.UpdatedAt = now
	return nil
}

// ActivateOnPayment records a settled premium: paid, dated, ACTIVE. It
// bypasses the staff transition table so a confirmed payment always lands,
// and it is naturally idempotent.
func (p *Policy) ActivateOnPayment(now time.Time) {
	paid := now
	p.PaymentStatus = PaymentPaid
	p.LastPaymentDate = &paid
	p.Status = StatusActive
	p.UpdatedAt = now
}

// PolicyNumberFormat documents the wire shape of policy numbers.
const PolicyNumberFormat = "POL-%d-%06d"

// FormatPolicyNumber renders a policy number for the given year and 6-digit
// random component.
func FormatPolicyNumber(year int, n int) string {
	return fmt.Sprintf(PolicyNumberFormat, year, n)
}
