// Package service handles premium settlement: intent creation against the
// card provider and idempotent confirmation that activates the policy.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"covergate/internal/accesscontrol"
	"covergate/internal/audit"
	identity "covergate/internal/identity/models"
	"covergate/internal/payment/models"
	"covergate/internal/payment/processor"
	"covergate/internal/payment/store"
	"covergate/internal/platform/metrics"
	policymodels "covergate/internal/policy/models"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/platform/sentinel"
	"covergate/pkg/requestcontext"
)

// PaymentStore is the slice of the payment store this service needs.
type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	UpdateStatusIfPending(ctx context.Context, id uuid.UUID, to models.Status) (bool, error)
	List(ctx context.Context, filter store.Filter) ([]*models.Payment, error)
}

// PolicyReader resolves the policy being paid for.
type PolicyReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*policymodels.Policy, error)
}

// PolicyActivator flips a policy to ACTIVE/PAID once money lands.
type PolicyActivator interface {
	ActivateOnPayment(ctx context.Context, id uuid.UUID) (*policymodels.Policy, error)
}

// AuditPublisher records security-relevant mutations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service orchestrates payment settlement.
type Service struct {
	payments  PaymentStore
	policies  PolicyReader
	activator PolicyActivator
	processor processor.Processor
	logger    *slog.Logger
	auditor   AuditPublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a Service.
func New(payments PaymentStore, policies PolicyReader, activator PolicyActivator, proc processor.Processor, opts ...Option) *Service {
	s := &Service{
		payments:  payments,
		policies:  policies,
		activator: activator,
		processor: proc,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateIntentInput is the intent creation payload.
type CreateIntentInput struct {
	PolicyID uuid.UUID `json:"policyId"`
	Amount   float64   `json:"amount"`
}

// IntentResult is returned to the client so it can complete the card flow.
type IntentResult struct {
	PaymentID    uuid.UUID `json:"paymentId"`
	ClientSecret string    `json:"clientSecret"`
}

// CreateIntent opens a payment against a policy the caller may pay for and
// records a PENDING payment keyed by the provider intent id.
func (s *Service) CreateIntent(ctx context.Context, caller requestcontext.Principal, input CreateIntentInput) (*IntentResult, error) {
	if input.Amount <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}

	policy, err := s.findPolicy(ctx, input.PolicyID)
	if err != nil {
		return nil, err
	}
	if policy.CustomerID != caller.UserID {
		if err := accesscontrol.Allow(identity.Role(caller.Role), accesscontrol.CapPaymentConfirmAny); err != nil {
			return nil, dErrors.New(dErrors.CodeForbidden, "you do not have access to this resource")
		}
	}

	intent, err := s.processor.CreateIntent(ctx, input.Amount, "usd", map[string]string{
		"policyId":   policy.ID.String(),
		"customerId": policy.CustomerID.String(),
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "payment provider unavailable")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create payment intent")
	}

	payment, err := models.New(uuid.New(), policy.ID, policy.CustomerID, input.Amount, intent.ID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "payment intent already recorded")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment")
	}

	s.emit(ctx, audit.Event{Action: audit.ActionPaymentInitiated, Subject: payment.ID.String()})
	return &IntentResult{PaymentID: payment.ID, ClientSecret: intent.ClientSecret}, nil
}

// ConfirmInput reports the provider-side outcome of a payment.
type ConfirmInput struct {
	PaymentIntentID string `json:"paymentIntentId"`
	Succeeded       bool   `json:"succeeded"`
}

// Confirm settles the payment named by the provider intent id. The settle is
// idempotent: the first confirmation wins the conditional update and, on
// success, activates the policy; repeats find the payment already terminal
// and change nothing.
func (s *Service) Confirm(ctx context.Context, caller requestcontext.Principal, input ConfirmInput) (*models.Payment, error) {
	if input.PaymentIntentID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "paymentIntentId is required")
	}

	payment, err := s.payments.FindByIntentID(ctx, input.PaymentIntentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "payment record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
	}
	if payment.CustomerID != caller.UserID {
		if err := accesscontrol.Allow(identity.Role(caller.Role), accesscontrol.CapPaymentConfirmAny); err != nil {
			return nil, err
		}
	}

	to := models.StatusFailed
	if input.Succeeded {
		to = models.StatusSucceeded
	}

	settled, err := s.payments.UpdateStatusIfPending(ctx, payment.ID, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to settle payment")
	}
	if !settled {
		// Already terminal; report the stored outcome without side effects.
		return payment, nil
	}
	payment.Status = to

	if input.Succeeded {
		if _, err := s.activator.ActivateOnPayment(ctx, payment.PolicyID); err != nil {
			// The payment is settled; activation is logged and retried out
			// of band rather than rolled back.
			s.logger.ErrorContext(ctx, "policy activation after payment failed",
				"policy_id", payment.PolicyID, "payment_id", payment.ID, "error", err)
		}
	}

	s.emit(ctx, audit.Event{Action: audit.ActionPaymentConfirmed, Subject: payment.ID.String(), Decision: string(to)})
	if s.metrics != nil {
		s.metrics.PaymentsConfirmed.WithLabelValues(string(to)).Inc()
	}
	return payment, nil
}

// List returns payments visible to the caller. Staff see everything,
// customers only their own.
func (s *Service) List(ctx context.Context, caller requestcontext.Principal) ([]*models.Payment, error) {
	var filter store.Filter
	if accesscontrol.Allow(identity.Role(caller.Role), accesscontrol.CapPaymentListAll) != nil {
		id := caller.UserID
		filter.CustomerID = &id
	}
	payments, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payments")
	}
	return payments, nil
}

// ListByPolicy returns the payment history for one policy the caller may read.
func (s *Service) ListByPolicy(ctx context.Context, caller requestcontext.Principal, policyID uuid.UUID) ([]*models.Payment, error) {
	policy, err := s.findPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if err := accesscontrol.CanReadEntity(caller, policy.CustomerID, policy.AgentID); err != nil {
		return nil, err
	}
	payments, err := s.payments.List(ctx, store.Filter{PolicyID: &policyID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payments")
	}
	return payments, nil
}

func (s *Service) findPolicy(ctx context.Context, id uuid.UUID) (*policymodels.Policy, error) {
	policy, err := s.policies.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "policy not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy")
	}
	return policy, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Emit(ctx, event)
	}
}
