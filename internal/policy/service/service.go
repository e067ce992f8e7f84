// Package service implements the policy lifecycle: application, ownership
// filtered reads, staff transitions, payment-driven activation and deletion.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"covergate/internal/accesscontrol"
	"covergate/internal/audit"
	identity "covergate/internal/identity/models"
	"covergate/internal/platform/metrics"
	"covergate/internal/policy/models"
	"covergate/internal/policy/plans"
	"covergate/internal/policy/store"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/platform/sentinel"
	"covergate/pkg/requestcontext"
)

// maxNumberAttempts bounds the policy-number collision retry loop.
const maxNumberAttempts = 5

// PolicyStore is the slice of the policy store this service needs.
type PolicyStore interface {
	Create(ctx context.Context, policy *models.Policy) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Policy, error)
	Update(ctx context.Context, policy *models.Policy) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter store.Filter) ([]*models.Policy, error)
}

// AuditPublisher records security-relevant mutations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service orchestrates the policy lifecycle.
type Service struct {
	policies PolicyStore
	logger   *slog.Logger
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	now      func() time.Time
	numberFn func(year int) string
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

// WithNumberGenerator overrides policy-number generation (used in tests to
// force collisions).
func WithNumberGenerator(fn func(year int) string) Option {
	return func(s *Service) { s.numberFn = fn }
}

// New constructs a Service.
func New(policies PolicyStore, opts ...Option) *Service {
	s := &Service{
		policies: policies,
		logger:   slog.Default(),
		now:      time.Now,
	}
	s.numberFn = func(year int) string {
		return models.FormatPolicyNumber(year, rand.IntN(900000)+100000)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyInput is the policy application payload.
type ApplyInput struct {
	Name          string      `json:"name"`
	Type          models.Type `json:"type"`
	Coverage      float64     `json:"coverage"`
	Premium       float64     `json:"premium"`
	DurationYears int         `json:"durationYears"`
	CustomerID    *uuid.UUID  `json:"customerId,omitempty"`
	AgentID       *uuid.UUID  `json:"agentId,omitempty"`
}

// Apply creates a PENDING, UNPAID policy. Customers apply for themselves;
// staff may apply on behalf of an explicit customer. An agent caller is
// always recorded as the policy's agent.
func (s *Service) Apply(ctx context.Context, caller requestcontext.Principal, input ApplyInput) (*models.Policy, error) {
	customerID := caller.UserID
	if input.CustomerID != nil && *input.CustomerID != caller.UserID {
		if err := accesscontrol.Allow(identity.Role(caller.Role), accesscontrol.CapPolicyApplyForOthers); err != nil {
			return nil, err
		}
		customerID = *input.CustomerID
	}

	agentID := input.AgentID
	if identity.Role(caller.Role) == identity.RoleAgent {
		callerID := caller.UserID
		agentID = &callerID
	}

	now := s.now()
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		policy, err := models.New(uuid.New(), s.numberFn(now.Year()), input.Name, input.Type,
			input.Coverage, input.Premium, input.DurationYears, customerID, agentID, now)
		if err != nil {
			return nil, err
		}

		err = s.policies.Create(ctx, policy)
		if err == nil {
			s.emit(ctx, audit.Event{Action: audit.ActionPolicyApplied, Subject: policy.ID.String()})
			if s.metrics != nil {
				s.metrics.PoliciesCreated.Inc()
			}
			return policy, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create policy")
		}
		s.logger.WarnContext(ctx, "policy number collision, regenerating",
			"policy_number", policy.PolicyNumber, "attempt", attempt+1)
	}
	return nil, dErrors.New(dErrors.CodeInternal, "failed to allocate a unique policy number")
}

// Get returns a single policy, Forbidden (not NotFound) when the caller may
// not read it.
func (s *Service) Get(ctx context.Context, caller requestcontext.Principal, id uuid.UUID) (*models.Policy, error) {
	policy, err := s.policies.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "policy not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy")
	}
	if err := accesscontrol.CanReadEntity(caller, policy.CustomerID, policy.AgentID); err != nil {
		return nil, err
	}
	return policy, nil
}

// List returns the policies the caller may see.
func (s *Service) List(ctx context.Context, caller requestcontext.Principal) ([]*models.Policy, error) {
	policies, err := s.policies.List(ctx, scopeFilter(accesscontrol.ListScope(caller)))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list policies")
	}
	return policies, nil
}

// TransitionInput carries the optional staff transition targets.
type TransitionInput struct {
	Status        *models.Status        `json:"status,omitempty"`
	PaymentStatus *models.PaymentStatus `json:"paymentStatus,omitempty"`
}

// TransitionStatus applies a staff transition. Illegal moves are a Conflict.
func (s *Service) TransitionStatus(ctx context.Context, caller requestcontext.Principal, id uuid.UUID, input TransitionInput) (*models.Policy, error) {
	if err := accesscontrol.Allow(identity.Role(caller.Role), accesscontrol.CapPolicyTransition); err != nil {
		return nil, err
	}
	if input.Status == nil && input.PaymentStatus == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "nothing to transition")
	}

	policy, err := s.policies.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "policy not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy")
	}

	now := s.now()
	if input.Status != nil {
		if err := policy.TransitionStatus(*input.Status, now); err != nil {
			return nil, err
		}
	}
	if input.PaymentStatus != nil {
		if err := policy.TransitionPayment(*input.PaymentStatus, now); err != nil {
			return nil, err
		}
	}

	if err := s.policies.Update(ctx, policy); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update policy")
	}
	s.emit(ctx, audit.Event{
		Action:   audit.ActionPolicyTransitioned,
		Subject:  policy.ID.String(),
		Decision: string(policy.Status) + "/" + string(policy.PaymentStatus),
	})
	return policy, nil
}

// ActivateOnPayment marks a premium as settled and forces the policy ACTIVE.
// Called by payment confirmation, never from a handler directly.
func (s *Service) ActivateOnPayment(ctx context.Context, id uuid.UUID) (*models.Policy, error) {
	policy, err := s.policies.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "policy not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy")
	}

	policy.ActivateOnPayment(s.now())
	if err := s.policies.Update(ctx, policy); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate policy")
	}
	s.emit(ctx, audit.Event{Action: audit.ActionPolicyActivated, Subject: policy.ID.String()})
	return policy, nil
}

// Delete removes a policy entirely. ADMIN only.
func (s *Service) Delete(ctx context.Context, caller requestcontext.Principal, id uuid.UUID) error {
	if err := accesscontrol.Allow(identity.Role(caller.Role), accesscontrol.CapPolicyDelete); err != nil {
		return err
	}
	if err := s.policies.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "policy not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete policy")
	}
	s.emit(ctx, audit.Event{Action: audit.ActionPolicyDeleted, Subject: id.String()})
	return nil
}

// Plans returns the purchasable plan catalog.
func (s *Service) Plans() []plans.Plan {
	return plans.Catalog()
}

// Recommend scores the product set against a questionnaire profile.
func (s *Service) Recommend(profile plans.Profile) []plans.Recommendation {
	return plans.Recommend(profile)
}

func scopeFilter(scope accesscontrol.Scope) store.Filter {
	switch scope.Kind {
	case accesscontrol.ScopeByCustomer:
		id := scope.ID
		return store.Filter{CustomerID: &id}
	case accesscontrol.ScopeByAgent:
		id := scope.ID
		return store.Filter{AgentID: &id}
	default:
		return store.Filter{}
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Emit(ctx, event)
	}
}
