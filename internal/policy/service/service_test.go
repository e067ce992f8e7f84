package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	identity "covergate/internal/identity/models"
	"covergate/internal/policy/models"
	"covergate/internal/policy/store"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

type PolicyServiceSuite struct {
	suite.Suite
	svc   *Service
	store *store.InMemoryPolicyStore
}

func TestPolicyServiceSuite(t *testing.T) {
	suite.Run(t, new(PolicyServiceSuite))
}

func (s *PolicyServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.svc = New(s.store, WithLogger(slog.New(slog.DiscardHandler)))
}

func principal(role identity.Role) requestcontext.Principal {
	return requestcontext.Principal{UserID: uuid.New(), Role: string(role)}
}

func validInput() ApplyInput {
	return ApplyInput{
		Name: "Standard Health Guard", Type: models.TypeHealth,
		Coverage: 500000, Premium: 150, DurationYears: 1,
	}
}

func (s *PolicyServiceSuite) TestApplyStartsPendingUnpaid() {
	customer := principal(identity.RoleCustomer)
	policy, err := s.svc.Apply(context.Background(), customer, validInput())
	require.NoError(s.T(), err)

	assert.Equal(s.T(), models.StatusPending, policy.Status)
	assert.Equal(s.T(), models.PaymentUnpaid, policy.PaymentStatus)
	assert.Equal(s.T(), customer.UserID, policy.CustomerID)
	assert.Regexp(s.T(), `^POL-\d{4}-\d{6}$`, policy.PolicyNumber)
}

func (s *PolicyServiceSuite) TestApplyCustomerCannotApplyForOthers() {
	other := uuid.New()
	input := validInput()
	input.CustomerID = &other

	_, err := s.svc.Apply(context.Background(), principal(identity.RoleCustomer), input)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *PolicyServiceSuite) TestApplyAgentForcedAsAgent() {
	agent := principal(identity.RoleAgent)
	other := uuid.New()
	someoneElse := uuid.New()
	input := validInput()
	input.CustomerID = &other
	input.AgentID = &someoneElse // ignored for agent callers

	policy, err := s.svc.Apply(context.Background(), agent, input)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), other, policy.CustomerID)
	require.NotNil(s.T(), policy.AgentID)
	assert.Equal(s.T(), agent.UserID, *policy.AgentID)
}

func (s *PolicyServiceSuite) TestApplyRetriesOnNumberCollision() {
	numbers := []string{"POL-2026-111111", "POL-2026-111111", "POL-2026-222222"}
	calls := 0
	svc := New(s.store,
		WithLogger(slog.New(slog.DiscardHandler)),
		WithNumberGenerator(func(int) string {
			n := numbers[calls]
			calls++
			return n
		}),
	)

	first, err := svc.Apply(context.Background(), principal(identity.RoleCustomer), validInput())
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "POL-2026-111111", first.PolicyNumber)

	second, err := svc.Apply(context.Background(), principal(identity.RoleCustomer), validInput())
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "POL-2026-222222", second.PolicyNumber)
	assert.Equal(s.T(), 3, calls)
}

func (s *PolicyServiceSuite) TestApplyGivesUpAfterBoundedRetries() {
	svc := New(s.store,
		WithLogger(slog.New(slog.DiscardHandler)),
		WithNumberGenerator(func(int) string { return "POL-2026-777777" }),
	)

	_, err := svc.Apply(context.Background(), principal(identity.RoleCustomer), validInput())
	require.NoError(s.T(), err)

	_, err = svc.Apply(context.Background(), principal(identity.RoleCustomer), validInput())
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *PolicyServiceSuite) TestGetOwnershipForbiddenNotNotFound() {
	owner := principal(identity.RoleCustomer)
	policy, err := s.svc.Apply(context.Background(), owner, validInput())
	require.NoError(s.T(), err)

	_, err = s.svc.Get(context.Background(), principal(identity.RoleCustomer), policy.ID)
	// The policy exists; a stranger sees Forbidden, not NotFound.
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))

	got, err := s.svc.Get(context.Background(), owner, policy.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), policy.ID, got.ID)

	_, err = s.svc.Get(context.Background(), principal(identity.RoleAdmin), policy.ID)
	assert.NoError(s.T(), err)
}

func (s *PolicyServiceSuite) TestGetMissing() {
	_, err := s.svc.Get(context.Background(), principal(identity.RoleAdmin), uuid.New())
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *PolicyServiceSuite) TestListFilteredByRole() {
	customer := principal(identity.RoleCustomer)
	agent := principal(identity.RoleAgent)

	_, err := s.svc.Apply(context.Background(), customer, validInput())
	require.NoError(s.T(), err)

	input := validInput()
	otherCustomer := uuid.New()
	input.CustomerID = &otherCustomer
	_, err = s.svc.Apply(context.Background(), agent, input)
	require.NoError(s.T(), err)

	mine, err := s.svc.List(context.Background(), customer)
	require.NoError(s.T(), err)
	assert.Len(s.T(), mine, 1)

	assigned, err := s.svc.List(context.Background(), agent)
	require.NoError(s.T(), err)
	assert.Len(s.T(), assigned, 1)

	all, err := s.svc.List(context.Background(), principal(identity.RoleAdmin))
	require.NoError(s.T(), err)
	assert.Len(s.T(), all, 2)
}

func (s *PolicyServiceSuite) TestTransitionStatusStaffOnly() {
	owner := principal(identity.RoleCustomer)
	policy, err := s.svc.Apply(context.Background(), owner, validInput())
	require.NoError(s.T(), err)

	active := models.StatusActive
	_, err = s.svc.TransitionStatus(context.Background(), owner, policy.ID, TransitionInput{Status: &active})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))

	updated, err := s.svc.TransitionStatus(context.Background(), principal(identity.RoleAgent), policy.ID, TransitionInput{Status: &active})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.StatusActive, updated.Status)
	// Staff activation leaves billing untouched.
	assert.Equal(s.T(), models.PaymentUnpaid, updated.PaymentStatus)
}

func (s *PolicyServiceSuite) TestTransitionIllegalIsConflict() {
	admin := principal(identity.RoleAdmin)
	policy, err := s.svc.Apply(context.Background(), principal(identity.RoleCustomer), validInput())
	require.NoError(s.T(), err)

	cancelled := models.StatusCancelled
	_, err = s.svc.TransitionStatus(context.Background(), admin, policy.ID, TransitionInput{Status: &cancelled})
	require.NoError(s.T(), err)

	active := models.StatusActive
	_, err = s.svc.TransitionStatus(context.Background(), admin, policy.ID, TransitionInput{Status: &active})
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *PolicyServiceSuite) TestTransitionPaidStampsDate() {
	admin := principal(identity.RoleAdmin)
	policy, err := s.svc.Apply(context.Background(), principal(identity.RoleCustomer), validInput())
	require.NoError(s.T(), err)

	paid := models.PaymentPaid
	updated, err := s.svc.TransitionStatus(context.Background(), admin, policy.ID, TransitionInput{PaymentStatus: &paid})
	require.NoError(s.T(), err)
	require.NotNil(s.T(), updated.LastPaymentDate)
}

func (s *PolicyServiceSuite) TestActivateOnPaymentEvenWhenCancelled() {
	admin := principal(identity.RoleAdmin)
	policy, err := s.svc.Apply(context.Background(), principal(identity.RoleCustomer), validInput())
	require.NoError(s.T(), err)

	cancelled := models.StatusCancelled
	_, err = s.svc.TransitionStatus(context.Background(), admin, policy.ID, TransitionInput{Status: &cancelled})
	require.NoError(s.T(), err)

	activated, err := s.svc.ActivateOnPayment(context.Background(), policy.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.StatusActive, activated.Status)
	assert.Equal(s.T(), models.PaymentPaid, activated.PaymentStatus)
	require.NotNil(s.T(), activated.LastPaymentDate)
}

func (s *PolicyServiceSuite) TestDeleteAdminOnly() {
	policy, err := s.svc.Apply(context.Background(), principal(identity.RoleCustomer), validInput())
	require.NoError(s.T(), err)

	err = s.svc.Delete(context.Background(), principal(identity.RoleAgent), policy.ID)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeForbidden))

	require.NoError(s.T(), s.svc.Delete(context.Background(), principal(identity.RoleAdmin), policy.ID))
	err = s.svc.Delete(context.Background(), principal(identity.RoleAdmin), policy.ID)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *PolicyServiceSuite) TestApplyValidation() {
	input := validInput()
	input.Coverage = -1
	_, err := s.svc.Apply(context.Background(), principal(identity.RoleCustomer), input)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *PolicyServiceSuite) TestApplyClockUsedForNumberYear() {
	fixed := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := New(s.store,
		WithLogger(slog.New(slog.DiscardHandler)),
		WithClock(func() time.Time { return fixed }),
	)
	policy, err := svc.Apply(context.Background(), principal(identity.RoleCustomer), validInput())
	require.NoError(s.T(), err)
	assert.Contains(s.T(), policy.PolicyNumber, "POL-2031-")
}
