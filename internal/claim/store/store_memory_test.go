package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"covergate/internal/claim/models"
	"covergate/pkg/platform/sentinel"
)

func newTestClaim(t *testing.T, customerID uuid.UUID, agentID *uuid.UUID, createdAt time.Time) *models.Claim {
	t.Helper()
	claim, err := models.New(uuid.New(), uuid.New(), customerID, agentID,
		3000, createdAt.AddDate(0, 0, -2), "water damage in kitchen",
		0, nil, nil, createdAt)
	require.NoError(t, err)
	return claim
}

func TestInMemoryClaimStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	claim := newTestClaim(t, uuid.New(), nil, time.Now())

	require.NoError(t, store.Create(ctx, claim))

	got, err := store.FindByID(ctx, claim.ID)
	require.NoError(t, err)
	require.Equal(t, claim.Description, got.Description)

	_, err = store.FindByID(ctx, uuid.New())
	require.True(t, errors.Is(err, sentinel.ErrNotFound))
}

func TestInMemoryClaimStoreCopySemantics(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	claim := newTestClaim(t, uuid.New(), nil, time.Now())
	claim.RiskFactors = []string{"Moderate Claim Amount"}
	require.NoError(t, store.Create(ctx, claim))

	got, err := store.FindByID(ctx, claim.ID)
	require.NoError(t, err)
	got.Status = models.StatusApproved
	got.RiskFactors[0] = "mutated"

	fresh, err := store.FindByID(ctx, claim.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusSubmitted, fresh.Status)
	require.Equal(t, "Moderate Claim Amount", fresh.RiskFactors[0])
}

func TestInMemoryClaimStoreListFilters(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	now := time.Now()

	customerID := uuid.New()
	agentID := uuid.New()
	require.NoError(t, store.Create(ctx, newTestClaim(t, customerID, &agentID, now)))
	require.NoError(t, store.Create(ctx, newTestClaim(t, customerID, nil, now.Add(time.Second))))
	require.NoError(t, store.Create(ctx, newTestClaim(t, uuid.New(), nil, now.Add(2*time.Second))))

	byCustomer, err := store.List(ctx, Filter{CustomerID: &customerID})
	require.NoError(t, err)
	require.Len(t, byCustomer, 2)

	byAgent, err := store.List(ctx, Filter{AgentID: &agentID})
	require.NoError(t, err)
	require.Len(t, byAgent, 1)

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.True(t, all[0].CreatedAt.Before(all[1].CreatedAt))
}

func TestInMemoryClaimStoreUpdateMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	claim := newTestClaim(t, uuid.New(), nil, time.Now())

	err := store.Update(ctx, claim)
	require.True(t, errors.Is(err, sentinel.ErrNotFound))
}

func TestInMemoryClaimStoreExistsByID(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	claim := newTestClaim(t, uuid.New(), nil, time.Now())
	require.NoError(t, store.Create(ctx, claim))

	ok, err := store.ExistsByID(ctx, claim.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.ExistsByID(ctx, uuid.New())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInMemoryClaimStoreExistsByAttachmentID(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	attachmentID := uuid.New()
	claim := newTestClaim(t, uuid.New(), nil, time.Now())
	claim.AttachmentIDs = []uuid.UUID{uuid.New(), attachmentID}
	require.NoError(t, store.Create(ctx, claim))

	ok, err := store.ExistsByAttachmentID(ctx, attachmentID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.ExistsByAttachmentID(ctx, uuid.New())
	require.NoError(t, err)
	require.False(t, ok)
}
