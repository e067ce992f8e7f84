package tokens

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "covergate/pkg/domain-errors"
)

func newTestService(now func() time.Time) *JWTService {
	return NewJWTService("test-signing-key", "covergate-test", 15*time.Minute, 7*24*time.Hour, WithClock(now))
}

func TestGenerateAndValidatePair(t *testing.T) {
	svc := newTestService(time.Now)
	userID := uuid.New()

	access, refresh, err := svc.GeneratePair(userID, "CUSTOMER")
	require.NoError(t, err)
	require.NotEqual(t, access, refresh)

	claims, err := svc.Validate(access, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "CUSTOMER", claims.Role)

	principal, err := svc.ValidatePrincipal(access)
	require.NoError(t, err)
	assert.Equal(t, userID, principal.UserID)
	assert.Equal(t, "CUSTOMER", principal.Role)
}

func TestRefreshTokenRejectedAsAccess(t *testing.T) {
	svc := newTestService(time.Now)
	_, refresh, err := svc.GeneratePair(uuid.New(), "ADMIN")
	require.NoError(t, err)

	_, err = svc.ValidatePrincipal(refresh)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = svc.Validate(refresh, KindRefresh)
	assert.NoError(t, err)
}

func TestExpiredAccessToken(t *testing.T) {
	current := time.Now()
	svc := newTestService(func() time.Time { return current })

	access, _, err := svc.GeneratePair(uuid.New(), "CUSTOMER")
	require.NoError(t, err)

	current = current.Add(16 * time.Minute)
	_, err = svc.Validate(access, KindAccess)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestTamperedTokenRejected(t *testing.T) {
	svc := newTestService(time.Now)
	other := NewJWTService("other-key", "covergate-test", time.Minute, time.Hour)

	access, _, err := other.GeneratePair(uuid.New(), "ADMIN")
	require.NoError(t, err)

	_, err = svc.Validate(access, KindAccess)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
