package credentials

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"covergate/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store   *InMemoryStore
	current time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.current = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.store = NewInMemory(WithClock(func() time.Time { return s.current }))
}

func (s *InMemoryStoreSuite) advance(d time.Duration) { s.current = s.current.Add(d) }

func (s *InMemoryStoreSuite) TestOTPConsumeOnce() {
	userID := uuid.New()
	require.NoError(s.T(), s.store.SetOTP(context.Background(), userID, "123456", 10*time.Minute))

	require.NoError(s.T(), s.store.ConsumeOTP(context.Background(), userID, "123456"))

	// Consumed; replay fails.
	err := s.store.ConsumeOTP(context.Background(), userID, "123456")
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestOTPWrongCode() {
	userID := uuid.New()
	require.NoError(s.T(), s.store.SetOTP(context.Background(), userID, "123456", 10*time.Minute))

	err := s.store.ConsumeOTP(context.Background(), userID, "654321")
	assert.ErrorIs(s.T(), err, sentinel.ErrInvalidState)

	// A wrong guess does not consume the code.
	assert.NoError(s.T(), s.store.ConsumeOTP(context.Background(), userID, "123456"))
}

func (s *InMemoryStoreSuite) TestOTPExpiry() {
	userID := uuid.New()
	require.NoError(s.T(), s.store.SetOTP(context.Background(), userID, "123456", 10*time.Minute))

	s.advance(10*time.Minute + time.Second)
	err := s.store.ConsumeOTP(context.Background(), userID, "123456")
	assert.ErrorIs(s.T(), err, sentinel.ErrExpired)
}

func (s *InMemoryStoreSuite) TestOTPReplacedByNewerCode() {
	userID := uuid.New()
	require.NoError(s.T(), s.store.SetOTP(context.Background(), userID, "111111", 10*time.Minute))
	require.NoError(s.T(), s.store.SetOTP(context.Background(), userID, "222222", 10*time.Minute))

	err := s.store.ConsumeOTP(context.Background(), userID, "111111")
	assert.ErrorIs(s.T(), err, sentinel.ErrInvalidState)
	assert.NoError(s.T(), s.store.ConsumeOTP(context.Background(), userID, "222222"))
}

func (s *InMemoryStoreSuite) TestResetTokenSingleUse() {
	userID := uuid.New()
	require.NoError(s.T(), s.store.SetResetToken(context.Background(), userID, "tok_abc", time.Hour))

	got, err := s.store.ConsumeResetToken(context.Background(), "tok_abc")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), userID, got)

	_, err = s.store.ConsumeResetToken(context.Background(), "tok_abc")
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestResetTokenExpiry() {
	userID := uuid.New()
	require.NoError(s.T(), s.store.SetResetToken(context.Background(), userID, "tok_abc", time.Hour))

	s.advance(61 * time.Minute)
	_, err := s.store.ConsumeResetToken(context.Background(), "tok_abc")
	assert.ErrorIs(s.T(), err, sentinel.ErrExpired)
}

func (s *InMemoryStoreSuite) TestResetTokenReplacedInvalidatesOld() {
	userID := uuid.New()
	require.NoError(s.T(), s.store.SetResetToken(context.Background(), userID, "tok_old", time.Hour))
	require.NoError(s.T(), s.store.SetResetToken(context.Background(), userID, "tok_new", time.Hour))

	_, err := s.store.ConsumeResetToken(context.Background(), "tok_old")
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)

	got, err := s.store.ConsumeResetToken(context.Background(), "tok_new")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), userID, got)
}

func (s *InMemoryStoreSuite) TestRefreshRotation() {
	userID := uuid.New()
	require.NoError(s.T(), s.store.SetRefreshToken(context.Background(), userID, "ref_1", time.Hour))
	require.NoError(s.T(), s.store.MatchRefreshToken(context.Background(), userID, "ref_1"))

	// Rotation: the new token is the only valid one.
	require.NoError(s.T(), s.store.SetRefreshToken(context.Background(), userID, "ref_2", time.Hour))
	err := s.store.MatchRefreshToken(context.Background(), userID, "ref_1")
	assert.ErrorIs(s.T(), err, sentinel.ErrInvalidState)
	assert.NoError(s.T(), s.store.MatchRefreshToken(context.Background(), userID, "ref_2"))
}

func (s *InMemoryStoreSuite) TestRefreshDelete() {
	userID := uuid.New()
	require.NoError(s.T(), s.store.SetRefreshToken(context.Background(), userID, "ref_1", time.Hour))
	require.NoError(s.T(), s.store.DeleteRefreshToken(context.Background(), userID))

	err := s.store.MatchRefreshToken(context.Background(), userID, "ref_1")
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}
