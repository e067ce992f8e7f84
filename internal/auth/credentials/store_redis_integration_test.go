//go:build integration

package credentials_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"covergate/internal/auth/credentials"
	"covergate/internal/platform/redis"
	"covergate/pkg/platform/sentinel"
	"covergate/pkg/testutil/containers"
)

type RedisCredentialStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *credentials.RedisStore
}

func TestRedisCredentialStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCredentialStoreSuite))
}

func (s *RedisCredentialStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = credentials.NewRedis(&redis.Client{Client: s.redis.Client})
}

func (s *RedisCredentialStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCredentialStoreSuite) TestOTPConsumedExactlyOnce() {
	ctx := context.Background()
	userID := uuid.New()
	s.Require().NoError(s.store.SetOTP(ctx, userID, "123456", time.Minute))

	s.Require().NoError(s.store.ConsumeOTP(ctx, userID, "123456"))

	err := s.store.ConsumeOTP(ctx, userID, "123456")
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *RedisCredentialStoreSuite) TestWrongOTPDoesNotConsume() {
	ctx := context.Background()
	userID := uuid.New()
	s.Require().NoError(s.store.SetOTP(ctx, userID, "123456", time.Minute))

	err := s.store.ConsumeOTP(ctx, userID, "999999")
	s.Require().Error(err)

	// The right code still works afterwards.
	s.Require().NoError(s.store.ConsumeOTP(ctx, userID, "123456"))
}

func (s *RedisCredentialStoreSuite) TestOTPExpires() {
	ctx := context.Background()
	userID := uuid.New()
	s.Require().NoError(s.store.SetOTP(ctx, userID, "123456", 50*time.Millisecond))

	time.Sleep(150 * time.Millisecond)

	err := s.store.ConsumeOTP(ctx, userID, "123456")
	s.Require().Error(err)
}

func (s *RedisCredentialStoreSuite) TestResetTokenSingleUse() {
	ctx := context.Background()
	userID := uuid.New()
	s.Require().NoError(s.store.SetResetToken(ctx, userID, "tok-abc", time.Minute))

	got, err := s.store.ConsumeResetToken(ctx, "tok-abc")
	s.Require().NoError(err)
	s.Equal(userID, got)

	_, err = s.store.ConsumeResetToken(ctx, "tok-abc")
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *RedisCredentialStoreSuite) TestRefreshTokenRotation() {
	ctx := context.Background()
	userID := uuid.New()
	s.Require().NoError(s.store.SetRefreshToken(ctx, userID, "refresh-1", time.Minute))
	s.Require().NoError(s.store.MatchRefreshToken(ctx, userID, "refresh-1"))

	// Rotation replaces the stored token; the superseded one stops matching.
	s.Require().NoError(s.store.SetRefreshToken(ctx, userID, "refresh-2", time.Minute))
	s.Require().Error(s.store.MatchRefreshToken(ctx, userID, "refresh-1"))
	s.Require().NoError(s.store.MatchRefreshToken(ctx, userID, "refresh-2"))

	s.Require().NoError(s.store.DeleteRefreshToken(ctx, userID))
	s.Require().Error(s.store.MatchRefreshToken(ctx, userID, "refresh-2"))
}
