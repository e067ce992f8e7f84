package credentials

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"covergate/internal/platform/redis"
	"covergate/pkg/platform/sentinel"
)

// RedisStore keeps credential side-channels in Redis. Key TTLs carry the
// expiry contract, so absent and naturally-expired values are
// indistinguishable (both report ErrNotFound).
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed credentials store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func otpKey(userID uuid.UUID) string     { return "otp:" + userID.String() }
func resetKey(token string) string       { return "reset:" + token }
func refreshKey(userID uuid.UUID) string { return "refresh:" + userID.String() }

func (s *RedisStore) SetOTP(ctx context.Context, userID uuid.UUID, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, otpKey(userID), code, ttl).Err(); err != nil {
		return fmt.Errorf("set otp: %w", err)
	}
	return nil
}

func (s *RedisStore) ConsumeOTP(ctx context.Context, userID uuid.UUID, code string) error {
	stored, err := s.client.Get(ctx, otpKey(userID)).Result()
	if errors.Is(err, goredis.Nil) {
		return fmt.Errorf("no pending code: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get otp: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return fmt.Errorf("code mismatch: %w", sentinel.ErrInvalidState)
	}
	if err := s.client.Del(ctx, otpKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

func (s *RedisStore) SetResetToken(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, resetKey(token), userID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return nil
}

func (s *RedisStore) ConsumeResetToken(ctx context.Context, token string) (uuid.UUID, error) {
	// GETDEL makes consumption atomic; a concurrent replay sees ErrNotFound.
	stored, err := s.client.GetDel(ctx, resetKey(token)).Result()
	if errors.Is(err, goredis.Nil) {
		return uuid.Nil, fmt.Errorf("no such reset token: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("get reset token: %w", err)
	}
	userID, err := uuid.Parse(stored)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt reset token record: %w", err)
	}
	return userID, nil
}

func (s *RedisStore) SetRefreshToken(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, refreshKey(userID), token, ttl).Err(); err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	return nil
}

func (s *RedisStore) MatchRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	stored, err := s.client.Get(ctx, refreshKey(userID)).Result()
	if errors.Is(err, goredis.Nil) {
		return fmt.Errorf("no refresh token on record: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get refresh token: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(token)) != 1 {
		return fmt.Errorf("refresh token superseded: %w", sentinel.ErrInvalidState)
	}
	return nil
}

func (s *RedisStore) DeleteRefreshToken(ctx context.Context, userID uuid.UUID) error {
	if err := s.client.Del(ctx, refreshKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}
