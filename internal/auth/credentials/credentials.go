// Package credentials stores the transient credential side-channels of a
// user: the login one-time-code, the password-reset token and the currently
// valid refresh token.
//
// Each channel expires independently. They are deliberately NOT fields on the
// user record; a TTL-native store (Redis) or the in-memory equivalent holds
// them so natural expiry needs no sweeper.
package credentials

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Error Contract:
// - Consume/Match methods return sentinel.ErrNotFound when no live value
//   exists for the key (absent or naturally expired)
// - sentinel.ErrExpired when a value exists but its expiry elapsed
//   (memory store only; Redis expires keys itself)
// - sentinel.ErrInvalidState when the presented value does not match
// Consuming is destructive: a successful consume deletes the stored value.

// Store persists the three credential side-channels.
type Store interface {
	// SetOTP stores the one-time login code for a user, replacing any
	// previous one.
	SetOTP(ctx context.Context, userID uuid.UUID, code string, ttl time.Duration) error
	// ConsumeOTP verifies and deletes the stored code.
	ConsumeOTP(ctx context.Context, userID uuid.UUID, code string) error

	// SetResetToken stores a single-use password-reset token.
	SetResetToken(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error
	// ConsumeResetToken resolves a reset token to its user and deletes it.
	ConsumeResetToken(ctx context.Context, token string) (uuid.UUID, error)

	// SetRefreshToken records the single currently-valid refresh token for a
	// user. Setting a new one invalidates the previous (rotation).
	SetRefreshToken(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error
	// MatchRefreshToken verifies the presented refresh token is the current
	// one.
	MatchRefreshToken(ctx context.Context, userID uuid.UUID, token string) error
	// DeleteRefreshToken invalidates the current refresh token (logout).
	DeleteRefreshToken(ctx context.Context, userID uuid.UUID) error
}
