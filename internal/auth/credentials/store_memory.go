package credentials

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"covergate/pkg/platform/sentinel"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// InMemoryStore keeps credential side-channels in process memory for
// tests/dev. Expiry is checked lazily on access.
type InMemoryStore struct {
	mu      sync.Mutex
	otps    map[uuid.UUID]entry
	resets  map[string]resetEntry // keyed by token
	refresh map[uuid.UUID]entry
	now     func() time.Time
}

type resetEntry struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// MemoryOption configures an InMemoryStore.
type MemoryOption func(*InMemoryStore)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryStore) { s.now = now }
}

// NewInMemory constructs an empty in-memory credentials store.
func NewInMemory(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		otps:    make(map[uuid.UUID]entry),
		resets:  make(map[string]resetEntry),
		refresh: make(map[uuid.UUID]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) SetOTP(_ context.Context, userID uuid.UUID, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.otps[userID] = entry{value: code, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryStore) ConsumeOTP(_ context.Context, userID uuid.UUID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.otps[userID]
	if !ok {
		return fmt.Errorf("no pending code: %w", sentinel.ErrNotFound)
	}
	if s.now().After(stored.expiresAt) {
		delete(s.otps, userID)
		return fmt.Errorf("code expired: %w", sentinel.ErrExpired)
	}
	if subtle.ConstantTimeCompare([]byte(stored.value), []byte(code)) != 1 {
		return fmt.Errorf("code mismatch: %w", sentinel.ErrInvalidState)
	}
	delete(s.otps, userID)
	return nil
}

func (s *InMemoryStore) SetResetToken(_ context.Context, userID uuid.UUID, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Drop any previous token for this user; only one may be live.
	for t, e := range s.resets {
		if e.userID == userID {
			delete(s.resets, t)
		}
	}
	s.resets[token] = resetEntry{userID: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryStore) ConsumeResetToken(_ context.Context, token string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.resets[token]
	if !ok {
		return uuid.Nil, fmt.Errorf("no such reset token: %w", sentinel.ErrNotFound)
	}
	if s.now().After(stored.expiresAt) {
		delete(s.resets, token)
		return uuid.Nil, fmt.Errorf("reset token expired: %w", sentinel.ErrExpired)
	}
	delete(s.resets, token)
	return stored.userID, nil
}

func (s *InMemoryStore) SetRefreshToken(_ context.Context, userID uuid.UUID, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[userID] = entry{value: token, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryStore) MatchRefreshToken(_ context.Context, userID uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.refresh[userID]
	if !ok {
		return fmt.Errorf("no refresh token on record: %w", sentinel.ErrNotFound)
	}
	if s.now().After(stored.expiresAt) {
		delete(s.refresh, userID)
		return fmt.Errorf("refresh token expired: %w", sentinel.ErrExpired)
	}
	if subtle.ConstantTimeCompare([]byte(stored.value), []byte(token)) != 1 {
		return fmt.Errorf("refresh token superseded: %w", sentinel.ErrInvalidState)
	}
	return nil
}

func (s *InMemoryStore) DeleteRefreshToken(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, userID)
	return nil
}
