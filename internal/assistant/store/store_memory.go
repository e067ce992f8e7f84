package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"covergate/internal/assistant/models"
)

// InMemoryMessageStore stores conversation history in memory for tests/dev.
type InMemoryMessageStore struct {
	mu       sync.RWMutex
	messages []*models.Message
}

// NewInMemory constructs an empty in-memory message store.
func NewInMemory() *InMemoryMessageStore {
	return &InMemoryMessageStore{}
}

func (s *InMemoryMessageStore) Create(_ context.Context, message *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *message
	s.messages = append(s.messages, &cp)
	return nil
}

func (s *InMemoryMessageStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Message
	for _, m := range s.messages {
		if m.UserID == userID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryMessageStore) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Message, error) {
	all, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}
