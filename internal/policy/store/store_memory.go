package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"covergate/internal/policy/models"
	"covergate/pkg/platform/sentinel"
)

// InMemoryPolicyStore stores policies in memory for tests/dev.
type InMemoryPolicyStore struct {
	mu       sync.RWMutex
	policies map[uuid.UUID]*models.Policy
}

// NewInMemory constructs an empty in-memory policy store.
func NewInMemory() *InMemoryPolicyStore {
	return &InMemoryPolicyStore{policies: make(map[uuid.UUID]*models.Policy)}
}

func (s *InMemoryPolicyStore) Create(_ context.Context, policy *models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.policies {
		if existing.PolicyNumber == policy.PolicyNumber {
			return fmt.Errorf("policy number already taken: %w", sentinel.ErrConflict)
		}
	}
	cp := *policy
	s.policies[policy.ID] = &cp
	return nil
}

func (s *InMemoryPolicyStore) FindByID(_ context.Context, id uuid.UUID) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if policy, ok := s.policies[id]; ok {
		cp := *policy
		return &cp, nil
	}
	return nil, fmt.Errorf("policy not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryPolicyStore) Update(_ context.Context, policy *models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.policies[policy.ID]; !ok {
		return fmt.Errorf("policy not found: %w", sentinel.ErrNotFound)
	}
	cp := *policy
	s.policies[policy.ID] = &cp
	return nil
}

func (s *InMemoryPolicyStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.policies[id]; !ok {
		return fmt.Errorf("policy not found: %w", sentinel.ErrNotFound)
	}
	delete(s.policies, id)
	return nil
}

func (s *InMemoryPolicyStore) List(_ context.Context, filter Filter) ([]*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var policies []*models.Policy
	for _, policy := range s.policies {
		if filter.CustomerID != nil && policy.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.AgentID != nil && (policy.AgentID == nil || *policy.AgentID != *filter.AgentID) {
			continue
		}
		cp := *policy
		policies = append(policies, &cp)
	}
	sort.Slice(policies, func(i, j int) bool { return policies[i].CreatedAt.Before(policies[j].CreatedAt) })
	return policies, nil
}
