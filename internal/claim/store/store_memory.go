package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"covergate/internal/claim/models"
	"covergate/pkg/platform/sentinel"
)

// InMemoryClaimStore stores claims in memory for tests/dev.
type InMemoryClaimStore struct {
	mu     sync.RWMutex
	claims map[uuid.UUID]*models.Claim
}

// NewInMemory constructs an empty in-memory claim store.
func NewInMemory() *InMemoryClaimStore {
	return &InMemoryClaimStore{claims: make(map[uuid.UUID]*models.Claim)}
}

func copyClaim(c *models.Claim) *models.Claim {
	cp := *c
	cp.RiskFactors = append([]string(nil), c.RiskFactors...)
	cp.AttachmentIDs = append([]uuid.UUID(nil), c.AttachmentIDs...)
	return &cp
}

func (s *InMemoryClaimStore) Create(_ context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[claim.ID] = copyClaim(claim)
	return nil
}

func (s *InMemoryClaimStore) FindByID(_ context.Context, id uuid.UUID) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if claim, ok := s.claims[id]; ok {
		return copyClaim(claim), nil
	}
	return nil, fmt.Errorf("claim not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryClaimStore) Update(_ context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[claim.ID]; !ok {
		return fmt.Errorf("claim not found: %w", sentinel.ErrNotFound)
	}
	s.claims[claim.ID] = copyClaim(claim)
	return nil
}

func (s *InMemoryClaimStore) List(_ context.Context, filter Filter) ([]*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var claims []*models.Claim
	for _, claim := range s.claims {
		if filter.CustomerID != nil && claim.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.AgentID != nil && (claim.AgentID == nil || *claim.AgentID != *filter.AgentID) {
			continue
		}
		claims = append(claims, copyClaim(claim))
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].CreatedAt.Before(claims[j].CreatedAt) })
	return claims, nil
}

func (s *InMemoryClaimStore) ExistsByID(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.claims[id]
	return ok, nil
}

func (s *InMemoryClaimStore) ExistsByAttachmentID(_ context.Context, attachmentID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, claim := range s.claims {
		for _, id := range claim.AttachmentIDs {
			if id == attachmentID {
				return true, nil
			}
		}
	}
	return false, nil
}
