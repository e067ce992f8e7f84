package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"covergate/internal/payment/models"
	"covergate/pkg/platform/sentinel"
)

// InMemoryPaymentStore stores payments in memory for tests/dev.
type InMemoryPaymentStore struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*models.Payment
	byIntent map[string]uuid.UUID
}

// NewInMemory constructs an empty in-memory payment store.
func NewInMemory() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		payments: make(map[uuid.UUID]*models.Payment),
		byIntent: make(map[string]uuid.UUID),
	}
}

func copyPayment(p *models.Payment) *models.Payment {
	cp := *p
	return &cp
}

func (s *InMemoryPaymentStore) Create(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byIntent[payment.ProviderIntentID]; taken {
		return fmt.Errorf("intent id already recorded: %w", sentinel.ErrConflict)
	}
	s.payments[payment.ID] = copyPayment(payment)
	s.byIntent[payment.ProviderIntentID] = payment.ID
	return nil
}

func (s *InMemoryPaymentStore) FindByIntentID(_ context.Context, intentID string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byIntent[intentID]; ok {
		return copyPayment(s.payments[id]), nil
	}
	return nil, fmt.Errorf("payment not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryPaymentStore) UpdateStatusIfPending(_ context.Context, id uuid.UUID, to models.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payment, ok := s.payments[id]
	if !ok {
		return false, fmt.Errorf("payment not found: %w", sentinel.ErrNotFound)
	}
	if payment.Status != models.StatusPending {
		return false, nil
	}
	payment.Status = to
	payment.UpdatedAt = time.Now()
	return true, nil
}

func (s *InMemoryPaymentStore) List(_ context.Context, filter Filter) ([]*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var payments []*models.Payment
	for _, payment := range s.payments {
		if filter.CustomerID != nil && payment.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.PolicyID != nil && payment.PolicyID != *filter.PolicyID {
			continue
		}
		payments = append(payments, copyPayment(payment))
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].CreatedAt.After(payments[j].CreatedAt) })
	return payments, nil
}
