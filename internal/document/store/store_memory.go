package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"covergate/internal/document/models"
	"covergate/pkg/platform/sentinel"
)

// InMemoryAttachmentStore stores attachment metadata in memory for tests/dev.
type InMemoryAttachmentStore struct {
	mu          sync.RWMutex
	attachments map[uuid.UUID]*models.Attachment
}

// NewInMemory constructs an empty in-memory attachment store.
func NewInMemory() *InMemoryAttachmentStore {
	return &InMemoryAttachmentStore{attachments: make(map[uuid.UUID]*models.Attachment)}
}

func (s *InMemoryAttachmentStore) Create(_ context.Context, attachment *models.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *attachment
	s.attachments[attachment.ID] = &cp
	return nil
}

func (s *InMemoryAttachmentStore) FindByID(_ context.Context, id uuid.UUID) (*models.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if attachment, ok := s.attachments[id]; ok {
		cp := *attachment
		return &cp, nil
	}
	return nil, fmt.Errorf("attachment not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryAttachmentStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attachments[id]; !ok {
		return fmt.Errorf("attachment not found: %w", sentinel.ErrNotFound)
	}
	delete(s.attachments, id)
	return nil
}

func (s *InMemoryAttachmentStore) ListByUploader(_ context.Context, uploadedBy uuid.UUID) ([]*models.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Attachment
	for _, attachment := range s.attachments {
		if attachment.UploadedBy == uploadedBy {
			cp := *attachment
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (s *InMemoryAttachmentStore) Relink(_ context.Context, ids []uuid.UUID, relatedTo models.RelatedKind, relatedID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		attachment, ok := s.attachments[id]
		if !ok {
			return fmt.Errorf("attachment not found: %w", sentinel.ErrNotFound)
		}
		attachment.RelatedTo = relatedTo
		attachment.RelatedID = relatedID
	}
	return nil
}

func (s *InMemoryAttachmentStore) ListOlderThan(_ context.Context, cutoff time.Time) ([]*models.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Attachment
	for _, attachment := range s.attachments {
		if attachment.UploadedAt.Before(cutoff) {
			cp := *attachment
			out = append(out, &cp)
		}
	}
	return out, nil
}
