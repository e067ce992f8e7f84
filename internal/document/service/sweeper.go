package service

import (
	"context"
	"time"
)

// SweepOrphans removes attachments older than the grace period whose related
// entity no longer resolves. The grace period covers the window between an
// attachment being stored against a provisional reference and the claim
// creation relinking it.
func (s *Service) SweepOrphans(ctx context.Context, grace time.Duration) (int, error) {
	if s.resolver == nil {
		return 0, nil
	}

	stale, err := s.meta.ListOlderThan(ctx, s.now().Add(-grace))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, attachment := range stale {
		exists, err := s.resolver.Exists(ctx, attachment)
		if err != nil {
			s.logger.WarnContext(ctx, "orphan sweep: resolve failed",
				"attachment_id", attachment.ID, "error", err)
			continue
		}
		if exists {
			continue
		}
		if err := s.blobs.Remove(attachment.StoredName); err != nil {
			s.logger.WarnContext(ctx, "orphan sweep: blob removal failed",
				"attachment_id", attachment.ID, "error", err)
			continue
		}
		if err := s.meta.Delete(ctx, attachment.ID); err != nil {
			s.logger.WarnContext(ctx, "orphan sweep: metadata removal failed",
				"attachment_id", attachment.ID, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "orphan sweep removed attachments", "count", removed)
	}
	return removed, nil
}

// RunSweeper sweeps on the given interval until the context is cancelled.
func (s *Service) RunSweeper(ctx context.Context, interval, grace time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.SweepOrphans(ctx, grace); err != nil {
				s.logger.ErrorContext(ctx, "orphan sweep failed", "error", err)
			}
		}
	}
}
