// Package service runs the assistant conversation loop. Replies always come
// back: the remote provider is tried first and the rule-based provider
// answers whenever it fails. Persistence is best effort so a flaky database
// never blocks a chat.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"covergate/internal/assistant/models"
	"covergate/internal/assistant/provider"
	"covergate/internal/platform/metrics"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

// historyLimit caps how many prior messages are handed to the provider.
const historyLimit = 6

// MessageStore is the slice of the message store this service needs.
type MessageStore interface {
	Create(ctx context.Context, message *models.Message) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Message, error)
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Message, error)
}

// Service answers assistant chats.
type Service struct {
	messages MessageStore
	primary  provider.Provider
	fallback provider.Provider
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a Service. primary may be nil, in which case every chat is
// answered by the fallback.
func New(messages MessageStore, primary provider.Provider, fallback provider.Provider, opts ...Option) *Service {
	s := &Service{
		messages: messages,
		primary:  primary,
		fallback: fallback,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Chat answers one user message. It returns an error only for empty input;
// provider failures degrade to the fallback reply.
func (s *Service) Chat(ctx context.Context, caller requestcontext.Principal, message string) (string, error) {
	if message == "" {
		return "", dErrors.New(dErrors.CodeValidation, "message is required")
	}

	s.record(ctx, caller.UserID, message, models.SenderUser)

	history := s.history(ctx, caller.UserID)
	reply := s.reply(ctx, message, history)

	s.record(ctx, caller.UserID, reply, models.SenderBot)
	return reply, nil
}

// History returns the caller's conversation, oldest first. A storage failure
// yields an empty history rather than an error.
func (s *Service) History(ctx context.Context, caller requestcontext.Principal) ([]*models.Message, error) {
	messages, err := s.messages.ListByUser(ctx, caller.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "assistant history unavailable", "error", err)
		return []*models.Message{}, nil
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	return messages, nil
}

func (s *Service) reply(ctx context.Context, message string, history []provider.Turn) string {
	if s.primary != nil {
		reply, err := s.primary.Reply(ctx, message, history)
		if err == nil {
			return reply
		}
		s.logger.WarnContext(ctx, "assistant provider failed, using fallback", "error", err)
	}
	if s.metrics != nil {
		s.metrics.AssistantFallback.Inc()
	}
	reply, err := s.fallback.Reply(ctx, message, history)
	if err != nil {
		// The rule-based fallback cannot fail; guard anyway.
		s.logger.ErrorContext(ctx, "assistant fallback failed", "error", err)
		return "I'm having trouble connecting right now. Please try again later."
	}
	return reply
}

func (s *Service) history(ctx context.Context, userID uuid.UUID) []provider.Turn {
	recent, err := s.messages.ListRecent(ctx, userID, historyLimit)
	if err != nil {
		s.logger.WarnContext(ctx, "assistant context fetch failed", "error", err)
		return nil
	}
	turns := make([]provider.Turn, 0, len(recent))
	for _, m := range recent {
		turns = append(turns, provider.Turn{Sender: m.Sender, Text: m.Text})
	}
	return turns
}

func (s *Service) record(ctx context.Context, userID uuid.UUID, text string, sender models.Sender) {
	message := &models.Message{
		ID:        uuid.New(),
		UserID:    userID,
		Text:      text,
		Sender:    sender,
		CreatedAt: s.now(),
	}
	if err := s.messages.Create(ctx, message); err != nil {
		s.logger.WarnContext(ctx, "failed to save assistant message", "sender", sender, "error", err)
	}
}
