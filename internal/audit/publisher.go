// Package audit captures security-relevant mutations as structured events
// and ships them to a sink (Kafka when configured, the log otherwise)
// through a bounded in-process inbox so domain calls never block on the
// broker.
package audit

import (
	"context"
	"log/slog"
	"time"

	"covergate/pkg/requestcontext"
)

// Sink receives events drained from the publisher inbox.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher enriches events from the request context and hands them to a
// background worker. Emit never blocks; when the inbox is full the event is
// dropped with a warning.
type Publisher struct {
	sink   Sink
	inbox  chan Event
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

// WithInboxSize sets the inbox capacity.
func WithInboxSize(n int) Option {
	return func(p *Publisher) { p.inbox = make(chan Event, n) }
}

// NewPublisher constructs a Publisher draining into sink.
func NewPublisher(sink Sink, logger *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		sink:   sink,
		inbox:  make(chan Event, 256),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records an event. Actor, device and request id are filled from the
// context when the caller left them empty.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if principal, ok := requestcontext.PrincipalFrom(ctx); ok {
		if event.ActorID == "" {
			event.ActorID = principal.UserID.String()
		}
		if event.ActorRole == "" {
			event.ActorRole = principal.Role
		}
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Device == "" {
		event.Device = requestcontext.Device(ctx)
	}

	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit inbox full, dropping event", "action", event.Action)
	}
}

// Run drains the inbox until the context is cancelled. Sink failures are
// logged, not fatal; audit delivery is best-effort.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return ctx.Err()
		case event := <-p.inbox:
			if err := p.sink.Append(ctx, event); err != nil {
				p.logger.Error("audit append failed", "action", event.Action, "error", err)
			}
		}
	}
}

// drain flushes whatever is still buffered at shutdown, with a fresh
// short-lived context since the run context is already cancelled.
func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-p.inbox:
			if err := p.sink.Append(ctx, event); err != nil {
				p.logger.Error("audit append failed during drain", "action", event.Action, "error", err)
				return
			}
		default:
			return
		}
	}
}

// LogSink writes events to the application log. It is the fallback when no
// broker is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink constructs a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Append(_ context.Context, event Event) error {
	s.logger.Info("audit",
		"action", event.Action,
		"actor_id", event.ActorID,
		"actor_role", event.ActorRole,
		"subject", event.Subject,
		"decision", event.Decision,
		"reason", event.Reason,
		"device", event.Device,
		"request_id", event.RequestID,
	)
	return nil
}
