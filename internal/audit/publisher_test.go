package audit

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covergate/pkg/requestcontext"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestEmitEnrichesFromContext(t *testing.T) {
	sink := &captureSink{}
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	pub := NewPublisher(sink, testLogger(), WithClock(func() time.Time { return fixed }))

	userID := uuid.New()
	ctx := requestcontext.WithPrincipal(context.Background(), requestcontext.Principal{UserID: userID, Role: "ADMIN"})
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	ctx = requestcontext.WithDevice(ctx, "Firefox on Linux")

	pub.Emit(ctx, Event{Action: ActionClaimReviewed, Subject: "claim-1", Decision: "APPROVED"})

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = pub.Run(runCtx)
		close(done)
	}()
	cancel()
	<-done

	events := sink.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, ActionClaimReviewed, events[0].Action)
	assert.Equal(t, userID.String(), events[0].ActorID)
	assert.Equal(t, "ADMIN", events[0].ActorRole)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, "Firefox on Linux", events[0].Device)
	assert.Equal(t, fixed, events[0].Timestamp)
}

func TestEmitDropsWhenInboxFull(t *testing.T) {
	sink := &captureSink{}
	pub := NewPublisher(sink, testLogger(), WithInboxSize(1))

	// No worker running: second emit hits a full inbox and must not block.
	pub.Emit(context.Background(), Event{Action: ActionLoginStarted})
	done := make(chan struct{})
	go func() {
		pub.Emit(context.Background(), Event{Action: ActionLoginStarted})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full inbox")
	}
}
