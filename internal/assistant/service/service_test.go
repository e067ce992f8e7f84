package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"covergate/internal/assistant/models"
	"covergate/internal/assistant/provider"
	"covergate/internal/assistant/store"
	"covergate/pkg/requestcontext"
)

// scriptedProvider fails or answers on demand and records the history it was
// given.
type scriptedProvider struct {
	reply   string
	err     error
	history []provider.Turn
	calls   int
}

func (p *scriptedProvider) Reply(_ context.Context, _ string, history []provider.Turn) (string, error) {
	p.calls++
	p.history = history
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

type AssistantServiceSuite struct {
	suite.Suite
	messages *store.InMemoryMessageStore
	now      time.Time
	ctx      context.Context
	caller   requestcontext.Principal
}

func TestAssistantServiceSuite(t *testing.T) {
	suite.Run(t, new(AssistantServiceSuite))
}

func (s *AssistantServiceSuite) SetupTest() {
	s.messages = store.NewInMemory()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = context.Background()
	s.caller = requestcontext.Principal{UserID: uuid.New(), Role: "CUSTOMER"}
}

func (s *AssistantServiceSuite) newService(primary provider.Provider) *Service {
	return New(s.messages, primary, provider.NewRuleBased(),
		WithLogger(slog.New(slog.DiscardHandler)),
		WithClock(func() time.Time { s.now = s.now.Add(time.Second); return s.now }),
	)
}

func (s *AssistantServiceSuite) TestPrimaryProviderAnswers() {
	primary := &scriptedProvider{reply: "Happy to help with your policy!"}
	svc := s.newService(primary)

	reply, err := svc.Chat(s.ctx, s.caller, "tell me about my policy")
	require.NoError(s.T(), err)
	require.Equal(s.T(), "Happy to help with your policy!", reply)
	require.Equal(s.T(), 1, primary.calls)
}

func (s *AssistantServiceSuite) TestFallbackWhenPrimaryFails() {
	primary := &scriptedProvider{err: errors.New("upstream 503")}
	svc := s.newService(primary)

	reply, err := svc.Chat(s.ctx, s.caller, "I want to file a claim")
	require.NoError(s.T(), err)
	require.Contains(s.T(), reply, "Claims")
}

func (s *AssistantServiceSuite) TestFallbackWhenNoPrimaryConfigured() {
	svc := s.newService(nil)

	reply, err := svc.Chat(s.ctx, s.caller, "hello there")
	require.NoError(s.T(), err)
	require.Equal(s.T(), "Hello! How can I help you with your insurance today?", reply)
}

func (s *AssistantServiceSuite) TestUnmatchedMessageGetsOfflineReply() {
	svc := s.newService(nil)

	reply, err := svc.Chat(s.ctx, s.caller, "what is the weather")
	require.NoError(s.T(), err)
	require.Contains(s.T(), reply, "offline mode")
}

func (s *AssistantServiceSuite) TestEmptyMessageRejected() {
	svc := s.newService(nil)
	_, err := svc.Chat(s.ctx, s.caller, "")
	require.Error(s.T(), err)
}

func (s *AssistantServiceSuite) TestBothTurnsPersisted() {
	svc := s.newService(nil)

	_, err := svc.Chat(s.ctx, s.caller, "hi")
	require.NoError(s.T(), err)

	history, err := svc.History(s.ctx, s.caller)
	require.NoError(s.T(), err)
	require.Len(s.T(), history, 2)
	require.Equal(s.T(), models.SenderUser, history[0].Sender)
	require.Equal(s.T(), "hi", history[0].Text)
	require.Equal(s.T(), models.SenderBot, history[1].Sender)
}

func (s *AssistantServiceSuite) TestHistoryHandedToProviderIsBounded() {
	primary := &scriptedProvider{reply: "ok"}
	svc := s.newService(primary)

	for range 5 {
		_, err := svc.Chat(s.ctx, s.caller, "hello")
		require.NoError(s.T(), err)
	}

	// 5 chats leave 10 stored messages; the provider sees at most 6.
	require.LessOrEqual(s.T(), len(primary.history), 6)
	require.NotEmpty(s.T(), primary.history)
}

func (s *AssistantServiceSuite) TestHistoryScopedPerUser() {
	svc := s.newService(nil)

	_, err := svc.Chat(s.ctx, s.caller, "hi")
	require.NoError(s.T(), err)

	other := requestcontext.Principal{UserID: uuid.New(), Role: "CUSTOMER"}
	history, err := svc.History(s.ctx, other)
	require.NoError(s.T(), err)
	require.Empty(s.T(), history)
}
