package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"covergate/internal/assistant/models"
)

var tracer = otel.Tracer("covergate/assistant/provider")

const systemPrompt = "You are a warm, friendly, and empathetic insurance assistant. " +
	"Your goal is to make insurance feel simple and human. Greet users kindly and guide them " +
	"through our products (Health Pro Max, Family Life Secure, Travel Protection Plus) " +
	"with a supportive tone. Be concise but very approachable."

// Remote calls a hosted chat-completions endpoint.
type Remote struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewRemote constructs a remote provider with a bounded request timeout.
func NewRemote(baseURL, apiKey, model string, timeout time.Duration) *Remote {
	return &Remote{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (r *Remote) Reply(ctx context.Context, message string, history []Turn) (string, error) {
	ctx, span := tracer.Start(ctx, "provider.Reply")
	defer span.End()

	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	for _, turn := range history {
		role := "assistant"
		if turn.Sender == models.SenderUser {
			role = "user"
		}
		messages = append(messages, chatMessage{Role: role, Content: turn.Text})
	}
	messages = append(messages, chatMessage{Role: "user", Content: message})

	payload, err := json.Marshal(map[string]any{
		"model":      r.model,
		"messages":   messages,
		"max_tokens": 200,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider unreachable")
		return "", fmt.Errorf("assistant provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, resp.Status)
		return "", fmt.Errorf("assistant provider returned %s", resp.Status)
	}

	var body struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(body.Choices) == 0 || body.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("assistant provider returned no choices")
	}
	return body.Choices[0].Message.Content, nil
}
