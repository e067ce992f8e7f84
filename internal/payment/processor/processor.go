// Package processor talks to the card payment provider. The HTTP client
// mirrors the Stripe payment-intent flow; the fake processor serves dev and
// test environments where no provider is configured.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/google/uuid"

	"covergate/pkg/platform/sentinel"
)

var tracer = otel.Tracer("covergate/payment/processor")

// Intent is the provider-side handle for a payment in flight.
type Intent struct {
	ID           string
	ClientSecret string
}

// Processor creates payment intents with the provider.
type Processor interface {
	CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*Intent, error)
}

// HTTPProcessor drives a Stripe-compatible payment-intents endpoint.
type HTTPProcessor struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewHTTP constructs a processor against the given API base URL.
func NewHTTP(baseURL, secretKey string, timeout time.Duration) *HTTPProcessor {
	return &HTTPProcessor{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProcessor) CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*Intent, error) {
	ctx, span := tracer.Start(ctx, "processor.CreateIntent")
	defer span.End()
	span.SetAttributes(attribute.String("payment.currency", currency))

	// The provider takes integer minor units.
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(int64(amount*100), 10))
	form.Set("currency", currency)
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/payment_intents", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build intent request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider unreachable")
		return nil, fmt.Errorf("payment provider unreachable: %w", sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, resp.Status)
		return nil, fmt.Errorf("payment provider returned %s: %w", resp.Status, sentinel.ErrUnavailable)
	}

	var body struct {
		ID           string `json:"id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("decode intent response: %w", err)
	}
	span.SetAttributes(attribute.String("payment.intent_id", body.ID))
	return &Intent{ID: body.ID, ClientSecret: body.ClientSecret}, nil
}

// FakeProcessor mints deterministic-looking intents locally. Used when no
// provider key is configured.
type FakeProcessor struct{}

func NewFake() *FakeProcessor { return &FakeProcessor{} }

func (*FakeProcessor) CreateIntent(_ context.Context, _ float64, _ string, _ map[string]string) (*Intent, error) {
	id := "pi_" + uuid.NewString()
	return &Intent{ID: id, ClientSecret: id + "_secret"}, nil
}
