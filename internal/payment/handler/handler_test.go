package handler

//go:generate mockgen -source=handler.go -destination=mocks/payment-mocks.go -package=mocks Service

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"covergate/internal/auth/tokens"
	"covergate/internal/payment/handler/mocks"
	"covergate/internal/payment/models"
	"covergate/internal/payment/service"
	dErrors "covergate/pkg/domain-errors"
)

type PaymentHandlerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	payments *mocks.MockService
	router   chi.Router
	jwt      *tokens.JWTService
	userID   uuid.UUID
	token    string
}

func TestPaymentHandlerSuite(t *testing.T) {
	suite.Run(t, new(PaymentHandlerSuite))
}

func (s *PaymentHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.payments = mocks.NewMockService(s.ctrl)
	s.jwt = tokens.NewJWTService("test-signing-key", "covergate-test", 15*time.Minute, 7*24*time.Hour)

	s.userID = uuid.New()
	access, _, err := s.jwt.GeneratePair(s.userID, "CUSTOMER")
	require.NoError(s.T(), err)
	s.token = access

	logger := slog.New(slog.DiscardHandler)
	s.router = chi.NewRouter()
	New(s.payments, s.jwt, logger).Register(s.router)
}

func (s *PaymentHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *PaymentHandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *PaymentHandlerSuite) TestCreateIntent() {
	policyID := uuid.New()
	paymentID := uuid.New()
	s.payments.EXPECT().
		CreateIntent(gomock.Any(), gomock.Any(), service.CreateIntentInput{PolicyID: policyID, Amount: 49.99}).
		Return(&service.IntentResult{PaymentID: paymentID, ClientSecret: "pi_123_secret"}, nil)

	rec := s.do(http.MethodPost, "/payments/create-intent", map[string]any{
		"policyId": policyID,
		"amount":   49.99,
	})

	require.Equal(s.T(), http.StatusCreated, rec.Code)
	var result service.IntentResult
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(s.T(), paymentID, result.PaymentID)
	require.Equal(s.T(), "pi_123_secret", result.ClientSecret)
}

func (s *PaymentHandlerSuite) TestCreateIntentForbidden() {
	s.payments.EXPECT().
		CreateIntent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeForbidden, "you do not have access to this resource"))

	rec := s.do(http.MethodPost, "/payments/create-intent", map[string]any{
		"policyId": uuid.New(),
		"amount":   10,
	})
	require.Equal(s.T(), http.StatusForbidden, rec.Code)
}

func (s *PaymentHandlerSuite) TestConfirm() {
	payment := &models.Payment{ID: uuid.New(), Status: models.StatusSucceeded, ProviderIntentID: "pi_123"}
	s.payments.EXPECT().
		Confirm(gomock.Any(), gomock.Any(), service.ConfirmInput{PaymentIntentID: "pi_123", Succeeded: true}).
		Return(payment, nil)

	rec := s.do(http.MethodPost, "/payments/confirm", map[string]any{
		"paymentIntentId": "pi_123",
		"succeeded":       true,
	})

	require.Equal(s.T(), http.StatusOK, rec.Code)
	var got models.Payment
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(s.T(), models.StatusSucceeded, got.Status)
}

func (s *PaymentHandlerSuite) TestConfirmUnknownIntent() {
	s.payments.EXPECT().
		Confirm(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "payment record not found"))

	rec := s.do(http.MethodPost, "/payments/confirm", map[string]any{"paymentIntentId": "pi_nope"})
	require.Equal(s.T(), http.StatusNotFound, rec.Code)
}

func (s *PaymentHandlerSuite) TestList() {
	s.payments.EXPECT().
		List(gomock.Any(), gomock.Any()).
		Return([]*models.Payment{{ID: uuid.New(), Status: models.StatusPending}}, nil)

	rec := s.do(http.MethodGet, "/payments/", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var got []*models.Payment
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(s.T(), got, 1)
}

func (s *PaymentHandlerSuite) TestListByPolicy() {
	policyID := uuid.New()
	s.payments.EXPECT().
		ListByPolicy(gomock.Any(), gomock.Any(), policyID).
		Return([]*models.Payment{}, nil)

	rec := s.do(http.MethodGet, "/payments/policy/"+policyID.String(), nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)
}

func (s *PaymentHandlerSuite) TestListByPolicyInvalidID() {
	rec := s.do(http.MethodGet, "/payments/policy/not-a-uuid", nil)
	require.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *PaymentHandlerSuite) TestUnauthenticated() {
	req := httptest.NewRequest(http.MethodGet, "/payments/", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}
