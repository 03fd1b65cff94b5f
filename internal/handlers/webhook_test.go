package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"portal-service/internal/mocks"
	"portal-service/internal/models"
)

type eventVerifierStub struct {
	event stripe.Event
	err   error
}

func (s eventVerifierStub) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return s.event, s.err
}

func setupWebhookRouter(handler *WebhookHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/stripe/webhook", handler.HandleStripeEvent)
	return r
}

func checkoutEvent(t *testing.T, eventType string, sessionID string, metadata map[string]string) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":             sessionID,
		"metadata":       metadata,
		"payment_intent": map[string]any{"id": "pi_123"},
	})
	require.NoError(t, err)
	return stripe.Event{
		ID:   "evt_1",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestWebhookCompletedMarksPaid(t *testing.T) {
	paymentRepo := new(mocks.PaymentRepositoryMock)
	event := checkoutEvent(t, "checkout.session.completed", "cs_123", map[string]string{"payment_id": "11", "client_id": "1"})
	handler := NewWebhookHandler(paymentRepo, eventVerifierStub{event: event}, nil)
	router := setupWebhookRouter(handler)

	paymentRepo.On("MarkPaid", mock.Anything, 11, 1, "cs_123", "pi_123").Return(models.Payment{ID: 11, Status: models.PaymentPaid}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	paymentRepo.AssertExpectations(t)
}

func TestWebhookExpiredMarksFailed(t *testing.T) {
	paymentRepo := new(mocks.PaymentRepositoryMock)
	event := checkoutEvent(t, "checkout.session.expired", "cs_123", map[string]string{"payment_id": "11"})
	handler := NewWebhookHandler(paymentRepo, eventVerifierStub{event: event}, nil)
	router := setupWebhookRouter(handler)

	paymentRepo.On("MarkFailed", mock.Anything, 11).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	paymentRepo.AssertExpectations(t)
}

func TestWebhookUnknownEventAcknowledged(t *testing.T) {
	paymentRepo := new(mocks.PaymentRepositoryMock)
	event := stripe.Event{ID: "evt_2", Type: "customer.created", Data: &stripe.EventData{Raw: []byte(`{}`)}}
	handler := NewWebhookHandler(paymentRepo, eventVerifierStub{event: event}, nil)
	router := setupWebhookRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	paymentRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	paymentRepo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything)
}

func TestWebhookMissingMetadataRejected(t *testing.T) {
	paymentRepo := new(mocks.PaymentRepositoryMock)
	event := checkoutEvent(t, "checkout.session.completed", "cs_123", map[string]string{})
	handler := NewWebhookHandler(paymentRepo, eventVerifierStub{event: event}, nil)
	router := setupWebhookRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	paymentRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func signStripePayload(secret string, payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestWebhookSignatureVerification(t *testing.T) {
	const secret = "whsec_test"
	verifier := NewStripeEventVerifier(secret)
	paymentRepo := new(mocks.PaymentRepositoryMock)
	handler := NewWebhookHandler(paymentRepo, verifier, nil)
	router := setupWebhookRouter(handler)

	payload := []byte(`{"id":"evt_3","type":"customer.created","data":{"object":{}}}`)

	// A correctly signed delivery is accepted.
	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signStripePayload(secret, payload, time.Now()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Tampering with the body invalidates the signature.
	tampered := []byte(`{"id":"evt_3","type":"checkout.session.completed","data":{"object":{}}}`)
	req = httptest.NewRequest(http.MethodPost, "/stripe/webhook", bytes.NewReader(tampered))
	req.Header.Set("Stripe-Signature", signStripePayload(secret, payload, time.Now()))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
