package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"portal-service/internal/observability"
	"portal-service/internal/repositories"
	"portal-service/internal/telemetry"
)

const maxWebhookBodyBytes = 64 << 10

// EventVerifier checks a webhook payload signature and decodes the event.
type EventVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

// StripeEventVerifier verifies signatures with the endpoint's signing secret.
type StripeEventVerifier struct {
	secret string
}

func NewStripeEventVerifier(secret string) *StripeEventVerifier {
	return &StripeEventVerifier{secret: secret}
}

func (v *StripeEventVerifier) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, v.secret)
}

// WebhookHandler receives payment provider callbacks. It is the only writer
// of the terminal paid and failed payment states.
type WebhookHandler struct {
	paymentRepo repositories.PaymentRepository
	verifier    EventVerifier
	audit       *telemetry.AuditEmitter
}

// NewWebhookHandler builds a WebhookHandler.
func NewWebhookHandler(paymentRepo repositories.PaymentRepository, verifier EventVerifier, audit *telemetry.AuditEmitter) *WebhookHandler {
	return &WebhookHandler{paymentRepo: paymentRepo, verifier: verifier, audit: audit}
}

// HandleStripeEvent verifies and applies one webhook delivery. Unknown event
// types are acknowledged so the provider stops retrying them.
func (h *WebhookHandler) HandleStripeEvent(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read payload"})
		return
	}

	event, err := h.verifier.ConstructEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		observability.IncWebhookEvent("unknown", "bad_signature")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		h.applySession(c, event, true)
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		h.applySession(c, event, false)
	default:
		observability.IncWebhookEvent(string(event.Type), "ignored")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}

func (h *WebhookHandler) applySession(c *gin.Context, event stripe.Event, paid bool) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		observability.IncWebhookEvent(string(event.Type), "bad_payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
		return
	}

	paymentID, err := strconv.Atoi(sess.Metadata["payment_id"])
	if err != nil {
		observability.IncWebhookEvent(string(event.Type), "bad_payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing payment metadata"})
		return
	}
	clientID, _ := strconv.Atoi(sess.Metadata["client_id"])

	ctx := c.Request.Context()
	if paid {
		paymentIntent := ""
		if sess.PaymentIntent != nil {
			paymentIntent = sess.PaymentIntent.ID
		}
		payment, err := h.paymentRepo.MarkPaid(ctx, paymentID, clientID, sess.ID, paymentIntent)
		if err != nil {
			log.Printf("webhook: mark paid %d failed: %v", paymentID, err)
			observability.IncWebhookEvent(string(event.Type), "error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record payment"})
			return
		}
		h.audit.Emit(ctx, "INFO", "payment_succeeded", strconv.Itoa(payment.ID), sess.ID, event.ID, nil)
	} else {
		if err := h.paymentRepo.MarkFailed(ctx, paymentID); err != nil {
			log.Printf("webhook: mark failed %d failed: %v", paymentID, err)
			observability.IncWebhookEvent(string(event.Type), "error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record payment"})
			return
		}
		h.audit.Emit(ctx, "WARN", "payment_failed", strconv.Itoa(paymentID), sess.ID, event.ID, nil)
	}

	observability.IncWebhookEvent(string(event.Type), "applied")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
