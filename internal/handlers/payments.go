package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"portal-service/internal/middleware"
	"portal-service/internal/models"
	"portal-service/internal/payments"
	"portal-service/internal/repositories"
	"portal-service/internal/telemetry"
)

// PaymentHandler exposes the checkout flow for completed requests.
type PaymentHandler struct {
	paymentRepo repositories.PaymentRepository
	provider    payments.CheckoutProvider
	requests    *RequestHandler
	amountCents int64
	currency    string
	audit       *telemetry.AuditEmitter
}

// NewPaymentHandler builds a PaymentHandler. amountCents and currency are the
// flat price charged per completed request.
func NewPaymentHandler(paymentRepo repositories.PaymentRepository, provider payments.CheckoutProvider, requests *RequestHandler, amountCents int64, currency string, audit *telemetry.AuditEmitter) *PaymentHandler {
	return &PaymentHandler{
		paymentRepo: paymentRepo,
		provider:    provider,
		requests:    requests,
		amountCents: amountCents,
		currency:    currency,
		audit:       audit,
	}
}

// CreateCheckout opens a hosted checkout session for a completed request the
// caller owns. Requests that already have a paid payment are rejected.
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	if h.provider == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payments are not configured"})
		return
	}

	var body struct {
		RequestID int `json:"request_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, ok := h.requests.loadAccessibleRequest(c, strconv.Itoa(body.RequestID))
	if !ok {
		return
	}
	if middleware.RoleFromContext(c) != models.RoleClient || req.ClientID != c.GetInt("userID") {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the request owner can pay"})
		return
	}
	if req.Status != models.StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "request is not completed"})
		return
	}

	ctx := c.Request.Context()
	paid, err := h.paymentRepo.HasPaidPayment(ctx, req.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check payment"})
		return
	}
	if paid {
		c.JSON(http.StatusConflict, gin.H{"error": "request is already paid"})
		return
	}

	payment, err := h.paymentRepo.CreatePayment(ctx, req.ID, req.ClientID, h.amountCents, h.currency)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create payment"})
		return
	}

	sess, err := h.provider.CreateCheckoutSession(ctx, payments.CheckoutParams{
		PaymentID:    payment.ID,
		RequestID:    req.ID,
		ClientID:     req.ClientID,
		RequestTitle: req.Title,
		AmountCents:  payment.AmountCents,
		Currency:     payment.Currency,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
		return
	}

	if err := h.paymentRepo.AttachCheckoutSession(ctx, payment.ID, sess.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record checkout session"})
		return
	}

	h.audit.Emit(ctx, "INFO", "checkout_created", strconv.Itoa(payment.ID), sess.ID, requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, gin.H{
		"payment_id":   payment.ID,
		"checkout_url": sess.URL,
	})
}

// GetPaymentStatus reports the latest payment for a request, or null when no
// checkout has been attempted yet.
func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	req, ok := h.requests.loadAccessibleRequest(c, c.Query("request_id"))
	if !ok {
		return
	}

	ctx := c.Request.Context()
	payment, err := h.paymentRepo.LatestPaymentForRequest(ctx, req.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentNotFound) {
			c.JSON(http.StatusOK, gin.H{"payment": nil, "is_paid": false})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load payment"})
		return
	}

	paid, err := h.paymentRepo.HasPaidPayment(ctx, req.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": payment, "is_paid": paid})
}
