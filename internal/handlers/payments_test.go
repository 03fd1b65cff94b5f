package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portal-service/internal/mocks"
	"portal-service/internal/models"
	"portal-service/internal/payments"
	"portal-service/internal/repositories"
)

func setupPaymentRouter(handler *PaymentHandler, userID int, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("userRole", role)
		c.Next()
	})
	r.POST("/checkout", handler.CreateCheckout)
	r.GET("/payments", handler.GetPaymentStatus)
	return r
}

func newPaymentHandler(requestRepo *mocks.RequestRepositoryMock, paymentRepo *mocks.PaymentRepositoryMock, provider *mocks.CheckoutProviderMock) *PaymentHandler {
	requests := NewRequestHandler(requestRepo, nil, nil, nil, nil, nil)
	return NewPaymentHandler(paymentRepo, provider, requests, 5000, "usd", nil)
}

func TestCreateCheckoutSuccess(t *testing.T) {
	requestRepo := new(mocks.RequestRepositoryMock)
	paymentRepo := new(mocks.PaymentRepositoryMock)
	provider := new(mocks.CheckoutProviderMock)
	handler := newPaymentHandler(requestRepo, paymentRepo, provider)
	router := setupPaymentRouter(handler, 1, models.RoleClient)

	requestRepo.On("GetRequest", mock.Anything, 3).Return(models.Request{ID: 3, ClientID: 1, Title: "fix site", Status: models.StatusCompleted}, nil).Once()
	paymentRepo.On("HasPaidPayment", mock.Anything, 3).Return(false, nil).Once()
	paymentRepo.On("CreatePayment", mock.Anything, 3, 1, int64(5000), "usd").Return(models.Payment{ID: 11, RequestID: 3, ClientID: 1, AmountCents: 5000, Currency: "usd", Status: models.PaymentPending}, nil).Once()
	provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(p payments.CheckoutParams) bool {
		return p.PaymentID == 11 && p.RequestID == 3 && p.AmountCents == 5000
	})).Return(payments.CheckoutSession{ID: "cs_123", URL: "https://checkout.example/cs_123"}, nil).Once()
	paymentRepo.On("AttachCheckoutSession", mock.Anything, 11, "cs_123").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(`{"request_id":3}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "https://checkout.example/cs_123", resp["checkout_url"])
	requestRepo.AssertExpectations(t)
	paymentRepo.AssertExpectations(t)
	provider.AssertExpectations(t)
}

func TestCreateCheckoutNotCompletedRejected(t *testing.T) {
	requestRepo := new(mocks.RequestRepositoryMock)
	paymentRepo := new(mocks.PaymentRepositoryMock)
	handler := newPaymentHandler(requestRepo, paymentRepo, new(mocks.CheckoutProviderMock))
	router := setupPaymentRouter(handler, 1, models.RoleClient)

	requestRepo.On("GetRequest", mock.Anything, 3).Return(models.Request{ID: 3, ClientID: 1, Status: models.StatusInProgress}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(`{"request_id":3}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	paymentRepo.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateCheckoutNotOwnerForbidden(t *testing.T) {
	requestRepo := new(mocks.RequestRepositoryMock)
	paymentRepo := new(mocks.PaymentRepositoryMock)
	handler := newPaymentHandler(requestRepo, paymentRepo, new(mocks.CheckoutProviderMock))
	router := setupPaymentRouter(handler, 9, models.RoleAdmin)

	requestRepo.On("GetRequest", mock.Anything, 3).Return(models.Request{ID: 3, ClientID: 1, Status: models.StatusCompleted}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(`{"request_id":3}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	paymentRepo.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateCheckoutAlreadyPaidRejected(t *testing.T) {
	requestRepo := new(mocks.RequestRepositoryMock)
	paymentRepo := new(mocks.PaymentRepositoryMock)
	provider := new(mocks.CheckoutProviderMock)
	handler := newPaymentHandler(requestRepo, paymentRepo, provider)
	router := setupPaymentRouter(handler, 1, models.RoleClient)

	requestRepo.On("GetRequest", mock.Anything, 3).Return(models.Request{ID: 3, ClientID: 1, Status: models.StatusCompleted}, nil).Once()
	paymentRepo.On("HasPaidPayment", mock.Anything, 3).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString(`{"request_id":3}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
	paymentRepo.AssertExpectations(t)
}

func TestGetPaymentStatusNoAttempts(t *testing.T) {
	requestRepo := new(mocks.RequestRepositoryMock)
	paymentRepo := new(mocks.PaymentRepositoryMock)
	handler := newPaymentHandler(requestRepo, paymentRepo, new(mocks.CheckoutProviderMock))
	router := setupPaymentRouter(handler, 1, models.RoleClient)

	requestRepo.On("GetRequest", mock.Anything, 3).Return(models.Request{ID: 3, ClientID: 1}, nil).Once()
	paymentRepo.On("LatestPaymentForRequest", mock.Anything, 3).Return(models.Payment{}, repositories.ErrPaymentNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/payments?request_id=3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Nil(t, resp["payment"])
	assert.Equal(t, false, resp["is_paid"])
	paymentRepo.AssertExpectations(t)
}

func TestGetPaymentStatusPaid(t *testing.T) {
	requestRepo := new(mocks.RequestRepositoryMock)
	paymentRepo := new(mocks.PaymentRepositoryMock)
	handler := newPaymentHandler(requestRepo, paymentRepo, new(mocks.CheckoutProviderMock))
	router := setupPaymentRouter(handler, 1, models.RoleClient)

	requestRepo.On("GetRequest", mock.Anything, 3).Return(models.Request{ID: 3, ClientID: 1}, nil).Once()
	paymentRepo.On("LatestPaymentForRequest", mock.Anything, 3).Return(models.Payment{ID: 11, RequestID: 3, Status: models.PaymentPaid}, nil).Once()
	paymentRepo.On("HasPaidPayment", mock.Anything, 3).Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/payments?request_id=3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["is_paid"])
	paymentRepo.AssertExpectations(t)
}
