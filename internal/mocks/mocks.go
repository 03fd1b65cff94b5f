package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"portal-service/internal/models"
	"portal-service/internal/payments"
)

type RequestRepositoryMock struct {
	mock.Mock
}

func (m *RequestRepositoryMock) CreateRequest(ctx context.Context, clientID int, title, description string) (models.Request, error) {
	args := m.Called(ctx, clientID, title, description)
	var req models.Request
	if val := args.Get(0); val != nil {
		req = val.(models.Request)
	}
	return req, args.Error(1)
}

func (m *RequestRepositoryMock) GetRequest(ctx context.Context, requestID int) (models.Request, error) {
	args := m.Called(ctx, requestID)
	var req models.Request
	if val := args.Get(0); val != nil {
		req = val.(models.Request)
	}
	return req, args.Error(1)
}

func (m *RequestRepositoryMock) ListRequests(ctx context.Context) ([]models.Request, error) {
	args := m.Called(ctx)
	var reqs []models.Request
	if val := args.Get(0); val != nil {
		reqs = val.([]models.Request)
	}
	return reqs, args.Error(1)
}

func (m *RequestRepositoryMock) ListRequestsForClient(ctx context.Context, clientID int) ([]models.Request, error) {
	args := m.Called(ctx, clientID)
	var reqs []models.Request
	if val := args.Get(0); val != nil {
		reqs = val.([]models.Request)
	}
	return reqs, args.Error(1)
}

func (m *RequestRepositoryMock) UpdateStatus(ctx context.Context, requestID int, from, to models.RequestStatus) (models.Request, error) {
	args := m.Called(ctx, requestID, from, to)
	var req models.Request
	if val := args.Get(0); val != nil {
		req = val.(models.Request)
	}
	return req, args.Error(1)
}

func (m *RequestRepositoryMock) DeleteRequest(ctx context.Context, requestID int) error {
	args := m.Called(ctx, requestID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, requestID, senderID int, content string) (models.Message, error) {
	args := m.Called(ctx, requestID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, requestID int) ([]models.Message, error) {
	args := m.Called(ctx, requestID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type FileRepositoryMock struct {
	mock.Mock
}

func (m *FileRepositoryMock) CreateFile(ctx context.Context, file models.File) (models.File, error) {
	args := m.Called(ctx, file)
	var out models.File
	if val := args.Get(0); val != nil {
		out = val.(models.File)
	}
	return out, args.Error(1)
}

func (m *FileRepositoryMock) GetFile(ctx context.Context, fileID int) (models.File, error) {
	args := m.Called(ctx, fileID)
	var out models.File
	if val := args.Get(0); val != nil {
		out = val.(models.File)
	}
	return out, args.Error(1)
}

func (m *FileRepositoryMock) ListFilesForRequest(ctx context.Context, requestID int) ([]models.File, error) {
	args := m.Called(ctx, requestID)
	var files []models.File
	if val := args.Get(0); val != nil {
		files = val.([]models.File)
	}
	return files, args.Error(1)
}

func (m *FileRepositoryMock) ListFilesForUploader(ctx context.Context, uploaderID int) ([]models.File, error) {
	args := m.Called(ctx, uploaderID)
	var files []models.File
	if val := args.Get(0); val != nil {
		files = val.([]models.File)
	}
	return files, args.Error(1)
}

func (m *FileRepositoryMock) DeleteFile(ctx context.Context, fileID int) error {
	args := m.Called(ctx, fileID)
	return args.Error(0)
}

type PaymentRepositoryMock struct {
	mock.Mock
}

func (m *PaymentRepositoryMock) CreatePayment(ctx context.Context, requestID, clientID int, amountCents int64, currency string) (models.Payment, error) {
	args := m.Called(ctx, requestID, clientID, amountCents, currency)
	var payment models.Payment
	if val := args.Get(0); val != nil {
		payment = val.(models.Payment)
	}
	return payment, args.Error(1)
}

func (m *PaymentRepositoryMock) GetPayment(ctx context.Context, paymentID int) (models.Payment, error) {
	args := m.Called(ctx, paymentID)
	var payment models.Payment
	if val := args.Get(0); val != nil {
		payment = val.(models.Payment)
	}
	return payment, args.Error(1)
}

func (m *PaymentRepositoryMock) LatestPaymentForRequest(ctx context.Context, requestID int) (models.Payment, error) {
	args := m.Called(ctx, requestID)
	var payment models.Payment
	if val := args.Get(0); val != nil {
		payment = val.(models.Payment)
	}
	return payment, args.Error(1)
}

func (m *PaymentRepositoryMock) HasPaidPayment(ctx context.Context, requestID int) (bool, error) {
	args := m.Called(ctx, requestID)
	return args.Bool(0), args.Error(1)
}

func (m *PaymentRepositoryMock) AttachCheckoutSession(ctx context.Context, paymentID int, sessionID string) error {
	args := m.Called(ctx, paymentID, sessionID)
	return args.Error(0)
}

func (m *PaymentRepositoryMock) MarkPaid(ctx context.Context, paymentID, clientID int, sessionID, paymentIntent string) (models.Payment, error) {
	args := m.Called(ctx, paymentID, clientID, sessionID, paymentIntent)
	var payment models.Payment
	if val := args.Get(0); val != nil {
		payment = val.(models.Payment)
	}
	return payment, args.Error(1)
}

func (m *PaymentRepositoryMock) MarkFailed(ctx context.Context, paymentID int) error {
	args := m.Called(ctx, paymentID)
	return args.Error(0)
}

type ProfileRepositoryMock struct {
	mock.Mock
}

func (m *ProfileRepositoryMock) GetProfile(ctx context.Context, userID int) (models.Profile, error) {
	args := m.Called(ctx, userID)
	var profile models.Profile
	if val := args.Get(0); val != nil {
		profile = val.(models.Profile)
	}
	return profile, args.Error(1)
}

func (m *ProfileRepositoryMock) BulkProfiles(ctx context.Context, ids []int) ([]models.Profile, error) {
	args := m.Called(ctx, ids)
	var profiles []models.Profile
	if val := args.Get(0); val != nil {
		profiles = val.([]models.Profile)
	}
	return profiles, args.Error(1)
}

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) Put(ctx context.Context, key string, contentType string, body io.Reader) error {
	args := m.Called(ctx, key, contentType, body)
	return args.Error(0)
}

func (m *StoreMock) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	var rc io.ReadCloser
	if val := args.Get(0); val != nil {
		rc = val.(io.ReadCloser)
	}
	return rc, args.Error(1)
}

func (m *StoreMock) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type CheckoutProviderMock struct {
	mock.Mock
}

func (m *CheckoutProviderMock) CreateCheckoutSession(ctx context.Context, params payments.CheckoutParams) (payments.CheckoutSession, error) {
	args := m.Called(ctx, params)
	var sess payments.CheckoutSession
	if val := args.Get(0); val != nil {
		sess = val.(payments.CheckoutSession)
	}
	return sess, args.Error(1)
}
