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
	"portal-service/internal/ws"
)

func setupMessageRouter(handler *MessageHandler, userID int, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("userRole", role)
		c.Next()
	})
	r.GET("/messages", handler.ListMessages)
	r.POST("/messages", handler.PostMessage)
	return r
}

func newMessageHandler(requestRepo *mocks.RequestRepositoryMock, messageRepo *mocks.MessageRepositoryMock, profileRepo *mocks.ProfileRepositoryMock, hub *ws.Hub) *MessageHandler {
	requests := NewRequestHandler(requestRepo, nil, nil, nil, nil, nil)
	return NewMessageHandler(requestRepo, messageRepo, profileRepo, hub, requests)
}

func TestListMessagesAscendingWithSenders(t *testing.T) {
	requestRepo := new(mocks.RequestRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	profileRepo := new(mocks.ProfileRepositoryMock)
	handler := newMessageHandler(requestRepo, messageRepo, profileRepo, ws.NewHub())
	router := setupMessageRouter(handler, 1, models.RoleClient)

	requestRepo.On("GetRequest", mock.Anything, 3).Return(models.Request{ID: 3, ClientID: 1}, nil).Once()
	messageRepo.On("ListMessages", mock.Anything, 3).Return([]models.Message{
		{ID: 1, RequestID: 3, SenderID: 1, Content: "hello"},
		{ID: 2, RequestID: 3, SenderID: 9, Content: "hi there"},
	}, nil).Once()
	profileRepo.On("BulkProfiles", mock.Anything, []int{1, 9}).Return([]models.Profile{
		{ID: 1, Name: "alice", Role: models.RoleClient},
		{ID: 9, Name: "staff", Role: models.RoleAdmin},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages?request_id=3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	msgs := resp["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "alice", msgs[0].(map[string]any)["sender_name"])
	assert.Equal(t, "staff", msgs[1].(map[string]any)["sender_name"])
	requestRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
	profileRepo.AssertExpectations(t)
}

func TestListMessagesForeignRequestForbidden(t *testing.T) {
	requestRepo := new(mocks.RequestRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := newMessageHandler(requestRepo, messageRepo, new(mocks.ProfileRepositoryMock), ws.NewHub())
	router := setupMessageRouter(handler, 2, models.RoleClient)

	requestRepo.On("GetRequest", mock.Anything, 3).Return(models.Request{ID: 3, ClientID: 1}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages?request_id=3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messageRepo.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything)
}

func TestPostMessageSuccess(t *testing.T) {
	requestRepo := new(mocks.RequestRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := newMessageHandler(requestRepo, messageRepo, new(mocks.ProfileRepositoryMock), ws.NewHub())
	router := setupMessageRouter(handler, 1, models.RoleClient)

	requestRepo.On("GetRequest", mock.Anything, 3).Return(models.Request{ID: 3, ClientID: 1}, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, 3, 1, "hello").Return(models.Message{ID: 7, RequestID: 3, SenderID: 1, Content: "hello"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(`{"request_id":3,"content":" hello "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	requestRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestPostMessageWhitespaceOnlyRejected(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := newMessageHandler(new(mocks.RequestRepositoryMock), messageRepo, new(mocks.ProfileRepositoryMock), ws.NewHub())
	router := setupMessageRouter(handler, 1, models.RoleClient)

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(`{"request_id":3,"content":"   "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	messageRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
