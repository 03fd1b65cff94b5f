package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"portal-service/internal/models"
	"portal-service/internal/repositories"
	"portal-service/internal/ws"
)

// MessageHandler manages request conversation endpoints.
type MessageHandler struct {
	requestRepo repositories.RequestRepository
	messageRepo repositories.MessageRepository
	profileRepo repositories.ProfileRepository
	hub         *ws.Hub
	requests    *RequestHandler
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(requestRepo repositories.RequestRepository, messageRepo repositories.MessageRepository, profileRepo repositories.ProfileRepository, hub *ws.Hub, requests *RequestHandler) *MessageHandler {
	return &MessageHandler{
		requestRepo: requestRepo,
		messageRepo: messageRepo,
		profileRepo: profileRepo,
		hub:         hub,
		requests:    requests,
	}
}

// ListMessages returns a request's messages ascending by creation time, with
// sender names joined in for rendering.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	if _, ok := h.requests.loadAccessibleRequest(c, c.Query("request_id")); !ok {
		return
	}
	requestID, _ := strconv.Atoi(c.Query("request_id"))

	msgs, err := h.messageRepo.ListMessages(c.Request.Context(), requestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	senderIDs := make([]int, 0, len(msgs))
	seen := map[int]struct{}{}
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
	}

	profiles, err := h.profileRepo.BulkProfiles(c.Request.Context(), senderIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load senders"})
		return
	}
	senderNames := map[int]string{}
	senderRoles := map[int]models.Role{}
	for _, p := range profiles {
		senderNames[p.ID] = p.Name
		senderRoles[p.ID] = p.Role
	}

	type messageResponse struct {
		models.Message
		SenderName string      `json:"sender_name,omitempty"`
		SenderRole models.Role `json:"sender_role,omitempty"`
	}

	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, messageResponse{
			Message:    m,
			SenderName: senderNames[m.SenderID],
			SenderRole: senderRoles[m.SenderID],
		})
	}

	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

// PostMessage stores a message and pushes it onto the request channel. The
// echoed row is informational; clients render from the channel event.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	var body struct {
		Content   string `json:"content" binding:"required"`
		RequestID int    `json:"request_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content := strings.TrimSpace(body.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	if _, ok := h.requests.loadAccessibleRequest(c, strconv.Itoa(body.RequestID)); !ok {
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), body.RequestID, userID, content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.hub.BroadcastMessage(body.RequestID, msg)
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}
