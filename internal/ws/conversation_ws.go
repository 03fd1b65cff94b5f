package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"portal-service/internal/auth"
	"portal-service/internal/models"
	"portal-service/internal/observability"
	"portal-service/internal/repositories"
)

// ConversationWebSocketHandler serves the realtime channel of one request:
// message-insert events pushed by the HTTP handlers plus typing signals
// relayed between connected clients.
type ConversationWebSocketHandler struct {
	hub         *Hub
	requestRepo repositories.RequestRepository
	verifier    *auth.Verifier
	presence    *Presence
}

// NewConversationWebSocketHandler constructs a ConversationWebSocketHandler.
func NewConversationWebSocketHandler(hub *Hub, requestRepo repositories.RequestRepository, verifier *auth.Verifier, presence *Presence) *ConversationWebSocketHandler {
	return &ConversationWebSocketHandler{hub: hub, requestRepo: requestRepo, verifier: verifier, presence: presence}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client in the request room.
func (h *ConversationWebSocketHandler) Handle(c *gin.Context) {
	requestID, err := strconv.Atoi(c.Param("request_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	ctx, span := otel.Tracer("portal-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	claims, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	req, err := h.requestRepo.GetRequest(c.Request.Context(), requestID)
	if err != nil || !canAccessRequest(req, claims) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for request"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	traceID := span.SpanContext().TraceID().String()
	httpRequestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      claims.UserID,
		UserName:    claims.Name,
		Role:        claims.Role,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   httpRequestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(requestID, conn, info)
	if err := h.presence.Join(ctx, requestID, claims.UserID); err != nil {
		// Presence is advisory; the channel itself still works.
		span.RecordError(err)
	}

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.requests", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Service:   "portal-service",
		Payload:   wsEventPayload(requestID, "ws_connect", info, 0, ""),
	}, observability.BuildHeaders(httpRequestID, traceID))

	go h.readLoop(requestID, conn, info)
}

// readLoop relays inbound typing frames to the rest of the room and cleans up
// once the connection dies. Identity fields on inbound signals are replaced
// with the authenticated identity so clients cannot impersonate each other.
func (h *ConversationWebSocketHandler) readLoop(requestID int, conn *websocket.Conn, info ConnInfo) {
	ctx := context.Background()
	var closeReason string
	defer func() {
		h.hub.RemoveClient(requestID, conn)
		_ = h.presence.Leave(ctx, requestID, info.UserID)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		_ = observability.PublishEvent(ctx, "ws_events.requests", observability.EventEnvelope{
			EventType: "ws_events",
			EventName: "ws_disconnect",
			Service:   "portal-service",
			Payload:   wsEventPayload(requestID, "ws_disconnect", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
		}, observability.BuildHeaders(info.RequestID, info.TraceID))
		conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				_ = observability.PublishEvent(ctx, "ws_events.requests", observability.EventEnvelope{
					EventType: "ws_events",
					EventName: "ws_error",
					Service:   "portal-service",
					Payload:   wsEventPayload(requestID, "ws_error", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
				}, observability.BuildHeaders(info.RequestID, info.TraceID))
			}
			return
		}

		var event models.ConversationEvent
		if err := json.Unmarshal(payload, &event); err != nil || event.Type != models.EventTypeTyping || event.Typing == nil {
			continue
		}
		sig := models.TypingSignal{
			UserID:   info.UserID,
			UserName: info.UserName,
			IsTyping: event.Typing.IsTyping,
		}
		h.hub.BroadcastTyping(requestID, conn, sig)
		observability.IncWSEvent("typing_signal")
	}
}

func (h *ConversationWebSocketHandler) validateToken(header string) (*auth.Claims, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.verifier.ValidateToken(parts[1])
	}
	return nil, errors.New("invalid token")
}

func canAccessRequest(req models.Request, claims *auth.Claims) bool {
	switch claims.Role {
	case models.RoleAdmin:
		return true
	case models.RoleClient:
		return req.ClientID == claims.UserID
	}
	return false
}

func wsEventPayload(requestID int, event string, info ConnInfo, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"resource_id": requestID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
