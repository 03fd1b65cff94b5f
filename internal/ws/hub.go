package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"portal-service/internal/models"
	"portal-service/internal/observability"
)

// Hub maintains the active websocket room per request conversation.
// Exactly one room exists per request id; a connection belongs to one room.
type Hub struct {
	rooms map[int]map[*websocket.Conn]ConnInfo
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[int]map[*websocket.Conn]ConnInfo),
	}
}

// AddClient registers a websocket connection to a request room.
func (h *Hub) AddClient(requestID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[requestID]; !ok {
		h.rooms[requestID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.rooms[requestID][conn] = info
}

// RemoveClient removes a connection from a request room.
func (h *Hub) RemoveClient(requestID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[requestID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, requestID)
		}
	}
}

// RoomSize reports the number of connections in a request room.
func (h *Hub) RoomSize(requestID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[requestID])
}

// BroadcastMessage delivers a stored message to every client in the room.
func (h *Hub) BroadcastMessage(requestID int, msg models.Message) {
	event := models.ConversationEvent{Type: models.EventTypeMessage, Message: &msg}
	h.broadcast(requestID, nil, event)
}

// BroadcastTyping relays a typing signal to everyone in the room except the
// originating connection. Receivers additionally drop self-originated
// signals, so a user with several open tabs never sees their own indicator.
func (h *Hub) BroadcastTyping(requestID int, origin *websocket.Conn, sig models.TypingSignal) {
	event := models.ConversationEvent{Type: models.EventTypeTyping, Typing: &sig}
	h.broadcast(requestID, origin, event)
}

func (h *Hub) broadcast(requestID int, skip *websocket.Conn, event models.ConversationEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[requestID]))
	for conn := range h.rooms[requestID] {
		if conn != skip {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.publishWSError(requestID, conn, err)
			h.RemoveClient(requestID, conn)
		}
	}
}

func (h *Hub) publishWSError(requestID int, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(requestID, conn)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"resource_id": requestID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.requests", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Service:   "portal-service",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}

func (h *Hub) getConnInfo(requestID int, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if infos, ok := h.rooms[requestID]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}
