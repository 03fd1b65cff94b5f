package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal-service/internal/models"
)

// conversationServer is a minimal stand-in for the portal API: a message
// store behind GET/POST /messages and a per-request channel that pushes
// stored messages to every subscriber.
type conversationServer struct {
	mu       sync.Mutex
	messages []models.Message
	nextID   int
	conns    []*websocket.Conn
	sendHold chan struct{}
	posts    int
}

func newConversationServer() *conversationServer {
	return &conversationServer{nextID: 1}
}

func (s *conversationServer) handler() http.Handler {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()

	mux.HandleFunc("/messages", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.mu.Lock()
			msgs := make([]models.Message, len(s.messages))
			copy(msgs, s.messages)
			s.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]any{"messages": msgs})
		case http.MethodPost:
			s.mu.Lock()
			s.posts++
			hold := s.sendHold
			s.mu.Unlock()
			if hold != nil {
				<-hold
			}

			var body struct {
				Content   string `json:"content"`
				RequestID int    `json:"request_id"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			msg := s.append(body.RequestID, body.Content)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{"message": msg})
		}
	})

	mux.HandleFunc("/ws/requests/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	return mux
}

// append stores a message and pushes it to every subscriber.
func (s *conversationServer) append(requestID int, content string) models.Message {
	s.mu.Lock()
	msg := models.Message{ID: s.nextID, RequestID: requestID, SenderID: 99, Content: content, CreatedAt: time.Now()}
	s.nextID++
	s.messages = append(s.messages, msg)
	conns := make([]*websocket.Conn, len(s.conns))
	copy(conns, s.conns)
	s.mu.Unlock()

	event := models.ConversationEvent{Type: models.EventTypeMessage, Message: &msg}
	for _, conn := range conns {
		conn.WriteJSON(event)
	}
	return msg
}

func (s *conversationServer) postCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts
}

func newTestClient(t *testing.T, srv *httptest.Server, userID int) *Client {
	t.Helper()
	return NewClient(Config{
		BaseURL:   srv.URL,
		WSBaseURL: "ws" + strings.TrimPrefix(srv.URL, "http"),
		Token:     "test-token",
		UserID:    userID,
		UserName:  "tester",
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSendRejectsEmptyContent(t *testing.T) {
	server := newConversationServer()
	srv := httptest.NewServer(server.handler())
	defer srv.Close()

	client := newTestClient(t, srv, 1)
	defer client.Close()

	err := client.SendMessage(context.Background(), 3, "   \n ")
	require.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, 0, server.postCount())
}

func TestSendRejectsConcurrentSend(t *testing.T) {
	server := newConversationServer()
	server.sendHold = make(chan struct{})
	srv := httptest.NewServer(server.handler())
	defer srv.Close()

	client := newTestClient(t, srv, 1)
	defer client.Close()

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- client.SendMessage(context.Background(), 3, "first")
	}()
	waitFor(t, func() bool { return server.postCount() == 1 })

	err := client.SendMessage(context.Background(), 3, "second")
	require.ErrorIs(t, err, ErrSendInFlight)

	close(server.sendHold)
	require.NoError(t, <-firstDone)
	assert.Equal(t, 1, server.postCount())
}

func TestSendFailureRestoresDraft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, 1)
	defer client.Close()

	client.UpdateDraft("hello there")
	err := client.SendMessage(context.Background(), 3, "hello there")
	require.Error(t, err)
	assert.Equal(t, "hello there", client.Draft())

	// A later send is allowed again once the first failed.
	err = client.SendMessage(context.Background(), 3, "hello there")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSendInFlight)
}

func TestSubscribeReceivesPushedMessages(t *testing.T) {
	server := newConversationServer()
	srv := httptest.NewServer(server.handler())
	defer srv.Close()

	server.append(3, "before")

	client := newTestClient(t, srv, 1)
	defer client.Close()

	require.NoError(t, client.FetchHistory(context.Background(), 3))
	require.Len(t, client.Messages(), 1)

	require.NoError(t, client.Subscribe(context.Background(), 3))
	assert.Equal(t, StatusConnected, client.Status())

	server.append(3, "after")
	waitFor(t, func() bool { return len(client.Messages()) == 2 })
	assert.Equal(t, "after", client.Messages()[1].Content)
}

func TestTypingSignalsReachRoster(t *testing.T) {
	server := newConversationServer()
	srv := httptest.NewServer(server.handler())
	defer srv.Close()

	client := newTestClient(t, srv, 1)
	defer client.Close()

	require.NoError(t, client.Subscribe(context.Background(), 3))

	s := server
	s.mu.Lock()
	conn := s.conns[0]
	s.mu.Unlock()

	// A counterpart starts typing.
	conn.WriteJSON(models.ConversationEvent{Type: models.EventTypeTyping, Typing: &models.TypingSignal{UserID: 2, UserName: "bob", IsTyping: true}})
	waitFor(t, func() bool { return len(client.Typing()) == 1 })

	// The local user's own echo is ignored.
	conn.WriteJSON(models.ConversationEvent{Type: models.EventTypeTyping, Typing: &models.TypingSignal{UserID: 1, UserName: "tester", IsTyping: true}})
	time.Sleep(50 * time.Millisecond)
	require.Len(t, client.Typing(), 1)
	assert.Equal(t, 2, client.Typing()[0].UserID)
}

func TestRebuildAfterPushSeesMessageOnce(t *testing.T) {
	server := newConversationServer()
	srv := httptest.NewServer(server.handler())
	defer srv.Close()

	server.append(3, "first")

	client := newTestClient(t, srv, 1)
	require.NoError(t, client.FetchHistory(context.Background(), 3))
	require.NoError(t, client.Subscribe(context.Background(), 3))

	server.append(3, "second")
	waitFor(t, func() bool { return len(client.Messages()) == 2 })
	client.Close()

	rebuilt := newTestClient(t, srv, 1)
	defer rebuilt.Close()
	require.NoError(t, rebuilt.FetchHistory(context.Background(), 3))

	msgs := rebuilt.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
}

func TestResubscribeTearsDownPriorChannel(t *testing.T) {
	server := newConversationServer()
	srv := httptest.NewServer(server.handler())
	defer srv.Close()

	client := newTestClient(t, srv, 1)
	defer client.Close()

	require.NoError(t, client.Subscribe(context.Background(), 3))
	require.NoError(t, client.Subscribe(context.Background(), 4))

	// Only the second channel is live; a push lands exactly once.
	server.append(4, "hello")
	waitFor(t, func() bool { return len(client.Messages()) == 1 })
	time.Sleep(50 * time.Millisecond)
	require.Len(t, client.Messages(), 1)
}
