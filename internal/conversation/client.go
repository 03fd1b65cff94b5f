package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"portal-service/internal/models"
)

var (
	ErrEmptyMessage = errors.New("message content is empty")
	ErrSendInFlight = errors.New("a send is already in progress")
)

// Config wires a conversation Client.
type Config struct {
	// BaseURL is the HTTP API prefix, without a trailing slash.
	BaseURL string
	// WSBaseURL is the websocket prefix, e.g. ws://host:8080.
	WSBaseURL string
	// Token is the bearer token used for both HTTP and channel auth.
	Token    string
	UserID   int
	UserName string
	// TypingWindow is the typing inactivity window. Zero means one second.
	TypingWindow time.Duration
	HTTPClient   *http.Client
	Dialer       *websocket.Dialer
	Notifier     Notifier
}

// Client maintains a live view of one request's conversation: its message
// history, the channel connection status and who is currently typing.
type Client struct {
	cfg        Config
	httpClient *http.Client
	dialer     *websocket.Dialer
	notifier   Notifier
	status     *statusTracker
	roster     *typingRoster
	typing     *typingTracker

	mu       sync.Mutex
	messages []models.Message
	draft    string
	sending  bool
	sub      *subscription
}

type subscription struct {
	requestID int
	conn      *websocket.Conn
	done      chan struct{}
	// stopped marks a deliberate teardown so the read loop exits without
	// reporting a connection failure.
	stopped atomic.Bool
}

// NewClient builds a Client. It does not touch the network until
// FetchHistory or Subscribe is called.
func NewClient(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}

	c := &Client{
		cfg:        cfg,
		httpClient: cfg.HTTPClient,
		dialer:     cfg.Dialer,
		notifier:   cfg.Notifier,
		status:     newStatusTracker(cfg.Notifier),
		roster:     newTypingRoster(cfg.UserID),
	}
	c.typing = newTypingTracker(cfg.TypingWindow, c.sendTypingSignal)
	return c
}

// FetchHistory loads the request's full message list, ascending by creation
// time, replacing the local view. Failures leave the connection status alone
// and are retryable.
func (c *Client) FetchHistory(ctx context.Context, requestID int) error {
	endpoint := fmt.Sprintf("%s/messages?request_id=%d", c.cfg.BaseURL, requestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.notifier.Error("failed to load messages")
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.notifier.Error("failed to load messages")
		return fmt.Errorf("fetch history: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Messages []models.Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.notifier.Error("failed to load messages")
		return err
	}

	c.mu.Lock()
	c.messages = body.Messages
	c.mu.Unlock()
	return nil
}

// Subscribe opens the request's realtime channel. Any prior subscription is
// fully torn down first so events are never delivered twice.
//
// History is fetched separately and before subscribing, so a message stored
// in the gap between FetchHistory and Subscribe is not replayed. The window
// is accepted; callers that care can re-fetch after subscribing.
func (c *Client) Subscribe(ctx context.Context, requestID int) error {
	c.closeSubscription()
	c.status.Set(StatusConnecting)

	endpoint := fmt.Sprintf("%s/ws/requests/%d?token=%s", c.cfg.WSBaseURL, requestID, url.QueryEscape(c.cfg.Token))
	conn, resp, err := c.dialer.DialContext(ctx, endpoint, nil)
	if resp != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.status.Set(StatusError)
		c.notifier.Error("failed to join conversation")
		return err
	}

	sub := &subscription{requestID: requestID, conn: conn, done: make(chan struct{})}
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()

	c.status.Set(StatusConnected)
	go c.readLoop(sub)
	return nil
}

func (c *Client) readLoop(sub *subscription) {
	defer close(sub.done)
	for {
		var event models.ConversationEvent
		if err := sub.conn.ReadJSON(&event); err != nil {
			if !sub.stopped.Load() {
				c.status.Set(StatusError)
			}
			return
		}

		switch event.Type {
		case models.EventTypeMessage:
			if event.Message != nil && event.Message.RequestID == sub.requestID {
				c.mu.Lock()
				c.messages = append(c.messages, *event.Message)
				c.mu.Unlock()
			}
		case models.EventTypeTyping:
			if event.Typing != nil {
				c.roster.Apply(*event.Typing)
			}
		}
	}
}

// SendMessage posts one message. Empty content and overlapping sends are
// rejected before any network call. The composer draft is cleared up front
// and restored on failure; the sent message itself is rendered only when it
// arrives back over the channel.
func (c *Client) SendMessage(ctx context.Context, requestID int, content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return ErrSendInFlight
	}
	c.sending = true
	c.draft = ""
	c.mu.Unlock()

	c.typing.Clear()

	err := c.postMessage(ctx, requestID, trimmed)

	c.mu.Lock()
	c.sending = false
	if err != nil {
		c.draft = content
	}
	c.mu.Unlock()

	if err != nil {
		c.notifier.Error("failed to send message")
		return err
	}
	return nil
}

func (c *Client) postMessage(ctx context.Context, requestID int, content string) error {
	payload, err := json.Marshal(map[string]any{
		"content":    content,
		"request_id": requestID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("send message: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// UpdateDraft tracks composer input. Non-empty input counts as a keystroke
// for typing presence; emptying the composer stops the indicator at once.
func (c *Client) UpdateDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		c.typing.Clear()
	} else {
		c.typing.Keystroke()
	}
}

// Draft returns the current composer content.
func (c *Client) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Messages returns a copy of the local message view.
func (c *Client) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Typing returns who is currently composing, excluding the local user.
func (c *Client) Typing() []models.TypingSignal {
	return c.roster.Typing()
}

// Status returns the current channel status.
func (c *Client) Status() Status {
	return c.status.Current()
}

// Close tears the client down: a final stopped-typing signal is sent if a
// burst was active, then the subscription is closed.
func (c *Client) Close() {
	c.typing.Close()
	c.closeSubscription()
	c.status.shutdown()
}

// sendTypingSignal pushes one typing frame over the channel. With no live
// subscription it does nothing, so late debounce timers after teardown are
// harmless.
func (c *Client) sendTypingSignal(isTyping bool) {
	c.mu.Lock()
	sub := c.sub
	c.mu.Unlock()
	if sub == nil || sub.stopped.Load() {
		return
	}

	event := models.ConversationEvent{
		Type: models.EventTypeTyping,
		Typing: &models.TypingSignal{
			UserID:   c.cfg.UserID,
			UserName: c.cfg.UserName,
			IsTyping: isTyping,
		},
	}
	// Best effort: a write on a dropped connection fails and the read loop
	// reports the status change.
	_ = sub.conn.WriteJSON(event)
}

func (c *Client) closeSubscription() {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()
	if sub == nil {
		return
	}

	sub.stopped.Store(true)
	sub.conn.Close()
	<-sub.done
	c.roster.Reset()
}
