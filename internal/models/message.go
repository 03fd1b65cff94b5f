package models

import "time"

// Message is a conversation entry attached to a request. Messages are
// immutable once created and listed ascending by creation time.
type Message struct {
	ID        int       `db:"id" json:"id"`
	RequestID int       `db:"request_id" json:"request_id"`
	SenderID  int       `db:"sender_id" json:"sender_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TypingSignal is the ephemeral payload relayed over a request channel.
// It is never persisted; the most recent signal per user wins.
type TypingSignal struct {
	UserID   int    `json:"user_id"`
	UserName string `json:"user_name"`
	IsTyping bool   `json:"is_typing"`
}

// ConversationEvent is emitted over a request's websocket channel.
type ConversationEvent struct {
	Type    string        `json:"type"`
	Message *Message      `json:"message,omitempty"`
	Typing  *TypingSignal `json:"typing,omitempty"`
}

const (
	EventTypeMessage = "message"
	EventTypeTyping  = "typing"
)
