package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"portal-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for request messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, requestID, senderID int, content string) (models.Message, error)
	ListMessages(ctx context.Context, requestID int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message in a request conversation.
func (r *MessageRepo) CreateMessage(ctx context.Context, requestID, senderID int, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (request_id, sender_id, content) VALUES ($1, $2, $3)
         RETURNING id, request_id, sender_id, content, created_at`,
		requestID, senderID, content).
		StructScan(&msg)
	return msg, err
}

// ListMessages returns a request's messages ordered ascending by creation time.
func (r *MessageRepo) ListMessages(ctx context.Context, requestID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT id, request_id, sender_id, content, created_at FROM messages
         WHERE request_id=$1 ORDER BY created_at ASC`, requestID)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT id, request_id, sender_id, content, created_at FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}
