package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"portal-service/internal/models"
)

var ErrRequestNotFound = errors.New("request not found")

// RequestRepository abstracts service-request persistence.
type RequestRepository interface {
	CreateRequest(ctx context.Context, clientID int, title, description string) (models.Request, error)
	GetRequest(ctx context.Context, requestID int) (models.Request, error)
	ListRequests(ctx context.Context) ([]models.Request, error)
	ListRequestsForClient(ctx context.Context, clientID int) ([]models.Request, error)
	UpdateStatus(ctx context.Context, requestID int, from, to models.RequestStatus) (models.Request, error)
	DeleteRequest(ctx context.Context, requestID int) error
}

// RequestRepo is a sqlx implementation of RequestRepository.
type RequestRepo struct {
	db *sqlx.DB
}

// NewRequestRepo constructs a RequestRepo.
func NewRequestRepo(db *sqlx.DB) *RequestRepo {
	return &RequestRepo{db: db}
}

const requestColumns = `id, client_id, title, description, status, created_at`

// CreateRequest inserts a new pending request.
func (r *RequestRepo) CreateRequest(ctx context.Context, clientID int, title, description string) (models.Request, error) {
	var req models.Request
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO requests (client_id, title, description, status) VALUES ($1, $2, $3, 'pending')
         RETURNING `+requestColumns, clientID, title, description).
		StructScan(&req)
	return req, err
}

// GetRequest fetches a request by id.
func (r *RequestRepo) GetRequest(ctx context.Context, requestID int) (models.Request, error) {
	var req models.Request
	err := r.db.GetContext(ctx, &req, `SELECT `+requestColumns+` FROM requests WHERE id=$1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Request{}, ErrRequestNotFound
	}
	return req, err
}

// ListRequests returns all requests, newest first.
func (r *RequestRepo) ListRequests(ctx context.Context) ([]models.Request, error) {
	var reqs []models.Request
	err := r.db.SelectContext(ctx, &reqs,
		`SELECT `+requestColumns+` FROM requests ORDER BY created_at DESC`)
	return reqs, err
}

// ListRequestsForClient returns one client's requests, newest first.
func (r *RequestRepo) ListRequestsForClient(ctx context.Context, clientID int) ([]models.Request, error) {
	var reqs []models.Request
	err := r.db.SelectContext(ctx, &reqs,
		`SELECT `+requestColumns+` FROM requests WHERE client_id=$1 ORDER BY created_at DESC`, clientID)
	return reqs, err
}

// UpdateStatus advances a request's status. The from clause guards against
// concurrent transitions: the update only applies if the stored status still
// matches the one the caller validated against.
func (r *RequestRepo) UpdateStatus(ctx context.Context, requestID int, from, to models.RequestStatus) (models.Request, error) {
	var req models.Request
	err := r.db.QueryRowxContext(ctx,
		`UPDATE requests SET status=$1 WHERE id=$2 AND status=$3 RETURNING `+requestColumns,
		to, requestID, from).
		StructScan(&req)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Request{}, ErrRequestNotFound
	}
	return req, err
}

// DeleteRequest removes a request; messages, files and payments cascade.
func (r *RequestRepo) DeleteRequest(ctx context.Context, requestID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM requests WHERE id=$1`, requestID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRequestNotFound
	}
	return nil
}
