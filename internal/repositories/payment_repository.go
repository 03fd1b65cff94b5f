package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"portal-service/internal/models"
)

var ErrPaymentNotFound = errors.New("payment not found")

// PaymentRepository abstracts payment persistence. Terminal statuses are only
// written through MarkPaid/MarkFailed, which the webhook handler owns.
type PaymentRepository interface {
	CreatePayment(ctx context.Context, requestID, clientID int, amountCents int64, currency string) (models.Payment, error)
	GetPayment(ctx context.Context, paymentID int) (models.Payment, error)
	LatestPaymentForRequest(ctx context.Context, requestID int) (models.Payment, error)
	HasPaidPayment(ctx context.Context, requestID int) (bool, error)
	AttachCheckoutSession(ctx context.Context, paymentID int, sessionID string) error
	MarkPaid(ctx context.Context, paymentID, clientID int, sessionID, paymentIntent string) (models.Payment, error)
	MarkFailed(ctx context.Context, paymentID int) error
}

// PaymentRepo is a sqlx implementation of PaymentRepository.
type PaymentRepo struct {
	db *sqlx.DB
}

// NewPaymentRepo constructs a PaymentRepo.
func NewPaymentRepo(db *sqlx.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

const paymentColumns = `id, request_id, client_id, amount_cents, currency, status, checkout_session_id, payment_intent, created_at`

// CreatePayment inserts a pending payment row for a checkout attempt.
func (r *PaymentRepo) CreatePayment(ctx context.Context, requestID, clientID int, amountCents int64, currency string) (models.Payment, error) {
	var payment models.Payment
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO payments (request_id, client_id, amount_cents, currency, status)
         VALUES ($1, $2, $3, $4, 'pending') RETURNING `+paymentColumns,
		requestID, clientID, amountCents, currency).
		StructScan(&payment)
	return payment, err
}

// GetPayment fetches a payment by id.
func (r *PaymentRepo) GetPayment(ctx context.Context, paymentID int) (models.Payment, error) {
	var payment models.Payment
	err := r.db.GetContext(ctx, &payment, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Payment{}, ErrPaymentNotFound
	}
	return payment, err
}

// LatestPaymentForRequest returns the most recent payment row for a request.
func (r *PaymentRepo) LatestPaymentForRequest(ctx context.Context, requestID int) (models.Payment, error) {
	var payment models.Payment
	err := r.db.GetContext(ctx, &payment,
		`SELECT `+paymentColumns+` FROM payments WHERE request_id=$1 ORDER BY created_at DESC LIMIT 1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Payment{}, ErrPaymentNotFound
	}
	return payment, err
}

// HasPaidPayment reports whether any paid row exists for the request.
func (r *PaymentRepo) HasPaidPayment(ctx context.Context, requestID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM payments WHERE request_id=$1 AND status='paid')`, requestID)
	return exists, err
}

// AttachCheckoutSession records the provider session id on a pending payment.
func (r *PaymentRepo) AttachCheckoutSession(ctx context.Context, paymentID int, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments SET checkout_session_id=$1 WHERE id=$2`, sessionID, paymentID)
	return err
}

// MarkPaid transitions a payment to paid. The client_id guard mirrors the
// metadata check on the webhook side.
func (r *PaymentRepo) MarkPaid(ctx context.Context, paymentID, clientID int, sessionID, paymentIntent string) (models.Payment, error) {
	var payment models.Payment
	err := r.db.QueryRowxContext(ctx,
		`UPDATE payments SET status='paid', checkout_session_id=$1, payment_intent=$2
         WHERE id=$3 AND client_id=$4 RETURNING `+paymentColumns,
		sessionID, paymentIntent, paymentID, clientID).
		StructScan(&payment)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Payment{}, ErrPaymentNotFound
	}
	return payment, err
}

// MarkFailed transitions a payment to failed.
func (r *PaymentRepo) MarkFailed(ctx context.Context, paymentID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE payments SET status='failed' WHERE id=$1`, paymentID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrPaymentNotFound
	}
	return nil
}
