package models

import "time"

// PaymentStatus is the state of a payment record. Only the provider webhook
// ever writes the terminal paid/failed values.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment tracks a checkout attempt for a completed request.
type Payment struct {
	ID                int           `db:"id" json:"id"`
	RequestID         int           `db:"request_id" json:"request_id"`
	ClientID          int           `db:"client_id" json:"client_id"`
	AmountCents       int64         `db:"amount_cents" json:"amount_cents"`
	Currency          string        `db:"currency" json:"currency"`
	Status            PaymentStatus `db:"status" json:"status"`
	CheckoutSessionID string        `db:"checkout_session_id" json:"checkout_session_id,omitempty"`
	PaymentIntent     string        `db:"payment_intent" json:"payment_intent,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
}
