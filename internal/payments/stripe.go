package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// CheckoutParams describes a hosted checkout to create for a request.
type CheckoutParams struct {
	PaymentID    int
	RequestID    int
	ClientID     int
	RequestTitle string
	AmountCents  int64
	Currency     string
}

// CheckoutSession is the subset of the provider session the portal uses.
type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutProvider creates hosted checkout sessions.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (CheckoutSession, error)
}

// StripeProvider implements CheckoutProvider against the Stripe API.
type StripeProvider struct {
	baseURL string
}

// NewStripeProvider configures the Stripe client. baseURL is where the
// customer is redirected after checkout.
func NewStripeProvider(secretKey, baseURL string) (*StripeProvider, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key is empty")
	}
	stripe.Key = secretKey
	return &StripeProvider{baseURL: baseURL}, nil
}

// CreateCheckoutSession opens a single-payment hosted checkout. The metadata
// ties the provider session back to the local payment row so the webhook can
// resolve it.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (CheckoutSession, error) {
	sessionParams := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(params.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String("Request: " + params.RequestTitle),
						Description: stripe.String("Payment for completed request deliverables"),
					},
					UnitAmount: stripe.Int64(params.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(fmt.Sprintf("%s/requests/%d?payment=success", p.baseURL, params.RequestID)),
		CancelURL:  stripe.String(fmt.Sprintf("%s/requests/%d?payment=cancelled", p.baseURL, params.RequestID)),
	}
	sessionParams.Context = ctx
	sessionParams.AddMetadata("payment_id", strconv.Itoa(params.PaymentID))
	sessionParams.AddMetadata("request_id", strconv.Itoa(params.RequestID))
	sessionParams.AddMetadata("client_id", strconv.Itoa(params.ClientID))

	sess, err := session.New(sessionParams)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}
