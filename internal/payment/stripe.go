package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/sakif/ailogo/internal/model"
)

const metadataOrderNo = "order_no"

// Stripe implements Checkout with Stripe Checkout Sessions.
type Stripe struct {
	sc *client.API
}

var _ Checkout = (*Stripe)(nil)

func NewStripe(secretKey string) (*Stripe, error) {
	if secretKey == "" {
		return nil, errors.New("payment: stripe secret key is required")
	}
	return &Stripe{sc: client.New(secretKey, nil)}, nil
}

func (s *Stripe) CreateSession(ctx context.Context, order *model.Order, successURL, cancelURL string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(order.UserID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(order.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("%d logo credits (%s)", order.Credits, order.Plan)),
					},
					UnitAmount: stripe.Int64(order.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if order.UserEmail != "" {
		params.CustomerEmail = stripe.String(order.UserEmail)
	}
	params.AddMetadata(metadataOrderNo, order.OrderNo)
	params.Context = ctx

	cs, err := s.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("payment: creating checkout session for %s: %w", order.OrderNo, err)
	}
	return toSession(cs), nil
}

func (s *Stripe) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := s.sc.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("payment: retrieving checkout session %s: %w", sessionID, err)
	}
	return toSession(cs), nil
}

func toSession(cs *stripe.CheckoutSession) *Session {
	return &Session{
		ID:      cs.ID,
		URL:     cs.URL,
		OrderNo: cs.Metadata[metadataOrderNo],
		Paid:    cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
}
