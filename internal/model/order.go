package model

import "time"

type OrderStatus int

const (
	OrderCreated OrderStatus = 1
	OrderPaid    OrderStatus = 2
)

// Order is a credit purchase. Its credits count toward the owner's balance
// once it is paid.
type Order struct {
	OrderNo         string      `json:"order_no"`
	UserID          string      `json:"-"`
	UserEmail       string      `json:"user_email"`
	Plan            string      `json:"plan"`
	Amount          int64       `json:"amount"` // smallest currency unit
	Currency        string      `json:"currency"`
	Credits         int         `json:"credits"`
	Status          OrderStatus `json:"order_status"`
	StripeSessionID string      `json:"stripe_session_id"`
	CreatedAt       time.Time   `json:"created_at"`
	PaidAt          *time.Time  `json:"paid_at,omitempty"`
}

// Plan is a purchasable credit bundle.
type Plan struct {
	Name     string
	Amount   int64
	Currency string
	Credits  int
}
