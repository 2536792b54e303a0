// Package payment creates hosted checkout sessions for credit orders and
// reads them back when the payer returns.
package payment

import (
	"context"

	"github.com/sakif/ailogo/internal/model"
)

// Session is the provider's view of a checkout.
type Session struct {
	ID      string
	URL     string
	OrderNo string // from the session metadata
	Paid    bool
}

type Checkout interface {
	CreateSession(ctx context.Context, order *model.Order, successURL, cancelURL string) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
}
