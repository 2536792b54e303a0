// Package service holds the business rules. Handlers parse requests and
// call services; services talk to repositories and external backends
// through interfaces, so every rule here is testable with in-memory fakes.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sakif/ailogo/internal/model"
	"github.com/sakif/ailogo/internal/repository"
)

// CreditPolicy decides which logo records consume a credit.
type CreditPolicy string

const (
	// CountSuccessful charges only for logos that finished successfully.
	CountSuccessful CreditPolicy = "success"
	// CountAll charges for every record, including failed attempts.
	CountAll CreditPolicy = "all"
)

type CreditConfig struct {
	BaseCredits       int
	Policy            CreditPolicy
	RequirePaidOrders bool
}

// CreditLedger derives a user's balance from their orders and logos. The
// balance is never stored, so it cannot drift from the records it is
// computed from.
type CreditLedger struct {
	logos  repository.LogoRepository
	orders repository.OrderRepository
	config CreditConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewCreditLedger(
	logos repository.LogoRepository,
	orders repository.OrderRepository,
	cfg CreditConfig,
	logger *slog.Logger,
) *CreditLedger {
	if cfg.Policy == "" {
		cfg.Policy = CountSuccessful
	}
	return &CreditLedger{
		logos:  logos,
		orders: orders,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// UserCredits returns {total, used, left} for userID.
//
// total = base allotment + credits of orders created at or before now (paid
// orders only, unless configured otherwise). used follows the policy. left
// is total - used and is not clamped: a privileged user can go negative.
//
// A read failure yields the zero balance so the caller sees "insufficient
// credits" rather than an error.
func (l *CreditLedger) UserCredits(ctx context.Context, userID string) model.Credits {
	now := l.now()

	orders, err := l.orders.ListUserOrders(ctx, userID)
	if err != nil {
		l.logger.Error("reading orders for credits",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return model.Credits{}
	}

	total := l.config.BaseCredits
	for _, o := range orders {
		if o.CreatedAt.After(now) {
			continue
		}
		if l.config.RequirePaidOrders && o.Status != model.OrderPaid {
			continue
		}
		total += o.Credits
	}

	var status model.LogoStatus
	if l.config.Policy == CountSuccessful {
		status = model.LogoSuccess
	}
	used, err := l.logos.CountUserLogos(ctx, userID, status)
	if err != nil {
		l.logger.Error("counting logos for credits",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return model.Credits{}
	}

	return model.Credits{
		Total: total,
		Used:  used,
		Left:  total - used,
	}
}
