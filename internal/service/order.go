package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/ailogo/internal/apperror"
	"github.com/sakif/ailogo/internal/model"
	"github.com/sakif/ailogo/internal/payment"
	"github.com/sakif/ailogo/internal/repository"
)

// DefaultPlans are the credit bundles on sale. Amounts are in cents.
var DefaultPlans = map[string]model.Plan{
	"starter":  {Name: "starter", Amount: 500, Currency: "usd", Credits: 20},
	"pro":      {Name: "pro", Amount: 1500, Currency: "usd", Credits: 100},
	"business": {Name: "business", Amount: 5000, Currency: "usd", Credits: 500},
}

// Checkout is the result of starting a purchase.
type Checkout struct {
	OrderNo string `json:"order_no"`
	URL     string `json:"checkout_url"`
}

// OrderService sells credit bundles through a hosted checkout.
type OrderService struct {
	orders   repository.OrderRepository
	users    *UserService
	checkout payment.Checkout
	plans    map[string]model.Plan
	appURL   string
	logger   *slog.Logger
	now      func() time.Time
}

func NewOrderService(
	orders repository.OrderRepository,
	users *UserService,
	checkout payment.Checkout,
	plans map[string]model.Plan,
	appURL string,
	logger *slog.Logger,
) *OrderService {
	if plans == nil {
		plans = DefaultPlans
	}
	return &OrderService{
		orders:   orders,
		users:    users,
		checkout: checkout,
		plans:    plans,
		appURL:   strings.TrimRight(appURL, "/"),
		logger:   logger,
		now:      time.Now,
	}
}

// Plans lists the plans ordered by price.
func (s *OrderService) Plans() []model.Plan {
	out := make([]model.Plan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount < out[j].Amount })
	return out
}

// CreateCheckout records an unpaid order for plan and opens a checkout
// session for it.
func (s *OrderService) CreateCheckout(ctx context.Context, id model.Identity, plan string) (*Checkout, error) {
	p, ok := s.plans[strings.ToLower(strings.TrimSpace(plan))]
	if !ok {
		return nil, apperror.ValidationFailed("plan", "unknown plan")
	}
	if s.checkout == nil {
		return nil, fmt.Errorf("creating checkout: no payment provider configured")
	}

	user, err := s.users.EnsureUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("creating checkout: %w", err)
	}

	order := &model.Order{
		OrderNo:   xid.New().String(),
		UserID:    user.ID,
		UserEmail: user.Email,
		Plan:      p.Name,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Credits:   p.Credits,
		Status:    model.OrderCreated,
		CreatedAt: s.now(),
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	successURL := s.appURL + "/api/payment/success?session_id={CHECKOUT_SESSION_ID}"
	cancelURL := s.appURL + "/"
	session, err := s.checkout.CreateSession(ctx, order, successURL, cancelURL)
	if err != nil {
		return nil, fmt.Errorf("creating checkout: %w", err)
	}
	if err := s.orders.SetOrderSession(ctx, order.OrderNo, session.ID); err != nil {
		return nil, fmt.Errorf("creating checkout: %w", err)
	}

	s.logger.Info("checkout created",
		slog.String("order_no", order.OrderNo),
		slog.String("user_id", user.ID),
		slog.String("plan", p.Name),
	)
	return &Checkout{OrderNo: order.OrderNo, URL: session.URL}, nil
}

// ConfirmPayment marks the order behind a completed checkout session as
// paid. Confirming twice is harmless.
func (s *OrderService) ConfirmPayment(ctx context.Context, sessionID string) (*model.Order, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperror.ValidationFailed("session_id", "session_id is required")
	}
	if s.checkout == nil {
		return nil, fmt.Errorf("confirming payment: no payment provider configured")
	}

	session, err := s.checkout.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("confirming payment: %w", err)
	}
	if session.OrderNo == "" {
		return nil, apperror.ValidationFailed("session_id", "invalid checkout session")
	}
	if !session.Paid {
		return nil, apperror.ValidationFailed("session_id", "checkout session is not paid")
	}

	if err := s.orders.MarkOrderPaid(ctx, session.OrderNo, s.now()); err != nil {
		return nil, fmt.Errorf("confirming payment: %w", err)
	}
	order, err := s.orders.GetOrder(ctx, session.OrderNo)
	if err != nil {
		return nil, fmt.Errorf("confirming payment: %w", err)
	}

	s.logger.Info("order paid",
		slog.String("order_no", order.OrderNo),
		slog.String("user_id", order.UserID),
		slog.Int("credits", order.Credits),
	)
	return order, nil
}

// UserOrders lists the caller's orders.
func (s *OrderService) UserOrders(ctx context.Context, userID string) ([]model.Order, error) {
	orders, err := s.orders.ListUserOrders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return orders, nil
}
