package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/ailogo/internal/model"
	"github.com/sakif/ailogo/internal/service"
)

type OrderHandler struct {
	orders *service.OrderService
	logger *slog.Logger
}

func NewOrderHandler(orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

type checkoutRequest struct {
	Plan string `json:"plan"`
}

type planResponse struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Credits  int    `json:"credits"`
}

// HandlePlans lists the credit bundles on sale.
//
// HTTP: POST /api/get-plans
func (h *OrderHandler) HandlePlans(w http.ResponseWriter, r *http.Request) {
	plans := h.orders.Plans()
	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, planResponse(p))
	}
	writeOK(w, out)
}

// HandleCreateCheckout starts a purchase and returns the hosted checkout
// URL the client should redirect to.
//
// HTTP: POST /api/create-checkout
func (h *OrderHandler) HandleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	co, err := h.orders.CreateCheckout(r.Context(), id, req.Plan)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeOK(w, co)
}

// HandleUserOrders lists the caller's orders.
//
// HTTP: POST /api/get-user-orders
func (h *OrderHandler) HandleUserOrders(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	orders, err := h.orders.UserOrders(r.Context(), id.Subject)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeOK(w, orders)
}

// HandlePaymentSuccess is where the payment provider sends the payer back.
// It confirms the session and redirects home.
//
// HTTP: GET /api/payment/success?session_id=...
func (h *OrderHandler) HandlePaymentSuccess(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.ConfirmPayment(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("payment confirmed", slog.String("order_no", order.OrderNo))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
