package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/ailogo/internal/apperror"
	"github.com/sakif/ailogo/internal/model"
	"github.com/sakif/ailogo/internal/repository"
)

var _ repository.OrderRepository = (*DB)(nil)

const orderColumns = `order_no, user_id, user_email, plan, amount, currency, credits,
	order_status, stripe_session_id, created_at, paid_at`

func scanOrder(s rowScanner, o *model.Order) error {
	var paidAt sql.NullTime
	if err := s.Scan(
		&o.OrderNo, &o.UserID, &o.UserEmail, &o.Plan, &o.Amount, &o.Currency,
		&o.Credits, &o.Status, &o.StripeSessionID, &o.CreatedAt, &paidAt,
	); err != nil {
		return err
	}
	if paidAt.Valid {
		t := paidAt.Time
		o.PaidAt = &t
	}
	return nil
}

func (db *DB) CreateOrder(ctx context.Context, o *model.Order) error {
	var paidAt any
	if o.PaidAt != nil {
		paidAt = o.PaidAt.UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderNo, o.UserID, o.UserEmail, o.Plan, o.Amount, o.Currency,
		o.Credits, int(o.Status), o.StripeSessionID, o.CreatedAt.UTC(), paidAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating order: %w", err)
	}
	return nil
}

func (db *DB) GetOrder(ctx context.Context, orderNo string) (*model.Order, error) {
	var o model.Order

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_no = ?`, orderNo,
	)
	if err := scanOrder(row, &o); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("order", orderNo)
		}
		return nil, fmt.Errorf("sqlite: getting order %s: %w", orderNo, err)
	}
	return &o, nil
}

func (db *DB) SetOrderSession(ctx context.Context, orderNo, sessionID string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE orders SET stripe_session_id = ? WHERE order_no = ?`,
		sessionID, orderNo,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting session for order %s: %w", orderNo, err)
	}
	return expectOneRow(result, "order", orderNo)
}

func (db *DB) MarkOrderPaid(ctx context.Context, orderNo string, paidAt time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE orders SET order_status = ?, paid_at = ?
		 WHERE order_no = ? AND order_status = ?`,
		int(model.OrderPaid), paidAt.UTC(), orderNo, int(model.OrderCreated),
	)
	if err != nil {
		return fmt.Errorf("sqlite: marking order %s paid: %w", orderNo, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		// Either missing or already paid; only the former is an error.
		if _, err := db.GetOrder(ctx, orderNo); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) ListUserOrders(ctx context.Context, userID string) ([]model.Order, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE user_id = ?
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing orders: %w", err)
	}
	defer rows.Close()

	orders := make([]model.Order, 0)
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("sqlite: scanning order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating orders: %w", err)
	}
	return orders, nil
}

func expectOneRow(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
