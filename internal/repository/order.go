package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/checkout-core/internal/domain/order"
)

const (
	orderColumns = `id, buyer_id, seller_id, items, subtotal, discount, total,
		COALESCE(coupon_id, ''), status, created_at, updated_at`

	createOrderSQL = `INSERT INTO orders
		(id, buyer_id, seller_id, items, subtotal, discount, total, coupon_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByBuyerSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE buyer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	// Transitions race through here: the update fires only while the stored
	// status still equals the expected source state.
	updateOrderStatusSQL = `UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`

	deleteOrderPaymentsSQL  = `DELETE FROM payments WHERE order_id = $1`
	deleteOrderShippingsSQL = `DELETE FROM shippings WHERE order_id = $1`
	deleteOrderSQL          = `DELETE FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Line items are serialized to JSON for the
// JSONB column; the order exclusively owns them.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.BuyerID, o.SellerID, itemsJSON,
		o.Subtotal, o.Discount, o.Total, o.CouponID, string(o.Status),
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID fetches one order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("finding order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding order %q: %w", id, err)
	}
	return &o, nil
}

// ListByBuyer returns a buyer's orders, newest first.
func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByBuyerSQL, buyerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing orders for buyer %q: %w", buyerID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for buyer %q: %w", buyerID, err)
	}
	return orders, nil
}

// UpdateStatus conditionally moves id from one status to another. Returns
// false when the stored status no longer matched from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status) (bool, error) {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("updating order %q status: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteCascade removes the order together with its payments and shipping
// records in one transaction. Coupons are deliberately untouched: usage
// history outlives orders.
func (r *OrderRepository) DeleteCascade(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteOrderPaymentsSQL, id); err != nil {
			return fmt.Errorf("deleting payments of order %q: %w", id, err)
		}
		if _, err := tx.Exec(ctx, deleteOrderShippingsSQL, id); err != nil {
			return fmt.Errorf("deleting shippings of order %q: %w", id, err)
		}
		tag, err := tx.Exec(ctx, deleteOrderSQL, id)
		if err != nil {
			return fmt.Errorf("deleting order %q: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrNotFound
		}
		return nil
	})
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		status    string
	)
	err := row.Scan(
		&o.ID, &o.BuyerID, &o.SellerID, &itemsJSON,
		&o.Subtotal, &o.Discount, &o.Total, &o.CouponID, &status,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling items of order %q: %w", o.ID, err)
	}
	return o, nil
}
