package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/checkout-core/internal/domain/shipping"
)

const (
	shippingColumns = `id, order_id, address_id, COALESCE(tracking_id, ''),
		COALESCE(carrier, ''), status, estimated_delivery, delivered_at, deleted, created_at`

	createShippingSQL = `INSERT INTO shippings
		(id, order_id, address_id, tracking_id, carrier, status, estimated_delivery)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)`

	getShippingSQL = `SELECT ` + shippingColumns + ` FROM shippings WHERE id = $1 AND NOT deleted`

	updateShippingStatusSQL = `UPDATE shippings
		SET status = $2, delivered_at = COALESCE($3, delivered_at), updated_at = now()
		WHERE id = $1 AND NOT deleted
		RETURNING ` + shippingColumns

	setShippingDeletedSQL = `UPDATE shippings SET deleted = $2, updated_at = now()
		WHERE id = $1 AND deleted <> $2`
)

var _ shipping.Repository = (*ShippingRepository)(nil)

// ShippingRepository implements shipping.Repository backed by PostgreSQL.
type ShippingRepository struct {
	pool *pgxpool.Pool
}

// NewShippingRepository returns a ShippingRepository that uses the given pool.
func NewShippingRepository(pool *pgxpool.Pool) *ShippingRepository {
	return &ShippingRepository{pool: pool}
}

// Create persists a new shipping record.
func (r *ShippingRepository) Create(ctx context.Context, sh *shipping.Shipping) error {
	_, err := r.pool.Exec(ctx, createShippingSQL,
		sh.ID, sh.OrderID, sh.AddressID, sh.TrackingID, sh.Carrier,
		string(sh.Status), sh.EstimatedDelivery,
	)
	if err != nil {
		return fmt.Errorf("creating shipping %q: %w", sh.ID, err)
	}
	return nil
}

// GetByID fetches one non-deleted shipping record.
func (r *ShippingRepository) GetByID(ctx context.Context, id string) (*shipping.Shipping, error) {
	rows, err := r.pool.Query(ctx, getShippingSQL, id)
	if err != nil {
		return nil, fmt.Errorf("finding shipping %q: %w", id, err)
	}

	sh, err := pgx.CollectExactlyOneRow(rows, scanShipping)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipping.ErrNotFound
		}
		return nil, fmt.Errorf("finding shipping %q: %w", id, err)
	}
	return &sh, nil
}

// UpdateStatus applies a carrier status update and returns the fresh row.
// An existing delivered_at is never overwritten by a nil stamp.
func (r *ShippingRepository) UpdateStatus(ctx context.Context, id string, status shipping.Status, deliveredAt *time.Time) (*shipping.Shipping, error) {
	rows, err := r.pool.Query(ctx, updateShippingStatusSQL, id, string(status), deliveredAt)
	if err != nil {
		return nil, fmt.Errorf("updating shipping %q: %w", id, err)
	}

	sh, err := pgx.CollectExactlyOneRow(rows, scanShipping)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipping.ErrNotFound
		}
		return nil, fmt.Errorf("updating shipping %q: %w", id, err)
	}
	return &sh, nil
}

// SetDeleted toggles soft deletion. Returns false when nothing changed.
func (r *ShippingRepository) SetDeleted(ctx context.Context, id string, deleted bool) (bool, error) {
	tag, err := r.pool.Exec(ctx, setShippingDeletedSQL, id, deleted)
	if err != nil {
		return false, fmt.Errorf("soft-deleting shipping %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanShipping(row pgx.CollectableRow) (shipping.Shipping, error) {
	var (
		sh     shipping.Shipping
		status string
	)
	err := row.Scan(
		&sh.ID, &sh.OrderID, &sh.AddressID, &sh.TrackingID, &sh.Carrier,
		&status, &sh.EstimatedDelivery, &sh.DeliveredAt, &sh.Deleted, &sh.CreatedAt,
	)
	sh.Status = shipping.Status(status)
	return sh, err
}
