package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/checkout-core/internal/domain/inventory"
)

const (
	inventoryColumns = `id, variant_id, seller_id, quantity, last_updated`

	createInventorySQL = `INSERT INTO inventories (id, variant_id, seller_id, quantity)
		VALUES ($1, $2, $3, $4)`

	getInventorySQL = `SELECT ` + inventoryColumns + ` FROM inventories WHERE id = $1`

	// The negative-stock guard is part of the statement; the read-modify-write
	// race of a sequential check cannot occur.
	adjustInventorySQL = `UPDATE inventories
		SET quantity = quantity + $2, last_updated = now()
		WHERE id = $1 AND quantity + $2 >= 0
		RETURNING ` + inventoryColumns

	listInventoryBySellerSQL = `SELECT ` + inventoryColumns + ` FROM inventories
		WHERE seller_id = $1 ORDER BY last_updated DESC`

	listLowStockSQL = `SELECT ` + inventoryColumns + ` FROM inventories
		WHERE quantity <= $1 ORDER BY quantity`
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaks.
const uniqueViolation = "23505"

var _ inventory.Repository = (*InventoryRepository)(nil)

// InventoryRepository implements inventory.Repository backed by PostgreSQL.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

// NewInventoryRepository returns an InventoryRepository that uses the given pool.
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

// Create persists a new stock row; one row per (variant, seller).
func (r *InventoryRepository) Create(ctx context.Context, inv *inventory.Inventory) error {
	_, err := r.pool.Exec(ctx, createInventorySQL,
		inv.ID, inv.VariantID, inv.SellerID, inv.Quantity,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return &inventory.DuplicateError{VariantID: inv.VariantID, SellerID: inv.SellerID}
		}
		return fmt.Errorf("creating inventory %q: %w", inv.ID, err)
	}
	return nil
}

// GetByID fetches one stock row.
func (r *InventoryRepository) GetByID(ctx context.Context, id string) (*inventory.Inventory, error) {
	rows, err := r.pool.Query(ctx, getInventorySQL, id)
	if err != nil {
		return nil, fmt.Errorf("finding inventory %q: %w", id, err)
	}

	inv, err := pgx.CollectExactlyOneRow(rows, scanInventory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}
		return nil, fmt.Errorf("finding inventory %q: %w", id, err)
	}
	return &inv, nil
}

// Adjust atomically applies delta. A zero-row result is disambiguated into
// ErrNotFound vs ErrNegativeStock by a follow-up read; the stored quantity
// is unchanged either way.
func (r *InventoryRepository) Adjust(ctx context.Context, id string, delta int) (*inventory.Inventory, error) {
	rows, err := r.pool.Query(ctx, adjustInventorySQL, id, delta)
	if err != nil {
		return nil, fmt.Errorf("adjusting inventory %q: %w", id, err)
	}

	inv, err := pgx.CollectExactlyOneRow(rows, scanInventory)
	if err == nil {
		return &inv, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("adjusting inventory %q: %w", id, err)
	}

	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, inventory.ErrNegativeStock
}

// ListBySeller returns a seller's stock rows, most recently touched first.
func (r *InventoryRepository) ListBySeller(ctx context.Context, sellerID string) ([]inventory.Inventory, error) {
	rows, err := r.pool.Query(ctx, listInventoryBySellerSQL, sellerID)
	if err != nil {
		return nil, fmt.Errorf("listing inventories for seller %q: %w", sellerID, err)
	}
	invs, err := pgx.CollectRows(rows, scanInventory)
	if err != nil {
		return nil, fmt.Errorf("listing inventories for seller %q: %w", sellerID, err)
	}
	return invs, nil
}

// ListLowStock returns rows at or below threshold, lowest first.
func (r *InventoryRepository) ListLowStock(ctx context.Context, threshold int) ([]inventory.Inventory, error) {
	rows, err := r.pool.Query(ctx, listLowStockSQL, threshold)
	if err != nil {
		return nil, fmt.Errorf("listing low-stock inventories: %w", err)
	}
	invs, err := pgx.CollectRows(rows, scanInventory)
	if err != nil {
		return nil, fmt.Errorf("listing low-stock inventories: %w", err)
	}
	return invs, nil
}

func scanInventory(row pgx.CollectableRow) (inventory.Inventory, error) {
	var inv inventory.Inventory
	err := row.Scan(&inv.ID, &inv.VariantID, &inv.SellerID, &inv.Quantity, &inv.LastUpdated)
	return inv, err
}
