// Package inventory implements the per-(variant, seller) stock ledger.
// Every mutation is a signed delta applied as one conditional datastore
// update; quantity can never observe a negative value.
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when an inventory row does not exist.
	ErrNotFound = errors.New("inventory not found")
	// ErrNegativeStock is returned when a delta would take quantity below
	// zero. The stored quantity is left unchanged.
	ErrNegativeStock = errors.New("quantity cannot be negative")
)

// DuplicateError indicates a (variant, seller) pair that already has a row.
type DuplicateError struct {
	VariantID, SellerID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("inventory for variant %s and seller %s already exists", e.VariantID, e.SellerID)
}

// Inventory is one stock row.
type Inventory struct {
	ID          string
	VariantID   string
	SellerID    string
	Quantity    int
	LastUpdated time.Time
}

// Adjustment is a single entry of a bulk adjust request.
type Adjustment struct {
	InventoryID string
	Delta       int
}

// Outcome reports the result of one adjustment within a bulk operation.
type Outcome struct {
	InventoryID string
	Quantity    int
	Err         error
}

// Repository defines ledger persistence. Adjust must be an atomic
// conditional update (quantity = quantity + delta WHERE quantity + delta >= 0).
type Repository interface {
	Create(ctx context.Context, inv *Inventory) error
	GetByID(ctx context.Context, id string) (*Inventory, error)
	// Adjust applies delta atomically and returns the new row.
	// Returns ErrNotFound or ErrNegativeStock on failure.
	Adjust(ctx context.Context, id string, delta int) (*Inventory, error)
	ListBySeller(ctx context.Context, sellerID string) ([]Inventory, error)
	ListLowStock(ctx context.Context, threshold int) ([]Inventory, error)
}
