// Package catalog exposes the read-only product surface the checkout core
// needs: server-side prices and category membership. Full catalog management
// lives in a separate service.
package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Product is the priced catalog entry referenced by order line items.
type Product struct {
	ID         string
	Name       string
	CategoryID string
	SellerID   string
	Price      decimal.Decimal
}

// NotFoundError indicates a requested product does not exist.
type NotFoundError struct {
	ProductID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// Repository defines the product lookups used during order creation.
type Repository interface {
	// GetByIDs fetches all listed products in a single batch. Missing IDs
	// are simply absent from the result; callers detect them.
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
