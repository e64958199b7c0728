// Package order implements the order aggregate: line-item pricing, totals,
// and the status lifecycle.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// transitions is the explicit allow-list keyed by current state. Forward
// moves are monotonic; cancelled is reachable from every non-terminal state.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
	StatusDelivered: {},
	StatusCancelled: {},
}

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether the move s -> target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

var (
	// ErrEmptyItems is returned when an order is created without line items.
	ErrEmptyItems = errors.New("items required")
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")
)

// InvalidTransitionError indicates a disallowed status move. The order is
// left unchanged.
type InvalidTransitionError struct {
	From, To Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition %s -> %s", e.From, e.To)
}

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// PriceMismatchError indicates a submitted unit price differing from the
// catalog price beyond the configured tolerance.
type PriceMismatchError struct {
	ProductID string
	Submitted decimal.Decimal
	Current   decimal.Decimal
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("price mismatch for product %s: submitted %s, current %s",
		e.ProductID, e.Submitted, e.Current)
}

// LineItem is an order line. Subtotal is always Quantity x UnitPrice with the
// server-trusted unit price.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Order is the aggregate root owning its line items. Payment, shipping, and
// coupon are non-owning references with independent lifecycles.
type Order struct {
	ID        string
	BuyerID   string
	SellerID  string
	Items     []LineItem
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
	CouponID  string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines persistence operations for orders. UpdateStatus is a
// conditional mutation: it applies only when the stored status still equals
// from, so concurrent transitions cannot interleave.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error)
	// DeleteCascade removes the order and its dependent payments and
	// shipping records in one transaction.
	DeleteCascade(ctx context.Context, id string) error
}
