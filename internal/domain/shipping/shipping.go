// Package shipping tracks carrier handoff and delivery of confirmed orders,
// decoupled from payment state.
package shipping

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Status is the carrier-side delivery state. No strict machine is enforced
// beyond terminal states being final.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusInTransit  Status = "in_transit"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known shipping status.
func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusInTransit, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s accepts no further updates.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

var (
	// ErrNotFound is returned when a shipping record does not exist.
	ErrNotFound = errors.New("shipping record not found")
	// ErrOrderNotShippable is returned when the order is not confirmed or
	// shipped yet.
	ErrOrderNotShippable = errors.New("order is not ready for shipping")
	// ErrTerminal is returned when updating a delivered or cancelled record.
	ErrTerminal = errors.New("shipping record is in a terminal state")
)

// Shipping is one shipment record for an order.
type Shipping struct {
	ID                string
	OrderID           string
	AddressID         string
	TrackingID        string
	Carrier           string
	Status            Status
	EstimatedDelivery *time.Time
	DeliveredAt       *time.Time
	Deleted           bool
	CreatedAt         time.Time
}

// Repository defines shipping persistence. Soft deletion keeps the row for
// audit; Restore undoes it.
type Repository interface {
	Create(ctx context.Context, sh *Shipping) error
	GetByID(ctx context.Context, id string) (*Shipping, error)
	UpdateStatus(ctx context.Context, id string, status Status, deliveredAt *time.Time) (*Shipping, error)
	SetDeleted(ctx context.Context, id string, deleted bool) (bool, error)
}
