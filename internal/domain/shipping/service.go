package shipping

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/xenking/checkout-core/internal/apperr"
	"github.com/xenking/checkout-core/internal/domain/auth"
	"github.com/xenking/checkout-core/internal/domain/order"
)

// Service creates and updates shipping records against order state.
type Service struct {
	shippings Repository
	orders    order.Repository
	now       func() time.Time
}

// NewService creates a shipping Service.
func NewService(shippings Repository, orders order.Repository) *Service {
	return &Service{shippings: shippings, orders: orders, now: time.Now}
}

// CreateRequest holds the input for creating a shipping record.
type CreateRequest struct {
	OrderID           string
	AddressID         string
	TrackingID        string
	Carrier           string
	EstimatedDelivery *time.Time
}

// Create opens a shipping record for an order that is confirmed or shipped.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Shipping, error) {
	if req.OrderID == "" || req.AddressID == "" {
		return nil, apperr.New(apperr.KindValidation, "order and address are required")
	}

	o, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusConfirmed && o.Status != order.StatusShipped {
		return nil, ErrOrderNotShippable
	}

	sh := &Shipping{
		ID:                uuid.New().String(),
		OrderID:           req.OrderID,
		AddressID:         req.AddressID,
		TrackingID:        req.TrackingID,
		Carrier:           req.Carrier,
		Status:            StatusProcessing,
		EstimatedDelivery: req.EstimatedDelivery,
	}
	if err := s.shippings.Create(ctx, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// UpdateStatus applies a carrier status update. Delivered stamps
// delivered_at when the carrier did not supply one.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status, deliveredAt *time.Time) (*Shipping, error) {
	if !status.Valid() {
		return nil, apperr.New(apperr.KindValidation, "invalid shipping status")
	}

	sh, err := s.shippings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh.Status.Terminal() {
		return nil, ErrTerminal
	}

	if status == StatusDelivered && deliveredAt == nil {
		now := s.now()
		deliveredAt = &now
	}
	return s.shippings.UpdateStatus(ctx, id, status, deliveredAt)
}

// Get fetches one shipping record.
func (s *Service) Get(ctx context.Context, id string) (*Shipping, error) {
	return s.shippings.GetByID(ctx, id)
}

// SoftDelete hides a record without losing it.
func (s *Service) SoftDelete(ctx context.Context, principal auth.Principal, id string) error {
	if !principal.IsAdmin() {
		return apperr.New(apperr.KindForbidden, "only admin can delete shipping records")
	}
	ok, err := s.shippings.SetDeleted(ctx, id, true)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Restore undoes a soft delete.
func (s *Service) Restore(ctx context.Context, principal auth.Principal, id string) error {
	if !principal.IsAdmin() {
		return apperr.New(apperr.KindForbidden, "only admin can restore shipping records")
	}
	ok, err := s.shippings.SetDeleted(ctx, id, false)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
