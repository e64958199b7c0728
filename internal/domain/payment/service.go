package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-core/internal/domain/order"
)

// Service reconciles payment state with orders. A failed payment never
// auto-cancels its order, and a refund never touches inventory; both are
// explicit follow-up steps.
type Service struct {
	payments Repository
	orders   order.Repository
	now      func() time.Time
}

// NewService creates a payment Service.
func NewService(payments Repository, orders order.Repository) *Service {
	return &Service{payments: payments, orders: orders, now: time.Now}
}

// CreateRequest holds the input for creating a payment attempt.
type CreateRequest struct {
	OrderID       string
	Method        Method
	Amount        decimal.Decimal
	TransactionID string
}

// Create opens a pending payment for an order. The amount must equal the
// stored order total exactly; disagreement is rejected, not corrected.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Payment, error) {
	if !req.Method.Valid() {
		return nil, errors.New("invalid payment method")
	}

	o, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !req.Amount.Equal(o.Total) {
		return nil, ErrAmountMismatch
	}

	p := &Payment{
		ID:            uuid.New().String(),
		OrderID:       o.ID,
		Method:        req.Method,
		Amount:        o.Total,
		Status:        StatusPending,
		TransactionID: req.TransactionID,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create payment")
	}
	return p, nil
}

// Get fetches a payment by ID.
func (s *Service) Get(ctx context.Context, id string) (*Payment, error) {
	return s.payments.GetByID(ctx, id)
}

// List returns payments filtered by optional status and method.
func (s *Service) List(ctx context.Context, status Status, method Method, limit, offset int) ([]Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.payments.List(ctx, status, method, limit, offset)
}

// ApplyProviderEvent reconciles an inbound provider event. It is idempotent
// under at-least-once delivery: paid_at is written exactly once, and each
// delivery of a succeeded event re-attempts the order confirmation so a
// partially applied first delivery converges on redelivery.
func (s *Service) ApplyProviderEvent(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventSucceeded:
		moved, err := s.payments.MarkCompleted(ctx, ev.TransactionID, s.now())
		if err != nil {
			return errors.Wrap(err, "mark payment completed")
		}

		p, err := s.payments.GetByTransactionID(ctx, ev.TransactionID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return &UnknownTransactionError{TransactionID: ev.TransactionID}
			}
			return errors.Wrap(err, "load payment after completion")
		}
		if !moved && p.Status != StatusCompleted {
			// Succeeded event against a payment in some other state, such
			// as one already refunded. Nothing to reconcile.
			return nil
		}

		// Confirm the linked order, but never regress a later state: the
		// conditional update fires only from pending. The payment and order
		// writes are not one transaction, so this runs on redelivery too;
		// a crash between the two writes is repaired by the next delivery.
		if _, err := s.orders.UpdateStatus(ctx, p.OrderID, order.StatusPending, order.StatusConfirmed); err != nil {
			return errors.Wrap(err, "confirm order")
		}
		return nil

	case EventFailed:
		moved, err := s.payments.MarkFailed(ctx, ev.TransactionID)
		if err != nil {
			return errors.Wrap(err, "mark payment failed")
		}
		if !moved {
			if _, err := s.payments.GetByTransactionID(ctx, ev.TransactionID); err != nil {
				if errors.Is(err, ErrNotFound) {
					return &UnknownTransactionError{TransactionID: ev.TransactionID}
				}
				return err
			}
		}
		// The order is left untouched; a failed payment allows retry.
		return nil

	default:
		// Unknown event types are accepted and ignored.
		return nil
	}
}

// Retry resets a failed payment to pending for another attempt. Bounded at
// MaxRetries; the bound is enforced by the same conditional update that
// performs the reset.
func (s *Service) Retry(ctx context.Context, id, newTransactionID string) (*Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusFailed {
		return nil, ErrNotRetryable
	}
	if p.RetryCount >= MaxRetries {
		return nil, ErrRetryLimitExceeded
	}
	if newTransactionID == "" {
		newTransactionID = uuid.New().String()
	}

	moved, err := s.payments.Retry(ctx, id, newTransactionID)
	if err != nil {
		return nil, errors.Wrap(err, "retry payment")
	}
	if !moved {
		// Lost a race against another retry or a late event; report from
		// the current state.
		cur, err := s.payments.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if cur.RetryCount >= MaxRetries {
			return nil, ErrRetryLimitExceeded
		}
		return nil, ErrNotRetryable
	}
	return s.payments.GetByID(ctx, id)
}

// Refund moves a completed payment to refunded. Inventory restock is the
// return workflow's responsibility, not a side effect here.
func (s *Service) Refund(ctx context.Context, id, reason string) (*Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusCompleted {
		return nil, ErrNotRefundable
	}
	if reason == "" {
		reason = "no reason specified"
	}

	moved, err := s.payments.Refund(ctx, id, reason, s.now())
	if err != nil {
		return nil, errors.Wrap(err, "refund payment")
	}
	if !moved {
		return nil, ErrNotRefundable
	}
	return s.payments.GetByID(ctx, id)
}
