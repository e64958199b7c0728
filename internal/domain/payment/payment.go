// Package payment implements payment attempts, their status DAG, and the
// reconciliation of asynchronous provider events.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Method enumerates accepted payment methods.
type Method string

const (
	MethodCard           Method = "card"
	MethodCashOnDelivery Method = "cash_on_delivery"
	MethodBankTransfer   Method = "bank_transfer"
	MethodWallet         Method = "wallet"
)

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	switch m {
	case MethodCard, MethodCashOnDelivery, MethodBankTransfer, MethodWallet:
		return true
	}
	return false
}

// Status is the payment state. Transitions form a DAG:
// pending -> {completed, failed}; failed -> pending (bounded retry);
// completed -> refunded.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// MaxRetries bounds failed -> pending retries per payment.
const MaxRetries = 3

var (
	// ErrNotFound is returned when a payment does not exist.
	ErrNotFound = errors.New("payment not found")
	// ErrAmountMismatch is returned when the supplied amount disagrees with
	// the stored order total. Mismatches hard-fail; they are never corrected.
	ErrAmountMismatch = errors.New("amount mismatch with order total")
	// ErrRetryLimitExceeded is returned when retry_count has reached MaxRetries.
	ErrRetryLimitExceeded = errors.New("maximum retry attempts reached")
	// ErrNotRetryable is returned when retrying a payment that is not failed.
	ErrNotRetryable = errors.New("only failed payments can be retried")
	// ErrNotRefundable is returned when refunding a payment that is not completed.
	ErrNotRefundable = errors.New("only completed payments can be refunded")
)

// Payment is a single payment attempt against an order. Amount is immutable
// after creation.
type Payment struct {
	ID            string
	OrderID       string
	Method        Method
	Amount        decimal.Decimal
	Status        Status
	TransactionID string
	RetryCount    int
	RefundReason  string
	PaidAt        *time.Time
	RefundedAt    *time.Time
	CreatedAt     time.Time
}

// EventType identifies an inbound provider event.
type EventType string

const (
	EventSucceeded EventType = "payment_intent.succeeded"
	EventFailed    EventType = "payment_intent.payment_failed"
)

// Event is an at-least-once notification from the external payment provider.
type Event struct {
	Type          EventType
	TransactionID string
	Metadata      map[string]string
}

// UnknownTransactionError indicates a provider event referencing a
// transaction this service has never issued.
type UnknownTransactionError struct {
	TransactionID string
}

func (e *UnknownTransactionError) Error() string {
	return fmt.Sprintf("no payment for transaction %s", e.TransactionID)
}

// Repository defines persistence for payments. The status mutations are
// conditional single-row updates so that redelivered events and concurrent
// operator actions cannot double-apply.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	GetByTransactionID(ctx context.Context, txID string) (*Payment, error)
	List(ctx context.Context, status Status, method Method, limit, offset int) ([]Payment, error)
	// MarkCompleted sets status=completed and stamps paid_at, only from
	// pending. Returns false when no row moved.
	MarkCompleted(ctx context.Context, txID string, paidAt time.Time) (bool, error)
	// MarkFailed sets status=failed, only from pending.
	MarkFailed(ctx context.Context, txID string) (bool, error)
	// Retry resets failed -> pending, increments retry_count, and swaps the
	// transaction ID, only while retry_count < MaxRetries.
	Retry(ctx context.Context, id, newTransactionID string) (bool, error)
	// Refund sets completed -> refunded and stamps refunded_at.
	Refund(ctx context.Context, id, reason string, refundedAt time.Time) (bool, error)
}
