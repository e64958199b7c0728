package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/checkout-core/internal/domain/payment"
)

const (
	paymentColumns = `id, order_id, method, amount, status,
		COALESCE(transaction_id, ''), retry_count, COALESCE(refund_reason, ''),
		paid_at, refunded_at, created_at`

	createPaymentSQL = `INSERT INTO payments
		(id, order_id, method, amount, status, transaction_id, retry_count)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)`

	getPaymentSQL = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	getPaymentByTxSQL = `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`

	listPaymentsSQL = `SELECT ` + paymentColumns + ` FROM payments
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR method = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`

	// Webhook idempotence: a redelivered succeeded event matches zero rows
	// and leaves paid_at untouched.
	markCompletedSQL = `UPDATE payments SET status = 'completed', paid_at = $2, updated_at = now()
		WHERE transaction_id = $1 AND status = 'pending'`

	markFailedSQL = `UPDATE payments SET status = 'failed', updated_at = now()
		WHERE transaction_id = $1 AND status = 'pending'`

	// The retry bound lives in the predicate; a payment at the cap matches
	// zero rows.
	retryPaymentSQL = `UPDATE payments
		SET status = 'pending', retry_count = retry_count + 1, transaction_id = $2, updated_at = now()
		WHERE id = $1 AND status = 'failed' AND retry_count < $3`

	refundPaymentSQL = `UPDATE payments
		SET status = 'refunded', refund_reason = $2, refunded_at = $3, updated_at = now()
		WHERE id = $1 AND status = 'completed'`
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// Create persists a new payment attempt.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	_, err := r.pool.Exec(ctx, createPaymentSQL,
		p.ID, p.OrderID, string(p.Method), p.Amount, string(p.Status),
		p.TransactionID, p.RetryCount,
	)
	if err != nil {
		return fmt.Errorf("creating payment %q: %w", p.ID, err)
	}
	return nil
}

// GetByID fetches one payment.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*payment.Payment, error) {
	return r.findOne(ctx, getPaymentSQL, id)
}

// GetByTransactionID fetches the payment correlated with an external
// transaction.
func (r *PaymentRepository) GetByTransactionID(ctx context.Context, txID string) (*payment.Payment, error) {
	return r.findOne(ctx, getPaymentByTxSQL, txID)
}

func (r *PaymentRepository) findOne(ctx context.Context, sql, arg string) (*payment.Payment, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("finding payment %q: %w", arg, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPayment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, fmt.Errorf("finding payment %q: %w", arg, err)
	}
	return &p, nil
}

// List returns payments filtered by optional status and method, newest first.
func (r *PaymentRepository) List(ctx context.Context, status payment.Status, method payment.Method, limit, offset int) ([]payment.Payment, error) {
	rows, err := r.pool.Query(ctx, listPaymentsSQL, string(status), string(method), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	payments, err := pgx.CollectRows(rows, scanPayment)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	return payments, nil
}

// MarkCompleted conditionally moves pending -> completed by transaction ID.
func (r *PaymentRepository) MarkCompleted(ctx context.Context, txID string, paidAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, markCompletedSQL, txID, paidAt)
	if err != nil {
		return false, fmt.Errorf("completing payment tx %q: %w", txID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkFailed conditionally moves pending -> failed by transaction ID.
func (r *PaymentRepository) MarkFailed(ctx context.Context, txID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, markFailedSQL, txID)
	if err != nil {
		return false, fmt.Errorf("failing payment tx %q: %w", txID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Retry conditionally resets failed -> pending while under the retry cap.
func (r *PaymentRepository) Retry(ctx context.Context, id, newTransactionID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, retryPaymentSQL, id, newTransactionID, payment.MaxRetries)
	if err != nil {
		return false, fmt.Errorf("retrying payment %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Refund conditionally moves completed -> refunded.
func (r *PaymentRepository) Refund(ctx context.Context, id, reason string, refundedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, refundPaymentSQL, id, reason, refundedAt)
	if err != nil {
		return false, fmt.Errorf("refunding payment %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanPayment(row pgx.CollectableRow) (payment.Payment, error) {
	var (
		p      payment.Payment
		method string
		status string
	)
	err := row.Scan(
		&p.ID, &p.OrderID, &method, &p.Amount, &status,
		&p.TransactionID, &p.RetryCount, &p.RefundReason,
		&p.PaidAt, &p.RefundedAt, &p.CreatedAt,
	)
	p.Method = payment.Method(method)
	p.Status = payment.Status(status)
	return p, err
}
