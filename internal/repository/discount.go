package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-core/internal/domain/discount"
)

const (
	couponColumns = `id, code, discount_type, discount_value, applies_to,
		COALESCE(target_entity_id, ''), valid_from, valid_till, active, created_at`

	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE UPPER(code) = UPPER($1)`

	getCouponByIDSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	// The duplicate-use race is decided here: the append fires only when the
	// user is absent from used_by, in one statement.
	claimCouponUsageSQL = `UPDATE coupons SET used_by = array_append(used_by, $2)
		WHERE id = $1 AND NOT (used_by @> ARRAY[$2])`

	releaseCouponUsageSQL = `UPDATE coupons SET used_by = array_remove(used_by, $2) WHERE id = $1`

	createCouponSQL = `INSERT INTO coupons
		(id, code, discount_type, discount_value, applies_to, target_entity_id, valid_from, valid_till, active)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)`

	setCouponActiveSQL = `UPDATE coupons SET active = $2 WHERE id = $1`

	listActiveCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons
		WHERE active AND valid_from <= $1 AND valid_till >= $1
		ORDER BY valid_till`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive).
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*discount.Coupon, error) {
	return r.findOne(ctx, getCouponByCodeSQL, code)
}

// FindByID looks up a coupon by ID.
func (r *DiscountRepository) FindByID(ctx context.Context, id string) (*discount.Coupon, error) {
	return r.findOne(ctx, getCouponByIDSQL, id)
}

func (r *DiscountRepository) findOne(ctx context.Context, sql, arg string) (*discount.Coupon, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("finding coupon %q: %w", arg, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon %q: %w", arg, err)
	}
	return &c, nil
}

// ClaimUsage atomically appends userID to used_by unless already present.
// A zero row count means the user had already claimed the coupon.
func (r *DiscountRepository) ClaimUsage(ctx context.Context, couponID, userID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, claimCouponUsageSQL, couponID, userID)
	if err != nil {
		return false, fmt.Errorf("claiming coupon %q for user %q: %w", couponID, userID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReleaseUsage removes userID from used_by; idempotent when absent.
func (r *DiscountRepository) ReleaseUsage(ctx context.Context, couponID, userID string) error {
	if _, err := r.pool.Exec(ctx, releaseCouponUsageSQL, couponID, userID); err != nil {
		return fmt.Errorf("releasing coupon %q for user %q: %w", couponID, userID, err)
	}
	return nil
}

// Create persists a new coupon.
func (r *DiscountRepository) Create(ctx context.Context, c *discount.Coupon) error {
	_, err := r.pool.Exec(ctx, createCouponSQL,
		c.ID, c.Code, string(c.Type), c.Value, string(c.Scope.Kind), c.Scope.TargetID,
		c.ValidFrom, c.ValidTill, c.Active,
	)
	if err != nil {
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// SetActive flips a coupon's active flag.
func (r *DiscountRepository) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	tag, err := r.pool.Exec(ctx, setCouponActiveSQL, id, active)
	if err != nil {
		return false, fmt.Errorf("toggling coupon %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListActive returns coupons valid at the given instant, soonest-expiring
// first.
func (r *DiscountRepository) ListActive(ctx context.Context, now time.Time) ([]discount.Coupon, error) {
	rows, err := r.pool.Query(ctx, listActiveCouponsSQL, now)
	if err != nil {
		return nil, fmt.Errorf("listing active coupons: %w", err)
	}
	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, fmt.Errorf("listing active coupons: %w", err)
	}
	return coupons, nil
}

func scanCoupon(row pgx.CollectableRow) (discount.Coupon, error) {
	var (
		c            discount.Coupon
		discountType string
		value        decimal.Decimal
		appliesTo    string
		targetID     string
	)
	err := row.Scan(
		&c.ID, &c.Code, &discountType, &value, &appliesTo, &targetID,
		&c.ValidFrom, &c.ValidTill, &c.Active, &c.CreatedAt,
	)
	c.Type = discount.Type(discountType)
	c.Value = value
	c.Scope = discount.Scope{Kind: discount.ScopeKind(appliesTo), TargetID: targetID}
	return c, err
}
