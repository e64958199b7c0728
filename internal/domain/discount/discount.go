// Package discount implements coupon validation, scoped discount computation,
// and the atomic single-use-per-user claim.
package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported coupon discount strategies.
type Type string

const (
	// TypeFlat subtracts a fixed amount, floored at zero.
	TypeFlat Type = "flat"
	// TypePercentage subtracts a percentage of the order amount.
	TypePercentage Type = "percentage"
)

// ScopeKind tags what a coupon applies to.
type ScopeKind string

const (
	ScopeAll      ScopeKind = "all"
	ScopeCategory ScopeKind = "category"
	ScopeProduct  ScopeKind = "product"
)

// Scope is the tagged union {kind, target}. TargetID is empty when Kind is
// ScopeAll and otherwise names the product or category the coupon is bound to.
type Scope struct {
	Kind     ScopeKind
	TargetID string
}

var (
	// ErrNotFound is returned when a coupon code does not resolve.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when a coupon exists but is switched off.
	ErrInactive = errors.New("coupon is inactive")
	// ErrOutOfWindow is returned outside [ValidFrom, ValidTill].
	ErrOutOfWindow = errors.New("coupon is not valid at this time")
	// ErrAlreadyUsed is returned when the user has already consumed the coupon.
	ErrAlreadyUsed = errors.New("coupon already used by this user")
	// ErrScopeMismatch is returned when the order context does not match the
	// coupon's target product or category.
	ErrScopeMismatch = errors.New("coupon not valid for this product or category")
)

// Coupon is a code entitling a one-time, scoped price reduction.
type Coupon struct {
	ID        string
	Code      string
	Type      Type
	Value     decimal.Decimal
	Scope     Scope
	ValidFrom time.Time
	ValidTill time.Time
	Active    bool
	CreatedAt time.Time
}

// Applied is the result of a successful coupon application.
type Applied struct {
	CouponID string
	Code     string
	Amount   decimal.Decimal
}

// OrderContext carries the order-side inputs of a coupon application.
// ProductID and CategoryID are optional and only consulted for scoped coupons.
type OrderContext struct {
	ProductID   string
	CategoryID  string
	OrderAmount decimal.Decimal
}

// Repository provides coupon persistence. ClaimUsage and ReleaseUsage must be
// single conditional mutations: the duplicate-use race is decided by the
// datastore, never by a read-then-write pair in Go.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	FindByID(ctx context.Context, id string) (*Coupon, error)
	// ClaimUsage appends userID to the coupon's used-by set only if absent.
	// Returns false when the user had already claimed it.
	ClaimUsage(ctx context.Context, couponID, userID string) (bool, error)
	// ReleaseUsage removes userID from the used-by set; no-op when absent.
	ReleaseUsage(ctx context.Context, couponID, userID string) error
	Create(ctx context.Context, c *Coupon) error
	SetActive(ctx context.Context, id string, active bool) (bool, error)
	ListActive(ctx context.Context, now time.Time) ([]Coupon, error)
}
