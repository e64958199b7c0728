package discount

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-core/internal/apperr"
	"github.com/xenking/checkout-core/internal/domain/auth"
)

// CreateCouponRequest holds the input for coupon creation.
type CreateCouponRequest struct {
	Code      string
	Type      Type
	Value     decimal.Decimal
	Scope     Scope
	ValidFrom time.Time
	ValidTill time.Time
	Active    bool
}

// CreateCoupon validates and persists a new coupon. Restricted to sellers
// and admins.
func (e *Engine) CreateCoupon(ctx context.Context, principal auth.Principal, req CreateCouponRequest) (*Coupon, error) {
	if principal.Role != auth.RoleSeller && principal.Role != auth.RoleAdmin {
		return nil, apperr.New(apperr.KindForbidden, "only sellers and admins can create coupons")
	}
	if req.Code == "" {
		return nil, apperr.New(apperr.KindValidation, "coupon code is required")
	}
	if req.Type != TypeFlat && req.Type != TypePercentage {
		return nil, apperr.New(apperr.KindValidation, "discount type must be flat or percentage")
	}
	if !req.Value.IsPositive() {
		return nil, apperr.New(apperr.KindValidation, "discount value must be positive")
	}
	if req.ValidTill.Before(req.ValidFrom) {
		return nil, apperr.New(apperr.KindValidation, "valid_till must not precede valid_from")
	}
	switch req.Scope.Kind {
	case ScopeAll:
		req.Scope.TargetID = ""
	case ScopeProduct, ScopeCategory:
		if req.Scope.TargetID == "" {
			return nil, apperr.New(apperr.KindValidation, "scoped coupons require a target entity id")
		}
	default:
		return nil, apperr.New(apperr.KindValidation, "applies_to must be all, category, or product")
	}

	c := &Coupon{
		ID:        uuid.New().String(),
		Code:      req.Code,
		Type:      req.Type,
		Value:     req.Value,
		Scope:     req.Scope,
		ValidFrom: req.ValidFrom,
		ValidTill: req.ValidTill,
		Active:    req.Active,
	}
	if err := e.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Toggle flips a coupon's active flag and returns the new state.
func (e *Engine) Toggle(ctx context.Context, principal auth.Principal, couponID string) (*Coupon, error) {
	if !principal.IsAdmin() {
		return nil, apperr.New(apperr.KindForbidden, "only admin can toggle coupons")
	}
	c, err := e.repo.FindByID(ctx, couponID)
	if err != nil {
		return nil, err
	}
	if _, err := e.repo.SetActive(ctx, couponID, !c.Active); err != nil {
		return nil, err
	}
	c.Active = !c.Active
	return c, nil
}

// ListActive returns coupons that are active and inside their validity window.
func (e *Engine) ListActive(ctx context.Context) ([]Coupon, error) {
	return e.repo.ListActive(ctx, e.now())
}
