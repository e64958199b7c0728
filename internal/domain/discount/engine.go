package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-core/internal/apperr"
	"github.com/xenking/checkout-core/internal/domain/auth"
)

var hundred = decimal.NewFromInt(100)

// Engine validates coupon codes against an order context and consumes the
// one-use-per-user entitlement.
type Engine struct {
	repo Repository
	now  func() time.Time
}

// NewEngine creates an Engine backed by the given repository.
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo, now: time.Now}
}

// ValidateAndApply resolves the code, checks activity, time window, and scope,
// then claims the usage for userID. The claim is a single conditional
// datastore mutation, so two concurrent calls for the same user resolve to
// exactly one success and one ErrAlreadyUsed.
func (e *Engine) ValidateAndApply(ctx context.Context, code, userID string, oc OrderContext) (*Applied, error) {
	c, err := e.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := e.checkApplicable(c, oc); err != nil {
		return nil, err
	}

	claimed, err := e.repo.ClaimUsage(ctx, c.ID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "claim coupon usage")
	}
	if !claimed {
		return nil, ErrAlreadyUsed
	}

	return &Applied{
		CouponID: c.ID,
		Code:     c.Code,
		Amount:   Compute(c.Type, c.Value, oc.OrderAmount),
	}, nil
}

// RemoveUsage removes a user from a coupon's used-by set. Admin only;
// idempotent when the user is absent.
func (e *Engine) RemoveUsage(ctx context.Context, principal auth.Principal, couponID, userID string) error {
	if !principal.IsAdmin() {
		return apperr.New(apperr.KindForbidden, "only admin can remove coupon usage")
	}
	if _, err := e.repo.FindByID(ctx, couponID); err != nil {
		return err
	}
	return e.repo.ReleaseUsage(ctx, couponID, userID)
}

func (e *Engine) checkApplicable(c *Coupon, oc OrderContext) error {
	if !c.Active {
		return ErrInactive
	}

	now := e.now()
	if now.Before(c.ValidFrom) || now.After(c.ValidTill) {
		return ErrOutOfWindow
	}

	switch c.Scope.Kind {
	case ScopeAll:
		return nil
	case ScopeProduct:
		if oc.ProductID == "" || oc.ProductID != c.Scope.TargetID {
			return ErrScopeMismatch
		}
	case ScopeCategory:
		if oc.CategoryID == "" || oc.CategoryID != c.Scope.TargetID {
			return ErrScopeMismatch
		}
	default:
		return errors.Errorf("unsupported coupon scope: %q", c.Scope.Kind)
	}
	return nil
}

// Compute returns the discount amount for the given type and value against
// orderAmount. Flat discounts are capped at the order amount; percentage
// discounts round half-up to 2 decimal places.
func Compute(t Type, value, orderAmount decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch t {
	case TypeFlat:
		amount = decimal.Min(value, orderAmount)
	case TypePercentage:
		amount = orderAmount.Mul(value).Div(hundred)
	default:
		return decimal.Zero
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}
