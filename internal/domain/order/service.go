package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-core/internal/apperr"
	"github.com/xenking/checkout-core/internal/domain/auth"
	"github.com/xenking/checkout-core/internal/domain/catalog"
	"github.com/xenking/checkout-core/internal/domain/discount"
)

// DiscountEngine is the slice of the discount engine the order service needs.
type DiscountEngine interface {
	ValidateAndApply(ctx context.Context, code, userID string, oc discount.OrderContext) (*discount.Applied, error)
}

// CreateRequest holds the input for placing an order. Submitted unit prices
// are advisory only: they are checked against the catalog, never trusted.
type CreateRequest struct {
	SellerID   string
	Items      []ItemRequest
	CouponCode string
}

// ItemRequest is a requested order line.
type ItemRequest struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Service encapsulates order placement and lifecycle logic.
type Service struct {
	products       catalog.Repository
	discounts      DiscountEngine
	orders         Repository
	priceTolerance decimal.Decimal
}

// NewService creates an order Service. priceTolerance is the maximum
// absolute difference allowed between a submitted unit price and the
// current catalog price.
func NewService(
	products catalog.Repository,
	discounts DiscountEngine,
	orders Repository,
	priceTolerance decimal.Decimal,
) *Service {
	return &Service{
		products:       products,
		discounts:      discounts,
		orders:         orders,
		priceTolerance: priceTolerance,
	}
}

// Create validates items against the catalog, applies an optional coupon,
// and persists the order in pending status. The persisted invariant is
// total == sum(item subtotals) - discount.
func (s *Service) Create(ctx context.Context, buyer auth.Principal, req CreateRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	productMap := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	// Price every line from the catalog; the submitted price only gates
	// stale-cart detection.
	items := make([]LineItem, len(req.Items))
	subtotal := decimal.Zero
	for i, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &catalog.NotFoundError{ProductID: item.ProductID}
		}
		if item.UnitPrice.Sub(p.Price).Abs().GreaterThan(s.priceTolerance) {
			return nil, &PriceMismatchError{
				ProductID: item.ProductID,
				Submitted: item.UnitPrice,
				Current:   p.Price,
			}
		}

		line := p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		items[i] = LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
			Subtotal:  line,
		}
		subtotal = subtotal.Add(line)
	}

	// Apply coupon when a code is provided. The usage claim happens here;
	// a later persistence failure is surfaced to the caller, who may retry
	// after an admin releases the usage.
	discountAmount := decimal.Zero
	couponID := ""
	if req.CouponCode != "" {
		// Scoped coupons resolve against single-line orders only; the scope
		// target of a multi-line order is ambiguous.
		oc := discount.OrderContext{OrderAmount: subtotal}
		if len(items) == 1 {
			oc.ProductID = items[0].ProductID
			oc.CategoryID = productMap[items[0].ProductID].CategoryID
		}
		applied, err := s.discounts.ValidateAndApply(ctx, req.CouponCode, buyer.ID, oc)
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
		discountAmount = applied.Amount
		couponID = applied.CouponID
	}

	total := subtotal.Sub(discountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	o := &Order{
		ID:       uuid.New().String(),
		BuyerID:  buyer.ID,
		SellerID: req.SellerID,
		Items:    items,
		Subtotal: subtotal.Round(2),
		Discount: discountAmount.Round(2),
		Total:    total.Round(2),
		CouponID: couponID,
		Status:   StatusPending,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// Transition moves an order to target if the allow-list permits it. Illegal
// transitions fail with InvalidTransitionError and leave the order unchanged.
// Admins transition any order, sellers only their own, and buyers may only
// cancel orders they placed.
func (s *Service) Transition(ctx context.Context, principal auth.Principal, id string, target Status) (*Order, error) {
	if !target.Valid() {
		return nil, apperr.New(apperr.KindValidation, "invalid order status")
	}

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeTransition(principal, o, target); err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(target) {
		return nil, &InvalidTransitionError{From: o.Status, To: target}
	}

	applied, err := s.orders.UpdateStatus(ctx, id, o.Status, target)
	if err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	if !applied {
		// A concurrent transition won; re-read and report against the
		// current state.
		cur, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &InvalidTransitionError{From: cur.Status, To: target}
	}

	o.Status = target
	return o, nil
}

func authorizeTransition(principal auth.Principal, o *Order, target Status) error {
	switch principal.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleSeller:
		if o.SellerID != principal.ID {
			return apperr.New(apperr.KindForbidden, "order belongs to another seller")
		}
		return nil
	case auth.RoleBuyer:
		if o.BuyerID != principal.ID {
			return apperr.New(apperr.KindForbidden, "order belongs to another buyer")
		}
		if target != StatusCancelled {
			return apperr.New(apperr.KindForbidden, "buyers may only cancel their orders")
		}
		return nil
	default:
		return apperr.New(apperr.KindForbidden, "unknown role")
	}
}

// Get fetches an order. Buyers only see their own orders; sellers and
// admins see everything for their scope.
func (s *Service) Get(ctx context.Context, principal auth.Principal, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if principal.Role == auth.RoleBuyer && o.BuyerID != principal.ID {
		return nil, apperr.New(apperr.KindForbidden, "order belongs to another buyer")
	}
	return o, nil
}

// ListForBuyer returns the caller's orders, newest first.
func (s *Service) ListForBuyer(ctx context.Context, principal auth.Principal, limit, offset int) ([]Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.orders.ListByBuyer(ctx, principal.ID, limit, offset)
}

// Delete removes an order and its dependent payment and shipping rows in a
// single transaction. Admin only; coupons are never cascaded.
func (s *Service) Delete(ctx context.Context, principal auth.Principal, id string) error {
	if !principal.IsAdmin() {
		return apperr.New(apperr.KindForbidden, "only admin can delete orders")
	}
	if _, err := s.orders.GetByID(ctx, id); err != nil {
		return err
	}
	return s.orders.DeleteCascade(ctx, id)
}
