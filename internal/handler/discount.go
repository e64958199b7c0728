package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-core/internal/apperr"
	"github.com/xenking/checkout-core/internal/domain/discount"
)

type createCouponRequest struct {
	Code           string          `json:"code"`
	DiscountType   string          `json:"discountType"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
	AppliesTo      string          `json:"appliesTo"`
	TargetEntityID string          `json:"targetEntityId,omitempty"`
	ValidFrom      time.Time       `json:"validFrom"`
	ValidTill      time.Time       `json:"validTill"`
	Active         bool            `json:"active"`
}

type couponResponse struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	DiscountType   string          `json:"discountType"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
	AppliesTo      string          `json:"appliesTo"`
	TargetEntityID string          `json:"targetEntityId,omitempty"`
	ValidFrom      time.Time       `json:"validFrom"`
	ValidTill      time.Time       `json:"validTill"`
	Active         bool            `json:"active"`
}

func toCouponResponse(c *discount.Coupon) couponResponse {
	return couponResponse{
		ID:             c.ID,
		Code:           c.Code,
		DiscountType:   string(c.Type),
		DiscountValue:  c.Value,
		AppliesTo:      string(c.Scope.Kind),
		TargetEntityID: c.Scope.TargetID,
		ValidFrom:      c.ValidFrom,
		ValidTill:      c.ValidTill,
		Active:         c.Active,
	}
}

// CreateCoupon registers a new coupon. Sellers and admins only.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, r, apperr.New(apperr.KindForbidden, "unauthenticated"))
		return
	}

	var req createCouponRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	c, err := h.discounts.CreateCoupon(r.Context(), principal, discount.CreateCouponRequest{
		Code:  req.Code,
		Type:  discount.Type(req.DiscountType),
		Value: req.DiscountValue,
		Scope: discount.Scope{
			Kind:     discount.ScopeKind(req.AppliesTo),
			TargetID: req.TargetEntityID,
		},
		ValidFrom: req.ValidFrom,
		ValidTill: req.ValidTill,
		Active:    req.Active,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCouponResponse(c))
}

type applyCouponRequest struct {
	Code        string          `json:"code"`
	OrderAmount decimal.Decimal `json:"orderAmount"`
	ProductID   string          `json:"productId,omitempty"`
	CategoryID  string          `json:"categoryId,omitempty"`
}

type applyCouponResponse struct {
	CouponID       string          `json:"couponId"`
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// ApplyCoupon validates a code against an order context and claims the
// caller's usage. A successful response means the entitlement is consumed.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, r, apperr.New(apperr.KindForbidden, "unauthenticated"))
		return
	}

	var req applyCouponRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	applied, err := h.discounts.ValidateAndApply(r.Context(), req.Code, principal.ID, discount.OrderContext{
		ProductID:   req.ProductID,
		CategoryID:  req.CategoryID,
		OrderAmount: req.OrderAmount,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, applyCouponResponse{
		CouponID:       applied.CouponID,
		Code:           applied.Code,
		DiscountAmount: applied.Amount,
	})
}

// ListActiveCoupons returns coupons usable right now.
func (h *Handler) ListActiveCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.discounts.ListActive(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]couponResponse, len(coupons))
	for i := range coupons {
		resp[i] = toCouponResponse(&coupons[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// ToggleCoupon flips a coupon's active flag. Admin only.
func (h *Handler) ToggleCoupon(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, r, apperr.New(apperr.KindForbidden, "unauthenticated"))
		return
	}

	c, err := h.discounts.Toggle(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCouponResponse(c))
}

// RemoveCouponUsage releases a user's claim on a coupon. Admin only.
func (h *Handler) RemoveCouponUsage(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, r, apperr.New(apperr.KindForbidden, "unauthenticated"))
		return
	}

	err := h.discounts.RemoveUsage(r.Context(), principal, r.PathValue("id"), r.PathValue("userId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
