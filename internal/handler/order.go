package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-core/internal/apperr"
	"github.com/xenking/checkout-core/internal/domain/order"
)

type orderItemRequest struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type createOrderRequest struct {
	SellerID   string             `json:"sellerId"`
	Items      []orderItemRequest `json:"items"`
	CouponCode string             `json:"couponCode,omitempty"`
}

type orderItemResponse struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type orderResponse struct {
	ID        string              `json:"id"`
	BuyerID   string              `json:"buyerId"`
	SellerID  string              `json:"sellerId"`
	Items     []orderItemResponse `json:"items"`
	Subtotal  decimal.Decimal     `json:"subtotal"`
	Discount  decimal.Decimal     `json:"discount"`
	Total     decimal.Decimal     `json:"total"`
	CouponID  string              `json:"couponId,omitempty"`
	Status    string              `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		}
	}
	return orderResponse{
		ID:        o.ID,
		BuyerID:   o.BuyerID,
		SellerID:  o.SellerID,
		Items:     items,
		Subtotal:  o.Subtotal,
		Discount:  o.Discount,
		Total:     o.Total,
		CouponID:  o.CouponID,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
	}
}

// CreateOrder places a new order for the authenticated buyer.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, r, apperr.New(apperr.KindForbidden, "unauthenticated"))
		return
	}

	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ItemRequest{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}

	o, err := h.orders.Create(r.Context(), principal, order.CreateRequest{
		SellerID:   req.SellerID,
		Items:      items,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(o))
}

// GetOrder fetches one order, subject to ownership checks.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, r, apperr.New(apperr.KindForbidden, "unauthenticated"))
		return
	}

	o, err := h.orders.Get(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

// ListOrders returns the caller's orders, paginated via limit/offset.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, r, apperr.New(apperr.KindForbidden, "unauthenticated"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	orders, err := h.orders.ListForBuyer(r.Context(), principal, limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i := range orders {
		resp[i] = toOrderResponse(&orders[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus transitions an order along the allowed lifecycle,
// subject to ownership checks.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, r, apperr.New(apperr.KindForbidden, "unauthenticated"))
		return
	}

	var req updateOrderStatusRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	o, err := h.orders.Transition(r.Context(), principal, r.PathValue("id"), order.Status(req.Status))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

// DeleteOrder removes an order with its payments and shipping records.
// Admin only.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, r, apperr.New(apperr.KindForbidden, "unauthenticated"))
		return
	}

	if err := h.orders.Delete(r.Context(), principal, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
