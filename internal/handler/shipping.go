package handler

import (
	"net/http"
	"time"

	"github.com/xenking/checkout-core/internal/apperr"
	"github.com/xenking/checkout-core/internal/domain/shipping"
)

type createShippingRequest struct {
	OrderID           string     `json:"orderId"`
	AddressID         string     `json:"addressId"`
	TrackingID        string     `json:"trackingId,omitempty"`
	Carrier           string     `json:"carrier,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
}

type shippingResponse struct {
	ID                string     `json:"id"`
	OrderID           string     `json:"orderId"`
	AddressID         string     `json:"addressId"`
	TrackingID        string     `json:"trackingId,omitempty"`
	Carrier           string     `json:"carrier,omitempty"`
	Status            string     `json:"status"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
	DeliveredAt       *time.Time `json:"deliveredAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func toShippingResponse(sh *shipping.Shipping) shippingResponse {
	return shippingResponse{
		ID:                sh.ID,
		OrderID:           sh.OrderID,
		AddressID:         sh.AddressID,
		TrackingID:        sh.TrackingID,
		Carrier:           sh.Carrier,
		Status:            string(sh.Status),
		EstimatedDelivery: sh.EstimatedDelivery,
		DeliveredAt:       sh.DeliveredAt,
		CreatedAt:         sh.CreatedAt,
	}
}

// CreateShipping opens a shipping record for a confirmed or shipped order.
func (h *Handler) CreateShipping(w http.ResponseWriter, r *http.Request) {
	var req createShippingRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	sh, err := h.shippings.Create(r.Context(), shipping.CreateRequest{
		OrderID:           req.OrderID,
		AddressID:         req.AddressID,
		TrackingID:        req.TrackingID,
		Carrier:           req.Carrier,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toShippingResponse(sh))
}

// GetShipping fetches one shipping record.
func (h *Handler) GetShipping(w http.ResponseWriter, r *http.Request) {
	sh, err := h.shippings.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toShippingResponse(sh))
}

type updateShippingStatusRequest struct {
	Status      string     `json:"status"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
}

// UpdateShippingStatus applies a carrier status update. Delivered and
// cancelled records are final.
func (h *Handler) UpdateShippingStatus(w http.ResponseWriter, r *http.Request) {
	var req updateShippingStatusRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	sh, err := h.shippings.UpdateStatus(r.Context(), r.PathValue("id"),
		shipping.Status(req.Status), req.DeliveredAt)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toShippingResponse(sh))
}

// SoftDeleteShipping hides a record. Admin only.
func (h *Handler) SoftDeleteShipping(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, r, apperr.New(apperr.KindForbidden, "unauthenticated"))
		return
	}

	if err := h.shippings.SoftDelete(r.Context(), principal, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreShipping undoes a soft delete. Admin only.
func (h *Handler) RestoreShipping(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, r, apperr.New(apperr.KindForbidden, "unauthenticated"))
		return
	}

	if err := h.shippings.Restore(r.Context(), principal, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
