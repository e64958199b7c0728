package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/xenking/checkout-core/internal/apperr"
	"github.com/xenking/checkout-core/internal/domain/auth"
	"github.com/xenking/checkout-core/internal/domain/inventory"
)

type createInventoryRequest struct {
	VariantID string `json:"variantId"`
	SellerID  string `json:"sellerId"`
	Quantity  int    `json:"quantity"`
}

type inventoryResponse struct {
	ID          string    `json:"id"`
	VariantID   string    `json:"variantId"`
	SellerID    string    `json:"sellerId"`
	Quantity    int       `json:"quantity"`
	LastUpdated time.Time `json:"lastUpdated"`
}

func toInventoryResponse(inv *inventory.Inventory) inventoryResponse {
	return inventoryResponse{
		ID:          inv.ID,
		VariantID:   inv.VariantID,
		SellerID:    inv.SellerID,
		Quantity:    inv.Quantity,
		LastUpdated: inv.LastUpdated,
	}
}

// CreateInventory registers a stock row for a (variant, seller) pair.
func (h *Handler) CreateInventory(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, r, apperr.New(apperr.KindForbidden, "unauthenticated"))
		return
	}

	var req createInventoryRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	inv, err := h.inventories.Create(r.Context(), principal, req.VariantID, req.SellerID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toInventoryResponse(inv))
}

// GetInventory fetches one stock row.
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	inv, err := h.inventories.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toInventoryResponse(inv))
}

type adjustInventoryRequest struct {
	Delta int `json:"delta"`
}

// AdjustInventory applies a signed stock delta. A delta that would drive the
// quantity negative is rejected without changing the row.
func (h *Handler) AdjustInventory(w http.ResponseWriter, r *http.Request) {
	var req adjustInventoryRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	inv, err := h.inventories.Adjust(r.Context(), r.PathValue("id"), req.Delta)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toInventoryResponse(inv))
}

type bulkAdjustRequest struct {
	Adjustments []bulkAdjustEntry `json:"adjustments"`
}

type bulkAdjustEntry struct {
	InventoryID string `json:"inventoryId"`
	Delta       int    `json:"delta"`
}

type bulkAdjustOutcome struct {
	InventoryID string `json:"inventoryId"`
	Quantity    int    `json:"quantity,omitempty"`
	Error       string `json:"error,omitempty"`
}

// BulkAdjustInventory applies many adjustments and reports per-entry
// outcomes. Entries fail independently; the response is always 200.
func (h *Handler) BulkAdjustInventory(w http.ResponseWriter, r *http.Request) {
	var req bulkAdjustRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if len(req.Adjustments) == 0 {
		respondError(w, r, apperr.New(apperr.KindValidation, "adjustments must not be empty"))
		return
	}

	adjustments := make([]inventory.Adjustment, len(req.Adjustments))
	for i, a := range req.Adjustments {
		adjustments[i] = inventory.Adjustment{InventoryID: a.InventoryID, Delta: a.Delta}
	}

	outcomes := h.inventories.BulkAdjust(r.Context(), adjustments)
	resp := make([]bulkAdjustOutcome, len(outcomes))
	for i, o := range outcomes {
		resp[i] = bulkAdjustOutcome{InventoryID: o.InventoryID, Quantity: o.Quantity}
		if o.Err != nil {
			resp[i].Error = o.Err.Error()
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// ListInventory returns the caller's stock rows. Sellers always see their
// own; admins may name any seller with ?sellerId=.
func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, r, apperr.New(apperr.KindForbidden, "unauthenticated"))
		return
	}

	sellerID := principal.ID
	if principal.Role == auth.RoleAdmin {
		if q := r.URL.Query().Get("sellerId"); q != "" {
			sellerID = q
		}
	}

	rows, err := h.inventories.ListBySeller(r.Context(), sellerID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]inventoryResponse, len(rows))
	for i := range rows {
		resp[i] = toInventoryResponse(&rows[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// ListLowStock returns rows at or below the threshold query parameter.
func (h *Handler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	threshold, _ := strconv.Atoi(r.URL.Query().Get("threshold"))

	rows, err := h.inventories.ListLowStock(r.Context(), threshold)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]inventoryResponse, len(rows))
	for i := range rows {
		resp[i] = toInventoryResponse(&rows[i])
	}
	respondJSON(w, http.StatusOK, resp)
}
