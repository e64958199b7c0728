package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-core/internal/domain/payment"
)

type createPaymentRequest struct {
	OrderID       string          `json:"orderId"`
	Method        string          `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId,omitempty"`
}

type paymentResponse struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"orderId"`
	Method        string          `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	TransactionID string          `json:"transactionId,omitempty"`
	RetryCount    int             `json:"retryCount"`
	RefundReason  string          `json:"refundReason,omitempty"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
	RefundedAt    *time.Time      `json:"refundedAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func toPaymentResponse(p *payment.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Method:        string(p.Method),
		Amount:        p.Amount,
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		RetryCount:    p.RetryCount,
		RefundReason:  p.RefundReason,
		PaidAt:        p.PaidAt,
		RefundedAt:    p.RefundedAt,
		CreatedAt:     p.CreatedAt,
	}
}

// CreatePayment opens a pending payment for an order.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	p, err := h.payments.Create(r.Context(), payment.CreateRequest{
		OrderID:       req.OrderID,
		Method:        payment.Method(req.Method),
		Amount:        req.Amount,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toPaymentResponse(p))
}

// GetPayment fetches one payment.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.payments.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toPaymentResponse(p))
}

// ListPayments returns payments filtered by optional status and method.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	payments, err := h.payments.List(r.Context(),
		payment.Status(q.Get("status")), payment.Method(q.Get("method")), limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]paymentResponse, len(payments))
	for i := range payments {
		resp[i] = toPaymentResponse(&payments[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

type retryPaymentRequest struct {
	TransactionID string `json:"transactionId,omitempty"`
}

// RetryPayment resets a failed payment to pending for another attempt.
func (h *Handler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	var req retryPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	p, err := h.payments.Retry(r.Context(), r.PathValue("id"), req.TransactionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toPaymentResponse(p))
}

type refundPaymentRequest struct {
	Reason string `json:"reason,omitempty"`
}

// RefundPayment refunds a completed payment. Inventory restock stays with
// the return workflow.
func (h *Handler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	var req refundPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	p, err := h.payments.Refund(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toPaymentResponse(p))
}
