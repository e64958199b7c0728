package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/checkout-core/internal/domain/order"
	"github.com/xenking/checkout-core/internal/domain/payment"
)

// --- Mock repositories ---

type mockPaymentRepo struct {
	byTxID map[string]*payment.Payment

	completedCalls []string
	failedCalls    []string
}

func (m *mockPaymentRepo) Create(_ context.Context, _ *payment.Payment) error { return nil }

func (m *mockPaymentRepo) GetByID(_ context.Context, _ string) (*payment.Payment, error) {
	return nil, payment.ErrNotFound
}

func (m *mockPaymentRepo) GetByTransactionID(_ context.Context, txID string) (*payment.Payment, error) {
	p, ok := m.byTxID[txID]
	if !ok {
		return nil, payment.ErrNotFound
	}
	return p, nil
}

func (m *mockPaymentRepo) List(_ context.Context, _ payment.Status, _ payment.Method, _, _ int) ([]payment.Payment, error) {
	return nil, nil
}

func (m *mockPaymentRepo) MarkCompleted(_ context.Context, txID string, paidAt time.Time) (bool, error) {
	m.completedCalls = append(m.completedCalls, txID)
	p, ok := m.byTxID[txID]
	if !ok || p.Status != payment.StatusPending {
		return false, nil
	}
	p.Status = payment.StatusCompleted
	p.PaidAt = &paidAt
	return true, nil
}

func (m *mockPaymentRepo) MarkFailed(_ context.Context, txID string) (bool, error) {
	m.failedCalls = append(m.failedCalls, txID)
	p, ok := m.byTxID[txID]
	if !ok || p.Status != payment.StatusPending {
		return false, nil
	}
	p.Status = payment.StatusFailed
	return true, nil
}

func (m *mockPaymentRepo) Retry(_ context.Context, _, _ string) (bool, error) { return false, nil }

func (m *mockPaymentRepo) Refund(_ context.Context, _, _ string, _ time.Time) (bool, error) {
	return false, nil
}

type mockOrderRepo struct {
	byID map[string]*order.Order
}

func (m *mockOrderRepo) Create(_ context.Context, _ *order.Order) error { return nil }

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) ListByBuyer(_ context.Context, _ string, _, _ int) ([]order.Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, from, to order.Status) (bool, error) {
	o, ok := m.byID[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (m *mockOrderRepo) DeleteCascade(_ context.Context, _ string) error { return nil }

// --- Helpers ---

var webhookSecret = []byte("test-secret")

func newWebhookHandler(payments *mockPaymentRepo, orders *mockOrderRepo) *Handler {
	return &Handler{
		payments:      payment.NewService(payments, orders),
		webhookSecret: webhookSecret,
	}
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, webhookSecret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func webhookBody(eventType, txID string) []byte {
	body, _ := json.Marshal(map[string]any{
		"id":   "evt_1",
		"type": eventType,
		"data": map[string]any{
			"object": map[string]any{
				"id":     txID,
				"status": "whatever",
			},
		},
	})
	return body
}

func postWebhook(t *testing.T, h *Handler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	rec := httptest.NewRecorder()
	h.PaymentWebhook(rec, req)
	return rec
}

// --- Tests ---

func TestPaymentWebhook_RejectsBadSignature(t *testing.T) {
	payments := &mockPaymentRepo{byTxID: map[string]*payment.Payment{
		"tx-1": {ID: "pay-1", OrderID: "o1", Status: payment.StatusPending, TransactionID: "tx-1"},
	}}
	h := newWebhookHandler(payments, &mockOrderRepo{})
	body := webhookBody("payment_intent.succeeded", "tx-1")

	tests := []struct {
		name      string
		signature string
	}{
		{"missing signature", ""},
		{"garbage signature", "not-hex"},
		{"wrong signature", signBody([]byte("different body"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postWebhook(t, h, body, tt.signature)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, payments.completedCalls, "unverified event must never reach the service")
		})
	}
}

func TestPaymentWebhook_SucceededConfirmsOrder(t *testing.T) {
	payments := &mockPaymentRepo{byTxID: map[string]*payment.Payment{
		"tx-1": {ID: "pay-1", OrderID: "o1", Status: payment.StatusPending, TransactionID: "tx-1"},
	}}
	orders := &mockOrderRepo{byID: map[string]*order.Order{
		"o1": {ID: "o1", Status: order.StatusPending},
	}}
	h := newWebhookHandler(payments, orders)
	body := webhookBody("payment_intent.succeeded", "tx-1")

	rec := postWebhook(t, h, body, signBody(body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payment.StatusCompleted, payments.byTxID["tx-1"].Status)
	assert.Equal(t, order.StatusConfirmed, orders.byID["o1"].Status)
}

func TestPaymentWebhook_ReplayReturnsOK(t *testing.T) {
	payments := &mockPaymentRepo{byTxID: map[string]*payment.Payment{
		"tx-1": {ID: "pay-1", OrderID: "o1", Status: payment.StatusPending, TransactionID: "tx-1"},
	}}
	orders := &mockOrderRepo{byID: map[string]*order.Order{
		"o1": {ID: "o1", Status: order.StatusPending},
	}}
	h := newWebhookHandler(payments, orders)
	body := webhookBody("payment_intent.succeeded", "tx-1")
	sig := signBody(body)

	first := postWebhook(t, h, body, sig)
	require.Equal(t, http.StatusOK, first.Code)
	paidAt := *payments.byTxID["tx-1"].PaidAt

	second := postWebhook(t, h, body, sig)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, paidAt, *payments.byTxID["tx-1"].PaidAt)
}

func TestPaymentWebhook_FailedLeavesOrderAlone(t *testing.T) {
	payments := &mockPaymentRepo{byTxID: map[string]*payment.Payment{
		"tx-1": {ID: "pay-1", OrderID: "o1", Status: payment.StatusPending, TransactionID: "tx-1"},
	}}
	orders := &mockOrderRepo{byID: map[string]*order.Order{
		"o1": {ID: "o1", Status: order.StatusPending},
	}}
	h := newWebhookHandler(payments, orders)
	body := webhookBody("payment_intent.payment_failed", "tx-1")

	rec := postWebhook(t, h, body, signBody(body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payment.StatusFailed, payments.byTxID["tx-1"].Status)
	assert.Equal(t, order.StatusPending, orders.byID["o1"].Status)
}

func TestPaymentWebhook_UnknownTypeIgnored(t *testing.T) {
	payments := &mockPaymentRepo{byTxID: map[string]*payment.Payment{}}
	h := newWebhookHandler(payments, &mockOrderRepo{})
	body := webhookBody("payment_intent.created", "tx-1")

	rec := postWebhook(t, h, body, signBody(body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, payments.completedCalls)
	assert.Empty(t, payments.failedCalls)
}

func TestPaymentWebhook_UnknownTransactionAcknowledged(t *testing.T) {
	payments := &mockPaymentRepo{byTxID: map[string]*payment.Payment{}}
	h := newWebhookHandler(payments, &mockOrderRepo{})
	body := webhookBody("payment_intent.succeeded", "tx-ghost")

	rec := postWebhook(t, h, body, signBody(body))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ignored", resp["status"])
}

func TestPaymentWebhook_MalformedBody(t *testing.T) {
	h := newWebhookHandler(&mockPaymentRepo{byTxID: map[string]*payment.Payment{}}, &mockOrderRepo{})
	body := []byte(`{"type": 42}`)

	rec := postWebhook(t, h, body, signBody(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
