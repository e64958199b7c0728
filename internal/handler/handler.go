// Package handler exposes the checkout core over HTTP. Handlers decode
// transport input, resolve the principal, and delegate to domain services;
// all error mapping funnels through the apperr taxonomy.
package handler

import (
	"net/http"

	"github.com/xenking/checkout-core/internal/domain/discount"
	"github.com/xenking/checkout-core/internal/domain/inventory"
	"github.com/xenking/checkout-core/internal/domain/order"
	"github.com/xenking/checkout-core/internal/domain/payment"
	"github.com/xenking/checkout-core/internal/domain/shipping"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// WebhookSecret is the shared secret for provider webhook signatures.
	WebhookSecret []byte
}

// Handler wires the domain services to their routes.
type Handler struct {
	orders      *order.Service
	payments    *payment.Service
	discounts   *discount.Engine
	inventories *inventory.Service
	shippings   *shipping.Service

	webhookSecret []byte
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	orders *order.Service,
	payments *payment.Service,
	discounts *discount.Engine,
	inventories *inventory.Service,
	shippings *shipping.Service,
) *Handler {
	return &Handler{
		orders:        orders,
		payments:      payments,
		discounts:     discounts,
		inventories:   inventories,
		shippings:     shippings,
		webhookSecret: cfg.WebhookSecret,
	}
}

// Register mounts the API routes on mux. Every /api route requires a valid
// API key; the webhook route is authenticated by signature instead.
func (h *Handler) Register(mux *http.ServeMux, sec *SecurityHandler) {
	api := func(fn http.HandlerFunc) http.Handler {
		return sec.Authenticate(fn)
	}

	mux.Handle("POST /api/orders", api(h.CreateOrder))
	mux.Handle("GET /api/orders", api(h.ListOrders))
	mux.Handle("GET /api/orders/{id}", api(h.GetOrder))
	mux.Handle("PATCH /api/orders/{id}/status", api(h.UpdateOrderStatus))
	mux.Handle("DELETE /api/orders/{id}", api(h.DeleteOrder))

	mux.Handle("POST /api/payments", api(h.CreatePayment))
	mux.Handle("GET /api/payments", api(h.ListPayments))
	mux.Handle("GET /api/payments/{id}", api(h.GetPayment))
	mux.Handle("PATCH /api/payments/{id}/retry", api(h.RetryPayment))
	mux.Handle("PATCH /api/payments/{id}/refund", api(h.RefundPayment))

	mux.Handle("POST /api/discounts", api(h.CreateCoupon))
	mux.Handle("POST /api/discounts/apply", api(h.ApplyCoupon))
	mux.Handle("GET /api/discounts/active", api(h.ListActiveCoupons))
	mux.Handle("PATCH /api/discounts/{id}/toggle", api(h.ToggleCoupon))
	mux.Handle("DELETE /api/discounts/{id}/users/{userId}", api(h.RemoveCouponUsage))

	mux.Handle("POST /api/inventory", api(h.CreateInventory))
	mux.Handle("GET /api/inventory", api(h.ListInventory))
	mux.Handle("GET /api/inventory/low-stock", api(h.ListLowStock))
	mux.Handle("GET /api/inventory/{id}", api(h.GetInventory))
	mux.Handle("PATCH /api/inventory/{id}/adjust", api(h.AdjustInventory))
	mux.Handle("POST /api/inventory/bulk-adjust", api(h.BulkAdjustInventory))

	mux.Handle("POST /api/shipping", api(h.CreateShipping))
	mux.Handle("GET /api/shipping/{id}", api(h.GetShipping))
	mux.Handle("PATCH /api/shipping/{id}/status", api(h.UpdateShippingStatus))
	mux.Handle("DELETE /api/shipping/{id}", api(h.SoftDeleteShipping))
	mux.Handle("POST /api/shipping/{id}/restore", api(h.RestoreShipping))

	mux.HandleFunc("POST /webhooks/payment", h.PaymentWebhook)
}
