package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/checkout-core/internal/apperr"
	"github.com/xenking/checkout-core/internal/domain/catalog"
	"github.com/xenking/checkout-core/internal/domain/discount"
	"github.com/xenking/checkout-core/internal/domain/inventory"
	"github.com/xenking/checkout-core/internal/domain/order"
	"github.com/xenking/checkout-core/internal/domain/payment"
	"github.com/xenking/checkout-core/internal/domain/shipping"
)

// errorResponse is the wire shape of every failure.
type errorResponse struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError maps err through the taxonomy. Unclassified errors become
// opaque 500s; details go to the log, never to the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := classify(err)
	status := statusOf(kind)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		msg = "internal server error"
	}

	respondJSON(w, status, errorResponse{
		Code:    status,
		Kind:    string(kind),
		Message: msg,
	})
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindExternalIntegrity:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// classify folds domain sentinel and typed errors into the taxonomy.
func classify(err error) apperr.Kind {
	if kind, ok := apperr.KindOf(err); ok {
		return kind
	}

	switch {
	case errors.Is(err, discount.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, payment.ErrNotFound),
		errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, shipping.ErrNotFound):
		return apperr.KindNotFound

	case errors.Is(err, discount.ErrAlreadyUsed),
		errors.Is(err, payment.ErrAmountMismatch),
		errors.Is(err, payment.ErrRetryLimitExceeded),
		errors.Is(err, payment.ErrNotRetryable),
		errors.Is(err, payment.ErrNotRefundable),
		errors.Is(err, inventory.ErrNegativeStock),
		errors.Is(err, shipping.ErrOrderNotShippable),
		errors.Is(err, shipping.ErrTerminal):
		return apperr.KindConflict

	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, discount.ErrInactive),
		errors.Is(err, discount.ErrOutOfWindow),
		errors.Is(err, discount.ErrScopeMismatch):
		return apperr.KindValidation
	}

	var (
		notFound      *catalog.NotFoundError
		badQty        *order.InvalidQuantityError
		priceMismatch *order.PriceMismatchError
		badTransition *order.InvalidTransitionError
		dupInventory  *inventory.DuplicateError
	)
	switch {
	case errors.As(err, &notFound):
		return apperr.KindNotFound
	case errors.As(err, &badQty):
		return apperr.KindValidation
	case errors.As(err, &priceMismatch),
		errors.As(err, &badTransition),
		errors.As(err, &dupInventory):
		return apperr.KindConflict
	}

	return ""
}

// decodeBody decodes a JSON request body into v, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, errors.Wrap(err, "decode request body"))
	}
	return nil
}
