package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/checkout-core/internal/apperr"
	"github.com/xenking/checkout-core/internal/domain/payment"
)

// maxWebhookBody bounds how much of a provider payload is read.
const maxWebhookBody = 1 << 20

// PaymentWebhook ingests provider payment events. The signature over the raw
// body is verified before any parsing; an unverifiable request is rejected
// outright. Verified events with unknown types are acknowledged and ignored
// so the provider stops redelivering them.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, r, apperr.New(apperr.KindExternalIntegrity, "unreadable webhook body"))
		return
	}

	if !h.verifyWebhookSignature(r.Header.Get("X-Webhook-Signature"), body) {
		respondError(w, r, apperr.New(apperr.KindExternalIntegrity, "invalid webhook signature"))
		return
	}

	ev, err := parseWebhookEvent(body)
	if err != nil {
		respondError(w, r, apperr.Wrap(apperr.KindExternalIntegrity, err))
		return
	}

	if err := h.payments.ApplyProviderEvent(r.Context(), ev); err != nil {
		var unknown *payment.UnknownTransactionError
		if errors.As(err, &unknown) {
			// Acknowledge so the provider does not retry forever, but leave
			// a trace for reconciliation.
			zctx.From(r.Context()).Warn("webhook for unknown transaction",
				zap.String("transaction_id", unknown.TransactionID),
				zap.String("event_type", string(ev.Type)))
			respondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

// verifyWebhookSignature checks a hex HMAC-SHA256 of the raw body.
func (h *Handler) verifyWebhookSignature(signature string, body []byte) bool {
	if signature == "" || len(h.webhookSecret) == 0 {
		return false
	}
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.webhookSecret)
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}

// parseWebhookEvent pulls the event type and transaction reference out of the
// provider envelope, tolerating fields it does not know about.
func parseWebhookEvent(body []byte) (payment.Event, error) {
	var ev payment.Event
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "type":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "type")
			}
			ev.Type = payment.EventType(v)
			return nil
		case "data":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "object" {
					return d.Skip()
				}
				return d.Obj(func(d *jx.Decoder, key string) error {
					if key != "id" {
						return d.Skip()
					}
					v, err := d.Str()
					if err != nil {
						return errors.Wrap(err, "data.object.id")
					}
					ev.TransactionID = v
					return nil
				})
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return payment.Event{}, errors.Wrap(err, "parse webhook event")
	}
	if ev.Type == "" {
		return payment.Event{}, errors.New("webhook event missing type")
	}
	return ev, nil
}
