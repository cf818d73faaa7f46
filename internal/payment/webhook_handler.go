package payment

import (
	"context"
	"io"
	"net/http"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/internal/paymentgateway"
	"github.com/frahmantamala/voucher-store/internal/transport"
)

// maxCallbackBody bounds the callback payload read into memory.
const maxCallbackBody = 1 << 20

type WebhookReconcilerAPI interface {
	HandleWebhook(ctx context.Context, payload *WebhookPayload) (*ReconcileResult, error)
}

type WebhookHandler struct {
	*transport.BaseHandler
	Reconciler       WebhookReconcilerAPI
	secret           string
	requireSignature bool
}

// NewWebhookHandler verifies X-Pakasir-Signature only when requireSignature is set.
func NewWebhookHandler(baseHandler *transport.BaseHandler, reconciler WebhookReconcilerAPI, secret string, requireSignature bool) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:      baseHandler,
		Reconciler:       reconciler,
		secret:           secret,
		requireSignature: requireSignature,
	}
}

func (h *WebhookHandler) HandlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		h.WriteAppError(w, internal.NewValidationError("Unable to read callback body", internal.ErrCodeValidationFailed))
		return
	}

	if h.requireSignature {
		signature := r.Header.Get(paymentgateway.SignatureHeader)
		if signature == "" {
			h.WriteAppError(w, internal.NewUnauthorizedError("Missing signature", internal.ErrCodeInvalidSignature))
			return
		}
		if !paymentgateway.VerifySignature(h.secret, body, signature) {
			h.WriteAppError(w, internal.NewUnauthorizedError("Invalid signature", internal.ErrCodeInvalidSignature))
			return
		}
	}

	payload, appErr := parseCallback(body)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	h.Logger.Info("received payment callback", "order_id", payload.OrderID, "status", payload.Status)

	result, err := h.Reconciler.HandleWebhook(r.Context(), payload)
	if err != nil {
		// a 5xx makes the gateway redeliver
		h.HandleServiceError(w, err, "HandlePaymentCallback")
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Callback received", CallbackAck{
		Received:  true,
		Processed: result.Processed,
		OrderID:   payload.OrderID,
	})
}

func parseCallback(body []byte) (*WebhookPayload, *internal.AppError) {
	payload, err := ParseWebhookPayload(body)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return nil, appErr
		}
		return nil, internal.NewValidationError("Invalid callback payload", internal.ErrCodeValidationFailed)
	}
	return payload, nil
}
