package payment

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/internal/core/common/validation"
	"github.com/frahmantamala/voucher-store/internal/transport"
)

type ServiceAPI interface {
	ProcessPayment(ctx context.Context, transactionRef string, requester *internal.User, contact ContactDTO) (*ProcessPaymentResponse, error)
}

type PollerAPI interface {
	Poll(ctx context.Context, orderID string, requester *internal.User) (*PollResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Poller  PollerAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, poller PollerAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Poller:      poller,
	}
}

func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	// the contact body is optional
	var contact ContactDTO
	if r.ContentLength > 0 {
		if appErr := h.DecodeJSON(r, &contact); appErr != nil {
			h.WriteAppError(w, appErr)
			return
		}
		if appErr := validation.Struct(&contact); appErr != nil {
			h.WriteAppError(w, appErr)
			return
		}
	}

	resp, err := h.Service.ProcessPayment(r.Context(), chi.URLParam(r, "transactionId"), user, contact)
	if err != nil {
		h.HandleServiceError(w, err, "ProcessPayment")
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Payment created", resp)
}

func (h *Handler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	resp, err := h.Poller.Poll(r.Context(), chi.URLParam(r, "orderId"), user)
	if err != nil {
		h.HandleServiceError(w, err, "GetPaymentStatus")
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Payment status retrieved", resp)
}
