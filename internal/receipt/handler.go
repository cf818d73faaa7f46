package receipt

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/internal/transport"
)

type ServiceAPI interface {
	GetOrGenerate(ctx context.Context, transactionRef string, requester *internal.User) (*Receipt, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	user, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	rcpt, err := h.Service.GetOrGenerate(r.Context(), chi.URLParam(r, "transactionId"), user)
	if err != nil {
		h.HandleServiceError(w, err, "GetReceipt")
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Receipt retrieved", rcpt)
}
