package transaction

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, dto CreateTransactionDTO, requesterID int64) (*Transaction, error)
	CheckStatus(ctx context.Context, transactionRef string, requester *internal.User) (*StatusResponse, error)
	List(ctx context.Context, requester *internal.User, filter Filter) (*ListResult, error)
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

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	var dto CreateTransactionDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	tx, err := h.Service.Create(r.Context(), dto, user.ID)
	if err != nil {
		h.HandleServiceError(w, err, "CreateTransaction")
		return
	}

	h.WriteSuccess(w, http.StatusCreated, "Transaction created", tx)
}

func (h *Handler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	resp, err := h.Service.CheckStatus(r.Context(), chi.URLParam(r, "transactionId"), user)
	if err != nil {
		h.HandleServiceError(w, err, "CheckStatus")
		return
	}

	h.WriteSuccess(w, http.StatusOK, "Transaction status retrieved", resp)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	filter := FilterFromQuery(r.URL.Query())
	result, err := h.Service.List(r.Context(), user, filter)
	if err != nil {
		h.HandleServiceError(w, err, "ListTransactions")
		return
	}

	h.WriteSuccessWithMeta(w, http.StatusOK, "Transactions retrieved", result.Transactions,
		transport.NewPageMeta(result.Total, result.Page, result.Limit))
}
