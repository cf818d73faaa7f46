package admin

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/internal/catalog"
	"github.com/frahmantamala/voucher-store/internal/core/common/validation"
	"github.com/frahmantamala/voucher-store/internal/pricing"
	"github.com/frahmantamala/voucher-store/internal/transaction"
	"github.com/frahmantamala/voucher-store/internal/transport"
)

type ServiceAPI interface {
	Dashboard(ctx context.Context) (*DashboardStats, error)
	ListTransactions(ctx context.Context, filter transaction.Filter) (*transaction.ListResult, error)
	UpdateTransactionStatus(ctx context.Context, id int64, dto transaction.StatusOverrideDTO, actor *internal.User) (*transaction.Transaction, error)
	ListMargins(ctx context.Context) ([]*pricing.Margin, error)
	UpsertMargin(ctx context.Context, dto pricing.MarginDTO) (*MarginUpsertResult, error)
	RecalculatePrices(ctx context.Context) (*catalog.RecalculateResult, error)
}

// Handler serves /admin routes. The router mounts it behind auth and RequireAdmin.
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

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Dashboard(r.Context())
	if err != nil {
		h.HandleServiceError(w, err, "Dashboard")
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Dashboard retrieved", stats)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.ListTransactions(r.Context(), transaction.FilterFromQuery(r.URL.Query()))
	if err != nil {
		h.HandleServiceError(w, err, "ListTransactions")
		return
	}
	h.WriteSuccessWithMeta(w, http.StatusOK, "Transactions retrieved", result.Transactions,
		transport.NewPageMeta(result.Total, result.Page, result.Limit))
}

func (h *Handler) UpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.CurrentUser(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.WriteAppError(w, internal.NewValidationFieldError("id", "id must be a positive integer", internal.ErrCodeValidationFailed))
		return
	}

	var dto transaction.StatusOverrideDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}
	if appErr := validation.Struct(&dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	tx, err := h.Service.UpdateTransactionStatus(r.Context(), id, dto, actor)
	if err != nil {
		h.HandleServiceError(w, err, "UpdateTransactionStatus")
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Transaction status updated", tx)
}

func (h *Handler) ListMargins(w http.ResponseWriter, r *http.Request) {
	margins, err := h.Service.ListMargins(r.Context())
	if err != nil {
		h.HandleServiceError(w, err, "ListMargins")
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Margins retrieved", margins)
}

func (h *Handler) UpsertMargin(w http.ResponseWriter, r *http.Request) {
	var dto pricing.MarginDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	result, err := h.Service.UpsertMargin(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err, "UpsertMargin")
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Margin saved", result)
}

func (h *Handler) RecalculatePrices(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.RecalculatePrices(r.Context())
	if err != nil {
		h.HandleServiceError(w, err, "RecalculatePrices")
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Prices recalculated", result)
}
