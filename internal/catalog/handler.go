package catalog

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/voucher-store/internal/transport"
)

type ServiceAPI interface {
	ListVouchers(ctx context.Context, filter VoucherFilter) ([]*Voucher, error)
	GetVoucher(ctx context.Context, code string) (*Voucher, error)
	Categories(ctx context.Context) ([]Category, error)
	Providers(ctx context.Context, category string) ([]*Provider, error)
	Sync(ctx context.Context) (*SyncResult, error)
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

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.Categories(r.Context())
	if err != nil {
		h.HandleServiceError(w, err, "GetCategories")
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Categories retrieved", categories)
}

func (h *Handler) GetProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.Service.Providers(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.HandleServiceError(w, err, "GetProviders")
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Providers retrieved", providers)
}

func (h *Handler) ListVouchers(w http.ResponseWriter, r *http.Request) {
	vouchers, err := h.Service.ListVouchers(r.Context(), FilterFromQuery(r.URL.Query()))
	if err != nil {
		h.HandleServiceError(w, err, "ListVouchers")
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Vouchers retrieved", vouchers)
}

func (h *Handler) GetVoucher(w http.ResponseWriter, r *http.Request) {
	voucher, err := h.Service.GetVoucher(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.HandleServiceError(w, err, "GetVoucher")
		return
	}
	h.WriteSuccess(w, http.StatusOK, "Voucher retrieved", voucher)
}

func (h *Handler) SyncCatalog(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.Sync(r.Context())
	if err != nil {
		h.HandleServiceError(w, err, "SyncCatalog")
		return
	}
	h.Logger.Info("SyncCatalog: catalog synchronized", "processed", result.Processed, "failed", result.Failed)
	h.WriteSuccess(w, http.StatusOK, "Catalog synchronized", result)
}
