package catalog_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/internal/catalog"
	"github.com/frahmantamala/voucher-store/internal/transport"
)

type stubCatalogService struct {
	lastFilter catalog.VoucherFilter
}

func (s *stubCatalogService) ListVouchers(ctx context.Context, filter catalog.VoucherFilter) ([]*catalog.Voucher, error) {
	s.lastFilter = filter
	return []*catalog.Voucher{{Code: "PLN-50000", Price: 50760}}, nil
}

func (s *stubCatalogService) GetVoucher(ctx context.Context, code string) (*catalog.Voucher, error) {
	if code != "PLN-50000" {
		return nil, internal.ErrVoucherNotFound
	}
	return &catalog.Voucher{Code: code, Price: 50760}, nil
}

func (s *stubCatalogService) Categories(ctx context.Context) ([]catalog.Category, error) {
	return []catalog.Category{{Code: "pln", Name: "Token PLN"}}, nil
}

func (s *stubCatalogService) Providers(ctx context.Context, category string) ([]*catalog.Provider, error) {
	return nil, nil
}

func (s *stubCatalogService) Sync(ctx context.Context) (*catalog.SyncResult, error) {
	return &catalog.SyncResult{Processed: 3}, nil
}

var _ = Describe("Catalog Handler", func() {
	var (
		stub   *stubCatalogService
		router chi.Router
	)

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		stub = &stubCatalogService{}
		handler := catalog.NewHandler(transport.NewBaseHandler(slogger), stub)

		router = chi.NewRouter()
		router.Get("/vouchers", handler.ListVouchers)
		router.Get("/vouchers/{code}", handler.GetVoucher)
		router.Get("/vouchers/categories", handler.GetCategories)
	})

	It("parses list filters from the query string", func() {
		req := httptest.NewRequest(http.MethodGet, "/vouchers?category=PLN&minPrice=1000&maxPrice=abc&search=token", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(stub.lastFilter).To(Equal(catalog.VoucherFilter{Category: "pln", Search: "token", MinPrice: 1000}))

		var body transport.SuccessEnvelope
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Success).To(BeTrue())
	})

	It("returns 404 for an unknown voucher code", func() {
		req := httptest.NewRequest(http.MethodGet, "/vouchers/NOPE", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNotFound))
		var body transport.ErrorEnvelope
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.Success).To(BeFalse())
		Expect(body.Error).To(Equal("Voucher not found or unavailable"))
	})

	It("routes the categories path before the code parameter", func() {
		req := httptest.NewRequest(http.MethodGet, "/vouchers/categories", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring("Token PLN"))
	})
})
