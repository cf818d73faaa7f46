package supplier_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/internal/supplier"
)

var _ = Describe("Supplier Client", func() {
	var (
		server   *httptest.Server
		client   *supplier.Client
		received map[string]interface{}
		path     string
		respond  func(w http.ResponseWriter)
	)

	BeforeEach(func() {
		received = nil
		respond = func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"data":{"ref_id":"VXC-1","status":"Sukses","message":"Transaksi Sukses","sn":"SN123"}}`))
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&received)
			w.Header().Set("Content-Type", "application/json")
			respond(w)
		}))

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		client = supplier.NewClient(supplier.Config{BaseURL: server.URL, Username: "user", APIKey: "key"}, logger)
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Purchase", func() {
		It("signs the request and maps the response", func() {
			res, err := client.Purchase(context.Background(), supplier.PurchaseRequest{SKU: "PLN-50000", CustomerNo: "081234567890", RefID: "VXC-1"})
			Expect(err).ToNot(HaveOccurred())
			Expect(path).To(Equal("/v1/transaction"))
			Expect(received["username"]).To(Equal("user"))
			Expect(received["sign"]).To(Equal(supplier.Sign("user", "key")))
			Expect(received["buyer_sku_code"]).To(Equal("PLN-50000"))
			Expect(received["customer_no"]).To(Equal("081234567890"))
			Expect(received["ref_id"]).To(Equal("VXC-1"))
			Expect(received).ToNot(HaveKey("cmd"))

			Expect(res.SN).To(Equal("SN123"))
			Expect(res.ParsedStatus().Kind).To(Equal(supplier.StatusSuccess))
		})

		It("returns an upstream error on non-2xx responses", func() {
			respond = func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"data":{"message":"Saldo tidak cukup"}}`))
			}

			_, err := client.Purchase(context.Background(), supplier.PurchaseRequest{SKU: "A", CustomerNo: "1", RefID: "R"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeUpstream))
			Expect(err.Error()).To(ContainSubstring("Saldo tidak cukup"))
		})

		It("returns an upstream error on an undecodable body", func() {
			respond = func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`<html>`))
			}

			_, err := client.Purchase(context.Background(), supplier.PurchaseRequest{SKU: "A", CustomerNo: "1", RefID: "R"})
			Expect(err).To(HaveOccurred())
		})

		It("refuses to call out without a ref id", func() {
			_, err := client.Purchase(context.Background(), supplier.PurchaseRequest{SKU: "A", CustomerNo: "1"})
			Expect(err).To(HaveOccurred())
			Expect(received).To(BeNil())
		})
	})

	Describe("CheckStatus", func() {
		It("sends the status command", func() {
			respond = func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"data":{"ref_id":"VXC-1","status":"Pending"}}`))
			}

			res, err := client.CheckStatus(context.Background(), supplier.PurchaseRequest{RefID: "VXC-1"})
			Expect(err).ToNot(HaveOccurred())
			Expect(received["cmd"]).To(Equal("status"))
			Expect(res.ParsedStatus().Kind).To(Equal(supplier.StatusPending))
		})
	})

	Describe("PriceList", func() {
		It("decodes the product list", func() {
			respond = func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"data":[{"sku":"PLN-50000","product_name":"PLN 50.000","category":"pln","brand":"PLN","price":47000,"status":"available"},{"buyer_sku_code":"TSEL5","category":"pulsa","brand":"TELKOMSEL","price":5200,"status":"empty"}]}`))
			}

			items, err := client.PriceList(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(path).To(Equal("/v1/price"))
			Expect(items).To(HaveLen(2))
			Expect(items[0].Code()).To(Equal("PLN-50000"))
			Expect(items[0].Available()).To(BeTrue())
			Expect(items[1].Code()).To(Equal("TSEL5"))
			Expect(items[1].Available()).To(BeFalse())
		})
	})
})
