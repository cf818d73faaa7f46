package receipt_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/voucher-store/internal"
	catalogDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/catalog"
	receiptDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/receipt"
	transactionDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/transaction"
	userDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/user"
	"github.com/frahmantamala/voucher-store/internal/receipt"
	receiptPostgres "github.com/frahmantamala/voucher-store/internal/receipt/postgres"
)

var _ = Describe("Receipt Service", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		service *receipt.Service
		owner   *userDatamodel.User
		success *transactionDatamodel.Transaction
		pending *transactionDatamodel.Transaction
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		Expect(db.AutoMigrate(
			&userDatamodel.User{},
			&catalogDatamodel.Provider{},
			&catalogDatamodel.Voucher{},
			&transactionDatamodel.Transaction{},
			&receiptDatamodel.Receipt{},
		)).To(Succeed())

		owner = &userDatamodel.User{Email: "budi@example.com", PasswordHash: "x", FullName: "Budi", Phone: "081234567890", IsActive: true}
		Expect(db.Create(owner).Error).To(Succeed())

		provider := &catalogDatamodel.Provider{ProviderCode: "PLN", ProviderName: "PLN Prabayar", Category: "pln", IsActive: true}
		Expect(db.Create(provider).Error).To(Succeed())
		voucher := &catalogDatamodel.Voucher{
			VoucherCode: "PLN-50000", ProviderID: provider.ID, Category: "pln", Name: "Token PLN 50.000", Nominal: "50000",
			PriceOriginal: 47000, PriceSell: 50760, Margin: decimal.NewFromInt(8), IsActive: true,
		}
		Expect(db.Create(voucher).Error).To(Succeed())

		success = &transactionDatamodel.Transaction{
			TransactionID: "TRX-1700000000000-ABCDEF12", UserID: owner.ID, VoucherID: voucher.ID, SupplierRef: "VXC-1700000000000-ABC123",
			TargetNumber: "12345678901", PriceOriginal: 47000, PriceSell: 50760, TotalAmount: 50760,
			Status: transactionDatamodel.StatusSuccess, SerialNumber: "1234-5678-9012",
		}
		pending = &transactionDatamodel.Transaction{
			TransactionID: "TRX-1700000000001-00000001", UserID: owner.ID, VoucherID: voucher.ID, SupplierRef: "VXC-1700000000001-000001",
			TargetNumber: "12345678901", PriceOriginal: 47000, PriceSell: 50760, TotalAmount: 50760,
			Status: transactionDatamodel.StatusPending,
		}
		Expect(db.Create(success).Error).To(Succeed())
		Expect(db.Create(pending).Error).To(Succeed())

		service = receipt.NewService(receiptPostgres.NewReceiptRepository(db), "", slogger)
	})

	Describe("Create", func() {
		It("builds the receipt document from the transaction", func() {
			r, err := service.Create(ctx, success.ID, receipt.Extra{Meta: map[string]interface{}{"rc": "00"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(r).NotTo(BeNil())

			Expect(r.ReceiptNumber).To(HavePrefix("RCP-"))
			Expect(r.ReceiptNumber).To(HaveSuffix("-ABCDEF12"))
			Expect(r.TransactionID).To(Equal(success.TransactionID))
			Expect(r.Document.Merchant).To(Equal("Vexa Cell"))
			Expect(r.Document.Voucher.Name).To(Equal("Token PLN 50.000"))
			Expect(r.Document.Voucher.Provider).To(Equal("PLN Prabayar"))
			Expect(r.Document.SerialNumber).To(Equal("1234-5678-9012"))
			Expect(r.Document.Pricing.TotalAmount).To(Equal(int64(50760)))
			Expect(r.Document.Customer.Email).To(Equal("budi@example.com"))
			Expect(r.Document.Meta).To(HaveKeyWithValue("rc", "00"))
		})

		It("prefers the serial number passed by fulfillment", func() {
			r, err := service.Create(ctx, success.ID, receipt.Extra{SerialNumber: "SN-FRESH"})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Document.SerialNumber).To(Equal("SN-FRESH"))
		})

		It("returns the same receipt on a second call", func() {
			first, err := service.Create(ctx, success.ID, receipt.Extra{})
			Expect(err).NotTo(HaveOccurred())

			time.Sleep(2 * time.Millisecond)
			second, err := service.Create(ctx, success.ID, receipt.Extra{SerialNumber: "OTHER"})
			Expect(err).NotTo(HaveOccurred())

			Expect(second.ReceiptNumber).To(Equal(first.ReceiptNumber))
			Expect(second.Document.SerialNumber).To(Equal(first.Document.SerialNumber))

			var count int64
			Expect(db.Model(&receiptDatamodel.Receipt{}).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))
		})

		It("stores a single row under concurrent creation", func() {
			var wg sync.WaitGroup
			numbers := make([]string, 5)
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					r, err := service.Create(ctx, success.ID, receipt.Extra{})
					Expect(err).NotTo(HaveOccurred())
					numbers[i] = r.ReceiptNumber
				}(i)
			}
			wg.Wait()

			for _, n := range numbers {
				Expect(n).To(Equal(numbers[0]))
			}
			var count int64
			Expect(db.Model(&receiptDatamodel.Receipt{}).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))
		})

		It("returns nil for unsuccessful or missing transactions", func() {
			r, err := service.Create(ctx, pending.ID, receipt.Extra{})
			Expect(err).NotTo(HaveOccurred())
			Expect(r).To(BeNil())

			r, err = service.Create(ctx, 9999, receipt.Extra{})
			Expect(err).NotTo(HaveOccurred())
			Expect(r).To(BeNil())
		})
	})

	Describe("GetOrGenerate", func() {
		It("issues the receipt on demand for the owner", func() {
			r, err := service.GetOrGenerate(ctx, success.TransactionID, &internal.User{ID: owner.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.TransactionID).To(Equal(success.TransactionID))
		})

		It("lets an admin read any receipt", func() {
			r, err := service.GetOrGenerate(ctx, success.TransactionID, &internal.User{ID: 777, IsAdmin: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(r).NotTo(BeNil())
		})

		It("hides other users' transactions", func() {
			_, err := service.GetOrGenerate(ctx, success.TransactionID, &internal.User{ID: owner.ID + 1})
			Expect(errors.Is(err, internal.ErrTransactionNotFound)).To(BeTrue())
		})

		It("returns receipt not found for an unsuccessful transaction", func() {
			_, err := service.GetOrGenerate(ctx, pending.TransactionID, &internal.User{ID: owner.ID})
			Expect(errors.Is(err, internal.ErrReceiptNotFound)).To(BeTrue())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(Equal("Receipt not found"))
		})
	})
})
