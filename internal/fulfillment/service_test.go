package fulfillment_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/voucher-store/internal"
	catalogDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/catalog"
	fulfillmentDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/fulfillment"
	receiptDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/receipt"
	transactionDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/transaction"
	userDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/user"
	"github.com/frahmantamala/voucher-store/internal/fulfillment"
	fulfillmentPostgres "github.com/frahmantamala/voucher-store/internal/fulfillment/postgres"
	"github.com/frahmantamala/voucher-store/internal/receipt"
	receiptPostgres "github.com/frahmantamala/voucher-store/internal/receipt/postgres"
	"github.com/frahmantamala/voucher-store/internal/supplier"
	transactionPostgres "github.com/frahmantamala/voucher-store/internal/transaction/postgres"
)

type purchaseSupplier struct {
	mu       sync.Mutex
	result   *supplier.TransactionResult
	err      error
	delay    time.Duration
	calls    int32
	requests []supplier.PurchaseRequest
}

func (s *purchaseSupplier) PriceList(ctx context.Context) ([]supplier.PriceItem, error) {
	return nil, nil
}

func (s *purchaseSupplier) Purchase(ctx context.Context, req supplier.PurchaseRequest) (*supplier.TransactionResult, error) {
	atomic.AddInt32(&s.calls, 1)
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.result, s.err
}

func (s *purchaseSupplier) CheckStatus(ctx context.Context, req supplier.PurchaseRequest) (*supplier.TransactionResult, error) {
	return nil, errors.New("not used")
}

var _ = Describe("Fulfillment Service", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		stub    *purchaseSupplier
		service *fulfillment.Service
		tx      *transactionDatamodel.Transaction
	)

	load := func() *transactionDatamodel.Transaction {
		var stored transactionDatamodel.Transaction
		Expect(db.First(&stored, tx.ID).Error).To(Succeed())
		return &stored
	}

	attempt := func() *fulfillmentDatamodel.Attempt {
		var a fulfillmentDatamodel.Attempt
		Expect(db.Where("transaction_id = ?", tx.ID).First(&a).Error).To(Succeed())
		return &a
	}

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
			&fulfillmentDatamodel.Attempt{},
			&receiptDatamodel.Receipt{},
		)).To(Succeed())

		user := &userDatamodel.User{Email: "budi@example.com", PasswordHash: "x", IsActive: true}
		Expect(db.Create(user).Error).To(Succeed())
		provider := &catalogDatamodel.Provider{ProviderCode: "PLN", ProviderName: "PLN", Category: "pln", IsActive: true}
		Expect(db.Create(provider).Error).To(Succeed())
		voucher := &catalogDatamodel.Voucher{
			VoucherCode: "PLN-50000", ProviderID: provider.ID, Category: "pln", Name: "Token PLN 50.000", Nominal: "50000",
			PriceOriginal: 47000, PriceSell: 50760, Margin: decimal.NewFromInt(8), IsActive: true,
		}
		Expect(db.Create(voucher).Error).To(Succeed())

		tx = &transactionDatamodel.Transaction{
			TransactionID: "TRX-1700000000000-ABCDEF12", UserID: user.ID, VoucherID: voucher.ID, SupplierRef: "VXC-1700000000000-ABC123",
			TargetNumber: "12345678901", PriceOriginal: 47000, PriceSell: 50760, TotalAmount: 50760,
			Status: transactionDatamodel.StatusProcessing,
		}
		Expect(db.Create(tx).Error).To(Succeed())

		stub = &purchaseSupplier{result: &supplier.TransactionResult{RefID: tx.SupplierRef, Status: "Sukses", Message: "Transaksi Sukses", SN: "1111-2222-3333"}}
		receipts := receipt.NewService(receiptPostgres.NewReceiptRepository(db), "Vexa Cell", slogger)
		service = fulfillment.NewService(
			transactionPostgres.NewTransactionRepository(db),
			fulfillmentPostgres.NewAttemptRepository(db),
			stub,
			receipts,
			slogger,
		)
	})

	It("purchases with the transaction's target, sku and supplier ref", func() {
		res, err := service.Fulfill(ctx, tx.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Outcome).To(Equal(fulfillment.OutcomeCompleted))

		Expect(stub.requests).To(ConsistOf(supplier.PurchaseRequest{
			SKU:        "PLN-50000",
			CustomerNo: "12345678901",
			RefID:      "VXC-1700000000000-ABC123",
		}))
	})

	It("marks the transaction successful and issues one receipt", func() {
		res, err := service.Fulfill(ctx, tx.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(transactionDatamodel.StatusSuccess))

		stored := load()
		Expect(stored.Status).To(Equal(transactionDatamodel.StatusSuccess))
		Expect(stored.SerialNumber).To(Equal("1111-2222-3333"))
		Expect(stored.Message).To(Equal("Transaksi Sukses"))

		Expect(attempt().Status).To(Equal(fulfillmentDatamodel.AttemptCompleted))
		Expect(attempt().FinishedAt).NotTo(BeNil())

		var rcpt receiptDatamodel.Receipt
		Expect(db.Where("transaction_id = ?", tx.ID).First(&rcpt).Error).To(Succeed())
		Expect(string(rcpt.ReceiptData)).To(ContainSubstring("1111-2222-3333"))
	})

	It("marks the transaction failed with the error text when the supplier call fails", func() {
		stub.result = nil
		stub.err = internal.NewUpstreamError("Supplier request failed", internal.ErrCodeSupplier, errors.New("connection reset"))

		res, err := service.Fulfill(ctx, tx.ID)
		Expect(err).To(HaveOccurred())
		Expect(res.Outcome).To(Equal(fulfillment.OutcomeFailed))

		stored := load()
		Expect(stored.Status).To(Equal(transactionDatamodel.StatusFailed))
		Expect(stored.Message).To(HavePrefix("Fulfillment error: "))
		Expect(stored.Message).To(ContainSubstring("connection reset"))
		Expect(attempt().Status).To(Equal(fulfillmentDatamodel.AttemptFailed))

		var count int64
		Expect(db.Model(&receiptDatamodel.Receipt{}).Count(&count).Error).To(Succeed())
		Expect(count).To(BeZero())
	})

	It("maps a supplier-reported failure without raising", func() {
		stub.result = &supplier.TransactionResult{Status: "Gagal", Message: "Nomor tujuan salah"}

		res, err := service.Fulfill(ctx, tx.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(transactionDatamodel.StatusFailed))
		Expect(load().Message).To(Equal("Nomor tujuan salah"))
	})

	It("keeps the transaction processing while the supplier is pending", func() {
		stub.result = &supplier.TransactionResult{Status: "Pending", Message: "Transaksi Pending"}

		res, err := service.Fulfill(ctx, tx.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Status).To(Equal(transactionDatamodel.StatusProcessing))
		Expect(load().Status).To(Equal(transactionDatamodel.StatusProcessing))
	})

	It("keeps unrecognised supplier statuses visible in the message", func() {
		stub.result = &supplier.TransactionResult{Status: "Diproses Manual", Message: "cek manual"}

		_, err := service.Fulfill(ctx, tx.ID)
		Expect(err).NotTo(HaveOccurred())

		stored := load()
		Expect(stored.Status).To(Equal(transactionDatamodel.StatusProcessing))
		Expect(stored.Message).To(ContainSubstring("Diproses Manual"))
	})

	It("skips transactions that are no longer in flight", func() {
		Expect(db.Model(tx).Update("status", transactionDatamodel.StatusSuccess).Error).To(Succeed())

		res, err := service.Fulfill(ctx, tx.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Outcome).To(Equal(fulfillment.OutcomeNotEligible))
		Expect(atomic.LoadInt32(&stub.calls)).To(BeZero())
	})

	It("calls the supplier once when fulfilled twice", func() {
		stub.result = &supplier.TransactionResult{Status: "Pending"}

		_, err := service.Fulfill(ctx, tx.ID)
		Expect(err).NotTo(HaveOccurred())

		res, err := service.Fulfill(ctx, tx.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Outcome).To(Equal(fulfillment.OutcomeAlreadyClaimed))
		Expect(atomic.LoadInt32(&stub.calls)).To(Equal(int32(1)))
	})

	It("calls the supplier once under concurrent triggers", func() {
		stub.delay = 20 * time.Millisecond

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := service.Fulfill(ctx, tx.ID)
				Expect(err).NotTo(HaveOccurred())
			}()
		}
		wg.Wait()

		Expect(atomic.LoadInt32(&stub.calls)).To(Equal(int32(1)))

		var count int64
		Expect(db.Model(&receiptDatamodel.Receipt{}).Count(&count).Error).To(Succeed())
		Expect(count).To(Equal(int64(1)))
	})

	It("returns not found for a missing transaction", func() {
		_, err := service.Fulfill(ctx, 9999)
		Expect(errors.Is(err, internal.ErrTransactionNotFound)).To(BeTrue())
	})
})
