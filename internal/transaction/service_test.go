package transaction_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/voucher-store/internal"
	catalogPostgres "github.com/frahmantamala/voucher-store/internal/catalog/postgres"
	catalogDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/catalog"
	fulfillmentDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/fulfillment"
	paymentDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/payment"
	receiptDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/receipt"
	transactionDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/transaction"
	userDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/user"
	"github.com/frahmantamala/voucher-store/internal/receipt"
	receiptPostgres "github.com/frahmantamala/voucher-store/internal/receipt/postgres"
	"github.com/frahmantamala/voucher-store/internal/supplier"
	"github.com/frahmantamala/voucher-store/internal/transaction"
	transactionPostgres "github.com/frahmantamala/voucher-store/internal/transaction/postgres"
)

type scriptedSupplier struct {
	result *supplier.TransactionResult
	err    error
	calls  int32
}

func (s *scriptedSupplier) PriceList(ctx context.Context) ([]supplier.PriceItem, error) {
	return nil, nil
}

func (s *scriptedSupplier) Purchase(ctx context.Context, req supplier.PurchaseRequest) (*supplier.TransactionResult, error) {
	return nil, errors.New("not used")
}

func (s *scriptedSupplier) CheckStatus(ctx context.Context, req supplier.PurchaseRequest) (*supplier.TransactionResult, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.result, s.err
}

type stubPayments struct {
	payment *paymentDatamodel.Payment
}

func (s *stubPayments) FindByTransactionID(ctx context.Context, transactionID int64) (*paymentDatamodel.Payment, error) {
	if s.payment != nil && s.payment.TransactionID == transactionID {
		return s.payment, nil
	}
	return nil, nil
}

var _ = Describe("Transaction Service", func() {
	var (
		ctx      context.Context
		db       *gorm.DB
		repo     *transactionPostgres.TransactionRepository
		stub     *scriptedSupplier
		payments *stubPayments
		service  *transaction.Service
		owner    *userDatamodel.User
		other    *userDatamodel.User
		voucher  *catalogDatamodel.Voucher
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
			&fulfillmentDatamodel.Attempt{},
			&receiptDatamodel.Receipt{},
		)).To(Succeed())

		owner = &userDatamodel.User{Email: "owner@example.com", PasswordHash: "x", IsActive: true}
		other = &userDatamodel.User{Email: "other@example.com", PasswordHash: "x", IsActive: true}
		Expect(db.Create(owner).Error).To(Succeed())
		Expect(db.Create(other).Error).To(Succeed())

		provider := &catalogDatamodel.Provider{ProviderCode: "PLN", ProviderName: "PLN", Category: "pln", IsActive: true}
		Expect(db.Create(provider).Error).To(Succeed())
		voucher = &catalogDatamodel.Voucher{
			VoucherCode: "PLN-50000", ProviderID: provider.ID, Category: "pln", Name: "Token PLN 50.000", Nominal: "50000",
			PriceOriginal: 47000, PriceSell: 50760, Margin: decimal.NewFromInt(8), IsActive: true,
		}
		Expect(db.Create(voucher).Error).To(Succeed())
		inactive := &catalogDatamodel.Voucher{
			VoucherCode: "PLN-OLD", ProviderID: provider.ID, Category: "pln", Name: "Old", PriceOriginal: 1000, PriceSell: 1050,
			Margin: decimal.NewFromInt(5), IsActive: false,
		}
		Expect(db.Create(inactive).Error).To(Succeed())

		repo = transactionPostgres.NewTransactionRepository(db)
		stub = &scriptedSupplier{err: errors.New("supplier down")}
		payments = &stubPayments{}
		receipts := receipt.NewService(receiptPostgres.NewReceiptRepository(db), "Vexa Cell", slogger)

		service = transaction.NewService(
			repo,
			catalogPostgres.NewCatalogRepository(db),
			payments,
			stub,
			receipts,
			transaction.Config{RefPrefix: "VXC"},
			slogger,
		)
	})

	create := func() *transaction.Transaction {
		tx, err := service.Create(ctx, transaction.CreateTransactionDTO{VoucherCode: "PLN-50000", TargetNumber: "1234-5678-901"}, owner.ID)
		Expect(err).NotTo(HaveOccurred())
		return tx
	}

	setStatus := func(id int64, status string) {
		Expect(db.Model(&transactionDatamodel.Transaction{}).Where("id = ?", id).Update("status", status).Error).To(Succeed())
	}

	claim := func(id int64) {
		Expect(db.Create(&fulfillmentDatamodel.Attempt{
			TransactionID: id, SupplierRef: "ref", Status: fulfillmentDatamodel.AttemptStarted, StartedAt: time.Now(),
		}).Error).To(Succeed())
	}

	Describe("Create", func() {
		It("persists a pending transaction priced from the voucher", func() {
			tx := create()

			Expect(tx.Status).To(Equal(transactionDatamodel.StatusPending))
			Expect(tx.TransactionID).To(MatchRegexp(`^TRX-\d+-[0-9A-F]{8}$`))
			Expect(tx.TargetNumber).To(Equal("12345678901"))
			Expect(tx.PriceSell).To(Equal(int64(50760)))
			Expect(tx.AdminFee).To(Equal(int64(0)))
			Expect(tx.TotalAmount).To(Equal(int64(50760)))
			Expect(tx.Voucher.Code).To(Equal("PLN-50000"))

			stored, err := repo.FindByTransactionID(ctx, tx.TransactionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.SupplierRef).To(MatchRegexp(`^VXC-\d+-[0-9A-F]{6}$`))
			Expect(stored.SupplierRef).NotTo(Equal(stored.TransactionID))
		})

		It("generates distinct identifiers for back-to-back transactions", func() {
			a := create()
			b := create()
			Expect(a.TransactionID).NotTo(Equal(b.TransactionID))
		})

		It("rejects malformed target numbers", func() {
			_, err := service.Create(ctx, transaction.CreateTransactionDTO{VoucherCode: "PLN-50000", TargetNumber: "12-34"}, owner.ID)
			Expect(errors.Is(err, internal.ErrInvalidTargetNumber)).To(BeTrue())
		})

		It("rejects unknown and inactive vouchers", func() {
			_, err := service.Create(ctx, transaction.CreateTransactionDTO{VoucherCode: "NOPE", TargetNumber: "12345678901"}, owner.ID)
			Expect(errors.Is(err, internal.ErrVoucherNotFound)).To(BeTrue())

			_, err = service.Create(ctx, transaction.CreateTransactionDTO{VoucherCode: "PLN-OLD", TargetNumber: "12345678901"}, owner.ID)
			Expect(errors.Is(err, internal.ErrVoucherNotFound)).To(BeTrue())
		})

		It("requires a voucher code", func() {
			_, err := service.Create(ctx, transaction.CreateTransactionDTO{TargetNumber: "12345678901"}, owner.ID)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("CheckStatus", func() {
		It("hides transactions owned by someone else", func() {
			tx := create()
			_, err := service.CheckStatus(ctx, tx.TransactionID, &internal.User{ID: other.ID})
			Expect(errors.Is(err, internal.ErrTransactionNotFound)).To(BeTrue())
		})

		It("returns the stale status when the supplier is unreachable", func() {
			tx := create()

			resp, err := service.CheckStatus(ctx, tx.TransactionID, &internal.User{ID: owner.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Transaction.Status).To(Equal(transactionDatamodel.StatusPending))
			Expect(resp.Poll.Outcome).To(Equal(transaction.PollUnreachable))
			Expect(resp.Poll.Error).To(ContainSubstring("supplier down"))
		})

		It("settles a purchased processing transaction and issues the receipt on supplier success", func() {
			tx := create()
			setStatus(tx.ID, transactionDatamodel.StatusProcessing)
			claim(tx.ID)
			stub.err = nil
			stub.result = &supplier.TransactionResult{Status: "Sukses", Message: "Transaksi Sukses", SN: "5566-7788"}

			resp, err := service.CheckStatus(ctx, tx.TransactionID, &internal.User{ID: owner.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Poll.Outcome).To(Equal(transaction.PollUpdated))
			Expect(resp.Transaction.Status).To(Equal(transactionDatamodel.StatusSuccess))
			Expect(resp.Transaction.SerialNumber).To(Equal("5566-7788"))

			var count int64
			Expect(db.Model(&receiptDatamodel.Receipt{}).Where("transaction_id = ?", tx.ID).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))
		})

		It("never moves a processing transaction back to pending", func() {
			tx := create()
			setStatus(tx.ID, transactionDatamodel.StatusProcessing)
			stub.err = nil
			stub.result = &supplier.TransactionResult{Status: "Pending"}

			resp, err := service.CheckStatus(ctx, tx.TransactionID, &internal.User{ID: owner.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Poll.Outcome).To(Equal(transaction.PollUnchanged))
			Expect(resp.Transaction.Status).To(Equal(transactionDatamodel.StatusProcessing))
		})

		It("does not settle an unpaid transaction from supplier status alone", func() {
			tx := create()
			stub.err = nil
			stub.result = &supplier.TransactionResult{Status: "Gagal", Message: "Nomor salah"}

			resp, err := service.CheckStatus(ctx, tx.TransactionID, &internal.User{ID: owner.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Poll.Outcome).To(Equal(transaction.PollUnchanged))
			Expect(resp.Transaction.Status).To(Equal(transactionDatamodel.StatusPending))
		})

		It("keeps a processing transaction awaiting payment when the supplier reports a failure", func() {
			tx := create()
			setStatus(tx.ID, transactionDatamodel.StatusProcessing)
			payments.payment = &paymentDatamodel.Payment{
				TransactionID: tx.ID, OrderID: tx.TransactionID, Status: paymentDatamodel.StatusPending,
			}
			stub.err = nil
			stub.result = &supplier.TransactionResult{Status: "Gagal", Message: "Ref ID tidak ditemukan"}

			resp, err := service.CheckStatus(ctx, tx.TransactionID, &internal.User{ID: owner.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Poll.Outcome).To(Equal(transaction.PollUnchanged))
			Expect(resp.Poll.SupplierStatus).To(Equal("Gagal"))
			Expect(resp.Transaction.Status).To(Equal(transactionDatamodel.StatusProcessing))

			stored, err := repo.FindByID(ctx, tx.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(transactionDatamodel.StatusProcessing))
			Expect(stored.Message).To(BeEmpty())
		})

		It("reports unrecognised supplier statuses without writing", func() {
			tx := create()
			setStatus(tx.ID, transactionDatamodel.StatusProcessing)
			stub.err = nil
			stub.result = &supplier.TransactionResult{Status: "Refund"}

			resp, err := service.CheckStatus(ctx, tx.TransactionID, &internal.User{ID: owner.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Poll.Outcome).To(Equal(transaction.PollUnrecognised))
			Expect(resp.Poll.SupplierStatus).To(Equal("Refund"))
			Expect(resp.Transaction.Status).To(Equal(transactionDatamodel.StatusProcessing))
		})

		It("skips the supplier for settled transactions", func() {
			tx := create()
			setStatus(tx.ID, transactionDatamodel.StatusSuccess)

			resp, err := service.CheckStatus(ctx, tx.TransactionID, &internal.User{ID: owner.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Poll.Outcome).To(Equal(transaction.PollSkipped))
			Expect(atomic.LoadInt32(&stub.calls)).To(Equal(int32(0)))
		})

		It("includes the linked payment", func() {
			tx := create()
			expires := time.Now().Add(30 * time.Minute)
			payments.payment = &paymentDatamodel.Payment{
				TransactionID: tx.ID, OrderID: tx.TransactionID, Status: paymentDatamodel.StatusPending,
				QRImageURL: "https://qr.example/x.png", ExpiresAt: &expires,
			}

			resp, err := service.CheckStatus(ctx, tx.TransactionID, &internal.User{ID: owner.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Payment).NotTo(BeNil())
			Expect(resp.Payment.OrderID).To(Equal(tx.TransactionID))
			Expect(resp.Payment.QRImageURL).To(Equal("https://qr.example/x.png"))
		})
	})

	Describe("List", func() {
		It("pages the requester's transactions newest first", func() {
			var ids []string
			for i := 0; i < 3; i++ {
				ids = append(ids, create().TransactionID)
			}
			_, err := service.Create(ctx, transaction.CreateTransactionDTO{VoucherCode: "PLN-50000", TargetNumber: "12345678901"}, other.ID)
			Expect(err).NotTo(HaveOccurred())

			result, err := service.List(ctx, &internal.User{ID: owner.ID}, transaction.Filter{Page: 1, Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Total).To(Equal(int64(3)))
			Expect(result.Transactions).To(HaveLen(2))
			Expect(result.Transactions[0].TransactionID).To(Equal(ids[2]))

			result, err = service.List(ctx, &internal.User{ID: owner.ID}, transaction.Filter{Page: 2, Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Transactions).To(HaveLen(1))
			Expect(result.Transactions[0].TransactionID).To(Equal(ids[0]))
		})

		It("rejects statuses outside the vocabulary", func() {
			_, err := service.List(ctx, &internal.User{ID: owner.ID}, transaction.Filter{Status: "lost"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("SyncInFlight", func() {
		It("polls only processing transactions with a fulfillment attempt", func() {
			claimed := create()
			unclaimed := create()
			setStatus(claimed.ID, transactionDatamodel.StatusProcessing)
			setStatus(unclaimed.ID, transactionDatamodel.StatusProcessing)
			Expect(db.Create(&fulfillmentDatamodel.Attempt{
				TransactionID: claimed.ID, SupplierRef: "ref", Status: fulfillmentDatamodel.AttemptCompleted, StartedAt: time.Now(),
			}).Error).To(Succeed())

			stub.err = nil
			stub.result = &supplier.TransactionResult{Status: "Gagal", Message: "Nomor tidak valid"}

			updated, err := service.SyncInFlight(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated).To(Equal(1))
			Expect(atomic.LoadInt32(&stub.calls)).To(Equal(int32(1)))

			stored, err := repo.FindByID(ctx, claimed.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(transactionDatamodel.StatusFailed))
			Expect(stored.Message).To(Equal("Nomor tidak valid"))

			stored, err = repo.FindByID(ctx, unclaimed.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(transactionDatamodel.StatusProcessing))
		})
	})

	Describe("Get", func() {
		It("loads by primary key and reports missing rows", func() {
			tx := create()
			got, err := service.Get(ctx, tx.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.TransactionID).To(Equal(tx.TransactionID))
			Expect(got.TotalAmount).To(Equal(tx.TotalAmount))

			_, err = service.Get(ctx, tx.ID+1000)
			Expect(errors.Is(err, internal.ErrTransactionNotFound)).To(BeTrue())
		})
	})

	Describe("ListAll", func() {
		It("lists every customer's transactions and honours the user filter", func() {
			create()
			_, err := service.Create(ctx, transaction.CreateTransactionDTO{VoucherCode: "PLN-50000", TargetNumber: "12345678901"}, other.ID)
			Expect(err).NotTo(HaveOccurred())

			all, err := service.ListAll(ctx, transaction.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(all.Total).To(Equal(int64(2)))

			mine, err := service.ListAll(ctx, transaction.Filter{UserID: other.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(mine.Total).To(Equal(int64(1)))
			Expect(mine.Transactions[0].UserID).To(Equal(other.ID))
		})
	})

	Describe("OverrideStatus", func() {
		admin := &internal.User{ID: 99, IsAdmin: true}

		It("sets any status in the vocabulary and issues a receipt on success", func() {
			tx := create()

			updated, err := service.OverrideStatus(ctx, tx.ID, transaction.StatusOverrideDTO{Status: "SUCCESS", Message: "settled manually"}, admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(transactionDatamodel.StatusSuccess))
			Expect(updated.Message).To(Equal("settled manually"))

			var count int64
			Expect(db.Model(&receiptDatamodel.Receipt{}).Where("transaction_id = ?", tx.ID).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))
		})

		It("allows moving a settled transaction to refunded", func() {
			tx := create()
			setStatus(tx.ID, transactionDatamodel.StatusSuccess)

			updated, err := service.OverrideStatus(ctx, tx.ID, transaction.StatusOverrideDTO{Status: "refunded"}, admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(transactionDatamodel.StatusRefunded))
		})

		It("rejects statuses outside the vocabulary", func() {
			tx := create()
			_, err := service.OverrideStatus(ctx, tx.ID, transaction.StatusOverrideDTO{Status: "lost"}, admin)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("reports unknown transactions", func() {
			_, err := service.OverrideStatus(ctx, 4040, transaction.StatusOverrideDTO{Status: "failed"}, admin)
			Expect(errors.Is(err, internal.ErrTransactionNotFound)).To(BeTrue())
		})
	})
})
