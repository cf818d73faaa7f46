package payment_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	catalogDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/catalog"
	paymentDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/payment"
	paymentgatewaytypes "github.com/frahmantamala/voucher-store/internal/core/datamodel/paymentgateway"
	transactionDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/transaction"
	userDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/user"
	"github.com/frahmantamala/voucher-store/internal/paymentgateway"
)

type stubGateway struct {
	mu        sync.Mutex
	chargeErr error
	charges   []*paymentgatewaytypes.ChargeRequest
	status    *paymentgateway.PaymentStatusResult
	statusErr error
	polls     int
}

func (g *stubGateway) CreateQRIS(ctx context.Context, req *paymentgatewaytypes.ChargeRequest) (*paymentgatewaytypes.ChargeData, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges = append(g.charges, req)
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	return &paymentgatewaytypes.ChargeData{
		OrderID:    req.OrderID,
		QRString:   "00020101021226",
		QRImageURL: "https://gateway.test/qr/" + req.OrderID + ".png",
		Amount:     req.Amount,
	}, nil
}

func (g *stubGateway) GetPaymentStatus(ctx context.Context, orderID string) (*paymentgateway.PaymentStatusResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.polls++
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	if g.status == nil {
		return nil, errors.New("no status scripted")
	}
	res := *g.status
	res.OrderID = orderID
	return &res, nil
}

type fixture struct {
	db      *gorm.DB
	owner   *userDatamodel.User
	other   *userDatamodel.User
	voucher *catalogDatamodel.Voucher
}

func newFixture() *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
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
		&paymentDatamodel.Payment{},
	)).To(Succeed())

	f := &fixture{db: db}
	f.owner = &userDatamodel.User{Email: "owner@example.com", PasswordHash: "x", Phone: "081234567890", IsActive: true}
	f.other = &userDatamodel.User{Email: "other@example.com", PasswordHash: "x", IsActive: true}
	Expect(db.Create(f.owner).Error).To(Succeed())
	Expect(db.Create(f.other).Error).To(Succeed())

	provider := &catalogDatamodel.Provider{ProviderCode: "PLN", ProviderName: "PLN", Category: "pln", IsActive: true}
	Expect(db.Create(provider).Error).To(Succeed())
	f.voucher = &catalogDatamodel.Voucher{
		VoucherCode: "PLN-50000", ProviderID: provider.ID, Category: "pln", Name: "Token PLN 50.000",
		PriceOriginal: 47000, PriceSell: 50760, IsActive: true,
	}
	Expect(db.Create(f.voucher).Error).To(Succeed())
	return f
}

func (f *fixture) transaction(ref, status string) *transactionDatamodel.Transaction {
	tx := &transactionDatamodel.Transaction{
		TransactionID: ref,
		UserID:        f.owner.ID,
		VoucherID:     f.voucher.ID,
		SupplierRef:   "VXC-" + ref,
		TargetNumber:  "12345678901",
		PriceOriginal: 47000,
		PriceSell:     50760,
		TotalAmount:   50760,
		Status:        status,
	}
	Expect(f.db.Omit("User", "Voucher").Create(tx).Error).To(Succeed())
	return tx
}

func (f *fixture) payment(tx *transactionDatamodel.Transaction) *paymentDatamodel.Payment {
	p := &paymentDatamodel.Payment{
		TransactionID: tx.ID,
		OrderID:       tx.TransactionID,
		PaymentMethod: paymentDatamodel.MethodQRIS,
		Amount:        tx.TotalAmount,
		Status:        paymentDatamodel.StatusPending,
	}
	Expect(f.db.Create(p).Error).To(Succeed())
	return p
}

func (f *fixture) reloadTransaction(id int64) *transactionDatamodel.Transaction {
	var tx transactionDatamodel.Transaction
	Expect(f.db.First(&tx, id).Error).To(Succeed())
	return &tx
}

func (f *fixture) reloadPayment(id int64) *paymentDatamodel.Payment {
	var p paymentDatamodel.Payment
	Expect(f.db.First(&p, id).Error).To(Succeed())
	return &p
}
