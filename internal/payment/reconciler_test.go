package payment_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/voucher-store/internal"
	paymentDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/payment"
	transactionDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/transaction"
	"github.com/frahmantamala/voucher-store/internal/core/events"
	"github.com/frahmantamala/voucher-store/internal/payment"
	paymentPostgres "github.com/frahmantamala/voucher-store/internal/payment/postgres"
	"github.com/frahmantamala/voucher-store/internal/paymentgateway"
	transactionPostgres "github.com/frahmantamala/voucher-store/internal/transaction/postgres"
)

var _ = Describe("Reconciler", func() {
	var (
		ctx        context.Context
		f          *fixture
		gateway    *stubGateway
		bus        *events.EventBus
		reconciler *payment.Reconciler
		paidEvents int32
		lastTxID   int64
		handlerErr error
	)

	BeforeEach(func() {
		ctx = context.Background()
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		f = newFixture()
		gateway = &stubGateway{}
		paidEvents = 0
		lastTxID = 0
		handlerErr = nil

		bus = events.NewEventBus(slogger)
		bus.Subscribe(events.EventTypePaymentPaid, func(ctx context.Context, event events.Event) error {
			atomic.AddInt32(&paidEvents, 1)
			lastTxID, _ = events.TransactionIDFrom(event)
			return handlerErr
		})

		reconciler = payment.NewReconciler(
			paymentPostgres.NewPaymentRepository(f.db),
			transactionPostgres.NewTransactionRepository(f.db),
			gateway,
			bus,
			slogger,
		)
	})

	webhook := func(body string) *payment.WebhookPayload {
		p, err := payment.ParseWebhookPayload([]byte(body))
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	Describe("HandleWebhook", func() {
		It("marks the payment paid and triggers fulfillment once", func() {
			tx := f.transaction("TRX-1-BBBB0001", transactionDatamodel.StatusProcessing)
			p := f.payment(tx)

			result, err := reconciler.HandleWebhook(ctx, webhook(`{"order_id":"TRX-1-BBBB0001","status":"paid","paid_at":"2026-10-15T08:00:00Z","amount":50760}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Processed).To(BeTrue())
			Expect(result.PaymentStatus).To(Equal(paymentDatamodel.StatusPaid))
			Expect(result.FulfillmentTriggered).To(BeTrue())

			stored := f.reloadPayment(p.ID)
			Expect(stored.Status).To(Equal(paymentDatamodel.StatusPaid))
			Expect(stored.GatewayStatus).To(Equal("paid"))
			Expect(stored.PaidAt).NotTo(BeNil())
			Expect(*stored.PaidAt).To(BeTemporally("==", time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)))

			var metadata map[string]interface{}
			Expect(json.Unmarshal(stored.WebhookMetadata, &metadata)).To(Succeed())
			Expect(metadata).To(HaveKeyWithValue("amount", BeNumerically("==", 50760)))

			Expect(atomic.LoadInt32(&paidEvents)).To(Equal(int32(1)))
			Expect(lastTxID).To(Equal(tx.ID))
		})

		It("accepts camelCase keys and stamps paid_at when the gateway omits it", func() {
			tx := f.transaction("TRX-1-BBBB0002", transactionDatamodel.StatusProcessing)
			p := f.payment(tx)

			_, err := reconciler.HandleWebhook(ctx, webhook(`{"orderId":"TRX-1-BBBB0002","status":"PAID"}`))
			Expect(err).NotTo(HaveOccurred())

			stored := f.reloadPayment(p.ID)
			Expect(stored.Status).To(Equal(paymentDatamodel.StatusPaid))
			Expect(stored.PaidAt).NotTo(BeNil())
		})

		It("acknowledges unknown orders without processing them", func() {
			result, err := reconciler.HandleWebhook(ctx, webhook(`{"order_id":"TRX-0-UNKNOWN0","status":"paid"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Processed).To(BeFalse())
			Expect(atomic.LoadInt32(&paidEvents)).To(BeZero())
		})

		It("keeps the payment status when the gateway status is unrecognised", func() {
			tx := f.transaction("TRX-1-BBBB0003", transactionDatamodel.StatusProcessing)
			p := f.payment(tx)

			result, err := reconciler.HandleWebhook(ctx, webhook(`{"order_id":"TRX-1-BBBB0003","status":"settling"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Processed).To(BeTrue())

			stored := f.reloadPayment(p.ID)
			Expect(stored.Status).To(Equal(paymentDatamodel.StatusPending))
			Expect(stored.GatewayStatus).To(Equal("settling"))
			Expect(atomic.LoadInt32(&paidEvents)).To(BeZero())
		})

		It("records expiry without touching the transaction", func() {
			tx := f.transaction("TRX-1-BBBB0004", transactionDatamodel.StatusProcessing)
			p := f.payment(tx)

			_, err := reconciler.HandleWebhook(ctx, webhook(`{"order_id":"TRX-1-BBBB0004","status":"expired"}`))
			Expect(err).NotTo(HaveOccurred())

			Expect(f.reloadPayment(p.ID).Status).To(Equal(paymentDatamodel.StatusExpired))
			Expect(f.reloadTransaction(tx.ID).Status).To(Equal(transactionDatamodel.StatusProcessing))
			Expect(atomic.LoadInt32(&paidEvents)).To(BeZero())
		})

		It("does not trigger fulfillment for settled transactions", func() {
			tx := f.transaction("TRX-1-BBBB0005", transactionDatamodel.StatusSuccess)
			f.payment(tx)

			result, err := reconciler.HandleWebhook(ctx, webhook(`{"order_id":"TRX-1-BBBB0005","status":"paid"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.FulfillmentTriggered).To(BeFalse())
			Expect(atomic.LoadInt32(&paidEvents)).To(BeZero())
		})

		It("never moves a paid payment backwards", func() {
			tx := f.transaction("TRX-1-BBBB0006", transactionDatamodel.StatusProcessing)
			p := f.payment(tx)

			_, err := reconciler.HandleWebhook(ctx, webhook(`{"order_id":"TRX-1-BBBB0006","status":"paid"}`))
			Expect(err).NotTo(HaveOccurred())
			_, err = reconciler.HandleWebhook(ctx, webhook(`{"order_id":"TRX-1-BBBB0006","status":"expired"}`))
			Expect(err).NotTo(HaveOccurred())

			stored := f.reloadPayment(p.ID)
			Expect(stored.Status).To(Equal(paymentDatamodel.StatusPaid))
			Expect(stored.GatewayStatus).To(Equal("expired"))
		})

		It("reports fulfillment failures without failing the callback", func() {
			tx := f.transaction("TRX-1-BBBB0007", transactionDatamodel.StatusProcessing)
			f.payment(tx)
			handlerErr = errors.New("supplier down")

			result, err := reconciler.HandleWebhook(ctx, webhook(`{"order_id":"TRX-1-BBBB0007","status":"paid"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Processed).To(BeTrue())
			Expect(result.FulfillmentError).To(ContainSubstring("supplier down"))
		})
	})

	Describe("Poll", func() {
		It("applies the gateway status for the owner", func() {
			tx := f.transaction("TRX-1-CCCC0001", transactionDatamodel.StatusProcessing)
			f.payment(tx)
			gateway.status = &paymentgateway.PaymentStatusResult{Status: paymentgateway.ParseStatus("paid"), Amount: 50760}

			resp, err := reconciler.Poll(ctx, tx.TransactionID, &internal.User{ID: f.owner.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Payment.OrderID).To(Equal(tx.TransactionID))
			Expect(resp.Payment.Status).To(Equal(paymentDatamodel.StatusPaid))
			Expect(resp.Payment.PaidAt).NotTo(BeNil())
			Expect(atomic.LoadInt32(&paidEvents)).To(Equal(int32(1)))
		})

		It("lets an admin poll any order", func() {
			tx := f.transaction("TRX-1-CCCC0002", transactionDatamodel.StatusProcessing)
			f.payment(tx)
			gateway.status = &paymentgateway.PaymentStatusResult{Status: paymentgateway.ParseStatus("pending")}

			resp, err := reconciler.Poll(ctx, tx.TransactionID, &internal.User{ID: 9999, IsAdmin: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Payment.Status).To(Equal(paymentDatamodel.StatusPending))
		})

		It("hides orders from other customers", func() {
			tx := f.transaction("TRX-1-CCCC0003", transactionDatamodel.StatusProcessing)
			f.payment(tx)

			_, err := reconciler.Poll(ctx, tx.TransactionID, &internal.User{ID: f.other.ID})
			Expect(errors.Is(err, internal.ErrPaymentNotFound)).To(BeTrue())
			Expect(gateway.polls).To(BeZero())
		})

		It("surfaces gateway failures as upstream errors", func() {
			tx := f.transaction("TRX-1-CCCC0004", transactionDatamodel.StatusProcessing)
			f.payment(tx)
			gateway.statusErr = errors.New("timeout")

			_, err := reconciler.Poll(ctx, tx.TransactionID, &internal.User{ID: f.owner.ID})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeUpstream))
		})
	})

	Describe("SweepPending", func() {
		It("polls only payments older than the cutoff", func() {
			oldTx := f.transaction("TRX-1-DDDD0001", transactionDatamodel.StatusProcessing)
			old := f.payment(oldTx)
			Expect(f.db.Model(&paymentDatamodel.Payment{}).Where("id = ?", old.ID).
				UpdateColumn("created_at", time.Now().Add(-10*time.Minute)).Error).To(Succeed())

			freshTx := f.transaction("TRX-1-DDDD0002", transactionDatamodel.StatusProcessing)
			fresh := f.payment(freshTx)

			gateway.status = &paymentgateway.PaymentStatusResult{Status: paymentgateway.ParseStatus("expired")}

			n, err := reconciler.SweepPending(ctx, time.Minute, 50)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))
			Expect(f.reloadPayment(old.ID).Status).To(Equal(paymentDatamodel.StatusExpired))
			Expect(f.reloadPayment(fresh.ID).Status).To(Equal(paymentDatamodel.StatusPending))
		})
	})
})
