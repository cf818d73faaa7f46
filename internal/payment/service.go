package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/voucher-store/internal"
	paymentDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/payment"
	paymentgatewaytypes "github.com/frahmantamala/voucher-store/internal/core/datamodel/paymentgateway"
	transactionDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/transaction"
	"github.com/frahmantamala/voucher-store/internal/paymentgateway"
)

type RepositoryAPI interface {
	Create(ctx context.Context, p *paymentDatamodel.Payment) error
	// FindByOrderID and FindByTransactionID return nil when there is no row.
	FindByOrderID(ctx context.Context, orderID string) (*paymentDatamodel.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID int64) (*paymentDatamodel.Payment, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*paymentDatamodel.Payment, error)
}

type TransactionRepository interface {
	FindByID(ctx context.Context, id int64) (*transactionDatamodel.Transaction, error)
	FindByTransactionID(ctx context.Context, transactionRef string) (*transactionDatamodel.Transaction, error)
	UpdateStatusIf(ctx context.Context, id int64, from []string, updates map[string]interface{}) (bool, error)
}

type Service struct {
	payments      RepositoryAPI
	transactions  TransactionRepository
	gateway       paymentgateway.API
	expiryMinutes int
	logger        *slog.Logger
	now           func() time.Time
}

func NewService(payments RepositoryAPI, transactions TransactionRepository, gateway paymentgateway.API, expiryMinutes int, logger *slog.Logger) *Service {
	if expiryMinutes <= 0 {
		expiryMinutes = ChargeExpiryMinutes
	}
	return &Service{
		payments:      payments,
		transactions:  transactions,
		gateway:       gateway,
		expiryMinutes: expiryMinutes,
		logger:        logger,
		now:           time.Now,
	}
}

// ProcessPayment opens a QRIS charge for a pending transaction owned by the requester.
// The transaction is claimed pending→processing first and released again if the charge
// cannot be created or stored.
func (s *Service) ProcessPayment(ctx context.Context, transactionRef string, requester *internal.User, contact ContactDTO) (*ProcessPaymentResponse, error) {
	tx, err := s.transactions.FindByTransactionID(ctx, transactionRef)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if tx == nil || requester == nil || tx.UserID != requester.ID {
		return nil, internal.ErrTransactionNotFound
	}
	if tx.Status != transactionDatamodel.StatusPending {
		return nil, internal.NewInvalidStateError(
			fmt.Sprintf("Transaction is %s, payment can only be started for pending transactions", tx.Status),
			internal.ErrCodeTransactionState)
	}

	claimed, err := s.transactions.UpdateStatusIf(ctx, tx.ID,
		[]string{transactionDatamodel.StatusPending},
		map[string]interface{}{"status": transactionDatamodel.StatusProcessing})
	if err != nil {
		return nil, fmt.Errorf("failed to claim transaction: %w", err)
	}
	if !claimed {
		return nil, internal.NewInvalidStateError("Payment is already being processed for this transaction", internal.ErrCodeTransactionState)
	}

	if contact.Email == "" {
		contact.Email = requester.Email
	}
	if contact.Phone == "" {
		contact.Phone = requester.Phone
	}

	charge, err := s.gateway.CreateQRIS(ctx, &paymentgatewaytypes.ChargeRequest{
		OrderID:       tx.TransactionID,
		Amount:        tx.TotalAmount,
		Customer:      paymentgatewaytypes.Customer{Email: contact.Email, Phone: contact.Phone},
		ExpiryMinutes: s.expiryMinutes,
	})
	if err != nil {
		s.release(ctx, tx)
		s.logger.Error("failed to create qris charge", "transaction_id", tx.TransactionID, "error", err)
		if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeUpstream {
			return nil, appErr
		}
		return nil, internal.NewUpstreamError("Failed to create payment", internal.ErrCodePaymentGateway, err)
	}

	expiresAt := s.now().Add(time.Duration(s.expiryMinutes) * time.Minute)
	if parsed := paymentgateway.ParseTimestamp(charge.ExpiryTime); parsed != nil {
		expiresAt = *parsed
	}
	amount := charge.Amount
	if amount == 0 {
		amount = tx.TotalAmount
	}

	p := &paymentDatamodel.Payment{
		TransactionID: tx.ID,
		OrderID:       tx.TransactionID,
		PaymentMethod: paymentDatamodel.MethodQRIS,
		QRString:      charge.QRString,
		QRImageURL:    charge.QRImageURL,
		Amount:        amount,
		Status:        paymentDatamodel.StatusPending,
		ExpiresAt:     &expiresAt,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		s.release(ctx, tx)
		return nil, fmt.Errorf("failed to store payment: %w", err)
	}

	s.logger.Info("qris charge created",
		"transaction_id", tx.TransactionID,
		"amount", amount,
		"expires_at", expiresAt)

	return &ProcessPaymentResponse{
		Payment: ChargeInfo{
			OrderID:    p.OrderID,
			QRString:   p.QRString,
			QRImageURL: p.QRImageURL,
			Amount:     p.Amount,
			ExpiryTime: expiresAt,
		},
		Transaction: TransactionRef{
			ID:            tx.ID,
			TransactionID: tx.TransactionID,
			Status:        transactionDatamodel.StatusProcessing,
		},
	}, nil
}

func (s *Service) release(ctx context.Context, tx *transactionDatamodel.Transaction) {
	if _, err := s.transactions.UpdateStatusIf(ctx, tx.ID,
		[]string{transactionDatamodel.StatusProcessing},
		map[string]interface{}{"status": transactionDatamodel.StatusPending}); err != nil {
		s.logger.Error("failed to release transaction claim", "transaction_id", tx.TransactionID, "error", err)
	}
}
