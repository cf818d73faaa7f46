package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/voucher-store/internal"
	receiptDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/receipt"
	transactionDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/transaction"
)

type RepositoryAPI interface {
	FindByTransactionID(ctx context.Context, transactionID int64) (*receiptDatamodel.Receipt, error)
	// InsertIfAbsent inserts r unless a receipt already exists for its transaction.
	InsertIfAbsent(ctx context.Context, r *receiptDatamodel.Receipt) error
	// LoadTransaction returns the transaction with voucher, provider and user, or nil.
	LoadTransaction(ctx context.Context, transactionID int64) (*transactionDatamodel.Transaction, error)
	FindTransactionByRef(ctx context.Context, transactionRef string) (*transactionDatamodel.Transaction, error)
}

// Issuer is the narrow view fulfillment and the ledger depend on.
type Issuer interface {
	Create(ctx context.Context, transactionID int64, extra Extra) (*Receipt, error)
}

type Service struct {
	repo     RepositoryAPI
	merchant string
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo RepositoryAPI, merchantName string, logger *slog.Logger) *Service {
	if merchantName == "" {
		merchantName = DefaultMerchantName
	}
	return &Service{repo: repo, merchant: merchantName, logger: logger, now: time.Now}
}

// Create issues the receipt for a successful transaction. It returns the existing receipt when one is
// already stored, and nil when the transaction is missing or not successful.
func (s *Service) Create(ctx context.Context, transactionID int64, extra Extra) (*Receipt, error) {
	existing, err := s.repo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("find receipt: %w", err)
	}
	if existing != nil {
		return FromDataModel(existing)
	}

	tx, err := s.repo.LoadTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	if tx == nil {
		s.logger.Warn("receipt requested for missing transaction", "transaction_id", transactionID)
		return nil, nil
	}
	if tx.Status != transactionDatamodel.StatusSuccess {
		s.logger.Debug("receipt skipped for unsuccessful transaction", "transaction_id", transactionID, "status", tx.Status)
		return nil, nil
	}

	now := s.now()
	doc, err := json.Marshal(buildDocument(s.merchant, tx, extra, now))
	if err != nil {
		return nil, fmt.Errorf("encode receipt: %w", err)
	}

	row := &receiptDatamodel.Receipt{
		TransactionID: tx.ID,
		ReceiptNumber: NumberFor(tx.TransactionID, now),
		ReceiptData:   doc,
	}
	if err := s.repo.InsertIfAbsent(ctx, row); err != nil {
		return nil, fmt.Errorf("insert receipt: %w", err)
	}

	// a concurrent writer may have won; the stored row is authoritative
	stored, err := s.repo.FindByTransactionID(ctx, tx.ID)
	if err != nil {
		return nil, fmt.Errorf("reload receipt: %w", err)
	}
	if stored == nil {
		return nil, fmt.Errorf("receipt for transaction %d not found after insert", tx.ID)
	}

	s.logger.Info("receipt issued",
		"transaction_id", tx.TransactionID,
		"receipt_number", stored.ReceiptNumber)

	return FromDataModel(stored)
}

// GetOrGenerate returns the receipt for a transaction the requester may see, issuing it on demand for
// successful transactions.
func (s *Service) GetOrGenerate(ctx context.Context, transactionRef string, requester *internal.User) (*Receipt, error) {
	tx, err := s.repo.FindTransactionByRef(ctx, transactionRef)
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	if tx == nil || requester == nil || !requester.CanAccess(tx.UserID) {
		return nil, internal.ErrTransactionNotFound
	}

	existing, err := s.repo.FindByTransactionID(ctx, tx.ID)
	if err != nil {
		return nil, fmt.Errorf("find receipt: %w", err)
	}
	if existing != nil {
		return FromDataModel(existing)
	}

	if tx.Status != transactionDatamodel.StatusSuccess {
		return nil, internal.ErrReceiptNotFound
	}

	r, err := s.Create(ctx, tx.ID, Extra{})
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, internal.ErrReceiptNotFound
	}
	return r, nil
}
