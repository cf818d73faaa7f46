package fulfillment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/voucher-store/internal"
	fulfillmentDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/fulfillment"
	transactionDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/transaction"
	"github.com/frahmantamala/voucher-store/internal/receipt"
	"github.com/frahmantamala/voucher-store/internal/supplier"
)

type TransactionRepository interface {
	// FindByID returns the transaction with its voucher, or nil.
	FindByID(ctx context.Context, id int64) (*transactionDatamodel.Transaction, error)
	UpdateStatusIf(ctx context.Context, id int64, from []string, updates map[string]interface{}) (bool, error)
}

type AttemptRepository interface {
	// Claim inserts the attempt and reports false when one already exists for the transaction.
	Claim(ctx context.Context, attempt *fulfillmentDatamodel.Attempt) (bool, error)
	Finish(ctx context.Context, transactionID int64, status, errMsg string) error
}

// Dispatcher hands a paid transaction to fulfillment.
type Dispatcher interface {
	Trigger(ctx context.Context, transactionID int64) error
}

type Fulfiller interface {
	Fulfill(ctx context.Context, transactionID int64) (*Result, error)
}

type Outcome string

const (
	OutcomeNotEligible    Outcome = "not_eligible"
	OutcomeAlreadyClaimed Outcome = "already_claimed"
	OutcomeCompleted      Outcome = "completed"
	OutcomeFailed         Outcome = "failed"
)

type Result struct {
	Outcome      Outcome `json:"outcome"`
	Status       string  `json:"status"`
	SerialNumber string  `json:"serialNumber,omitempty"`
	Message      string  `json:"message,omitempty"`
}

// Skipped reports whether no supplier call was made.
func (r *Result) Skipped() bool {
	return r != nil && (r.Outcome == OutcomeNotEligible || r.Outcome == OutcomeAlreadyClaimed)
}

type Service struct {
	transactions TransactionRepository
	attempts     AttemptRepository
	supplier     supplier.API
	receipts     receipt.Issuer
	logger       *slog.Logger
	now          func() time.Time
}

func NewService(transactions TransactionRepository, attempts AttemptRepository, supplierAPI supplier.API, receipts receipt.Issuer, logger *slog.Logger) *Service {
	return &Service{
		transactions: transactions,
		attempts:     attempts,
		supplier:     supplierAPI,
		receipts:     receipts,
		logger:       logger,
		now:          time.Now,
	}
}

// Trigger fulfills inline.
func (s *Service) Trigger(ctx context.Context, transactionID int64) error {
	_, err := s.Fulfill(ctx, transactionID)
	return err
}

// Fulfill purchases the voucher from the supplier at most once per transaction. A durable attempt row is
// claimed before the supplier is called; losing the claim returns OutcomeAlreadyClaimed.
func (s *Service) Fulfill(ctx context.Context, transactionID int64) (*Result, error) {
	tx, err := s.transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	if tx == nil {
		s.logger.Error("fulfillment requested for missing transaction", "transaction_id", transactionID)
		return nil, internal.ErrTransactionNotFound
	}
	if tx.Voucher == nil {
		return nil, internal.ErrVoucherNotFound
	}

	if !transactionDatamodel.IsInFlight(tx.Status) {
		s.logger.Info("fulfillment skipped, transaction not eligible",
			"transaction_id", tx.TransactionID,
			"status", tx.Status)
		return &Result{Outcome: OutcomeNotEligible, Status: tx.Status}, nil
	}

	claimed, err := s.attempts.Claim(ctx, &fulfillmentDatamodel.Attempt{
		TransactionID: tx.ID,
		SupplierRef:   tx.SupplierRef,
		Status:        fulfillmentDatamodel.AttemptStarted,
		StartedAt:     s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("claim fulfillment attempt: %w", err)
	}
	if !claimed {
		s.logger.Info("fulfillment skipped, attempt already claimed", "transaction_id", tx.TransactionID)
		return &Result{Outcome: OutcomeAlreadyClaimed, Status: tx.Status}, nil
	}

	s.logger.Info("purchasing voucher from supplier",
		"transaction_id", tx.TransactionID,
		"sku", tx.Voucher.VoucherCode,
		"supplier_ref", tx.SupplierRef)

	res, err := s.supplier.Purchase(ctx, supplier.PurchaseRequest{
		SKU:        tx.Voucher.VoucherCode,
		CustomerNo: tx.TargetNumber,
		RefID:      tx.SupplierRef,
	})
	if err != nil {
		return s.fail(ctx, tx, err)
	}

	status, message := mapSupplierResult(res)
	updates := map[string]interface{}{
		"status":  status,
		"message": message,
	}
	if res.SN != "" {
		updates["serial_number"] = res.SN
	}

	swapped, err := s.transactions.UpdateStatusIf(ctx, tx.ID, transactionDatamodel.InFlightStatuses, updates)
	if err != nil {
		return nil, fmt.Errorf("update transaction status: %w", err)
	}
	if !swapped {
		s.logger.Warn("transaction left in-flight states during fulfillment", "transaction_id", tx.TransactionID)
	}

	if err := s.attempts.Finish(ctx, tx.ID, fulfillmentDatamodel.AttemptCompleted, ""); err != nil {
		s.logger.Error("failed to mark fulfillment attempt completed", "transaction_id", tx.TransactionID, "error", err)
	}

	s.logger.Info("voucher fulfilled",
		"transaction_id", tx.TransactionID,
		"supplier_status", res.Status,
		"status", status)

	if status == transactionDatamodel.StatusSuccess && swapped && s.receipts != nil {
		if _, err := s.receipts.Create(ctx, tx.ID, receipt.Extra{SerialNumber: res.SN, Meta: res.Snapshot()}); err != nil {
			s.logger.Error("failed to issue receipt", "transaction_id", tx.TransactionID, "error", err)
		}
	}

	return &Result{Outcome: OutcomeCompleted, Status: status, SerialNumber: res.SN, Message: message}, nil
}

func (s *Service) fail(ctx context.Context, tx *transactionDatamodel.Transaction, cause error) (*Result, error) {
	message := "Fulfillment error: " + cause.Error()
	s.logger.Error("supplier purchase failed", "transaction_id", tx.TransactionID, "error", cause)

	if _, err := s.transactions.UpdateStatusIf(ctx, tx.ID, transactionDatamodel.InFlightStatuses, map[string]interface{}{
		"status":  transactionDatamodel.StatusFailed,
		"message": message,
	}); err != nil {
		s.logger.Error("failed to mark transaction failed", "transaction_id", tx.TransactionID, "error", err)
	}
	if err := s.attempts.Finish(ctx, tx.ID, fulfillmentDatamodel.AttemptFailed, cause.Error()); err != nil {
		s.logger.Error("failed to mark fulfillment attempt failed", "transaction_id", tx.TransactionID, "error", err)
	}

	return &Result{Outcome: OutcomeFailed, Status: transactionDatamodel.StatusFailed, Message: message}, cause
}

// mapSupplierResult converts a purchase response to the transaction status and message to store.
// Non-terminal and unrecognised results keep the transaction processing.
func mapSupplierResult(res *supplier.TransactionResult) (string, string) {
	status := res.ParsedStatus()
	switch status.Kind {
	case supplier.StatusSuccess:
		return transactionDatamodel.StatusSuccess, res.Message
	case supplier.StatusFailed:
		return transactionDatamodel.StatusFailed, res.Message
	case supplier.StatusPending:
		return transactionDatamodel.StatusProcessing, res.Message
	default:
		msg := fmt.Sprintf("Unrecognised supplier status: %s", status.Raw)
		if res.Message != "" {
			msg += " (" + res.Message + ")"
		}
		return transactionDatamodel.StatusProcessing, msg
	}
}
