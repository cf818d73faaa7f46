package transaction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/voucher-store/internal"
	"github.com/frahmantamala/voucher-store/internal/core/common/validation"
	catalogDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/catalog"
	paymentDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/payment"
	transactionDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/transaction"
	"github.com/frahmantamala/voucher-store/internal/receipt"
	"github.com/frahmantamala/voucher-store/internal/supplier"
)

type RepositoryAPI interface {
	Create(ctx context.Context, tx *transactionDatamodel.Transaction) error
	// FindByID and FindByTransactionID preload voucher and provider, returning nil when absent.
	FindByID(ctx context.Context, id int64) (*transactionDatamodel.Transaction, error)
	FindByTransactionID(ctx context.Context, transactionRef string) (*transactionDatamodel.Transaction, error)
	Search(ctx context.Context, filter Filter) ([]*transactionDatamodel.Transaction, int64, error)
	// UpdateStatusIf applies updates only while the row's status is one of from. It reports whether a row changed.
	UpdateStatusIf(ctx context.Context, id int64, from []string, updates map[string]interface{}) (bool, error)
	UpdateFields(ctx context.Context, id int64, updates map[string]interface{}) error
	// ListInFlight returns processing transactions that already have a fulfillment attempt, oldest first.
	ListInFlight(ctx context.Context, limit int) ([]*transactionDatamodel.Transaction, error)
	// HasFulfillmentAttempt reports whether a supplier purchase was ever claimed for the transaction.
	HasFulfillmentAttempt(ctx context.Context, id int64) (bool, error)
}

type VoucherRepository interface {
	FindVoucherByCode(ctx context.Context, code string) (*catalogDatamodel.Voucher, error)
}

type PaymentRepository interface {
	FindByTransactionID(ctx context.Context, transactionID int64) (*paymentDatamodel.Payment, error)
}

type Config struct {
	RefPrefix string
	AdminFee  int64
}

type Service struct {
	repo     RepositoryAPI
	vouchers VoucherRepository
	payments PaymentRepository
	supplier supplier.API
	receipts receipt.Issuer
	config   Config
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(
	repo RepositoryAPI,
	vouchers VoucherRepository,
	payments PaymentRepository,
	supplierAPI supplier.API,
	receipts receipt.Issuer,
	config Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		vouchers: vouchers,
		payments: payments,
		supplier: supplierAPI,
		receipts: receipts,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Create(ctx context.Context, dto CreateTransactionDTO, requesterID int64) (*Transaction, error) {
	if appErr := validation.Struct(&dto); appErr != nil {
		return nil, appErr
	}

	target, err := NormalizeTarget(dto.TargetNumber)
	if err != nil {
		return nil, err
	}

	voucher, err := s.vouchers.FindVoucherByCode(ctx, dto.VoucherCode)
	if err != nil {
		return nil, fmt.Errorf("find voucher: %w", err)
	}
	if voucher == nil || !voucher.IsActive {
		return nil, internal.ErrVoucherNotFound
	}

	now := s.now()
	tx := &transactionDatamodel.Transaction{
		TransactionID: NewTransactionID(now),
		UserID:        requesterID,
		VoucherID:     voucher.ID,
		SupplierRef:   NewSupplierRef(s.config.RefPrefix, now),
		TargetNumber:  target,
		PriceOriginal: voucher.PriceOriginal,
		PriceSell:     voucher.PriceSell,
		AdminFee:      s.config.AdminFee,
		TotalAmount:   voucher.PriceSell + s.config.AdminFee,
		Status:        transactionDatamodel.StatusPending,
	}

	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	tx.Voucher = voucher

	s.logger.Info("transaction created",
		"transaction_id", tx.TransactionID,
		"user_id", requesterID,
		"voucher_code", voucher.VoucherCode,
		"total_amount", tx.TotalAmount)

	return FromDataModel(tx), nil
}

// Get loads a transaction by primary key without an ownership check. Operator tooling only.
func (s *Service) Get(ctx context.Context, id int64) (*Transaction, error) {
	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	if tx == nil {
		return nil, internal.ErrTransactionNotFound
	}
	return FromDataModel(tx), nil
}

// CheckStatus returns the requester's transaction, first asking the supplier for an update while it is in flight.
// Supplier failures never fail the call; they are reported in the poll result.
func (s *Service) CheckStatus(ctx context.Context, transactionRef string, requester *internal.User) (*StatusResponse, error) {
	tx, err := s.repo.FindByTransactionID(ctx, transactionRef)
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	if tx == nil || !requester.CanAccess(tx.UserID) {
		return nil, internal.ErrTransactionNotFound
	}

	poll := s.poll(ctx, tx)
	if poll.Outcome == PollUpdated {
		if fresh, err := s.repo.FindByID(ctx, tx.ID); err == nil && fresh != nil {
			tx = fresh
		}
	}

	resp := &StatusResponse{
		Transaction: FromDataModel(tx),
		Poll:        poll,
	}

	if s.payments != nil {
		p, err := s.payments.FindByTransactionID(ctx, tx.ID)
		if err != nil {
			s.logger.Warn("payment lookup failed", "transaction_id", tx.TransactionID, "error", err)
		}
		resp.Payment = paymentSummaryFrom(p)
	}

	return resp, nil
}

func (s *Service) poll(ctx context.Context, tx *transactionDatamodel.Transaction) PollResult {
	if !transactionDatamodel.IsInFlight(tx.Status) {
		return PollResult{Outcome: PollSkipped}
	}

	req := supplier.PurchaseRequest{CustomerNo: tx.TargetNumber, RefID: tx.SupplierRef}
	if tx.Voucher != nil {
		req.SKU = tx.Voucher.VoucherCode
	}

	res, err := s.supplier.CheckStatus(ctx, req)
	if err != nil {
		s.logger.Warn("supplier status check failed",
			"transaction_id", tx.TransactionID,
			"supplier_ref", tx.SupplierRef,
			"error", err)
		return PollResult{Outcome: PollUnreachable, Error: err.Error()}
	}

	status := res.ParsedStatus()
	result := PollResult{SupplierStatus: status.Raw}

	switch status.Kind {
	case supplier.StatusUnknown:
		s.logger.Warn("unrecognised supplier status",
			"transaction_id", tx.TransactionID,
			"supplier_status", status.Raw)
		result.Outcome = PollUnrecognised
		return result
	case supplier.StatusPending:
		result.Outcome = PollUnchanged
		return result
	}

	// terminal supplier results only settle a processing transaction whose purchase was actually placed
	if tx.Status != transactionDatamodel.StatusProcessing {
		result.Outcome = PollUnchanged
		return result
	}
	purchased, err := s.repo.HasFulfillmentAttempt(ctx, tx.ID)
	if err != nil {
		s.logger.Error("failed to check fulfillment attempt", "transaction_id", tx.TransactionID, "error", err)
		return PollResult{Outcome: PollUnreachable, SupplierStatus: status.Raw, Error: err.Error()}
	}
	if !purchased {
		s.logger.Info("ignoring supplier status before purchase",
			"transaction_id", tx.TransactionID,
			"supplier_status", status.Raw)
		result.Outcome = PollUnchanged
		return result
	}

	next := transactionDatamodel.StatusFailed
	if status.Kind == supplier.StatusSuccess {
		next = transactionDatamodel.StatusSuccess
	}
	updates := map[string]interface{}{
		"status":  next,
		"message": res.Message,
	}
	if res.SN != "" {
		updates["serial_number"] = res.SN
	}

	swapped, err := s.repo.UpdateStatusIf(ctx, tx.ID, []string{transactionDatamodel.StatusProcessing}, updates)
	if err != nil {
		s.logger.Error("failed to apply supplier status", "transaction_id", tx.TransactionID, "error", err)
		return PollResult{Outcome: PollUnreachable, SupplierStatus: status.Raw, Error: err.Error()}
	}
	if !swapped {
		result.Outcome = PollUnchanged
		return result
	}

	s.logger.Info("transaction settled from supplier status",
		"transaction_id", tx.TransactionID,
		"status", next)

	if next == transactionDatamodel.StatusSuccess && s.receipts != nil {
		if _, err := s.receipts.Create(ctx, tx.ID, receipt.Extra{SerialNumber: res.SN, Meta: res.Snapshot()}); err != nil {
			s.logger.Error("failed to issue receipt", "transaction_id", tx.TransactionID, "error", err)
		}
	}

	result.Outcome = PollUpdated
	return result
}

func (s *Service) List(ctx context.Context, requester *internal.User, filter Filter) (*ListResult, error) {
	filter = filter.Normalize()
	if filter.Status != "" && !transactionDatamodel.IsValidStatus(filter.Status) {
		return nil, internal.NewValidationFieldError("status", "Invalid status", internal.ErrCodeInvalidStatus)
	}
	filter.UserID = requester.ID
	return s.search(ctx, filter)
}

// ListAll is the admin listing. A UserID in the filter narrows the result instead of scoping it.
func (s *Service) ListAll(ctx context.Context, filter Filter) (*ListResult, error) {
	filter = filter.Normalize()
	if filter.Status != "" && !transactionDatamodel.IsValidStatus(filter.Status) {
		return nil, internal.NewValidationFieldError("status", "Invalid status", internal.ErrCodeInvalidStatus)
	}
	return s.search(ctx, filter)
}

func (s *Service) search(ctx context.Context, filter Filter) (*ListResult, error) {
	rows, total, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search transactions: %w", err)
	}

	out := make([]*Transaction, 0, len(rows))
	for _, t := range rows {
		out = append(out, FromDataModel(t))
	}
	return &ListResult{Transactions: out, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// SyncInFlight polls the supplier for processing transactions with a fulfillment attempt and returns how many settled.
func (s *Service) SyncInFlight(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	txs, err := s.repo.ListInFlight(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list in-flight transactions: %w", err)
	}

	updated := 0
	for _, tx := range txs {
		if ctx.Err() != nil {
			return updated, ctx.Err()
		}
		if s.poll(ctx, tx).Outcome == PollUpdated {
			updated++
		}
	}

	s.logger.Info("in-flight transactions synced", "checked", len(txs), "updated", updated)
	return updated, nil
}

// OverrideStatus is the operator's manual status change. It is unconditional; moving a
// transaction to success also makes sure its receipt exists.
func (s *Service) OverrideStatus(ctx context.Context, id int64, dto StatusOverrideDTO, actor *internal.User) (*Transaction, error) {
	dto.Status = strings.ToLower(strings.TrimSpace(dto.Status))
	if !transactionDatamodel.IsValidStatus(dto.Status) {
		return nil, internal.NewValidationFieldError("status",
			"status must be one of ["+strings.Join(transactionDatamodel.Statuses, " ")+"]", internal.ErrCodeInvalidStatus)
	}

	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}
	if tx == nil {
		return nil, internal.ErrTransactionNotFound
	}

	updates := map[string]interface{}{"status": dto.Status}
	if dto.Message != "" {
		updates["message"] = dto.Message
	}
	if err := s.repo.UpdateFields(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("override status: %w", err)
	}

	actorID := int64(0)
	if actor != nil {
		actorID = actor.ID
	}
	s.logger.Info("transaction status overridden",
		"transaction_id", tx.TransactionID,
		"from", tx.Status,
		"to", dto.Status,
		"actor_id", actorID)

	if dto.Status == transactionDatamodel.StatusSuccess && s.receipts != nil {
		if _, err := s.receipts.Create(ctx, id, receipt.Extra{SerialNumber: tx.SerialNumber}); err != nil {
			s.logger.Error("failed to issue receipt after override", "transaction_id", tx.TransactionID, "error", err)
		}
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload transaction: %w", err)
	}
	return FromDataModel(updated), nil
}
