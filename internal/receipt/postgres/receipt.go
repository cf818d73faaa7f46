package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	receiptDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/receipt"
	transactionDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/transaction"
	"github.com/frahmantamala/voucher-store/internal/receipt"
)

type ReceiptRepository struct {
	db *gorm.DB
}

func NewReceiptRepository(db *gorm.DB) receipt.RepositoryAPI {
	return &ReceiptRepository{db: db}
}

func (r *ReceiptRepository) FindByTransactionID(ctx context.Context, transactionID int64) (*receiptDatamodel.Receipt, error) {
	var rcpt receiptDatamodel.Receipt
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&rcpt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rcpt, nil
}

func (r *ReceiptRepository) InsertIfAbsent(ctx context.Context, rcpt *receiptDatamodel.Receipt) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rcpt).Error
}

func (r *ReceiptRepository) LoadTransaction(ctx context.Context, transactionID int64) (*transactionDatamodel.Transaction, error) {
	return r.findTransaction(ctx, "id = ?", transactionID)
}

func (r *ReceiptRepository) FindTransactionByRef(ctx context.Context, transactionRef string) (*transactionDatamodel.Transaction, error) {
	return r.findTransaction(ctx, "transaction_id = ?", transactionRef)
}

func (r *ReceiptRepository) findTransaction(ctx context.Context, query string, arg interface{}) (*transactionDatamodel.Transaction, error) {
	var tx transactionDatamodel.Transaction
	err := r.db.WithContext(ctx).
		Preload("Voucher.Provider").
		Preload("User").
		Where(query, arg).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}
