package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	fulfillmentDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/fulfillment"
	transactionDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/transaction"
	"github.com/frahmantamala/voucher-store/internal/transaction"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *transactionDatamodel.Transaction) error {
	return r.db.WithContext(ctx).Omit("User", "Voucher").Create(tx).Error
}

func (r *TransactionRepository) FindByID(ctx context.Context, id int64) (*transactionDatamodel.Transaction, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *TransactionRepository) FindByTransactionID(ctx context.Context, transactionRef string) (*transactionDatamodel.Transaction, error) {
	return r.findOne(ctx, "transaction_id = ?", transactionRef)
}

func (r *TransactionRepository) findOne(ctx context.Context, query string, arg interface{}) (*transactionDatamodel.Transaction, error) {
	var tx transactionDatamodel.Transaction
	err := r.db.WithContext(ctx).
		Preload("Voucher.Provider").
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

func (r *TransactionRepository) Search(ctx context.Context, filter transaction.Filter) ([]*transactionDatamodel.Transaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&transactionDatamodel.Transaction{})
	if filter.UserID > 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.DateFrom != nil {
		q = q.Where("created_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		q = q.Where("created_at <= ?", *filter.DateTo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txs []*transactionDatamodel.Transaction
	err := q.Preload("Voucher.Provider").
		Preload("User").
		Order("created_at DESC").
		Order("id DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit).
		Find(&txs).Error
	return txs, total, err
}

func (r *TransactionRepository) UpdateStatusIf(ctx context.Context, id int64, from []string, updates map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&transactionDatamodel.Transaction{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *TransactionRepository) UpdateFields(ctx context.Context, id int64, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&transactionDatamodel.Transaction{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TransactionRepository) ListInFlight(ctx context.Context, limit int) ([]*transactionDatamodel.Transaction, error) {
	attempts := r.db.Model(&fulfillmentDatamodel.Attempt{}).Select("transaction_id")

	var txs []*transactionDatamodel.Transaction
	err := r.db.WithContext(ctx).
		Preload("Voucher.Provider").
		Where("status = ?", transactionDatamodel.StatusProcessing).
		Where("id IN (?)", attempts).
		Order("updated_at ASC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

func (r *TransactionRepository) HasFulfillmentAttempt(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&fulfillmentDatamodel.Attempt{}).
		Where("transaction_id = ?", id).
		Count(&count).Error
	return count > 0, err
}
