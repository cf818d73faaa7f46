package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	paymentDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/payment"
	"github.com/frahmantamala/voucher-store/internal/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

var _ payment.RepositoryAPI = (*PaymentRepository)(nil)

func (r *PaymentRepository) Create(ctx context.Context, p *paymentDatamodel.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*paymentDatamodel.Payment, error) {
	return r.findOne(ctx, "order_id = ?", orderID)
}

func (r *PaymentRepository) FindByTransactionID(ctx context.Context, transactionID int64) (*paymentDatamodel.Payment, error) {
	return r.findOne(ctx, "transaction_id = ?", transactionID)
}

func (r *PaymentRepository) findOne(ctx context.Context, query string, arg interface{}) (*paymentDatamodel.Payment, error) {
	var p paymentDatamodel.Payment
	err := r.db.WithContext(ctx).Where(query, arg).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).
		Model(&paymentDatamodel.Payment{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *PaymentRepository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*paymentDatamodel.Payment, error) {
	var payments []*paymentDatamodel.Payment
	q := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", paymentDatamodel.StatusPending, cutoff).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&payments).Error
	return payments, err
}
