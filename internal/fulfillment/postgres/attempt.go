package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	fulfillmentDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/fulfillment"
	"github.com/frahmantamala/voucher-store/internal/fulfillment"
)

type AttemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) fulfillment.AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) Claim(ctx context.Context, attempt *fulfillmentDatamodel.Attempt) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_id"}},
		DoNothing: true,
	}).Create(attempt)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *AttemptRepository) Finish(ctx context.Context, transactionID int64, status, errMsg string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&fulfillmentDatamodel.Attempt{}).
		Where("transaction_id = ?", transactionID).
		Updates(map[string]interface{}{
			"status":      status,
			"error":       errMsg,
			"finished_at": &now,
		}).Error
}
