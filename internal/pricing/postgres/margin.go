package postgres

import (
	"context"
	"errors"

	pricingDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/pricing"
	"github.com/frahmantamala/voucher-store/internal/pricing"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MarginRepository struct {
	db *gorm.DB
}

func NewMarginRepository(db *gorm.DB) pricing.RepositoryAPI {
	return &MarginRepository{db: db}
}

func (r *MarginRepository) FindActive(ctx context.Context, category, providerCode string) (*pricingDatamodel.PriceMargin, error) {
	var m pricingDatamodel.PriceMargin
	err := r.db.WithContext(ctx).
		Where("category = ? AND provider_code = ? AND is_active = ?", category, providerCode, true).
		Order("created_at DESC").
		Order("id DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *MarginRepository) Upsert(ctx context.Context, m *pricingDatamodel.PriceMargin) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category"}, {Name: "provider_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"margin_type", "margin_value", "is_active", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return err
	}

	// the returned id is unreliable after an update-on-conflict, so re-read the row
	var stored pricingDatamodel.PriceMargin
	if err := r.db.WithContext(ctx).
		Where("category = ? AND provider_code = ?", m.Category, m.ProviderCode).
		First(&stored).Error; err != nil {
		return err
	}
	*m = stored
	return nil
}

func (r *MarginRepository) List(ctx context.Context) ([]*pricingDatamodel.PriceMargin, error) {
	var margins []*pricingDatamodel.PriceMargin
	err := r.db.WithContext(ctx).Order("category ASC, provider_code ASC").Find(&margins).Error
	return margins, err
}
