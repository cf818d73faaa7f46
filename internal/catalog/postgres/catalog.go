package postgres

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/voucher-store/internal/catalog"
	catalogDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/catalog"
)

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) catalog.RepositoryAPI {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListVouchers(ctx context.Context, filter catalog.VoucherFilter, limit int) ([]*catalogDatamodel.Voucher, error) {
	q := r.db.WithContext(ctx).
		Preload("Provider").
		Where("vouchers.is_active = ?", true)

	if filter.Category != "" {
		q = q.Where("vouchers.category = ?", filter.Category)
	}
	if filter.ProviderCode != "" {
		q = q.Where("vouchers.provider_id IN (?)",
			r.db.Model(&catalogDatamodel.Provider{}).Select("id").Where("provider_code = ?", filter.ProviderCode))
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("(LOWER(vouchers.name) LIKE LOWER(?) OR LOWER(vouchers.nominal) LIKE LOWER(?))", like, like)
	}
	if filter.MinPrice > 0 {
		q = q.Where("vouchers.price_sell >= ?", filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		q = q.Where("vouchers.price_sell <= ?", filter.MaxPrice)
	}

	var vouchers []*catalogDatamodel.Voucher
	err := q.Order("vouchers.category ASC").
		Order("vouchers.price_sell ASC").
		Limit(limit).
		Find(&vouchers).Error
	return vouchers, err
}

func (r *CatalogRepository) FindVoucherByCode(ctx context.Context, code string) (*catalogDatamodel.Voucher, error) {
	var v catalogDatamodel.Voucher
	err := r.db.WithContext(ctx).Preload("Provider").Where("voucher_code = ?", code).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *CatalogRepository) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&catalogDatamodel.Voucher{}).
		Where("is_active = ?", true).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	return categories, err
}

func (r *CatalogRepository) ListProviders(ctx context.Context, category string) ([]*catalogDatamodel.Provider, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var providers []*catalogDatamodel.Provider
	err := q.Order("provider_name ASC").Find(&providers).Error
	return providers, err
}

func (r *CatalogRepository) UpsertProvider(ctx context.Context, p *catalogDatamodel.Provider) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"provider_name", "category", "is_active", "updated_at"}),
	}).Create(p).Error
	if err != nil {
		return err
	}

	var stored catalogDatamodel.Provider
	if err := r.db.WithContext(ctx).Where("provider_code = ?", p.ProviderCode).First(&stored).Error; err != nil {
		return err
	}
	*p = stored
	return nil
}

func (r *CatalogRepository) UpsertVoucher(ctx context.Context, v *catalogDatamodel.Voucher) error {
	err := r.db.WithContext(ctx).Omit("Provider").Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "voucher_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"provider_id", "category", "name", "nominal", "description",
			"price_original", "price_sell", "margin", "is_active", "updated_at",
		}),
	}).Create(v).Error
	if err != nil {
		return err
	}

	var stored catalogDatamodel.Voucher
	if err := r.db.WithContext(ctx).Where("voucher_code = ?", v.VoucherCode).First(&stored).Error; err != nil {
		return err
	}
	*v = stored
	return nil
}

func (r *CatalogRepository) ListActiveVouchers(ctx context.Context) ([]*catalogDatamodel.Voucher, error) {
	var vouchers []*catalogDatamodel.Voucher
	err := r.db.WithContext(ctx).
		Preload("Provider").
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&vouchers).Error
	return vouchers, err
}

func (r *CatalogRepository) UpdateVoucherPrice(ctx context.Context, id int64, margin decimal.Decimal, priceSell int64) error {
	return r.db.WithContext(ctx).
		Model(&catalogDatamodel.Voucher{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"margin":     margin,
			"price_sell": priceSell,
		}).Error
}
