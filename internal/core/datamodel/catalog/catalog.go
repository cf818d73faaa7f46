package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Provider struct {
	ID           int64     `gorm:"primaryKey"`
	ProviderCode string    `gorm:"column:provider_code;uniqueIndex;not null"`
	ProviderName string    `gorm:"column:provider_name;not null"`
	Category     string    `gorm:"column:category;not null"`
	LogoURL      string    `gorm:"column:logo_url"`
	IsActive     bool      `gorm:"column:is_active;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Provider) TableName() string {
	return "providers"
}

type Voucher struct {
	ID            int64           `gorm:"primaryKey"`
	VoucherCode   string          `gorm:"column:voucher_code;uniqueIndex;not null"`
	ProviderID    int64           `gorm:"column:provider_id;not null"`
	Provider      *Provider       `gorm:"foreignKey:ProviderID"`
	Category      string          `gorm:"column:category;not null"`
	Name          string          `gorm:"column:name;not null"`
	Nominal       string          `gorm:"column:nominal"`
	Description   string          `gorm:"column:description"`
	PriceOriginal int64           `gorm:"column:price_original;not null"`
	PriceSell     int64           `gorm:"column:price_sell;not null"`
	Margin        decimal.Decimal `gorm:"column:margin;type:numeric(12,2);not null"`
	IsActive      bool            `gorm:"column:is_active;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Voucher) TableName() string {
	return "vouchers"
}
