package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MarginTypePercentage = "percentage"
	MarginTypeFixed      = "fixed"
)

// PriceMargin is a markup rule. An empty ProviderCode applies to the whole category.
type PriceMargin struct {
	ID           int64           `gorm:"primaryKey"`
	Category     string          `gorm:"column:category;not null;uniqueIndex:idx_price_margins_scope"`
	ProviderCode string          `gorm:"column:provider_code;not null;uniqueIndex:idx_price_margins_scope"`
	MarginType   string          `gorm:"column:margin_type;not null"`
	MarginValue  decimal.Decimal `gorm:"column:margin_value;type:numeric(12,2);not null"`
	IsActive     bool            `gorm:"column:is_active;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (PriceMargin) TableName() string {
	return "price_margins"
}
