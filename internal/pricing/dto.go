package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	pricingDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/pricing"
)

// MarginDTO is the admin upsert payload. Omitting providerCode targets the whole category.
type MarginDTO struct {
	Category     string           `json:"category" validate:"required,max=50"`
	ProviderCode string           `json:"providerCode" validate:"max=50"`
	Type         string           `json:"type" validate:"omitempty,oneof=percentage fixed"`
	Value        *decimal.Decimal `json:"value" validate:"required"`
	IsActive     *bool            `json:"isActive"`
}

type Margin struct {
	ID           int64           `json:"id"`
	Category     string          `json:"category"`
	ProviderCode string          `json:"providerCode,omitempty"`
	Type         string          `json:"type"`
	Value        decimal.Decimal `json:"value"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func FromDataModel(m *pricingDatamodel.PriceMargin) *Margin {
	if m == nil {
		return nil
	}
	return &Margin{
		ID:           m.ID,
		Category:     m.Category,
		ProviderCode: m.ProviderCode,
		Type:         m.MarginType,
		Value:        m.MarginValue,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
