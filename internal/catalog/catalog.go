package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	catalogDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/catalog"
)

var categoryDisplayNames = map[string]string{
	"pulsa":   "Pulsa",
	"data":    "Paket Data",
	"pln":     "Token PLN",
	"ewallet": "E-Wallet",
	"game":    "Voucher Game",
	"ppob":    "PPOB",
}

// CategoryDisplayName maps a category code to its storefront label. Unknown codes are upper-cased.
func CategoryDisplayName(code string) string {
	if name, ok := categoryDisplayNames[strings.ToLower(code)]; ok {
		return name
	}
	return strings.ToUpper(code)
}

type Category struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Provider struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category"`
	LogoURL  string `json:"logoUrl,omitempty"`
}

type Voucher struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Nominal       string          `json:"nominal"`
	Description   string          `json:"description,omitempty"`
	Price         int64           `json:"price"`
	PriceOriginal int64           `json:"-"`
	Margin        decimal.Decimal `json:"-"`
	ProviderCode  string          `json:"providerCode,omitempty"`
	ProviderName  string          `json:"providerName,omitempty"`
	LogoURL       string          `json:"logoUrl,omitempty"`
	IsActive      bool            `json:"-"`
}

func VoucherFromDataModel(v *catalogDatamodel.Voucher) *Voucher {
	if v == nil {
		return nil
	}
	out := &Voucher{
		ID:            v.ID,
		Code:          v.VoucherCode,
		Name:          v.Name,
		Category:      v.Category,
		Nominal:       v.Nominal,
		Description:   v.Description,
		Price:         v.PriceSell,
		PriceOriginal: v.PriceOriginal,
		Margin:        v.Margin,
		IsActive:      v.IsActive,
	}
	if v.Provider != nil {
		out.ProviderCode = v.Provider.ProviderCode
		out.ProviderName = v.Provider.ProviderName
		out.LogoURL = v.Provider.LogoURL
	}
	return out
}

func ProviderFromDataModel(p *catalogDatamodel.Provider) *Provider {
	if p == nil {
		return nil
	}
	return &Provider{
		ID:       p.ID,
		Code:     p.ProviderCode,
		Name:     p.ProviderName,
		Category: p.Category,
		LogoURL:  p.LogoURL,
	}
}
