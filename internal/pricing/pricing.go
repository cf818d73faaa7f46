package pricing

import (
	"github.com/shopspring/decimal"

	pricingDatamodel "github.com/frahmantamala/voucher-store/internal/core/datamodel/pricing"
)

const (
	TypePercentage = pricingDatamodel.MarginTypePercentage
	TypeFixed      = pricingDatamodel.MarginTypeFixed
)

var hundred = decimal.NewFromInt(100)

// Rule is a margin to apply on top of a wholesale price.
type Rule struct {
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// DefaultRule applies when no active margin matches.
func DefaultRule() Rule {
	return Rule{Type: TypePercentage, Value: decimal.NewFromInt(5)}
}

// SellPrice computes the whole-rupiah sell price for a wholesale price, rounding half away from zero.
func SellPrice(price int64, rule Rule) int64 {
	p := decimal.NewFromInt(price)

	var sell decimal.Decimal
	switch rule.Type {
	case TypeFixed:
		sell = p.Add(rule.Value)
	default:
		sell = p.Mul(decimal.NewFromInt(1).Add(rule.Value.Div(hundred)))
	}

	return sell.Round(0).IntPart()
}

func ruleFrom(m *pricingDatamodel.PriceMargin) Rule {
	t := m.MarginType
	if t != TypeFixed {
		t = TypePercentage
	}
	return Rule{Type: t, Value: m.MarginValue}
}
