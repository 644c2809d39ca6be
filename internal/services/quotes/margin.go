package quotes

import (
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultMarginPercent is used when the stored margin is missing or invalid.
var DefaultMarginPercent = decimal.NewFromInt(15)

var hundred = decimal.NewFromInt(100)

// ValidMarginPercent reports whether p is usable as a markup percentage.
func ValidMarginPercent(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred)
}

// ApplyMargin marks up every rate by marginPercent, rounded to 2 decimal
// places. Rates are modified in place.
func ApplyMargin(rates []models.RateQuote, marginPercent decimal.Decimal) {
	factor := decimal.NewFromInt(1).Add(marginPercent.Div(hundred))
	for i := range rates {
		rates[i].TotalPricing = rates[i].TotalPricing.Mul(factor).Round(2)
	}
}
