package quotes

import (
	"testing"

	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestApplyMargin(t *testing.T) {
	rates := []models.RateQuote{
		{ID: "r1", TotalPricing: decimal.RequireFromString("100.00")},
		{ID: "r2", TotalPricing: decimal.RequireFromString("233.33")},
	}
	ApplyMargin(rates, decimal.NewFromInt(15))

	require.Equal(t, "115", rates[0].TotalPricing.String())
	require.Equal(t, "268.33", rates[1].TotalPricing.String())
}

func TestApplyMargin_Zero(t *testing.T) {
	rates := []models.RateQuote{{TotalPricing: decimal.RequireFromString("99.99")}}
	ApplyMargin(rates, decimal.Zero)
	require.Equal(t, "99.99", rates[0].TotalPricing.String())
}

func TestValidMarginPercent(t *testing.T) {
	require.True(t, ValidMarginPercent(decimal.Zero))
	require.True(t, ValidMarginPercent(decimal.NewFromInt(100)))
	require.False(t, ValidMarginPercent(decimal.NewFromInt(-1)))
	require.False(t, ValidMarginPercent(decimal.NewFromInt(101)))
}
