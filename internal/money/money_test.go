package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRateToUSD_KnownAndUnknown(t *testing.T) {
	assert.True(t, RateToUSD("USD").Equal(decimal.NewFromInt(1)))
	assert.True(t, RateToUSD("mxn").Equal(decimal.NewFromFloat(0.058)))
	assert.True(t, RateToUSD("XYZ").Equal(decimal.NewFromInt(1)), "unknown currency pegs 1:1 to USD")
}

func TestToUSD(t *testing.T) {
	amount := decimal.NewFromInt(17500)
	usd := ToUSD(amount, "MXN")
	assert.True(t, usd.Equal(decimal.NewFromFloat(1015.00)), "got %s", usd)
}

func TestConvert_SameCurrencyIsIdentity(t *testing.T) {
	amount := decimal.NewFromFloat(42.50)
	assert.True(t, Convert(amount, "usd", "USD").Equal(amount))
}

func TestConvert_PivotsThroughUSD(t *testing.T) {
	amount := decimal.NewFromInt(1000) // USD
	converted := Convert(amount, "USD", "MXN")
	// 1000 USD / 0.058 USD-per-MXN rate
	expected := decimal.NewFromInt(1000).Div(decimal.NewFromFloat(0.058)).Round(Scale)
	assert.True(t, converted.Equal(expected))
}

func TestConvert_ZeroTargetRateReturnsUnconvertedUSD(t *testing.T) {
	// A configured zero rate never arises from the default table (unknown
	// codes peg to 1, not 0); inject one to exercise the guard directly.
	fxToUSD["ZZZ"] = decimal.Zero
	defer delete(fxToUSD, "ZZZ")

	amount := decimal.NewFromInt(100)
	converted := Convert(amount, "MXN", "ZZZ")
	usd := amount.Mul(RateToUSD("MXN")).Round(Scale)
	assert.True(t, converted.Equal(usd))
}

func TestPercent(t *testing.T) {
	assert.True(t, Percent(decimal.NewFromFloat(5.0)).Equal(decimal.NewFromFloat(0.05)))
}
