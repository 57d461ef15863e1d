// Package money implements fixed-point monetary arithmetic and table-driven
// currency conversion. Amounts are always github.com/shopspring/decimal
// values rounded to 2 fractional digits; float64 never enters a comparison.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every monetary amount carries.
const Scale = 2

// fxToUSD holds approximate FX rates, keyed by upper-cased ISO currency
// code, matching FX_RATES_TO_USD in the reference implementation. A
// currency absent from this table is treated as pegged 1:1 to USD.
var fxToUSD = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"MXN": decimal.NewFromFloat(0.058),
	"COP": decimal.NewFromFloat(0.00025),
	"BRL": decimal.NewFromFloat(0.20),
}

// RateToUSD returns the configured USD rate for a currency, defaulting to
// 1.0 for unknown codes.
func RateToUSD(currency string) decimal.Decimal {
	if rate, ok := fxToUSD[strings.ToUpper(currency)]; ok {
		return rate
	}
	return decimal.NewFromInt(1)
}

// ToUSD converts amount (in currency) to its USD value.
func ToUSD(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Mul(RateToUSD(currency)).Round(Scale)
}

// Convert converts amount from one currency to another by pivoting through
// USD. If the target rate is zero (a degenerate configuration), the USD
// value is returned unconverted rather than dividing by zero.
func Convert(amount decimal.Decimal, from, to string) decimal.Decimal {
	if strings.EqualFold(from, to) {
		return amount
	}

	usd := amount.Mul(RateToUSD(from))
	toRate := RateToUSD(to)
	if toRate.IsZero() {
		return usd.Round(Scale)
	}

	return usd.Div(toRate).Round(Scale)
}

// Percent turns a human percentage (5.0 meaning 5%) into an exact decimal
// fraction (0.05), never a float64.
func Percent(p decimal.Decimal) decimal.Decimal {
	return p.Div(decimal.NewFromInt(100))
}
