package currency

import "github.com/shopspring/decimal"

// Convert expresses amount, denominated in source, in the table's base
// currency: amount / rate, rounded half away from zero to two places.
//
// An unknown source currency or a zero rate leaves the amount unchanged.
func Convert(amount decimal.Decimal, source string, table RateTable) decimal.Decimal {
	rate, ok := table.Rate(source)
	if !ok || rate == 0 {
		return amount
	}
	return amount.Div(decimal.NewFromFloat(rate)).Round(2)
}
