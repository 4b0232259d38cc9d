// Package ledger computes dashboard totals over a user's transactions.
// Everything here is pure: inputs are never mutated and nothing blocks.
package ledger

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/currency"
)

// Totals are expressed in the rate table's base currency.
type Totals struct {
	Balance decimal.Decimal
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Aggregate converts every transaction into the base currency and sums it.
// Income-type transactions add to Income and Balance, all others add to
// Expense and subtract from Balance. The account currency comes from
// accountCurrency, falling back to core.DefaultCurrency for unknown
// accounts. Totals are rounded to two places once, at the end.
func Aggregate(txs []core.Transaction, accountCurrency map[int64]string, rates currency.RateTable) Totals {
	income := decimal.Zero
	expense := decimal.Zero
	balance := decimal.Zero

	for _, tx := range txs {
		code, ok := accountCurrency[tx.AccountID]
		if !ok {
			code = core.DefaultCurrency
		}
		amount := currency.Convert(tx.Amount, code, rates)

		if tx.CategoryType.IsIncome() {
			income = income.Add(amount)
			balance = balance.Add(amount)
		} else {
			expense = expense.Add(amount)
			balance = balance.Sub(amount)
		}
	}

	return Totals{
		Balance: balance.Round(2),
		Income:  income.Round(2),
		Expense: expense.Round(2),
	}
}

// AccountCurrencies indexes account currency codes by account id.
func AccountCurrencies(accounts []core.Account) map[int64]string {
	out := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		out[a.ID] = core.CurrencyOrDefault(a.Currency)
	}
	return out
}
