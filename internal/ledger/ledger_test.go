package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/currency"
)

func tx(account int64, amount string, typ core.CategoryType) core.Transaction {
	return core.Transaction{AccountID: account, Amount: decimal.RequireFromString(amount), CategoryType: typ}
}

func TestAggregate(t *testing.T) {
	tryRates := currency.RateTable{Base: "TRY", Rates: map[string]float64{"TRY": 1.0, "USD": 0.03}}

	tests := []struct {
		name       string
		txs        []core.Transaction
		currencies map[int64]string
		rates      currency.RateTable
		balance    string
		income     string
		expense    string
	}{
		{
			name:       "income and expense in base currency",
			txs:        []core.Transaction{tx(1, "100", core.Income), tx(1, "40", core.Expense)},
			currencies: map[int64]string{1: "TRY"},
			rates:      tryRates,
			balance:    "60", income: "100", expense: "40",
		},
		{
			name:       "foreign account converted",
			txs:        []core.Transaction{tx(2, "100", core.Income)},
			currencies: map[int64]string{2: "USD"},
			rates:      tryRates,
			balance:    "3333.33", income: "3333.33", expense: "0",
		},
		{
			name:       "unknown account uses default currency",
			txs:        []core.Transaction{tx(9, "12.5", core.Expense)},
			currencies: map[int64]string{},
			rates:      tryRates,
			balance:    "-12.5", income: "0", expense: "12.5",
		},
		{
			name:       "currency missing from table passes through",
			txs:        []core.Transaction{tx(3, "7", core.Income)},
			currencies: map[int64]string{3: "JPY"},
			rates:      tryRates,
			balance:    "7", income: "7", expense: "0",
		},
		{
			name:       "non income types count as expense",
			txs:        []core.Transaction{tx(1, "5", core.CategoryType("Transfer"))},
			currencies: map[int64]string{1: "TRY"},
			rates:      tryRates,
			balance:    "-5", income: "0", expense: "5",
		},
		{
			name:    "empty input",
			rates:   tryRates,
			balance: "0", income: "0", expense: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.txs, tt.currencies, tt.rates)
			check := func(field string, got decimal.Decimal, want string) {
				if !got.Equal(decimal.RequireFromString(want)) {
					t.Errorf("%s = %s, want %s", field, got, want)
				}
			}
			check("balance", got.Balance, tt.balance)
			check("income", got.Income, tt.income)
			check("expense", got.Expense, tt.expense)
		})
	}
}

func TestAggregate_BalanceIdentity(t *testing.T) {
	rates := currency.RateTable{Base: "EUR", Rates: map[string]float64{"EUR": 1, "USD": 1.07, "TRY": 35.2}}
	txs := []core.Transaction{
		tx(1, "19.99", core.Income),
		tx(2, "250", core.Expense),
		tx(3, "1200.10", core.Income),
		tx(2, "3.33", core.Expense),
	}
	got := Aggregate(txs, map[int64]string{1: "EUR", 2: "USD", 3: "TRY"}, rates)

	diff := got.Income.Sub(got.Expense).Sub(got.Balance).Abs()
	if diff.GreaterThan(decimal.RequireFromString("0.01")) {
		t.Fatalf("balance %s differs from income-expense %s by %s", got.Balance, got.Income.Sub(got.Expense), diff)
	}
}

func TestFilterByAccount(t *testing.T) {
	txs := []core.Transaction{
		{ID: 1, AccountID: 1},
		{ID: 2, AccountID: 2},
		{ID: 3, AccountID: 1},
	}

	tests := []struct {
		filter   string
		wantIDs  []int64
		selected string
	}{
		{"1", []int64{1, 3}, "1"},
		{"2", []int64{2}, "2"},
		{"all", []int64{1, 2, 3}, "all"},
		{"", []int64{1, 2, 3}, "all"},
		{"99", nil, "99"},
		{"01", nil, "01"},
	}

	for _, tt := range tests {
		t.Run("filter="+tt.filter, func(t *testing.T) {
			got, selected := FilterByAccount(txs, tt.filter)
			if selected != tt.selected {
				t.Fatalf("selected = %q, want %q", selected, tt.selected)
			}
			if got == nil {
				t.Fatalf("expected non-nil slice")
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d transactions, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("position %d: id %d, want %d", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestAccountCurrencies(t *testing.T) {
	got := AccountCurrencies([]core.Account{{ID: 1, Currency: "USD"}, {ID: 2}})
	if got[1] != "USD" || got[2] != core.DefaultCurrency {
		t.Fatalf("unexpected map %v", got)
	}
}
