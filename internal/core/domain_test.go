package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseCategoryType(t *testing.T) {
	cases := []struct {
		in  string
		out CategoryType
		ok  bool
	}{
		{"Income", Income, true},
		{"expense", Expense, true},
		{" EXPENSE ", Expense, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseCategoryType(tc.in)
		if tc.ok != (err == nil) || got != tc.out {
			t.Fatalf("%q: got %q err=%v", tc.in, got, err)
		}
	}
}

func TestNormalizeCurrency(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"usd", "USD", true},
		{" TRY ", "TRY", true},
		{"EURO", "", false},
		{"U5D", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeCurrency(tc.in)
		if tc.ok != (err == nil) || got != tc.out {
			t.Fatalf("%q: got %q err=%v", tc.in, got, err)
		}
	}
	if CurrencyOrDefault("") != DefaultCurrency {
		t.Fatalf("empty currency should default to %s", DefaultCurrency)
	}
	if CurrencyOrDefault("EUR") != "EUR" {
		t.Fatalf("non-empty currency should be kept")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		AccountID:  1,
		CategoryID: 2,
		Amount:     decimal.RequireFromString("10.50"),
		Note:       "lunch",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		tx   Transaction
		want error
	}{
		{Transaction{AccountID: 1, CategoryID: 2, Amount: decimal.Zero}, ErrInvalidAmount},
		{Transaction{AccountID: 1, CategoryID: 2, Amount: decimal.NewFromInt(-1)}, ErrInvalidAmount},
		{Transaction{CategoryID: 2, Amount: decimal.NewFromInt(1)}, ErrMissingAccount},
		{Transaction{AccountID: 1, Amount: decimal.NewFromInt(1)}, ErrMissingCategory},
		{Transaction{AccountID: 1, CategoryID: 2, Amount: decimal.NewFromInt(1), Note: strings.Repeat("x", MaxNoteLength+1)}, ErrNoteTooLong},
	}
	for i, tc := range bads {
		if err := tc.tx.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestAccountAndCategoryValidate(t *testing.T) {
	if err := (Account{Name: "Wallet", Currency: "EUR"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Account{Name: " ", Currency: "EUR"}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := (Account{Name: "Wallet", Currency: "EU"}).Validate(); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
	if err := (Category{Name: "Gym", Type: Expense}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Category{Name: "Gym", Type: "Other"}).Validate(); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}
