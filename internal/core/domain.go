package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a user or account carries no currency code.
const DefaultCurrency = "TRY"

const (
	Income  CategoryType = "Income"
	Expense CategoryType = "Expense"
)

type (
	CategoryType string

	User struct {
		ID              int64
		Username        string
		PasswordHash    string
		DefaultCurrency string
		CreatedAt       time.Time
	}

	Account struct {
		ID             int64
		UserID         int64
		Name           string
		Type           string // free text, e.g. Cash or Bank
		CurrentBalance decimal.Decimal
		Currency       string
		SeedKey        string // set only for rows created by seeding
	}

	Category struct {
		ID      int64
		UserID  int64
		Name    string
		Type    CategoryType
		SeedKey string
	}

	// Transaction is insert-only. Amount is positive; the sign comes from
	// the category type.
	Transaction struct {
		ID         int64
		UserID     int64
		AccountID  int64
		CategoryID int64
		Amount     decimal.Decimal
		Date       time.Time
		Note       string

		// Joined for display.
		AccountName     string
		AccountCurrency string
		CategoryName    string
		CategoryType    CategoryType
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCurrency    = errors.New("invalid currency code")
	ErrInvalidCategory    = errors.New("invalid category type")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyUsername      = errors.New("empty username")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrMissingAccount     = errors.New("missing account")
	ErrMissingCategory    = errors.New("missing category")
	ErrNoteTooLong        = errors.New("note too long")
	ErrAccountNameTooLong = errors.New("account name too long")
)

const (
	MinPasswordLength = 6
	MaxNoteLength     = 255
	MaxNameLength     = 50
)

// ParseCategoryType accepts the two category types case-insensitively.
func ParseCategoryType(s string) (CategoryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income, nil
	case "expense":
		return Expense, nil
	default:
		return "", ErrInvalidCategory
	}
}

// IsIncome reports whether amounts of this type add to the balance.
func (t CategoryType) IsIncome() bool {
	return t == Income
}

// NormalizeCurrency upper-cases and validates a three letter code.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return code, nil
}

// CurrencyOrDefault returns code, or DefaultCurrency when code is empty.
func CurrencyOrDefault(code string) string {
	if strings.TrimSpace(code) == "" {
		return DefaultCurrency
	}
	return code
}

func (t Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if t.AccountID <= 0 {
		return ErrMissingAccount
	}
	if t.CategoryID <= 0 {
		return ErrMissingCategory
	}
	if len([]rune(t.Note)) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if len([]rune(a.Name)) > MaxNameLength {
		return ErrAccountNameTooLong
	}
	if _, err := NormalizeCurrency(a.Currency); err != nil {
		return err
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Type != Income && c.Type != Expense {
		return ErrInvalidCategory
	}
	return nil
}
