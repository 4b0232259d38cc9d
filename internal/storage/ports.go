package storage

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// Ports implemented by the SQL repository and the in-memory store.
type (
	UserStore interface {
		CreateUser(ctx context.Context, username, passwordHash, defaultCurrency string) (core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
		UpdateDefaultCurrency(ctx context.Context, userID int64, currency string) error
	}

	AccountStore interface {
		ListAccounts(ctx context.Context, userID int64) ([]core.Account, error)
		GetAccount(ctx context.Context, userID, accountID int64) (core.Account, error)
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	}

	CategoryStore interface {
		ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
		GetCategory(ctx context.Context, userID, categoryID int64) (core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// ListTransactions returns newest first with account and category
		// details joined in. A limit of zero returns everything.
		ListTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error)
	}

	Seeder interface {
		// SeedDefaults creates the default accounts and categories for a
		// user that has none. It is safe to call repeatedly and concurrently.
		SeedDefaults(ctx context.Context, userID int64, currency string) error
	}

	Store interface {
		UserStore
		AccountStore
		CategoryStore
		TransactionStore
		Seeder
		Ping(ctx context.Context) error
		Close() error
	}
)

// DefaultAccounts are created for every new user.
var DefaultAccounts = []core.Account{
	{Name: "Cash", Type: "Cash", SeedKey: "cash"},
	{Name: "Bank", Type: "Bank", SeedKey: "bank"},
}

// DefaultCategories are created for every new user.
var DefaultCategories = []core.Category{
	{Name: "Food", Type: core.Expense, SeedKey: "food"},
	{Name: "Rent", Type: core.Expense, SeedKey: "rent"},
	{Name: "Salary", Type: core.Income, SeedKey: "salary"},
	{Name: "Fun", Type: core.Expense, SeedKey: "fun"},
}
