package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// Dashboard is everything the home page shows.
type Dashboard struct {
	User            core.User
	BaseCurrency    string
	Totals          ledger.Totals
	Transactions    []core.Transaction
	Accounts        []core.Account
	Categories      []core.Category
	SelectedAccount string
	RatesFallback   bool
}

// DashboardService assembles the dashboard for one request.
type DashboardService struct {
	store  storage.Store
	rates  currency.Provider
	logger *log.Logger
}

func NewDashboardService(store storage.Store, rates currency.Provider, logger *log.Logger) *DashboardService {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentDashboard)
	}
	return &DashboardService{store: store, rates: rates, logger: logger}
}

// Build seeds defaults, fetches rates once for the user's base currency and
// aggregates the transactions selected by accountFilter.
func (s *DashboardService) Build(ctx context.Context, userID int64, accountFilter string) (Dashboard, error) {
	// The user is read first because the seeded default accounts take the
	// base currency. Seeding never changes it.
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load user: %w", err)
	}
	base := core.CurrencyOrDefault(user.DefaultCurrency)

	if err := s.store.SeedDefaults(ctx, userID, base); err != nil {
		return Dashboard{}, fmt.Errorf("seed defaults: %w", err)
	}

	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list accounts: %w", err)
	}
	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list categories: %w", err)
	}

	rates := s.rates.FetchRates(ctx, base)
	if rates.Fallback {
		s.logger.WarnContext(ctx, "Dashboard uses fallback rates",
			log.FieldUserID, userID, log.FieldBaseCurrency, base)
	}

	txs, err := s.store.ListTransactions(ctx, userID, 0)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list transactions: %w", err)
	}

	filtered, selected := ledger.FilterByAccount(txs, accountFilter)
	totals := ledger.Aggregate(filtered, ledger.AccountCurrencies(accounts), rates)

	return Dashboard{
		User:            user,
		BaseCurrency:    base,
		Totals:          totals,
		Transactions:    filtered,
		Accounts:        accounts,
		Categories:      categories,
		SelectedAccount: selected,
		RatesFallback:   rates.Fallback,
	}, nil
}
