// Package memory is a process-local implementation of storage.Store used
// for tests and the "memory" data backend. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type Store struct {
	mu           sync.Mutex
	nextID       int64
	users        map[int64]core.User
	accounts     []core.Account
	categories   []core.Category
	transactions []core.Transaction
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{users: make(map[int64]core.User)}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateUser(_ context.Context, username, passwordHash, defaultCurrency string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return core.User{}, fmt.Errorf("create user %q: %w", username, storage.ErrDuplicate)
		}
	}
	u := core.User{
		ID:              s.id(),
		Username:        username,
		PasswordHash:    passwordHash,
		DefaultCurrency: core.CurrencyOrDefault(defaultCurrency),
		CreatedAt:       time.Now().UTC(),
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("get user %d: %w", id, storage.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("get user %q: %w", username, storage.ErrNotFound)
}

func (s *Store) UpdateDefaultCurrency(_ context.Context, userID int64, currency string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("update default currency for user %d: %w", userID, storage.ErrNotFound)
	}
	u.DefaultCurrency = currency
	s.users[userID] = u
	return nil
}

func (s *Store) ListAccounts(_ context.Context, userID int64) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Account{}
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) GetAccount(_ context.Context, userID, accountID int64) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ID == accountID && a.UserID == userID {
			return a, nil
		}
	}
	return core.Account{}, fmt.Errorf("get account %d: %w", accountID, storage.ErrNotFound)
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	a.Currency = core.CurrencyOrDefault(a.Currency)
	a.CurrentBalance = a.CurrentBalance.Round(2)
	a.SeedKey = ""
	s.accounts = append(s.accounts, a)
	return a, nil
}

func (s *Store) ListCategories(_ context.Context, userID int64) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Category{}
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, userID, categoryID int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.ID == categoryID && c.UserID == userID {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("get category %d: %w", categoryID, storage.ErrNotFound)
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	c.SeedKey = ""
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Date.IsZero() {
		t.Date = time.Now()
	}
	y, m, d := t.Date.Date()
	t.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	t.ID = s.id()
	t.Amount = t.Amount.Round(2)
	t.AccountName, t.AccountCurrency, t.CategoryName, t.CategoryType = "", "", "", ""
	s.transactions = append(s.transactions, t)
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, userID int64, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []core.Transaction{}
	for _, t := range s.transactions {
		if t.UserID != userID {
			continue
		}
		for _, a := range s.accounts {
			if a.ID == t.AccountID {
				t.AccountName, t.AccountCurrency = a.Name, a.Currency
			}
		}
		for _, c := range s.categories {
			if c.ID == t.CategoryID {
				t.CategoryName, t.CategoryType = c.Name, c.Type
			}
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SeedDefaults mirrors the SQL repository: accounts are seeded only for a
// user with no accounts, categories only for a user with no categories.
func (s *Store) SeedDefaults(_ context.Context, userID int64, currency string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	currency = core.CurrencyOrDefault(currency)

	hasAccounts, hasCategories := false, false
	for _, a := range s.accounts {
		hasAccounts = hasAccounts || a.UserID == userID
	}
	for _, c := range s.categories {
		hasCategories = hasCategories || c.UserID == userID
	}

	if !hasAccounts {
		for _, a := range storage.DefaultAccounts {
			a.ID = s.id()
			a.UserID = userID
			a.Currency = currency
			a.CurrentBalance = decimal.Zero
			s.accounts = append(s.accounts, a)
		}
	}
	if !hasCategories {
		for _, c := range storage.DefaultCategories {
			c.ID = s.id()
			c.UserID = userID
			s.categories = append(s.categories, c)
		}
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
