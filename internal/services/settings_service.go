package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

type NewAccount struct {
	Name           string
	Type           string
	InitialBalance decimal.Decimal
	Currency       string
}

type NewCategory struct {
	Name string
	Type core.CategoryType
}

// Settings is the data behind the settings page.
type Settings struct {
	User       core.User
	Accounts   []core.Account
	Categories []core.Category
}

// SettingsService manages accounts, categories and the default currency.
type SettingsService struct {
	store  storage.Store
	logger *log.Logger
}

func NewSettingsService(store storage.Store, logger *log.Logger) *SettingsService {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentApp)
	}
	return &SettingsService{store: store, logger: logger}
}

func (s *SettingsService) Load(ctx context.Context, userID int64) (Settings, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return Settings{}, fmt.Errorf("load user: %w", err)
	}
	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return Settings{}, fmt.Errorf("list accounts: %w", err)
	}
	categories, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return Settings{}, fmt.Errorf("list categories: %w", err)
	}
	return Settings{User: user, Accounts: accounts, Categories: categories}, nil
}

// CreateAccount adds an account. An empty currency means the user's default.
func (s *SettingsService) CreateAccount(ctx context.Context, userID int64, in NewAccount) (core.Account, error) {
	code := strings.TrimSpace(in.Currency)
	if code == "" {
		user, err := s.store.GetUser(ctx, userID)
		if err != nil {
			return core.Account{}, fmt.Errorf("load user: %w", err)
		}
		code = core.CurrencyOrDefault(user.DefaultCurrency)
	}

	a := core.Account{
		UserID:         userID,
		Name:           strings.TrimSpace(in.Name),
		Type:           strings.TrimSpace(in.Type),
		CurrentBalance: in.InitialBalance.Round(2),
		Currency:       code,
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	a.Currency, _ = core.NormalizeCurrency(a.Currency)
	if a.Type == "" {
		a.Type = a.Name
	}

	created, err := s.store.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	s.logger.InfoContext(ctx, "Account created",
		log.FieldUserID, userID,
		log.FieldAccountID, created.ID,
		log.FieldCurrency, created.Currency)
	return created, nil
}

func (s *SettingsService) CreateCategory(ctx context.Context, userID int64, in NewCategory) (core.Category, error) {
	c := core.Category{UserID: userID, Name: strings.TrimSpace(in.Name), Type: in.Type}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.logger.InfoContext(ctx, "Category created",
		log.FieldUserID, userID,
		log.FieldCategoryID, created.ID)
	return created, nil
}

// UpdateDefaultCurrency changes the base currency of the dashboard totals.
func (s *SettingsService) UpdateDefaultCurrency(ctx context.Context, userID int64, code string) error {
	normalized, err := core.NormalizeCurrency(code)
	if err != nil {
		return err
	}
	if err := s.store.UpdateDefaultCurrency(ctx, userID, normalized); err != nil {
		return fmt.Errorf("update default currency: %w", err)
	}
	s.logger.InfoContext(ctx, "Default currency updated",
		log.FieldUserID, userID, log.FieldCurrency, normalized, log.FieldOperation, log.OpUpdate)
	return nil
}
