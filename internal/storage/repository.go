package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const dateLayout = "2006-01-02"

// SQLRepository implements Store on top of database/sql for SQLite,
// MySQL and Postgres.
type SQLRepository struct {
	db      *sql.DB
	dialect dialect
	cfg     ConnConfig
	logger  *log.Logger
}

var _ Store = (*SQLRepository)(nil)

// NewSQLRepository opens the database described by cfg, checks it is
// reachable and applies pending migrations.
func NewSQLRepository(ctx context.Context, cfg ConnConfig, logger *log.Logger) (*SQLRepository, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentStorage)

	if cfg.Driver == DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open(string(cfg.Driver), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	switch {
	case cfg.Driver == DriverSQLite:
		// One writer at a time; transactions would otherwise hit SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(cfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.InfoContext(ctx, "Database ready",
		log.FieldOperation, log.OpMigrate,
		"database", cfg.String())

	return &SQLRepository{db: db, dialect: dialect{driver: cfg.Driver}, cfg: cfg, logger: logger}, nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) q(query string) string {
	return r.dialect.rebind(query)
}

// Users

const userColumns = `user_id, username, password_hash, default_currency, created_at`

func scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var (
		u       core.User
		created dbTime
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DefaultCurrency, &created); err != nil {
		return core.User{}, err
	}
	u.CreatedAt = created.Time
	return u, nil
}

func (r *SQLRepository) CreateUser(ctx context.Context, username, passwordHash, defaultCurrency string) (core.User, error) {
	id, err := r.dialect.insertID(ctx, r.db,
		`INSERT INTO users (username, password_hash, default_currency) VALUES (?, ?, ?)`,
		"user_id", username, passwordHash, defaultCurrency)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, fmt.Errorf("create user %q: %w", username, ErrDuplicate)
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return r.GetUser(ctx, id)
}

func (r *SQLRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		r.q(`SELECT `+userColumns+` FROM users WHERE user_id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("get user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (r *SQLRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		r.q(`SELECT `+userColumns+` FROM users WHERE username = ?`), username))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("get user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %q: %w", username, err)
	}
	return u, nil
}

func (r *SQLRepository) UpdateDefaultCurrency(ctx context.Context, userID int64, currency string) error {
	res, err := r.db.ExecContext(ctx,
		r.q(`UPDATE users SET default_currency = ? WHERE user_id = ?`), currency, userID)
	if err != nil {
		return fmt.Errorf("update default currency: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update default currency for user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// Accounts

const accountColumns = `account_id, user_id, account_name, account_type, current_balance, currency, seed_key`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var (
		a       core.Account
		seedKey sql.NullString
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.CurrentBalance, &a.Currency, &seedKey); err != nil {
		return core.Account{}, err
	}
	a.SeedKey = seedKey.String
	return a, nil
}

func (r *SQLRepository) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		r.q(`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY account_id`), userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := []core.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) GetAccount(ctx context.Context, userID, accountID int64) (core.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx,
		r.q(`SELECT `+accountColumns+` FROM accounts WHERE account_id = ? AND user_id = ?`), accountID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("get account %d: %w", accountID, ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %d: %w", accountID, err)
	}
	return a, nil
}

func (r *SQLRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	id, err := r.dialect.insertID(ctx, r.db,
		`INSERT INTO accounts (user_id, account_name, account_type, current_balance, currency) VALUES (?, ?, ?, ?, ?)`,
		"account_id", a.UserID, a.Name, a.Type, a.CurrentBalance.StringFixed(2), core.CurrencyOrDefault(a.Currency))
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return r.GetAccount(ctx, a.UserID, id)
}

// Categories

const categoryColumns = `category_id, user_id, name, type, seed_key`

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var (
		c       core.Category
		typ     string
		seedKey sql.NullString
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &typ, &seedKey); err != nil {
		return core.Category{}, err
	}
	c.Type = core.CategoryType(typ)
	c.SeedKey = seedKey.String
	return c, nil
}

func (r *SQLRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		r.q(`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY category_id`), userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) GetCategory(ctx context.Context, userID, categoryID int64) (core.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx,
		r.q(`SELECT `+categoryColumns+` FROM categories WHERE category_id = ? AND user_id = ?`), categoryID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("get category %d: %w", categoryID, ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", categoryID, err)
	}
	return c, nil
}

func (r *SQLRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	id, err := r.dialect.insertID(ctx, r.db,
		`INSERT INTO categories (user_id, name, type) VALUES (?, ?, ?)`,
		"category_id", c.UserID, c.Name, string(c.Type))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return r.GetCategory(ctx, c.UserID, id)
}

// Transactions

func (r *SQLRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.Date.IsZero() {
		t.Date = time.Now()
	}
	id, err := r.dialect.insertID(ctx, r.db,
		`INSERT INTO transactions (user_id, account_id, category_id, amount, transaction_date, note) VALUES (?, ?, ?, ?, ?, ?)`,
		"transaction_id", t.UserID, t.AccountID, t.CategoryID, t.Amount.StringFixed(2), t.Date.Format(dateLayout), t.Note)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	t.ID = id
	t.Date = truncateDate(t.Date)
	return t, nil
}

func (r *SQLRepository) ListTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	query := `SELECT t.transaction_id, t.user_id, t.account_id, t.category_id, t.amount,
	t.transaction_date, t.note, a.account_name, a.currency, c.name, c.type
FROM transactions t
JOIN accounts a ON a.account_id = t.account_id
JOIN categories c ON c.category_id = t.category_id
WHERE t.user_id = ?
ORDER BY t.transaction_date DESC, t.transaction_id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(limit)
	}

	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var (
			t       core.Transaction
			amount  decimal.Decimal
			date    dbTime
			catType string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.AccountID, &t.CategoryID, &amount,
			&date, &t.Note, &t.AccountName, &t.AccountCurrency, &t.CategoryName, &catType); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Amount = amount
		t.Date = truncateDate(date.Time)
		t.CategoryType = core.CategoryType(catType)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// Seeding

func (r *SQLRepository) SeedDefaults(ctx context.Context, userID int64, currency string) error {
	currency = core.CurrencyOrDefault(currency)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	seededAccounts, err := r.seedIfEmpty(ctx, tx, "accounts", userID, func() error {
		for _, a := range DefaultAccounts {
			if _, err := tx.ExecContext(ctx, r.q(
				`INSERT INTO accounts (user_id, account_name, account_type, current_balance, currency, seed_key) VALUES (?, ?, ?, ?, ?, ?)`+
					r.dialect.ignoreSeedConflict()),
				userID, a.Name, a.Type, "0.00", currency, a.SeedKey); err != nil {
				return fmt.Errorf("seed account %s: %w", a.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	seededCategories, err := r.seedIfEmpty(ctx, tx, "categories", userID, func() error {
		for _, c := range DefaultCategories {
			if _, err := tx.ExecContext(ctx, r.q(
				`INSERT INTO categories (user_id, name, type, seed_key) VALUES (?, ?, ?, ?)`+
					r.dialect.ignoreSeedConflict()),
				userID, c.Name, string(c.Type), c.SeedKey); err != nil {
				return fmt.Errorf("seed category %s: %w", c.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	if seededAccounts || seededCategories {
		r.logger.InfoContext(ctx, "Seeded default data",
			log.FieldOperation, log.OpSeed,
			log.FieldUserID, userID,
			"accounts", seededAccounts,
			"categories", seededCategories)
	}
	return nil
}

// seedIfEmpty runs insert when table holds no rows for userID.
func (r *SQLRepository) seedIfEmpty(ctx context.Context, tx *sql.Tx, table string, userID int64, insert func() error) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, r.q(`SELECT COUNT(*) FROM `+table+` WHERE user_id = ?`), userID).Scan(&n); err != nil {
		return false, fmt.Errorf("count %s: %w", table, err)
	}
	if n > 0 {
		return false, nil
	}
	return true, insert()
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dbTime scans DATE and TIMESTAMP columns whatever representation the
// driver hands back.
type dbTime struct {
	time.Time
}

var timeLayouts = []string{
	dateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("scan time: unsupported type %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("scan time: unrecognised value %q", s)
}
