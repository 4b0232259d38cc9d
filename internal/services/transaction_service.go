package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// ErrForbidden is returned when a referenced account or category belongs
// to another user or does not exist.
var ErrForbidden = errors.New("account or category not owned by user")

// publishTimeout bounds the whole publish, retries included.
const publishTimeout = 3 * time.Second

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, event amqp.TransactionCreatedEvent) error
}

type NewTransaction struct {
	AccountID  int64
	CategoryID int64
	Amount     decimal.Decimal
	Date       time.Time
	Note       string
}

// TransactionService stores transactions and announces them.
type TransactionService struct {
	store          storage.Store
	publisher      EventPublisher
	logger         *log.Logger
	now            func() time.Time
	publishTimeout time.Duration
}

// NewTransactionService accepts a nil publisher when messaging is disabled.
func NewTransactionService(store storage.Store, publisher EventPublisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentTransaction)
	}
	return &TransactionService{
		store:          store,
		publisher:      publisher,
		logger:         logger,
		now:            time.Now,
		publishTimeout: publishTimeout,
	}
}

// Create validates ownership, inserts the transaction and publishes an
// event. A publish failure is logged; the stored transaction stands.
func (s *TransactionService) Create(ctx context.Context, userID int64, in NewTransaction) (core.Transaction, error) {
	tx := core.Transaction{
		UserID:     userID,
		AccountID:  in.AccountID,
		CategoryID: in.CategoryID,
		Amount:     in.Amount.Round(2),
		Date:       in.Date,
		Note:       in.Note,
	}
	if tx.Date.IsZero() {
		tx.Date = s.now()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	account, err := s.store.GetAccount(ctx, userID, in.AccountID)
	if err != nil {
		return core.Transaction{}, ownership(err, "account")
	}
	category, err := s.store.GetCategory(ctx, userID, in.CategoryID)
	if err != nil {
		return core.Transaction{}, ownership(err, "category")
	}

	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction created", log.NewFields().
		WithUser(userID).
		WithOperation(log.OpCreate).
		WithTransaction(created.ID, account.ID, category.ID, created.Amount.StringFixed(2), account.Currency).
		ToSlice()...)

	s.publish(ctx, created, account, category)
	return created, nil
}

func (s *TransactionService) publish(ctx context.Context, tx core.Transaction, account core.Account, category core.Category) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	event := amqp.NewTransactionCreatedEvent(tx, account, category)
	if err := s.publisher.PublishTransactionCreated(ctx, event); err != nil {
		s.logger.LogError(ctx, "Failed to publish transaction event", err, log.OpPublish,
			log.NewFields().WithUser(tx.UserID).
				WithTransaction(tx.ID, account.ID, category.ID, tx.Amount.StringFixed(2), account.Currency))
	}
}

// List returns the user's transactions, newest first. limit <= 0 means all.
func (s *TransactionService) List(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func ownership(err error, what string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrForbidden)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
