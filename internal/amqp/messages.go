package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// EventTransactionCreated is the type tag carried by every published event.
const EventTransactionCreated = "transaction.created"

const dateLayout = "2006-01-02"

var ErrInvalidEvent = errors.New("invalid transaction event")

// TransactionCreatedEvent describes a stored transaction with enough context
// for a consumer to mirror it without reading the database.
type TransactionCreatedEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	UserID        int64     `json:"user_id"`
	TransactionID int64     `json:"transaction_id"`
	Account       string    `json:"account"`
	Category      string    `json:"category"`
	CategoryType  string    `json:"category_type"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Date          string    `json:"date"`
	Note          string    `json:"note,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewTransactionCreatedEvent builds the event for a freshly inserted transaction.
func NewTransactionCreatedEvent(tx core.Transaction, account core.Account, category core.Category) TransactionCreatedEvent {
	return TransactionCreatedEvent{
		ID:            uuid.NewString(),
		Type:          EventTransactionCreated,
		UserID:        tx.UserID,
		TransactionID: tx.ID,
		Account:       account.Name,
		Category:      category.Name,
		CategoryType:  string(category.Type),
		Amount:        tx.Amount.StringFixed(2),
		Currency:      core.CurrencyOrDefault(account.Currency),
		Date:          tx.Date.Format(dateLayout),
		Note:          tx.Note,
		OccurredAt:    time.Now().UTC(),
	}
}

func (e TransactionCreatedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Validate rejects events a consumer cannot act on.
func (e TransactionCreatedEvent) Validate() error {
	if _, err := uuid.Parse(e.ID); err != nil {
		return fmt.Errorf("%w: id %q", ErrInvalidEvent, e.ID)
	}
	if e.Type != EventTransactionCreated {
		return fmt.Errorf("%w: type %q", ErrInvalidEvent, e.Type)
	}
	if e.TransactionID <= 0 || e.UserID <= 0 {
		return fmt.Errorf("%w: missing ids", ErrInvalidEvent)
	}
	if _, err := time.Parse(dateLayout, e.Date); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidEvent, e.Date)
	}
	return nil
}

// TransactionCreatedEventFromJSON decodes and validates an event body.
func TransactionCreatedEventFromJSON(data []byte) (TransactionCreatedEvent, error) {
	var e TransactionCreatedEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return TransactionCreatedEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return TransactionCreatedEvent{}, err
	}
	return e, nil
}
