// Package worker mirrors transaction events into a spreadsheet.
package worker

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

const (
	seenCapacity = 4096
	seenTTL      = 24 * time.Hour
)

// MirrorWorker appends one sheet row per transaction event. Event ids that
// were already appended are skipped, so a redelivered message after a lost
// ack does not produce a second row.
type MirrorWorker struct {
	sheets sheets.TransactionAppender
	seen   *cache.LRUCache[string]
	logger *log.Logger
}

func NewMirrorWorker(appender sheets.TransactionAppender, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentWorker)
	}
	return &MirrorWorker{
		sheets: appender,
		seen:   cache.NewLRUCache[string](seenCapacity, seenTTL),
		logger: logger,
	}
}

// Seen exposes the dedupe cache so it can be registered for cleanup.
func (w *MirrorWorker) Seen() *cache.LRUCache[string] {
	return w.seen
}

// HandleTransactionCreated is the consumer callback for transaction events.
func (w *MirrorWorker) HandleTransactionCreated(ctx context.Context, event amqp.TransactionCreatedEvent) error {
	if ref, ok := w.seen.Get(event.ID); ok {
		w.logger.InfoContext(ctx, "Skipping already mirrored event",
			log.FieldEventID, event.ID, log.FieldSheetsRef, ref)
		return nil
	}

	ref, err := w.sheets.AppendTransaction(ctx, RowFromEvent(event))
	if err != nil {
		return fmt.Errorf("append transaction %d: %w", event.TransactionID, err)
	}
	w.seen.Set(event.ID, ref)

	w.logger.InfoContext(ctx, "Mirrored transaction",
		log.FieldEventID, event.ID,
		log.FieldTransactionID, event.TransactionID,
		log.FieldUserID, event.UserID,
		log.FieldSheetsRef, ref,
		log.FieldOperation, log.OpAppend)
	return nil
}

// RowFromEvent maps an event to sheet columns A to H.
func RowFromEvent(e amqp.TransactionCreatedEvent) sheets.Row {
	return sheets.Row{
		Date:     e.Date,
		Account:  e.Account,
		Category: e.Category,
		Type:     e.CategoryType,
		Amount:   e.Amount,
		Currency: e.Currency,
		Note:     e.Note,
		EventID:  e.ID,
	}
}
