package sheets

import (
	"context"
	"errors"
)

var ErrInvalidRow = errors.New("invalid sheet row")

// Row is one mirrored transaction, in column order A to H.
type Row struct {
	Date     string
	Account  string
	Category string
	Type     string
	Amount   string
	Currency string
	Note     string
	EventID  string
}

// Values returns the cells of r in column order.
func (r Row) Values() []any {
	return []any{r.Date, r.Account, r.Category, r.Type, r.Amount, r.Currency, r.Note, r.EventID}
}

func (r Row) Validate() error {
	if r.Date == "" || r.Amount == "" || r.EventID == "" {
		return ErrInvalidRow
	}
	return nil
}

// Ports for outbound adapters.
type (
	TransactionAppender interface {
		// AppendTransaction writes r after the last row of the sheet and
		// returns the updated range.
		AppendTransaction(ctx context.Context, r Row) (rowRef string, err error)
	}
)
