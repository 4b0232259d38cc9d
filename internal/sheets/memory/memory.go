// Package memory keeps appended rows in process. The worker uses it when
// no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	ports "fintrack/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []ports.Row
}

var _ ports.TransactionAppender = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// AppendTransaction stores the row and returns a synthetic row reference.
func (s *Store) AppendTransaction(_ context.Context, r ports.Row) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []ports.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.Row(nil), s.rows...)
}
