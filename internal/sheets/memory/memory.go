package memory

import (
	"context"
	"fmt"
	"sync"

	"invoiceinsights/internal/core"
	"invoiceinsights/internal/sheets"
)

// Store keeps exported rows in memory. Used in tests and when no spreadsheet
// is configured.
type Store struct {
	mu   sync.Mutex
	rows [][]any
}

var _ sheets.MonthlyTotalsWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// AppendMonthlyTotals stores the rows and returns a synthetic range reference.
func (s *Store) AppendMonthlyTotals(_ context.Context, reportID int64, totals []core.MonthlyTotal) (string, error) {
	if len(totals) == 0 {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	first := len(s.rows) + 1
	s.rows = append(s.rows, sheets.Rows(reportID, totals)...)
	return fmt.Sprintf("mem:%d-%d", first, len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.rows...)
}
