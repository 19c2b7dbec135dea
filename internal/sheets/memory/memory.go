// Package memory keeps exported reports in process, for development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prathap-k00/expense-tracker/internal/core"
	"github.com/prathap-k00/expense-tracker/internal/reports"
	"github.com/prathap-k00/expense-tracker/internal/sheets"
)

var _ sheets.ReportWriter = (*Store)(nil)

type exportKey struct {
	userID int64
	period core.Period
}

// Store holds the latest export per user and month.
type Store struct {
	mu     sync.Mutex
	items  map[exportKey]reports.MonthlyReport
	writes int
}

func New() *Store {
	return &Store{items: make(map[exportKey]reports.MonthlyReport)}
}

// WriteMonthlyReport stores r, replacing any earlier export of the same month.
func (s *Store) WriteMonthlyReport(ctx context.Context, r reports.MonthlyReport) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.UserID <= 0 {
		return "", errors.New("report has no owner")
	}
	if err := r.Period.Validate(); err != nil {
		return "", fmt.Errorf("report period: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[exportKey{r.UserID, r.Period}] = r
	s.writes++
	return fmt.Sprintf("mem:%d:%s", r.UserID, r.Period.Key()), nil
}

// Get returns the last export for a user and month.
func (s *Store) Get(userID int64, p core.Period) (reports.MonthlyReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[exportKey{userID, p}]
	return r, ok
}

// Writes counts every successful write, replacements included.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
