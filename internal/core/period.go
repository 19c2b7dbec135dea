package core

import (
	"fmt"
	"time"
)

// Period is a calendar month.
type Period struct {
	Year  int
	Month int // 1-12
}

// MonthLabelLayout renders a period as "Jan 2024".
const MonthLabelLayout = "Jan 2006"

// NewPeriod normalises out-of-range months, so NewPeriod(2024, 0) is December 2023.
func NewPeriod(year, month int) Period {
	t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// PeriodOf returns the calendar month containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Prev returns the month before p, rolling January back to December of the previous year.
func (p Period) Prev() Period {
	return p.AddMonths(-1)
}

// AddMonths walks n calendar months forward (or backward when n < 0).
func (p Period) AddMonths(n int) Period {
	return NewPeriod(p.Year, p.Month+n)
}

// First returns midnight UTC of the first day of the month.
func (p Period) First() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// Bounds returns the half-open date range [first day, first day of next month)
// in DateLayout, suitable for range filters over stored dates.
func (p Period) Bounds() (from, to string) {
	first := p.First()
	return first.Format(DateLayout), first.AddDate(0, 1, 0).Format(DateLayout)
}

// Label renders the period as "Jan 2024".
func (p Period) Label() string {
	return p.First().Format(MonthLabelLayout)
}

// LongLabel renders the period as "January 2024".
func (p Period) LongLabel() string {
	return p.First().Format("January 2006")
}

// Key is a stable "2024-01" identifier.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func (p Period) String() string {
	return p.Key()
}
