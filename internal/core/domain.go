package core

import (
	"errors"
	"time"
)

const (
	KindExpense EntryKind = "expense"
	KindIncome  EntryKind = "income"

	DefaultIncomeSource = "Salary"
)

type (
	// EntryKind selects which ledger an aggregate is computed over.
	EntryKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Name         string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	Category struct {
		ID     int64
		UserID int64
		Name   string
	}

	Expense struct {
		ID           int64
		UserID       int64
		CategoryID   int64
		CategoryName string // filled by joined reads only
		Amount       Money
		Date         Date
		Description  string
	}

	Income struct {
		ID     int64
		UserID int64
		Amount Money
		Date   Date
		Source string
	}

	Budget struct {
		ID     int64
		UserID int64
		Year   int
		Month  int // 1-12
		Amount Money
	}

	// BudgetStatus pairs a budget with what was actually spent in its month.
	BudgetStatus struct {
		Budget    Budget
		Spent     Money
		Remaining Money
	}
)

var (
	ErrNotFound       = errors.New("not found")
	ErrEmailExists    = errors.New("email already registered")
	ErrCategoryExists = errors.New("category already exists")
	ErrInvalidDay     = errors.New("invalid day")
	ErrInvalidMonth   = errors.New("invalid month")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidKind    = errors.New("invalid entry kind")
)

func (k EntryKind) Validate() error {
	switch k {
	case KindExpense, KindIncome:
		return nil
	}
	return ErrInvalidKind
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// DateLayout is the storage and form representation of a Date.
const DateLayout = "2006-01-02"

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// Period returns the calendar month the date falls in.
func (d Date) Period() Period {
	return PeriodOf(d.Time)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsZero reports whether the budget carries no amount.
func (b Budget) IsZero() bool {
	return b.Amount.Cents == 0
}

// Period returns the month the budget applies to.
func (b Budget) Period() Period {
	return NewPeriod(b.Year, b.Month)
}

// NewBudgetStatus computes spent and remaining for a budget.
func NewBudgetStatus(b Budget, spent Money) BudgetStatus {
	return BudgetStatus{
		Budget:    b,
		Spent:     spent,
		Remaining: Money{Cents: b.Amount.Cents - spent.Cents},
	}
}
