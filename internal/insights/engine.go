// Package insights derives advisory messages and chart series from a user's
// monthly aggregates. The engine only reads; it never mutates stored data.
package insights

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/prathap-k00/expense-tracker/internal/core"
)

// ErrDataUnavailable is returned when an aggregate could not be read.
// Callers must not fall back to zero values, which would produce
// misleading advisories during a storage outage.
var ErrDataUnavailable = errors.New("insights: data unavailable")

// DefaultMonths is the length of the trend and income-vs-expense series.
const DefaultMonths = 6

// AggregateReader is the read-only storage contract the engine depends on.
type AggregateReader interface {
	// SumAmount returns the total of the given ledger for the month, zero when empty.
	SumAmount(ctx context.Context, kind core.EntryKind, userID int64, p core.Period) (core.Money, error)
	// SumExpensesByCategory returns per-category expense totals for the month.
	SumExpensesByCategory(ctx context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error)
	// FindBudget returns the month's budget, or nil when none is set.
	FindBudget(ctx context.Context, userID int64, p core.Period) (*core.Budget, error)
}

// TrendPoint is one month of the expense trend.
type TrendPoint struct {
	Period  core.Period
	Label   string
	Expense core.Money
}

// MonthFlow is one month of the income-vs-expense series.
type MonthFlow struct {
	Period  core.Period
	Label   string
	Income  core.Money
	Expense core.Money
	Savings core.Money
}

var (
	pct100            = decimal.NewFromInt(100)
	savingsGreatFloor = decimal.NewFromInt(20)
	savingsGoodFloor  = decimal.NewFromInt(10)
	momUpFactor       = decimal.RequireFromString("1.10")
	momDownFactor     = decimal.RequireFromString("0.90")
	budgetWarnFactor  = decimal.RequireFromString("0.90")
	dominantShare     = decimal.NewFromInt(40)
)

// Engine computes insights for one user at a time. It holds no per-user state
// and is safe for concurrent use.
type Engine struct {
	store  AggregateReader
	format Formatter
}

// Option configures an Engine.
type Option func(*Engine)

// WithFormatter overrides the currency formatting used in advisory texts.
func WithFormatter(f Formatter) Option {
	return func(e *Engine) { e.format = f }
}

func NewEngine(store AggregateReader, opts ...Option) *Engine {
	e := &Engine{store: store, format: Formatter{Symbol: DefaultSymbol}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Insights returns the ordered advisories for the month containing ref:
// savings rate, month-over-month change, budget and dominant category.
func (e *Engine) Insights(ctx context.Context, userID int64, ref time.Time) ([]Advisory, error) {
	period := core.PeriodOf(ref)
	out := []Advisory{}

	income, err := e.sum(ctx, core.KindIncome, userID, period)
	if err != nil {
		return nil, err
	}
	expense, err := e.sum(ctx, core.KindExpense, userID, period)
	if err != nil {
		return nil, err
	}

	if a, ok := e.savingsAdvisory(income.Decimal(), expense.Decimal()); ok {
		out = append(out, a)
	}

	prev, err := e.sum(ctx, core.KindExpense, userID, period.Prev())
	if err != nil {
		return nil, err
	}
	if a, ok := e.monthOverMonthAdvisory(expense.Decimal(), prev.Decimal()); ok {
		out = append(out, a)
	}

	budget, err := e.store.FindBudget(ctx, userID, period)
	if err != nil {
		return nil, unavailable("budget", period, err)
	}
	if budget != nil {
		if a, ok := e.budgetAdvisory(expense.Decimal(), budget.Amount.Decimal()); ok {
			out = append(out, a)
		}
	}

	cats, err := e.categories(ctx, userID, period)
	if err != nil {
		return nil, err
	}
	if a, ok := e.dominantCategoryAdvisory(cats, expense.Decimal()); ok {
		out = append(out, a)
	}

	return out, nil
}

func (e *Engine) savingsAdvisory(income, expense decimal.Decimal) (Advisory, bool) {
	if !income.IsPositive() {
		return Advisory{}, false
	}
	pct := income.Sub(expense).Div(income).Mul(pct100)
	switch {
	case pct.GreaterThanOrEqual(savingsGreatFloor):
		return Advisory{Kind: KindSavingsGreat, Value: pct, Text: e.format.savingsGreat(pct)}, true
	case pct.GreaterThanOrEqual(savingsGoodFloor):
		return Advisory{Kind: KindSavingsGood, Value: pct, Text: e.format.savingsGood(pct)}, true
	case pct.IsPositive():
		return Advisory{Kind: KindSavingsLow, Value: pct, Text: e.format.savingsLow(pct)}, true
	default:
		return Advisory{Kind: KindSavingsNegative, Value: pct, Text: e.format.savingsNegative()}, true
	}
}

func (e *Engine) monthOverMonthAdvisory(current, prev decimal.Decimal) (Advisory, bool) {
	if !prev.IsPositive() {
		return Advisory{}, false
	}
	switch {
	case current.GreaterThan(prev.Mul(momUpFactor)):
		pct := current.Sub(prev).Div(prev).Mul(pct100)
		return Advisory{Kind: KindSpendingUp, Value: pct, Text: e.format.spendingUp(pct)}, true
	case current.LessThan(prev.Mul(momDownFactor)):
		pct := prev.Sub(current).Div(prev).Mul(pct100)
		return Advisory{Kind: KindSpendingDown, Value: pct, Text: e.format.spendingDown(pct)}, true
	}
	return Advisory{}, false
}

func (e *Engine) budgetAdvisory(expense, budget decimal.Decimal) (Advisory, bool) {
	if expense.GreaterThan(budget) {
		over := expense.Sub(budget)
		return Advisory{Kind: KindBudgetExceeded, Value: over, Text: e.format.budgetExceeded(over)}, true
	}
	// A zero budget has no meaningful "approaching" zone.
	if budget.IsPositive() && expense.GreaterThan(budget.Mul(budgetWarnFactor)) {
		remaining := budget.Sub(expense)
		return Advisory{Kind: KindBudgetApproaching, Value: remaining, Text: e.format.budgetApproaching(remaining)}, true
	}
	return Advisory{}, false
}

func (e *Engine) dominantCategoryAdvisory(cats []core.CategoryAmount, total decimal.Decimal) (Advisory, bool) {
	if len(cats) == 0 || !total.IsPositive() {
		return Advisory{}, false
	}
	top := topCategory(cats)
	if top.Amount.Cents <= 0 {
		return Advisory{}, false
	}
	share := top.Amount.Decimal().Div(total).Mul(pct100)
	if !share.GreaterThan(dominantShare) {
		return Advisory{}, false
	}
	return Advisory{
		Kind:     KindDominantCategory,
		Value:    share,
		Category: top.Name,
		Text:     e.format.dominantCategory(top.Name, share),
	}, true
}

// topCategory picks the largest amount; equal amounts resolve to the
// lexicographically smallest name so the result never depends on row order.
func topCategory(cats []core.CategoryAmount) core.CategoryAmount {
	top := cats[0]
	for _, c := range cats[1:] {
		if c.Amount.Cents > top.Amount.Cents || (c.Amount.Cents == top.Amount.Cents && c.Name < top.Name) {
			top = c
		}
	}
	return top
}

// Trend returns the expense total of each of the last months calendar months
// ending with the month of ref, oldest first.
func (e *Engine) Trend(ctx context.Context, userID int64, ref time.Time, months int) ([]TrendPoint, error) {
	periods := walkBack(core.PeriodOf(ref), months)
	out := make([]TrendPoint, 0, len(periods))
	for _, p := range periods {
		total, err := e.sum(ctx, core.KindExpense, userID, p)
		if err != nil {
			return nil, err
		}
		out = append(out, TrendPoint{Period: p, Label: p.Label(), Expense: total})
	}
	return out, nil
}

// IncomeVsExpense pairs income, expense and savings per month over the same
// window as Trend.
func (e *Engine) IncomeVsExpense(ctx context.Context, userID int64, ref time.Time, months int) ([]MonthFlow, error) {
	periods := walkBack(core.PeriodOf(ref), months)
	out := make([]MonthFlow, 0, len(periods))
	for _, p := range periods {
		income, err := e.sum(ctx, core.KindIncome, userID, p)
		if err != nil {
			return nil, err
		}
		expense, err := e.sum(ctx, core.KindExpense, userID, p)
		if err != nil {
			return nil, err
		}
		out = append(out, MonthFlow{
			Period:  p,
			Label:   p.Label(),
			Income:  income,
			Expense: expense,
			Savings: income.Sub(expense),
		})
	}
	return out, nil
}

// CategoryBreakdown returns per-category spend for the month of ref, sorted by name.
func (e *Engine) CategoryBreakdown(ctx context.Context, userID int64, ref time.Time) ([]core.CategoryAmount, error) {
	return e.categories(ctx, userID, core.PeriodOf(ref))
}

// MonthTotals returns income and expense for the month of ref.
func (e *Engine) MonthTotals(ctx context.Context, userID int64, ref time.Time) (core.MonthTotals, error) {
	p := core.PeriodOf(ref)
	income, err := e.sum(ctx, core.KindIncome, userID, p)
	if err != nil {
		return core.MonthTotals{}, err
	}
	expense, err := e.sum(ctx, core.KindExpense, userID, p)
	if err != nil {
		return core.MonthTotals{}, err
	}
	return core.MonthTotals{Period: p, Income: income, Expense: expense}, nil
}

func (e *Engine) sum(ctx context.Context, kind core.EntryKind, userID int64, p core.Period) (core.Money, error) {
	m, err := e.store.SumAmount(ctx, kind, userID, p)
	if err != nil {
		return core.Money{}, unavailable(string(kind)+" total", p, err)
	}
	return m, nil
}

func (e *Engine) categories(ctx context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error) {
	cats, err := e.store.SumExpensesByCategory(ctx, userID, p)
	if err != nil {
		return nil, unavailable("category totals", p, err)
	}
	out := make([]core.CategoryAmount, 0, len(cats))
	for _, c := range cats {
		if c.Amount.Cents != 0 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func walkBack(ref core.Period, months int) []core.Period {
	if months <= 0 {
		return []core.Period{}
	}
	out := make([]core.Period, 0, months)
	for i := months - 1; i >= 0; i-- {
		out = append(out, ref.AddMonths(-i))
	}
	return out
}

func unavailable(what string, p core.Period, err error) error {
	return fmt.Errorf("%w: %s for %s: %w", ErrDataUnavailable, what, p, err)
}
