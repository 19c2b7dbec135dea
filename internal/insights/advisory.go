package insights

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/prathap-k00/expense-tracker/internal/core"
)

// Kind identifies which rule produced an advisory.
type Kind string

const (
	KindSavingsGreat      Kind = "savings_great"
	KindSavingsGood       Kind = "savings_good"
	KindSavingsLow        Kind = "savings_low"
	KindSavingsNegative   Kind = "savings_negative"
	KindSpendingUp        Kind = "spending_up"
	KindSpendingDown      Kind = "spending_down"
	KindBudgetExceeded    Kind = "budget_exceeded"
	KindBudgetApproaching Kind = "budget_approaching"
	KindDominantCategory  Kind = "dominant_category"
)

// Advisory is a single insight. Value is a percentage for savings, month-over-month
// and category advisories and a currency amount for budget advisories.
type Advisory struct {
	Kind     Kind
	Value    decimal.Decimal
	Category string
	Text     string
}

func (a Advisory) String() string {
	return a.Text
}

// Level maps an advisory to a presentation tone.
func (a Advisory) Level() string {
	switch a.Kind {
	case KindSavingsGreat, KindSavingsGood, KindSpendingDown:
		return "success"
	case KindSavingsNegative, KindSpendingUp, KindBudgetExceeded:
		return "danger"
	case KindSavingsLow, KindBudgetApproaching:
		return "warning"
	default:
		return "info"
	}
}

// Texts returns the advisory sentences in order.
func Texts(advisories []Advisory) []string {
	out := make([]string, 0, len(advisories))
	for _, a := range advisories {
		out = append(out, a.Text)
	}
	return out
}

// Formatter renders currency and percentages inside advisory texts.
type Formatter struct {
	Symbol string
}

// DefaultSymbol is the currency symbol used when none is configured.
const DefaultSymbol = "₹"

// Currency renders an amount with two decimals and grouped thousands, e.g. "₹1,234.50".
func (f Formatter) Currency(d decimal.Decimal) string {
	sym := f.Symbol
	if sym == "" {
		sym = DefaultSymbol
	}
	s := humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
	if strings.HasPrefix(s, "-") {
		return "-" + sym + strings.TrimPrefix(s, "-")
	}
	return sym + s
}

// Money renders a core.Money amount.
func (f Formatter) Money(m core.Money) string {
	return f.Currency(m.Decimal())
}

// Percent renders a percentage with one decimal, e.g. "15.0".
func (f Formatter) Percent(d decimal.Decimal) string {
	return d.StringFixed(1)
}

func (f Formatter) savingsGreat(pct decimal.Decimal) string {
	return fmt.Sprintf("Great job! You're saving %s%% of your income this month.", f.Percent(pct))
}

func (f Formatter) savingsGood(pct decimal.Decimal) string {
	return fmt.Sprintf("Good progress! You're saving %s%% - consider increasing to 20%%.", f.Percent(pct))
}

func (f Formatter) savingsLow(pct decimal.Decimal) string {
	return fmt.Sprintf("Positive savings (%s%%), but try to save at least 10%% monthly.", f.Percent(pct))
}

func (f Formatter) savingsNegative() string {
	return "Warning: You're spending more than you earn this month. Review expenses."
}

func (f Formatter) spendingUp(pct decimal.Decimal) string {
	return fmt.Sprintf("Overspending alert: Expenses are %s%% higher than last month.", f.Percent(pct))
}

func (f Formatter) spendingDown(pct decimal.Decimal) string {
	return fmt.Sprintf("You've reduced spending by %s%% compared to last month!", f.Percent(pct))
}

func (f Formatter) budgetExceeded(over decimal.Decimal) string {
	return fmt.Sprintf("Budget exceeded by %s. Consider cutting non-essential spending.", f.Currency(over))
}

func (f Formatter) budgetApproaching(remaining decimal.Decimal) string {
	return fmt.Sprintf("Approaching budget limit. %s remaining for this month.", f.Currency(remaining))
}

func (f Formatter) dominantCategory(name string, pct decimal.Decimal) string {
	return fmt.Sprintf("'%s' is your biggest expense (%s%%). Look for ways to optimize.", name, f.Percent(pct))
}
