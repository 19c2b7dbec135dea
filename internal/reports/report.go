// Package reports renders a user's month of expenses as PDF and Excel documents.
package reports

import (
	"fmt"

	"github.com/prathap-k00/expense-tracker/internal/core"
	"github.com/prathap-k00/expense-tracker/internal/insights"
)

// MonthlyReport is everything a rendered report shows for one user and month.
type MonthlyReport struct {
	UserID  int64
	Period  core.Period
	Owner   string
	Income  core.Money
	Expense core.Money
	Rows    []Row
}

// Row is one expense line, oldest first.
type Row struct {
	Date        core.Date
	Category    string
	Amount      core.Money
	Description string
}

// Savings is income minus expense.
func (r MonthlyReport) Savings() core.Money {
	return r.Income.Sub(r.Expense)
}

// NewMonthlyReport builds a report from a month's expenses and its income total.
// Expense is summed from the rows so the totals always agree with the details.
func NewMonthlyReport(userID int64, p core.Period, owner string, income core.Money, expenses []core.Expense) MonthlyReport {
	r := MonthlyReport{
		UserID: userID,
		Period: p,
		Owner:  owner,
		Income: income,
		Rows:   make([]Row, 0, len(expenses)),
	}
	for _, e := range expenses {
		r.Expense = r.Expense.Add(e.Amount)
		r.Rows = append(r.Rows, Row{
			Date:        e.Date,
			Category:    e.CategoryName,
			Amount:      e.Amount,
			Description: e.Description,
		})
	}
	return r
}

// Title is the heading shared by every rendering, e.g. "Expense Report - January 2024".
func (r MonthlyReport) Title() string {
	return "Expense Report - " + r.Period.LongLabel()
}

// PDFFilename is the download name of the PDF rendering.
func PDFFilename(p core.Period) string {
	return fmt.Sprintf("expense_report_%d_%02d.pdf", p.Year, p.Month)
}

// ExcelFilename is the download name of the workbook rendering.
func ExcelFilename(p core.Period) string {
	return fmt.Sprintf("expenses_%d_%02d.xlsx", p.Year, p.Month)
}

// Options control how amounts are printed.
type Options struct {
	// CurrencyCode prefixes amounts in PDFs, whose embedded font has no symbol glyphs.
	CurrencyCode string
}

func (o Options) formatter() insights.Formatter {
	code := o.CurrencyCode
	if code == "" {
		code = "INR"
	}
	return insights.Formatter{Symbol: code + " "}
}
