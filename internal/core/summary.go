package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthTotals is the income and expense of one calendar month.
type MonthTotals struct {
	Period  Period
	Income  Money
	Expense Money
}

// Savings is income minus expense; negative when overspending.
func (t MonthTotals) Savings() Money {
	return t.Income.Sub(t.Expense)
}

// Page describes one page of a paginated listing.
type Page struct {
	Number  int
	PerPage int
	Total   int
}

// DefaultPerPage is the listing page size for expenses and income.
const DefaultPerPage = 10

// Pages returns the number of pages, at least 1.
func (p Page) Pages() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

// Offset is the number of rows to skip for this page.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.PerPage
}

func (p Page) HasPrev() bool { return p.Number > 1 }
func (p Page) HasNext() bool { return p.Number < p.Pages() }
func (p Page) PrevNum() int  { return p.Number - 1 }
func (p Page) NextNum() int  { return p.Number + 1 }

// NewPage clamps the requested page number to 1 and applies the default size.
func NewPage(number, perPage int) Page {
	if number < 1 {
		number = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return Page{Number: number, PerPage: perPage}
}
