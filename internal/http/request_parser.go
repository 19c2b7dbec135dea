// Package http serves the tracker's web interface.
//
// This file implements utilities for reading query and form values into
// domain inputs, so handlers share one set of defaults and limits.

package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/prathap-k00/expense-tracker/internal/core"
	"github.com/prathap-k00/expense-tracker/internal/storage"
)

// maxFormBytes caps urlencoded bodies.
const maxFormBytes = 64 << 10

var errBadID = errors.New("invalid id")

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// Period converts the params into a validated period.
func (p MonthParams) Period() (core.Period, error) {
	period := core.Period{Year: p.Year, Month: p.Month}
	if err := period.Validate(); err != nil {
		return core.Period{}, err
	}
	if p.Year < 1 || p.Year > 9999 {
		return core.Period{}, core.ErrInvalidDate
	}
	return period, nil
}

// ParseMonthParams extracts year and month from query parameters, using now as defaults.
// Values that do not parse keep the default; range checks happen in Period.
func ParseMonthParams(query url.Values, now time.Time) MonthParams {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			params.Month = m
		}
	}

	return params
}

// ParsePage returns the requested page number, 1 when absent or invalid.
func ParsePage(query url.Values) int {
	n, err := strconv.Atoi(strings.TrimSpace(query.Get("page")))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ParseExpenseFilter reads the optional category, month and year filters of the expense list.
// Zero means "not filtered".
func ParseExpenseFilter(query url.Values) storage.ExpenseFilter {
	var f storage.ExpenseFilter
	if id, err := strconv.ParseInt(strings.TrimSpace(query.Get("category")), 10, 64); err == nil && id > 0 {
		f.CategoryID = id
	}
	if m, err := strconv.Atoi(strings.TrimSpace(query.Get("month"))); err == nil && m >= 1 && m <= 12 {
		f.Month = m
	}
	if y, err := strconv.Atoi(strings.TrimSpace(query.Get("year"))); err == nil && y > 0 {
		f.Year = y
	}
	return f
}

// URLParamID parses the {id} route parameter.
func URLParamID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

// parseForm limits the body size before parsing.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	return r.ParseForm()
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}

// expenseInput reads the add/edit expense form.
func expenseInput(r *http.Request) core.ExpenseInput {
	return core.ExpenseInput{
		Amount:      formValue(r, "amount"),
		CategoryID:  formValue(r, "category_id"),
		Date:        formValue(r, "date"),
		Description: formValue(r, "description"),
	}
}

func incomeInput(r *http.Request) core.IncomeInput {
	return core.IncomeInput{
		Amount: formValue(r, "amount"),
		Date:   formValue(r, "date"),
		Source: formValue(r, "source"),
	}
}

func budgetInput(r *http.Request) core.BudgetInput {
	return core.BudgetInput{
		Amount: formValue(r, "amount"),
		Month:  formValue(r, "month"),
		Year:   formValue(r, "year"),
	}
}

func registerInput(r *http.Request) core.RegisterInput {
	return core.RegisterInput{
		Name:     formValue(r, "name"),
		Email:    formValue(r, "email"),
		Password: r.PostFormValue("password"),
		Confirm:  r.PostFormValue("confirm_password"),
	}
}
