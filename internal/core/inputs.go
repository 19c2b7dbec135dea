package core

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// ValidationErrors collects user-facing messages for a rejected input.
type ValidationErrors []string

func (v ValidationErrors) Error() string {
	return strings.Join(v, " ")
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

const (
	minNameLen        = 2
	minPasswordLen    = 6
	maxCategoryLen    = 50
	maxDescriptionLen = 200
	maxSourceLen      = 100
)

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Confirm  string
}

// Normalize trims the name and lower-cases the email.
func (in RegisterInput) Normalize() RegisterInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	return in
}

func (in RegisterInput) Validate() error {
	in = in.Normalize()
	var errs ValidationErrors
	if utf8.RuneCountInString(in.Name) < minNameLen {
		errs = append(errs, "Name must be at least 2 characters.")
	}
	if in.Email == "" {
		errs = append(errs, "Email is required.")
	} else if !strings.Contains(in.Email, "@") {
		errs = append(errs, "Email address is not valid.")
	}
	if len(in.Password) < minPasswordLen {
		errs = append(errs, "Password must be at least 6 characters.")
	}
	if in.Password != in.Confirm {
		errs = append(errs, "Passwords do not match.")
	}
	return errs.orNil()
}

// CategoryInput is the add-category form.
type CategoryInput struct {
	Name string
}

func (in CategoryInput) Build(userID int64) (Category, error) {
	name := strings.TrimSpace(in.Name)
	n := utf8.RuneCountInString(name)
	if n < minNameLen {
		return Category{}, ValidationErrors{"Category name must be at least 2 characters."}
	}
	if n > maxCategoryLen {
		return Category{}, ValidationErrors{"Category name must be at most 50 characters."}
	}
	return Category{UserID: userID, Name: name}, nil
}

// ExpenseInput is the raw add/edit expense form.
type ExpenseInput struct {
	Amount      string
	CategoryID  string
	Date        string
	Description string
}

// Build validates the form and returns the expense it describes.
// Category ownership is checked by the caller against storage.
func (in ExpenseInput) Build(userID int64) (Expense, error) {
	var errs ValidationErrors
	amount, err := ParseMoney(in.Amount)
	if err != nil {
		errs = append(errs, "Amount must be positive.")
	}
	catID, err := strconv.ParseInt(strings.TrimSpace(in.CategoryID), 10, 64)
	if err != nil || catID <= 0 {
		errs = append(errs, "Invalid category selected.")
	}
	date, err := ParseDate(strings.TrimSpace(in.Date))
	if err != nil {
		errs = append(errs, "Date must be in YYYY-MM-DD format.")
	}
	desc := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		errs = append(errs, "Description must be at most 200 characters.")
	}
	if len(errs) > 0 {
		return Expense{}, errs
	}
	return Expense{
		UserID:      userID,
		CategoryID:  catID,
		Amount:      amount,
		Date:        date,
		Description: desc,
	}, nil
}

// IncomeInput is the raw add-income form.
type IncomeInput struct {
	Amount string
	Date   string
	Source string
}

func (in IncomeInput) Build(userID int64) (Income, error) {
	var errs ValidationErrors
	amount, err := ParseMoney(in.Amount)
	if err != nil {
		errs = append(errs, "Amount must be positive.")
	}
	date, err := ParseDate(strings.TrimSpace(in.Date))
	if err != nil {
		errs = append(errs, "Date must be in YYYY-MM-DD format.")
	}
	source := strings.TrimSpace(in.Source)
	if source == "" {
		source = DefaultIncomeSource
	}
	if utf8.RuneCountInString(source) > maxSourceLen {
		errs = append(errs, "Source must be at most 100 characters.")
	}
	if len(errs) > 0 {
		return Income{}, errs
	}
	return Income{UserID: userID, Amount: amount, Date: date, Source: source}, nil
}

// BudgetInput is the raw set-budget form.
type BudgetInput struct {
	Amount string
	Month  string
	Year   string
}

func (in BudgetInput) Build(userID int64) (Budget, error) {
	var errs ValidationErrors
	amount, err := ParseMoney(in.Amount)
	if err != nil {
		errs = append(errs, "Budget amount must be positive.")
	}
	month, err := strconv.Atoi(strings.TrimSpace(in.Month))
	if err != nil || month < 1 || month > 12 {
		errs = append(errs, "Invalid month.")
	}
	year, err := strconv.Atoi(strings.TrimSpace(in.Year))
	if err != nil || year < 1900 || year > 9999 {
		errs = append(errs, "Invalid year.")
	}
	if len(errs) > 0 {
		return Budget{}, errs
	}
	return Budget{UserID: userID, Year: year, Month: month, Amount: amount}, nil
}
