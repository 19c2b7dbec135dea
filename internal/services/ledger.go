// Package services coordinates storage, caching and exports behind the HTTP handlers.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prathap-k00/expense-tracker/internal/core"
	"github.com/prathap-k00/expense-tracker/internal/storage"
)

// Invalidator drops derived views of a user's data after a write.
type Invalidator interface {
	Invalidate(userID int64)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(int64) {}

func orNoop(inv Invalidator) Invalidator {
	if inv == nil {
		return noopInvalidator{}
	}
	return inv
}

// CategoryService manages a user's categories.
type CategoryService struct {
	storage     *storage.SQLiteRepository
	invalidator Invalidator
}

func NewCategoryService(storage *storage.SQLiteRepository, inv Invalidator) *CategoryService {
	return &CategoryService{storage: storage, invalidator: orNoop(inv)}
}

func (s *CategoryService) List(ctx context.Context, userID int64) ([]core.Category, error) {
	return s.storage.ListCategories(ctx, userID)
}

// Create validates and stores a category. A duplicate name returns core.ErrCategoryExists.
func (s *CategoryService) Create(ctx context.Context, userID int64, in core.CategoryInput) (core.Category, error) {
	c, err := in.Build(userID)
	if err != nil {
		return core.Category{}, err
	}
	c, err = s.storage.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	s.invalidator.Invalidate(userID)
	return c, nil
}

// Delete removes a category and, by cascade, its expenses.
func (s *CategoryService) Delete(ctx context.Context, userID, id int64) (core.Category, error) {
	c, err := s.storage.GetCategory(ctx, userID, id)
	if err != nil {
		return core.Category{}, err
	}
	if err := s.storage.DeleteCategory(ctx, userID, id); err != nil {
		return core.Category{}, err
	}
	s.invalidator.Invalidate(userID)
	return c, nil
}

// ExpenseService manages expenses and checks that the chosen category belongs to the user.
type ExpenseService struct {
	storage     *storage.SQLiteRepository
	invalidator Invalidator
}

func NewExpenseService(storage *storage.SQLiteRepository, inv Invalidator) *ExpenseService {
	return &ExpenseService{storage: storage, invalidator: orNoop(inv)}
}

// List returns one page of the user's expenses, newest first.
func (s *ExpenseService) List(ctx context.Context, userID int64, f storage.ExpenseFilter, page int) ([]core.Expense, core.Page, error) {
	return s.storage.ListExpenses(ctx, userID, f, core.NewPage(page, core.DefaultPerPage))
}

func (s *ExpenseService) Get(ctx context.Context, userID, id int64) (core.Expense, error) {
	return s.storage.GetExpense(ctx, userID, id)
}

// HasCategories reports whether the user can add an expense yet.
func (s *ExpenseService) HasCategories(ctx context.Context, userID int64) (bool, error) {
	n, err := s.storage.CountCategories(ctx, userID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *ExpenseService) Create(ctx context.Context, userID int64, in core.ExpenseInput) (core.Expense, error) {
	e, err := s.build(ctx, userID, in)
	if err != nil {
		return core.Expense{}, err
	}
	e, err = s.storage.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.invalidator.Invalidate(userID)
	return e, nil
}

// Update rewrites an expense the user owns; other users' ids return core.ErrNotFound.
func (s *ExpenseService) Update(ctx context.Context, userID, id int64, in core.ExpenseInput) (core.Expense, error) {
	e, err := s.build(ctx, userID, in)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = id
	if err := s.storage.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, err
	}
	s.invalidator.Invalidate(userID)
	return e, nil
}

func (s *ExpenseService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.storage.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}
	s.invalidator.Invalidate(userID)
	return nil
}

func (s *ExpenseService) build(ctx context.Context, userID int64, in core.ExpenseInput) (core.Expense, error) {
	e, err := in.Build(userID)
	if err != nil {
		return core.Expense{}, err
	}
	c, err := s.storage.GetCategory(ctx, userID, e.CategoryID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Expense refers to a foreign or missing category",
			"user_id", userID, "category_id", e.CategoryID)
		return core.Expense{}, core.ValidationErrors{"Invalid category selected."}
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("check category: %w", err)
	}
	e.CategoryName = c.Name
	return e, nil
}

// IncomeService manages income entries.
type IncomeService struct {
	storage     *storage.SQLiteRepository
	invalidator Invalidator
}

func NewIncomeService(storage *storage.SQLiteRepository, inv Invalidator) *IncomeService {
	return &IncomeService{storage: storage, invalidator: orNoop(inv)}
}

func (s *IncomeService) List(ctx context.Context, userID int64, page int) ([]core.Income, core.Page, error) {
	return s.storage.ListIncome(ctx, userID, core.NewPage(page, core.DefaultPerPage))
}

func (s *IncomeService) Create(ctx context.Context, userID int64, in core.IncomeInput) (core.Income, error) {
	inc, err := in.Build(userID)
	if err != nil {
		return core.Income{}, err
	}
	inc, err = s.storage.CreateIncome(ctx, inc)
	if err != nil {
		return core.Income{}, fmt.Errorf("save income: %w", err)
	}
	s.invalidator.Invalidate(userID)
	return inc, nil
}

// RecentBudgetsLimit is how many months the budgets page lists.
const RecentBudgetsLimit = 12

// BudgetService sets monthly budgets; setting a month twice replaces the amount.
type BudgetService struct {
	storage     *storage.SQLiteRepository
	invalidator Invalidator
}

func NewBudgetService(storage *storage.SQLiteRepository, inv Invalidator) *BudgetService {
	return &BudgetService{storage: storage, invalidator: orNoop(inv)}
}

// Set creates or replaces the month's budget; updated reports a replacement.
func (s *BudgetService) Set(ctx context.Context, userID int64, in core.BudgetInput) (b core.Budget, updated bool, err error) {
	b, err = in.Build(userID)
	if err != nil {
		return core.Budget{}, false, err
	}
	b, updated, err = s.storage.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, false, fmt.Errorf("save budget: %w", err)
	}
	s.invalidator.Invalidate(userID)
	return b, updated, nil
}

// Recent lists the latest budgets with what was spent against each.
func (s *BudgetService) Recent(ctx context.Context, userID int64) ([]core.BudgetStatus, error) {
	return s.storage.RecentBudgets(ctx, userID, RecentBudgetsLimit)
}
