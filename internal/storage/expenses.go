package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prathap-k00/expense-tracker/internal/core"
)

// ExpenseFilter narrows an expense listing. Zero fields do not filter.
type ExpenseFilter struct {
	CategoryID int64
	Month      int
	Year       int
}

func (f ExpenseFilter) where(userID int64) (string, []any) {
	clauses := []string{"e.user_id = ?"}
	args := []any{userID}
	if f.CategoryID > 0 {
		clauses = append(clauses, "e.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Month > 0 {
		clauses = append(clauses, "CAST(strftime('%m', e.date) AS INTEGER) = ?")
		args = append(args, f.Month)
	}
	if f.Year > 0 {
		clauses = append(clauses, "CAST(strftime('%Y', e.date) AS INTEGER) = ?")
		args = append(args, f.Year)
	}
	return strings.Join(clauses, " AND "), args
}

const expenseColumns = `e.id, e.user_id, e.category_id, c.name, e.amount_cents, e.date, e.description`

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e    core.Expense
		date string
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.CategoryName, &e.Amount.Cents, &date, &e.Description); err != nil {
		return core.Expense{}, err
	}
	d, err := parseStoredDate(date)
	if err != nil {
		return core.Expense{}, err
	}
	e.Date = d
	return e, nil
}

// ListExpenses returns one page of the user's expenses, newest first, and the page with its total filled in.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64, f ExpenseFilter, page core.Page) ([]core.Expense, core.Page, error) {
	where, args := f.where(userID)

	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses e WHERE `+where, args...).Scan(&page.Total); err != nil {
		return nil, page, fmt.Errorf("count expenses: %w", err)
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses e JOIN categories c ON c.id = e.category_id
		WHERE ` + where + ` ORDER BY e.date DESC, e.id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, page.PerPage, page.Offset())...)
	if err != nil {
		return nil, page, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, page, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, page, rows.Err()
}

// ExpensesInPeriod returns every expense of the month in date order, with category names.
func (r *SQLiteRepository) ExpensesInPeriod(ctx context.Context, userID int64, p core.Period) ([]core.Expense, error) {
	from, to := p.Bounds()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses e JOIN categories c ON c.id = e.category_id
		WHERE e.user_id = ? AND e.date >= ? AND e.date < ? ORDER BY e.date, e.id`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list expenses for %s: %w", p, err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetExpense returns the expense only when it belongs to userID.
func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	e, err := scanExpense(r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses e JOIN categories c ON c.id = e.category_id
		WHERE e.id = ? AND e.user_id = ?`, id, userID))
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, notFound(err))
	}
	return e, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO expenses (user_id, category_id, amount_cents, date, description)
		VALUES (?, ?, ?, ?, ?) RETURNING id`,
		e.UserID, e.CategoryID, e.Amount.Cents, e.Date.String(), e.Description,
	).Scan(&e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"user_id", e.UserID,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())
	return e, nil
}

// UpdateExpense rewrites the expense identified by e.ID and e.UserID.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET category_id = ?, amount_cents = ?, date = ?, description = ?
		WHERE id = ? AND user_id = ?`,
		e.CategoryID, e.Amount.Cents, e.Date.String(), e.Description, e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id, "user_id", userID)
	return nil
}
