package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prathap-k00/expense-tracker/internal/core"
)

// UpsertBudget sets the budget for (user, month, year), replacing any previous amount.
// updated is true when the month already had a budget.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Budget{}, false, fmt.Errorf("upsert budget: %w", err)
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM budgets WHERE user_id = ? AND year = ? AND month = ?`,
		b.UserID, b.Year, b.Month,
	).Scan(&existing)
	if err != nil {
		return core.Budget{}, false, fmt.Errorf("upsert budget: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO budgets (user_id, year, month, amount_cents) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, month, year) DO UPDATE SET amount_cents = excluded.amount_cents
		RETURNING id`,
		b.UserID, b.Year, b.Month, b.Amount.Cents,
	).Scan(&b.ID)
	if err != nil {
		return core.Budget{}, false, fmt.Errorf("upsert budget: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Budget{}, false, fmt.Errorf("upsert budget: %w", err)
	}

	updated := existing > 0
	slog.InfoContext(ctx, "Budget set",
		"user_id", b.UserID,
		"period", b.Period().Key(),
		"amount_cents", b.Amount.Cents,
		"updated", updated)
	return b, updated, nil
}

// FindBudget returns the budget for the month or nil when none is set.
func (r *SQLiteRepository) FindBudget(ctx context.Context, userID int64, p core.Period) (*core.Budget, error) {
	b := core.Budget{UserID: userID}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, year, month, amount_cents FROM budgets WHERE user_id = ? AND year = ? AND month = ?`,
		userID, p.Year, p.Month,
	).Scan(&b.ID, &b.Year, &b.Month, &b.Amount.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find budget %s: %w", p, err)
	}
	return &b, nil
}

// RecentBudgets returns up to limit budgets, newest month first, with the spend of each month.
func (r *SQLiteRepository) RecentBudgets(ctx context.Context, userID int64, limit int) ([]core.BudgetStatus, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.year, b.month, b.amount_cents,
			COALESCE((
				SELECT SUM(e.amount_cents) FROM expenses e
				WHERE e.user_id = b.user_id
				AND e.date >= printf('%04d-%02d-01', b.year, b.month)
				AND e.date < date(printf('%04d-%02d-01', b.year, b.month), '+1 month')
			), 0)
		FROM budgets b WHERE b.user_id = ?
		ORDER BY b.year DESC, b.month DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := []core.BudgetStatus{}
	for rows.Next() {
		var (
			b     = core.Budget{UserID: userID}
			spent core.Money
		)
		if err := rows.Scan(&b.ID, &b.Year, &b.Month, &b.Amount.Cents, &spent.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, core.NewBudgetStatus(b, spent))
	}
	return out, rows.Err()
}
