package storage

import (
	"context"
	"fmt"

	"github.com/prathap-k00/expense-tracker/internal/core"
)

// SumAmount totals one ledger for the month; an empty month sums to zero.
func (r *SQLiteRepository) SumAmount(ctx context.Context, kind core.EntryKind, userID int64, p core.Period) (core.Money, error) {
	var table string
	switch kind {
	case core.KindExpense:
		table = "expenses"
	case core.KindIncome:
		table = "income"
	default:
		return core.Money{}, core.ErrInvalidKind
	}

	from, to := p.Bounds()
	var total core.Money
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM `+table+` WHERE user_id = ? AND date >= ? AND date < ?`,
		userID, from, to,
	).Scan(&total.Cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum %s for %s: %w", kind, p, err)
	}
	return total, nil
}

// SumExpensesByCategory totals the month's expenses per category, ordered by name.
// Categories without spending in the month are omitted.
func (r *SQLiteRepository) SumExpensesByCategory(ctx context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error) {
	from, to := p.Bounds()
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.name, SUM(e.amount_cents) FROM expenses e
		JOIN categories c ON c.id = e.category_id
		WHERE e.user_id = ? AND e.date >= ? AND e.date < ?
		GROUP BY c.id, c.name ORDER BY c.name`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("sum expenses by category for %s: %w", p, err)
	}
	defer rows.Close()

	out := []core.CategoryAmount{}
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		out = append(out, ca)
	}
	return out, rows.Err()
}
