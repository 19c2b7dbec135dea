package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prathap-k00/expense-tracker/internal/core"
)

// ListIncome returns one page of the user's income, newest first.
func (r *SQLiteRepository) ListIncome(ctx context.Context, userID int64, page core.Page) ([]core.Income, core.Page, error) {
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM income WHERE user_id = ?`, userID).Scan(&page.Total); err != nil {
		return nil, page, fmt.Errorf("count income: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, date, source FROM income
		WHERE user_id = ? ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`,
		userID, page.PerPage, page.Offset())
	if err != nil {
		return nil, page, fmt.Errorf("list income: %w", err)
	}
	defer rows.Close()

	out := []core.Income{}
	for rows.Next() {
		var (
			in   core.Income
			date string
		)
		if err := rows.Scan(&in.ID, &in.UserID, &in.Amount.Cents, &date, &in.Source); err != nil {
			return nil, page, fmt.Errorf("scan income: %w", err)
		}
		if in.Date, err = parseStoredDate(date); err != nil {
			return nil, page, err
		}
		out = append(out, in)
	}
	return out, page, rows.Err()
}

func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO income (user_id, amount_cents, date, source) VALUES (?, ?, ?, ?) RETURNING id`,
		in.UserID, in.Amount.Cents, in.Date.String(), in.Source,
	).Scan(&in.ID)
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"id", in.ID,
		"user_id", in.UserID,
		"amount_cents", in.Amount.Cents,
		"date", in.Date.String())
	return in, nil
}
