package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prathap-k00/expense-tracker/internal/core"
)

// CreateUser inserts u and returns it with its ID. Emails are stored lower-cased.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	var created string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (name, email, password_hash) VALUES (?, ?, ?) RETURNING id, created_at`,
		u.Name, u.Email, u.PasswordHash,
	).Scan(&u.ID, &created)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrEmailExists
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	u.CreatedAt = parseTimestamp(created)

	slog.InfoContext(ctx, "User created", "user_id", u.ID)
	return u, nil
}

// UserByEmail looks a user up by case-insensitive email.
func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)),
	))
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id int64) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE id = ?`, id,
	))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) scanUser(row rowScanner) (core.User, error) {
	var (
		u       core.User
		created string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &created); err != nil {
		return core.User{}, fmt.Errorf("get user: %w", notFound(err))
	}
	u.CreatedAt = parseTimestamp(created)
	return u, nil
}
