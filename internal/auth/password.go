// Package auth handles password accounts and signed session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/prathap-k00/expense-tracker/internal/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = core.ErrEmailExists
)

// UserStorage is the persistence the authenticator needs.
type UserStorage interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	UserByEmail(ctx context.Context, email string) (core.User, error)
	UserByID(ctx context.Context, id int64) (core.User, error)
}

// PasswordAuthenticator implements password-based accounts using bcrypt.
type PasswordAuthenticator struct {
	storage UserStorage
	cost    int
}

func NewPasswordAuthenticator(storage UserStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{storage: storage, cost: bcrypt.DefaultCost}
}

// WithCost returns a copy using the given bcrypt cost. Tests use bcrypt.MinCost.
func (a *PasswordAuthenticator) WithCost(cost int) *PasswordAuthenticator {
	cp := *a
	cp.cost = cost
	return &cp
}

// Register validates the form, hashes the password and stores the account.
func (a *PasswordAuthenticator) Register(ctx context.Context, in core.RegisterInput) (core.User, error) {
	if err := in.Validate(); err != nil {
		return core.User{}, err
	}
	in = in.Normalize()

	if _, err := a.storage.UserByEmail(ctx, in.Email); err == nil {
		return core.User{}, ErrEmailExists
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := HashPassword(in.Password, a.cost)
	if err != nil {
		return core.User{}, err
	}

	user, err := a.storage.CreateUser(ctx, core.User{Name: in.Name, Email: in.Email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, core.ErrEmailExists) {
			return core.User{}, ErrEmailExists
		}
		return core.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate verifies the email and password, returning the user if valid.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, password string) (core.User, error) {
	user, err := a.storage.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, ErrInvalidCredentials
		}
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return core.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// User returns the account behind a session.
func (a *PasswordAuthenticator) User(ctx context.Context, id int64) (core.User, error) {
	return a.storage.UserByID(ctx, id)
}

// HashPassword hashes password with bcrypt at the given cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}
