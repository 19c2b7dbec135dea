package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/prathap-k00/expense-tracker/internal/core"
)

type memUsers struct {
	mu     sync.Mutex
	byID   map[int64]core.User
	nextID int64
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]core.User{}}
}

func (m *memUsers) CreateUser(_ context.Context, u core.User) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return core.User{}, core.ErrEmailExists
		}
	}
	m.nextID++
	u.ID = m.nextID
	m.byID[u.ID] = u
	return u, nil
}

func (m *memUsers) UserByEmail(_ context.Context, email string) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (m *memUsers) UserByID(_ context.Context, id int64) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func TestRegisterAndAuthenticate(t *testing.T) {
	a := NewPasswordAuthenticator(newMemUsers()).WithCost(bcrypt.MinCost)
	ctx := context.Background()

	u, err := a.Register(ctx, core.RegisterInput{Name: "Ann", Email: "Ann@Example.com", Password: "secret1", Confirm: "secret1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.PasswordHash == "secret1" || u.Email != "ann@example.com" {
		t.Fatalf("unexpected user %+v", u)
	}

	if _, err := a.Register(ctx, core.RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1", Confirm: "secret1"}); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	got, err := a.Authenticate(ctx, "ANN@example.com", "secret1")
	if err != nil || got.ID != u.ID {
		t.Fatalf("Authenticate = %+v, %v", got, err)
	}
	if _, err := a.Authenticate(ctx, "ann@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := a.Authenticate(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: %v", err)
	}
}

func TestRegisterRejectsInvalidForm(t *testing.T) {
	a := NewPasswordAuthenticator(newMemUsers()).WithCost(bcrypt.MinCost)
	_, err := a.Register(context.Background(), core.RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "123", Confirm: "123"})
	var verrs core.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	token, err := m.Generate(core.User{ID: 42, Email: "ann@example.com"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "ann@example.com" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestJWTRejects(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	token, _ := m.Generate(core.User{ID: 1, Email: "a@example.com"})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("other-secret", time.Hour)
		if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		later := NewJWTManager("test-secret", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		if _, err := later.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("SignedString: %v", err)
		}
		if _, err := m.Validate(s); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := m.Validate(""); !errors.Is(err, ErrMissingToken) {
			t.Fatalf("expected ErrMissingToken, got %v", err)
		}
	})
}

func TestSessionCookie(t *testing.T) {
	c := SessionCookie("tok", 24*time.Hour, true)
	if c.Name != SessionCookieName || !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookie = %+v", c)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := TokenFromRequest(r); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	r.AddCookie(c)
	if tok, err := TokenFromRequest(r); err != nil || tok != "tok" {
		t.Fatalf("TokenFromRequest = %q, %v", tok, err)
	}
	if cleared := ClearSessionCookie(false); cleared.MaxAge >= 0 {
		t.Fatalf("cleared cookie should expire, got %+v", cleared)
	}
}
