// Package session resolves the signed-in user from the session cookie.
package session

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/prathap-k00/expense-tracker/internal/auth"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	emailKey  contextKey = "email"
)

// LoginPath is where anonymous visitors of protected pages are sent.
const LoginPath = "/auth/login"

// Validator checks a session token.
type Validator interface {
	Validate(token string) (*auth.Claims, error)
}

// WithUser stores the user in ctx.
func WithUser(ctx context.Context, userID int64, email string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, emailKey, email)
}

// UserID returns the signed-in user's ID, or 0 for anonymous requests.
func UserID(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

func Email(ctx context.Context) string {
	email, _ := ctx.Value(emailKey).(string)
	return email
}

// Load attaches the user to the request context when a valid session cookie is
// present. Invalid cookies are cleared; the request continues anonymously.
func Load(v Validator, secureCookies bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromRequest(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := v.Validate(token)
			if err != nil {
				slog.DebugContext(r.Context(), "Dropping invalid session", "error", err)
				http.SetCookie(w, auth.ClearSessionCookie(secureCookies))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.UserID, claims.Email)))
		})
	}
}

// RequireUser redirects anonymous requests to the login page, remembering
// where they were going.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) == 0 {
			target := LoginPath
			if r.Method == http.MethodGet {
				target += "?next=" + url.QueryEscape(r.URL.RequestURI())
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SafeNext returns next when it is a local path, otherwise fallback.
// Protects the post-login redirect from sending users off-site.
func SafeNext(next, fallback string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}
