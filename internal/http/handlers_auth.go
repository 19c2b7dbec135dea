package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prathap-k00/expense-tracker/internal/auth"
	applog "github.com/prathap-k00/expense-tracker/internal/log"
	"github.com/prathap-k00/expense-tracker/internal/middleware/session"
)

type authForm struct {
	Name  string
	Email string
	Next  string
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	if session.UserID(r.Context()) != 0 {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "register", "Register", authForm{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := parseForm(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	in := registerInput(r)
	form := authForm{Name: in.Name, Email: in.Email}

	user, err := s.deps.Users.Register(ctx, in)
	if err != nil {
		if msgs, ok := validationMessages(err); ok {
			s.render(w, r, http.StatusUnprocessableEntity, "register", "Register", form, flashesFrom(FlashDanger, msgs...)...)
			return
		}
		if errors.Is(err, auth.ErrEmailExists) {
			setFlash(w, FlashWarning, "Email already registered. Please login.")
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}
		s.fail(w, r, applog.OpCreate, err)
		return
	}

	applog.FromContext(ctx).InfoContext(ctx, "User registered", applog.FieldUserID, user.ID)
	setFlash(w, FlashSuccess, "Registration successful! Please log in.")
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if session.UserID(r.Context()) != 0 {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login", "Login", authForm{Next: r.URL.Query().Get("next")})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := parseForm(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	email := strings.ToLower(formValue(r, "email"))
	next := formValue(r, "next")
	if next == "" {
		next = r.URL.Query().Get("next")
	}
	form := authForm{Email: email, Next: next}

	user, err := s.deps.Users.Authenticate(ctx, email, r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			applog.FromContext(ctx).WarnContext(ctx, "Login failed",
				applog.FieldClientIP, s.detector.ExtractClientIP(r))
			s.render(w, r, http.StatusUnauthorized, "login", "Login", form,
				Flash{Level: FlashDanger, Message: "Invalid email or password."})
			return
		}
		s.fail(w, r, applog.OpRead, err)
		return
	}

	token, err := s.deps.Tokens.Generate(user)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	http.SetCookie(w, auth.SessionCookie(token, s.opts.SessionLifetime, s.opts.SecureCookies))

	applog.FromContext(ctx).InfoContext(ctx, "User logged in", applog.FieldUserID, user.ID)
	setFlash(w, FlashSuccess, fmt.Sprintf("Welcome back, %s!", user.Name))
	http.Redirect(w, r, session.SafeNext(next, "/dashboard"), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearSessionCookie(s.opts.SecureCookies))
	setFlash(w, FlashInfo, "You have been logged out.")
	http.Redirect(w, r, session.LoginPath, http.StatusSeeOther)
}
