package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/prathap-k00/expense-tracker/internal/auth"
	"github.com/prathap-k00/expense-tracker/internal/insights"
	applog "github.com/prathap-k00/expense-tracker/internal/log"
	"github.com/prathap-k00/expense-tracker/internal/middleware/ratelimit"
	"github.com/prathap-k00/expense-tracker/internal/middleware/security"
	"github.com/prathap-k00/expense-tracker/internal/middleware/session"
	"github.com/prathap-k00/expense-tracker/internal/middleware/trace"
	"github.com/prathap-k00/expense-tracker/internal/services"
	appweb "github.com/prathap-k00/expense-tracker/web"
)

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the handlers call.
type Deps struct {
	DB         Pinger
	Users      *auth.PasswordAuthenticator
	Tokens     *auth.JWTManager
	Categories *services.CategoryService
	Expenses   *services.ExpenseService
	Income     *services.IncomeService
	Budgets    *services.BudgetService
	Dashboard  *services.DashboardService
	Reports    *services.ReportService
	Logger     *applog.Logger
}

// Options tune the HTTP surface.
type Options struct {
	Addr               string
	SecureCookies      bool
	SessionLifetime    time.Duration
	RateLimitPerMinute int
	CurrencySymbol     string
	Now                func() time.Time
}

type Server struct {
	http.Server
	deps      Deps
	opts      Options
	templates *template.Template
	format    insights.Formatter

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and mounts every route.
func NewServer(deps Deps, opts Options) (*Server, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SessionLifetime <= 0 {
		opts.SessionLifetime = 24 * time.Hour
	}
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	s := &Server{
		deps:     deps,
		opts:     opts,
		format:   insights.Formatter{Symbol: opts.CurrencySymbol},
		detector: security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	t, err := parseTemplates(s.funcs())
	if err != nil {
		s.rateLimiter.Stop()
		return nil, err
	}
	s.templates = t

	s.Server = http.Server{
		Addr:    opts.Addr,
		Handler: s.routes(),
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(middleware.Compress(5))
	r.Use(s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited, http.MethodPost))
	r.Use(session.Load(s.deps.Tokens, s.opts.SecureCookies))
	r.Use(applog.Middleware(s.deps.Logger, trace.GetRequestID, session.UserID))

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/", s.handleIndex)

	r.Route("/auth", func(r chi.Router) {
		r.Use(security.NoStore)
		r.Get("/register", s.handleRegisterForm)
		r.Post("/register", s.handleRegister)
		r.Get("/login", s.handleLoginForm)
		r.Post("/login", s.handleLogin)
		r.Get("/logout", s.handleLogout)
	})

	r.Group(func(r chi.Router) {
		r.Use(session.RequireUser)
		r.Use(security.NoStore)

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/dashboard/data", s.handleDashboardData)

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Get("/add", s.handleAddExpenseForm)
			r.Post("/add", s.handleAddExpense)
			r.Get("/edit/{id}", s.handleEditExpenseForm)
			r.Post("/edit/{id}", s.handleEditExpense)
			r.Post("/delete/{id}", s.handleDeleteExpense)
		})

		r.Route("/income", func(r chi.Router) {
			r.Get("/", s.handleListIncome)
			r.Get("/add", s.handleAddIncomeForm)
			r.Post("/add", s.handleAddIncome)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Get("/add", s.handleAddCategoryForm)
			r.Post("/add", s.handleAddCategory)
			r.Post("/delete/{id}", s.handleDeleteCategory)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.handleListBudgets)
			r.Get("/add", s.handleAddBudgetForm)
			r.Post("/add", s.handleAddBudget)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/pdf", s.handlePDFReport)
			r.Get("/excel", s.handleExcelReport)
			r.Post("/sheets", s.handleSheetsExport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, "Page not found.")
	})
	return r
}

// Shutdown stops the rate limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)

		reqs := s.tracer.Stats()
		s.deps.Logger.Info("HTTP server drained",
			applog.FieldOperation, applog.OpShutdown,
			"requests", reqs.Requests,
			"server_errors", reqs.ServerErrors,
			"slow", reqs.Slow,
			"rate_limited", s.rateLimiter.Stats().Rejected,
			"suspicious", s.detector.SuspiciousCount())
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().Text("ok").Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.DB.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			NewResponse().Status(http.StatusServiceUnavailable).Text("database unavailable").Write(w)
			return
		}
	}
	NewResponse().Text("ready").Write(w)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	s.renderError(w, r, http.StatusTooManyRequests, "Too many requests. Please try again in a minute.")
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if session.UserID(r.Context()) != 0 {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "index", "Welcome", nil)
}
