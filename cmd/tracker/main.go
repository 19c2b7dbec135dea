package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prathap-k00/expense-tracker/internal/amqp"
	"github.com/prathap-k00/expense-tracker/internal/auth"
	"github.com/prathap-k00/expense-tracker/internal/cache"
	"github.com/prathap-k00/expense-tracker/internal/cli"
	apphttp "github.com/prathap-k00/expense-tracker/internal/http"
	"github.com/prathap-k00/expense-tracker/internal/insights"
	applog "github.com/prathap-k00/expense-tracker/internal/log"
	"github.com/prathap-k00/expense-tracker/internal/reports"
	"github.com/prathap-k00/expense-tracker/internal/services"
)

const (
	overviewCacheSize    = 500
	cacheCleanupInterval = 10 * time.Minute
	shutdownTimeout      = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	overviews := cache.NewLRUCache[services.Overview](overviewCacheSize, cfg.CacheTTL)
	caches := cache.NewManager()
	caches.Register(overviews)
	caches.StartCleanup(cacheCleanupInterval)

	dashboard := services.NewDashboardService(repo, overviews,
		insights.WithFormatter(insights.Formatter{Symbol: cfg.CurrencySymbol}))

	// The publisher stays a nil interface when AMQP is off, so exports report unavailable.
	var publisher services.ExportPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, spreadsheet exports disabled", applog.FieldError, err)
		} else {
			amqpClient = c
			publisher = c
			logger.Info("AMQP client ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP_URL not set, spreadsheet exports disabled")
	}

	srv, err := apphttp.NewServer(apphttp.Deps{
		DB:         repo,
		Users:      auth.NewPasswordAuthenticator(repo),
		Tokens:     auth.NewJWTManager(cfg.SecretKey, cfg.SessionLifetime),
		Categories: services.NewCategoryService(repo, dashboard),
		Expenses:   services.NewExpenseService(repo, dashboard),
		Income:     services.NewIncomeService(repo, dashboard),
		Budgets:    services.NewBudgetService(repo, dashboard),
		Dashboard:  dashboard,
		Reports:    services.NewReportService(repo, publisher, nil, reports.Options{CurrencyCode: cfg.CurrencyCode}),
		Logger:     logger.WithComponent(applog.ComponentHTTP),
	}, apphttp.Options{
		Addr:               ":" + cfg.Port,
		SecureCookies:      cfg.SecureCookies,
		SessionLifetime:    cfg.SessionLifetime,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CurrencySymbol:     cfg.CurrencySymbol,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		st := overviews.Stats()
		logger.Info("Overview cache", "hits", st.Hits, "misses", st.Misses, "entries", st.Entries)
		if amqpClient != nil {
			amqpClient.Close()
		}
	})

	logger.Info("Starting expense tracker", "port", cfg.Port, "env", cfg.AppEnv)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
