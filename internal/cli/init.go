// Package cli holds the start-up steps shared by cmd/tracker, cmd/tracker-worker and cmd/seed.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/prathap-k00/expense-tracker/internal/config"
	applog "github.com/prathap-k00/expense-tracker/internal/log"
	"github.com/prathap-k00/expense-tracker/internal/sheets"
	"github.com/prathap-k00/expense-tracker/internal/sheets/google"
	"github.com/prathap-k00/expense-tracker/internal/sheets/memory"
	"github.com/prathap-k00/expense-tracker/internal/storage"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and makes it the default.
// It runs before the configuration is validated, so an unknown level falls back to info.
func SetupLogger(component string) *applog.Logger {
	level, _ := applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	format := os.Getenv("LOG_FORMAT")
	if format == "" {
		format = "tint"
		if os.Getenv("APP_ENV") == config.EnvProduction {
			format = "json"
		}
	}

	logger := applog.New(applog.Config{
		Level:     level,
		Format:    format,
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig exits the process when the configuration is invalid.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens and migrates the database or exits the process.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	logger.Info("SQLite repository ready", "path", dbPath, "schema_version", repo.SchemaVersion())
	return repo
}

// NewReportWriter returns the export destination selected by EXPORT_BACKEND.
func NewReportWriter(ctx context.Context, cfg *config.Config) (sheets.ReportWriter, error) {
	switch cfg.ExportBackend {
	case config.ExportBackendSheets:
		w, err := google.New(ctx, google.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			CredentialsFile: cfg.GoogleServiceAccountFile,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			OAuthClientFile: cfg.GoogleOAuthClientFile,
			OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
		})
		if err != nil {
			return nil, fmt.Errorf("google sheets writer: %w", err)
		}
		return w, nil
	case config.ExportBackendMemory, "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown export backend %q", cfg.ExportBackend)
	}
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup runs once after the
// signal, bounded by timeout; done is closed when it has returned.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		cancel()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the shutdown sequence has finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
