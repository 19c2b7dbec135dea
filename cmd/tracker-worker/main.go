package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/prathap-k00/expense-tracker/internal/amqp"
	"github.com/prathap-k00/expense-tracker/internal/cli"
	applog "github.com/prathap-k00/expense-tracker/internal/log"
	"github.com/prathap-k00/expense-tracker/internal/reports"
	"github.com/prathap-k00/expense-tracker/internal/services"
	"github.com/prathap-k00/expense-tracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	writer, err := cli.NewReportWriter(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize report writer", applog.FieldError, err, "backend", cfg.ExportBackend)
		os.Exit(1)
	}
	logger.Info("Report writer ready", "backend", cfg.ExportBackend)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	reportService := services.NewReportService(repo, nil, writer, reports.Options{CurrencyCode: cfg.CurrencyCode})
	exportWorker := worker.NewExportWorker(reportService, worker.DefaultExportTimeout)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		stats := exportWorker.Stats()
		logger.Info("Export worker stopping",
			"processed", stats.Processed,
			"skipped", stats.Skipped,
			"failed", stats.Failed)
	})

	logger.Info("Starting export worker", "queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumeReportExports(ctx, exportWorker.HandleExportMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Export worker stopped")
}
