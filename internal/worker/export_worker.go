// Package worker processes queued report exports.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prathap-k00/expense-tracker/internal/amqp"
	"github.com/prathap-k00/expense-tracker/internal/core"
)

// DefaultExportTimeout bounds a single export, Sheets API calls included.
const DefaultExportTimeout = 60 * time.Second

// Exporter renders and writes a user's month; services.ReportService implements it.
type Exporter interface {
	ProcessExport(ctx context.Context, userID int64, p core.Period) (string, error)
}

// ExportWorker handles report export messages from AMQP.
type ExportWorker struct {
	exporter Exporter
	timeout  time.Duration

	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

func NewExportWorker(exporter Exporter, timeout time.Duration) *ExportWorker {
	if timeout <= 0 {
		timeout = DefaultExportTimeout
	}
	return &ExportWorker{exporter: exporter, timeout: timeout}
}

// HandleExportMessage exports the requested month. A returned error makes the
// consumer requeue the message; exports for deleted users are skipped instead.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ReportExportMessage) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	p := msg.Period()
	slog.InfoContext(ctx, "Processing report export",
		"user_id", msg.UserID,
		"period", p.Key(),
		"requested_at", msg.RequestedAt)

	ref, err := w.exporter.ProcessExport(ctx, msg.UserID, p)
	switch {
	case errors.Is(err, core.ErrNotFound):
		w.skipped.Add(1)
		slog.WarnContext(ctx, "Skipping export for unknown user", "user_id", msg.UserID)
		return nil
	case err != nil:
		w.failed.Add(1)
		return fmt.Errorf("export %s for user %d: %w", p.Key(), msg.UserID, err)
	}

	w.processed.Add(1)
	slog.InfoContext(ctx, "Report export written", "user_id", msg.UserID, "period", p.Key(), "export_ref", ref)
	return nil
}

// Stats reports how many messages were exported, skipped and failed.
type Stats struct {
	Processed int64
	Skipped   int64
	Failed    int64
}

func (w *ExportWorker) Stats() Stats {
	return Stats{
		Processed: w.processed.Load(),
		Skipped:   w.skipped.Load(),
		Failed:    w.failed.Load(),
	}
}
