package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prathap-k00/expense-tracker/internal/core"
	"github.com/prathap-k00/expense-tracker/internal/reports"
	"github.com/prathap-k00/expense-tracker/internal/sheets"
	"github.com/prathap-k00/expense-tracker/internal/storage"
)

// ErrExportUnavailable is returned when no message broker is configured or reachable.
var ErrExportUnavailable = errors.New("spreadsheet export unavailable")

// ExportPublisher queues a spreadsheet export for later processing.
type ExportPublisher interface {
	PublishReportExport(ctx context.Context, userID int64, p core.Period) error
}

// ReportService builds monthly reports for download and for spreadsheet export.
type ReportService struct {
	storage   *storage.SQLiteRepository
	publisher ExportPublisher
	writer    sheets.ReportWriter
	opts      reports.Options
}

// NewReportService wires the report sources. publisher and writer may be nil when the
// process does not queue or perform exports.
func NewReportService(storage *storage.SQLiteRepository, publisher ExportPublisher, writer sheets.ReportWriter, opts reports.Options) *ReportService {
	return &ReportService{
		storage:   storage,
		publisher: publisher,
		writer:    writer,
		opts:      opts,
	}
}

// MonthlyReport collects a user's expenses and income total for p.
func (s *ReportService) MonthlyReport(ctx context.Context, userID int64, p core.Period) (reports.MonthlyReport, error) {
	if err := p.Validate(); err != nil {
		return reports.MonthlyReport{}, err
	}
	u, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		return reports.MonthlyReport{}, fmt.Errorf("load user %d: %w", userID, err)
	}
	expenses, err := s.storage.ExpensesInPeriod(ctx, userID, p)
	if err != nil {
		return reports.MonthlyReport{}, fmt.Errorf("load expenses: %w", err)
	}
	income, err := s.storage.SumAmount(ctx, core.KindIncome, userID, p)
	if err != nil {
		return reports.MonthlyReport{}, fmt.Errorf("load income: %w", err)
	}
	return reports.NewMonthlyReport(userID, p, u.Name, income, expenses), nil
}

// PDF renders the month as a PDF document.
func (s *ReportService) PDF(ctx context.Context, userID int64, p core.Period) ([]byte, error) {
	r, err := s.MonthlyReport(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	return reports.PDFBytes(r, s.opts)
}

// Excel renders the month as an xlsx workbook.
func (s *ReportService) Excel(ctx context.Context, userID int64, p core.Period) ([]byte, error) {
	r, err := s.MonthlyReport(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	return reports.ExcelBytes(r)
}

// RequestSheetsExport queues the month for the export worker.
func (s *ReportService) RequestSheetsExport(ctx context.Context, userID int64, p core.Period) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, export not queued", "user_id", userID, "period", p.Key())
		return ErrExportUnavailable
	}
	if err := s.publisher.PublishReportExport(ctx, userID, p); err != nil {
		return fmt.Errorf("%w: %w", ErrExportUnavailable, err)
	}
	return nil
}

// ProcessExport writes the month through the configured ReportWriter and returns its reference.
func (s *ReportService) ProcessExport(ctx context.Context, userID int64, p core.Period) (string, error) {
	if s.writer == nil {
		return "", errors.New("no report writer configured")
	}
	r, err := s.MonthlyReport(ctx, userID, p)
	if err != nil {
		return "", err
	}
	ref, err := s.writer.WriteMonthlyReport(ctx, r)
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	slog.InfoContext(ctx, "Report exported", "user_id", userID, "period", p.Key(), "export_ref", ref)
	return ref, nil
}
