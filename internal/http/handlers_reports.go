package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prathap-k00/expense-tracker/internal/core"
	applog "github.com/prathap-k00/expense-tracker/internal/log"
	"github.com/prathap-k00/expense-tracker/internal/middleware/session"
	"github.com/prathap-k00/expense-tracker/internal/reports"
	"github.com/prathap-k00/expense-tracker/internal/services"
)

func (s *Server) reportPeriod(w http.ResponseWriter, r *http.Request) (core.Period, bool) {
	p, err := ParseMonthParams(r.URL.Query(), s.opts.Now()).Period()
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid month.")
		return core.Period{}, false
	}
	return p, true
}

func (s *Server) handlePDFReport(w http.ResponseWriter, r *http.Request) {
	p, ok := s.reportPeriod(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	b, err := s.deps.Reports.PDF(ctx, session.UserID(ctx), p)
	if err != nil {
		s.fail(w, r, applog.OpExport, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "PDF report generated", applog.FieldPeriod, p.Key())
	NewResponse().Attachment(reports.PDFFilename(p), reports.PDFContentType).Body(b).Write(w)
}

func (s *Server) handleExcelReport(w http.ResponseWriter, r *http.Request) {
	p, ok := s.reportPeriod(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	b, err := s.deps.Reports.Excel(ctx, session.UserID(ctx), p)
	if err != nil {
		s.fail(w, r, applog.OpExport, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Excel report generated", applog.FieldPeriod, p.Key())
	NewResponse().Attachment(reports.ExcelFilename(p), reports.ExcelContentType).Body(b).Write(w)
}

// handleSheetsExport queues the month for the export worker and returns to the dashboard.
func (s *Server) handleSheetsExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := parseForm(w, r); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	p, err := ParseMonthParams(r.PostForm, s.opts.Now()).Period()
	if err != nil {
		setFlash(w, FlashDanger, "Invalid month.")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	if err := s.deps.Reports.RequestSheetsExport(ctx, session.UserID(ctx), p); err != nil {
		if errors.Is(err, services.ErrExportUnavailable) {
			applog.FromContext(ctx).WarnContext(ctx, "Spreadsheet export not queued",
				applog.FieldPeriod, p.Key(),
				applog.FieldError, err)
			setFlash(w, FlashWarning, "Spreadsheet export is not available right now. Please try again later.")
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		s.fail(w, r, applog.OpExport, err)
		return
	}

	setFlash(w, FlashInfo, fmt.Sprintf("Export of %s queued. It will appear in the spreadsheet shortly.", p.LongLabel()))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
