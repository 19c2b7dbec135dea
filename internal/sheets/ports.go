// Package sheets defines where queued monthly reports are exported to.
package sheets

import (
	"context"

	"github.com/prathap-k00/expense-tracker/internal/reports"
)

// ReportWriter publishes a monthly report to an external spreadsheet.
// Writing the same user and month again replaces the earlier export.
type ReportWriter interface {
	WriteMonthlyReport(ctx context.Context, r reports.MonthlyReport) (ref string, err error)
}
