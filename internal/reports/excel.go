package reports

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExcelContentType is the MIME type of RenderExcel output.
const ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SummarySheet names the totals sheet added after the expense rows.
const SummarySheet = "Summary"

var excelHeaders = []string{"Date", "Category", "Amount", "Description"}

// ExpenseSheetName is the name of the details sheet, e.g. "Expenses 3-2024".
func ExpenseSheetName(r MonthlyReport) string {
	return fmt.Sprintf("Expenses %d-%d", r.Period.Month, r.Period.Year)
}

// RenderExcel writes a workbook with one row per expense and a Summary sheet.
// Amounts are numeric cells so the workbook can be summed and charted.
func RenderExcel(w io.Writer, r MonthlyReport) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := ExpenseSheetName(r)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDDDDD"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("amount style: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &excelHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "D1", headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, row := range r.Rows {
		line := i + 2
		values := []any{
			row.Date.String(),
			row.Category,
			row.Amount.Decimal().InexactFloat64(),
			row.Description,
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", line), &values); err != nil {
			return fmt.Errorf("write row %d: %w", line, err)
		}
	}
	if len(r.Rows) > 0 {
		last := fmt.Sprintf("C%d", len(r.Rows)+1)
		if err := f.SetCellStyle(sheet, "C2", last, amountStyle); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
	}
	if err := f.SetColWidth(sheet, "A", "C", 14); err != nil {
		return fmt.Errorf("column width: %w", err)
	}
	if err := f.SetColWidth(sheet, "D", "D", 40); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	if err := writeSummarySheet(f, r, headerStyle, amountStyle); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, r MonthlyReport, headerStyle, amountStyle int) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	rows := [][]any{
		{r.Title(), ""},
		{"Total Income", r.Income.Decimal().InexactFloat64()},
		{"Total Expense", r.Expense.Decimal().InexactFloat64()},
		{"Savings", r.Savings().Decimal().InexactFloat64()},
	}
	for i, values := range rows {
		if err := f.SetSheetRow(SummarySheet, fmt.Sprintf("A%d", i+1), &values); err != nil {
			return fmt.Errorf("summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}
	if err := f.SetCellStyle(SummarySheet, "B2", "B4", amountStyle); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}
	if err := f.SetColWidth(SummarySheet, "A", "A", 32); err != nil {
		return fmt.Errorf("column width: %w", err)
	}
	return nil
}

// ExcelBytes renders the workbook into memory.
func ExcelBytes(r MonthlyReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderExcel(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
