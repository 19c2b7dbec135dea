package reports

import (
	"bytes"
	"fmt"
	"io"

	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/prathap-k00/expense-tracker/internal/insights"
)

const (
	fontRegular = "goregular"
	fontBold    = "gobold"

	pageMargin   = 50.0
	pageBottom   = 842.0 - pageMargin
	rowHeight    = 20.0
	maxDescRunes = 50
)

// Column widths of the details table; they add up to the A4 width minus margins.
var detailColumns = []struct {
	title string
	width float64
}{
	{"Date", 85},
	{"Category", 95},
	{"Amount", 100},
	{"Description", 215},
}

// PDFContentType is the MIME type of RenderPDF output.
const PDFContentType = "application/pdf"

// RenderPDF writes the report as a single A4 document, adding pages as the details table grows.
func RenderPDF(w io.Writer, r MonthlyReport, opts Options) error {
	doc := &pdfDoc{fmt: opts.formatter()}
	doc.pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	if err := doc.pdf.AddTTFFontData(fontRegular, goregular.TTF); err != nil {
		return fmt.Errorf("load regular font: %w", err)
	}
	if err := doc.pdf.AddTTFFontData(fontBold, gobold.TTF); err != nil {
		return fmt.Errorf("load bold font: %w", err)
	}
	doc.pdf.AddPage()

	doc.title(r.Title())
	doc.summary(r)
	doc.details(r.Rows)
	if doc.err != nil {
		return fmt.Errorf("render pdf: %w", doc.err)
	}

	if _, err := doc.pdf.WriteTo(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// PDFBytes renders the report into memory.
func PDFBytes(r MonthlyReport, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderPDF(&buf, r, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pdfDoc keeps the first drawing error so the layout code reads top to bottom.
type pdfDoc struct {
	pdf gopdf.GoPdf
	fmt insights.Formatter
	y   float64
	err error
}

func (d *pdfDoc) font(family string, size float64) {
	if d.err != nil {
		return
	}
	d.err = d.pdf.SetFont(family, "", size)
}

func (d *pdfDoc) text(x float64, s string) {
	if d.err != nil {
		return
	}
	d.pdf.SetXY(x, d.y)
	d.err = d.pdf.Cell(nil, s)
}

func (d *pdfDoc) cell(x, w float64, s string, fill bool) {
	if d.err != nil {
		return
	}
	if fill {
		d.pdf.RectFromUpperLeftWithStyle(x, d.y, w, rowHeight, "F")
	}
	d.pdf.SetXY(x, d.y)
	d.err = d.pdf.CellWithOption(&gopdf.Rect{W: w, H: rowHeight}, " "+s, gopdf.CellOption{
		Align:  gopdf.Left | gopdf.Middle,
		Border: gopdf.AllBorders,
	})
}

func (d *pdfDoc) title(s string) {
	d.y = pageMargin
	d.font(fontBold, 16)
	d.text(pageMargin, s)
	d.y += 36
}

func (d *pdfDoc) summary(r MonthlyReport) {
	lines := []struct {
		label string
		value string
	}{
		{"Total Income", d.fmt.Money(r.Income)},
		{"Total Expense", d.fmt.Money(r.Expense)},
		{"Savings", d.fmt.Money(r.Savings())},
	}
	d.pdf.SetFillColor(211, 211, 211)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.SetLineWidth(0.5)
	for _, l := range lines {
		d.font(fontBold, 10)
		d.cell(pageMargin, 140, l.label, true)
		d.font(fontRegular, 10)
		d.cell(pageMargin+140, 140, l.value, true)
		d.y += rowHeight
	}
	d.y += 24
}

func (d *pdfDoc) details(rows []Row) {
	d.font(fontBold, 13)
	d.text(pageMargin, "Expense Details")
	d.y += 24

	if len(rows) == 0 {
		d.font(fontRegular, 10)
		d.text(pageMargin, "No expenses for this month.")
		return
	}

	d.detailHeader()
	for _, row := range rows {
		if d.y+rowHeight > pageBottom {
			d.pdf.AddPage()
			d.y = pageMargin
			d.detailHeader()
		}
		d.font(fontRegular, 9)
		values := []string{
			row.Date.String(),
			row.Category,
			d.fmt.Money(row.Amount),
			truncateRunes(row.Description, maxDescRunes),
		}
		x := pageMargin
		for i, col := range detailColumns {
			d.cell(x, col.width, values[i], false)
			x += col.width
		}
		d.y += rowHeight
	}
}

func (d *pdfDoc) detailHeader() {
	d.pdf.SetFillColor(128, 128, 128)
	d.pdf.SetTextColor(245, 245, 245)
	d.font(fontBold, 9)
	x := pageMargin
	for _, col := range detailColumns {
		d.cell(x, col.width, col.title, true)
		x += col.width
	}
	d.y += rowHeight
	d.pdf.SetTextColor(0, 0, 0)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
