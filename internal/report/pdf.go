// Package report renders tabular reports as PDF documents.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/Fernatzoc/skynet-next/internal/application"
)

const (
	marginLeft   = 14.0
	marginRight  = 14.0
	marginTop    = 10.0
	marginBottom = 15.0
	rowHeight    = 7.0
	cellPadding  = 1.5
	placeholder  = "-"
)

// PDFWriter implements application.ReportWriter with fpdf. Core fonts are
// used, so text is transcoded to cp1252.
type PDFWriter struct {
	loc      *time.Location
	now      func() time.Time
	compress bool
}

var _ application.ReportWriter = (*PDFWriter)(nil)

// NewPDFWriter renders timestamps in loc.
func NewPDFWriter(loc *time.Location, now func() time.Time) *PDFWriter {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &PDFWriter{loc: loc, now: now, compress: true}
}

// ContentType reports the MIME type of the rendered document.
func (w *PDFWriter) ContentType() string {
	return "application/pdf"
}

// WriteReport renders report to out.
func (w *PDFWriter) WriteReport(out io.Writer, report application.Report) error {
	if w == nil {
		return fmt.Errorf("PDFWriter is nil")
	}
	if len(report.Columns) == 0 {
		return fmt.Errorf("report %q has no columns", report.Title)
	}
	doc, err := w.render(report)
	if err != nil {
		return err
	}
	if err := doc.Output(out); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (w *PDFWriter) render(report application.Report) (*fpdf.Fpdf, error) {
	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = w.now()
	}
	generated = generated.In(w.loc)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(w.compress)
	pdf.SetCreationDate(generated)
	pdf.SetTitle(report.Title, true)
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-marginBottom)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Página %d de {nb}", pdf.PageNo())), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})

	pdf.AddPage()
	w.drawHeader(pdf, tr, report, generated)

	pageWidth, pageHeight := pdf.GetPageSize()
	colWidth := (pageWidth - marginLeft - marginRight) / float64(len(report.Columns))

	drawHead := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(41, 128, 185)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetX(marginLeft)
		for _, col := range report.Columns {
			pdf.CellFormat(colWidth, rowHeight, fit(pdf, tr(col.Header), colWidth), "", 0, "C", true, 0, "")
		}
		pdf.Ln(rowHeight)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "", 9)
	}
	drawHead()

	for i, row := range report.Rows {
		if pdf.GetY()+rowHeight > pageHeight-marginBottom-5 {
			pdf.AddPage()
			pdf.SetY(marginTop)
			drawHead()
		}
		fill := i%2 == 1
		if fill {
			pdf.SetFillColor(245, 245, 245)
		}
		pdf.SetX(marginLeft)
		for _, col := range report.Columns {
			text := fit(pdf, tr(CellText(row[col.Key])), colWidth)
			pdf.CellFormat(colWidth, rowHeight, text, "", 0, "L", fill, 0, "")
		}
		pdf.Ln(rowHeight)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return pdf, nil
}

func (w *PDFWriter) drawHeader(pdf *fpdf.Fpdf, tr func(string) string, report application.Report, generated time.Time) {
	pdf.SetFont("Helvetica", "B", 20)
	pdf.Text(marginLeft, 15, "SkyNet")

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(marginLeft, 20, tr("Sistema de Gestión de Visitas"))

	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, 23, 210-marginRight, 23)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(marginLeft, 32, tr(report.Title))

	y := 38.0
	if report.Subtitle != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.Text(marginLeft, y, tr(report.Subtitle))
		y += 6
	}

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	stamp := fmt.Sprintf("Generado: %s, %s", application.FormatLongDate(generated), generated.Format("15:04"))
	pdf.Text(marginLeft, y, tr(stamp))
	pdf.SetTextColor(0, 0, 0)

	pdf.SetY(y + 6)
}

// CellText renders a row value; nil becomes a dash.
func CellText(value any) string {
	switch v := value.(type) {
	case nil:
		return placeholder
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// fit truncates text with an ellipsis so it fits in a cell of width.
func fit(pdf *fpdf.Fpdf, text string, width float64) string {
	limit := width - 2*cellPadding
	if pdf.GetStringWidth(text) <= limit {
		return text
	}
	for len(text) > 0 && pdf.GetStringWidth(text+"...") > limit {
		text = text[:len(text)-1]
	}
	return text + "..."
}
