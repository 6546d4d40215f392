package report

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/Fernatzoc/skynet-next/internal/application"
)

var generatedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleReport(rows int) application.Report {
	report := application.Report{
		Title:    "Reporte de Visitas",
		Subtitle: "Total de visitas: 1",
		Columns: []application.ReportColumn{
			{Header: "ID", Key: "id"},
			{Header: "Cliente", Key: "cliente"},
			{Header: "Estado", Key: "estado"},
		},
		FileName:    "visitas_2025-03-01.pdf",
		GeneratedAt: generatedAt,
	}
	for i := 0; i < rows; i++ {
		report.Rows = append(report.Rows, application.ReportRow{"id": int64(i + 1), "cliente": fmt.Sprintf("Cliente %d", i+1)})
	}
	return report
}

func TestPDFWriter_WriteReport(t *testing.T) {
	t.Parallel()

	writer := NewPDFWriter(time.UTC, nil)
	writer.compress = false

	var buf bytes.Buffer
	if err := writer.WriteReport(&buf, sampleReport(1)); err != nil {
		t.Fatalf("WriteReport returned error: %v", err)
	}
	out := buf.Bytes()
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("expected PDF header, got %q", out[:min(len(out), 8)])
	}
	for _, want := range []string{"(SkyNet)", "(Reporte de Visitas)", "(Cliente 1)", "(Total de visitas: 1)"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Fatalf("expected document to contain %s", want)
		}
	}
	if writer.ContentType() != "application/pdf" {
		t.Fatalf("unexpected content type %q", writer.ContentType())
	}
}

func TestPDFWriter_PaginatesLongReports(t *testing.T) {
	t.Parallel()

	writer := NewPDFWriter(time.UTC, nil)
	doc, err := writer.render(sampleReport(120))
	if err != nil {
		t.Fatalf("render returned error: %v", err)
	}
	if doc.PageCount() < 3 {
		t.Fatalf("expected at least three pages, got %d", doc.PageCount())
	}
}

func TestPDFWriter_RejectsReportWithoutColumns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := NewPDFWriter(nil, nil).WriteReport(&buf, application.Report{Title: "Vacío"}); err == nil {
		t.Fatalf("expected error for report without columns")
	}
}

func TestCellText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value any
		want  string
	}{
		{nil, "-"},
		{"", ""},
		{"Activo", "Activo"},
		{int64(42), "42"},
		{application.VisitStatusCompleted, "3"},
	}
	for _, tt := range tests {
		if got := CellText(tt.value); got != tt.want {
			t.Fatalf("CellText(%v): expected %q, got %q", tt.value, tt.want, got)
		}
	}
}
