// Package mail delivers visit completion reports to clients, either directly
// through the Resend HTTP API or through a RabbitMQ queue drained by a
// background consumer.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/Fernatzoc/skynet-next/internal/application"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var visitReportTemplate = template.Must(template.ParseFS(templateFS, "templates/visit_report.html.tmpl"))

// Message is a rendered email ready for a provider.
type Message struct {
	To      string
	Subject string
	HTML    string
}

type visitReportView struct {
	VisitaID              int64
	ClienteNombre         string
	VisitaFecha           string
	VisitaHora            string
	VisitaEstado          string
	VisitaDireccion       string
	VisitaDescripcion     string
	TecnicoNombre         string
	TecnicoTelefono       string
	RegistroFecha         string
	RegistroResultado     string
	RegistroObservaciones string
	Year                  int
}

// Subject returns the subject line for the report of visit id.
func Subject(visitID int64) string {
	return fmt.Sprintf("Reporte de Visita #%d - Visita Completada", visitID)
}

// RenderVisitReport renders the HTML report. Dates are shown in long Spanish
// form in loc; values that do not parse are shown as received.
func RenderVisitReport(email application.VisitReportEmail, now time.Time, loc *time.Location) (Message, error) {
	recipient := strings.TrimSpace(email.ClienteEmail)
	if recipient == "" {
		return Message{}, ErrMissingRecipient
	}
	if loc == nil {
		loc = time.UTC
	}

	view := visitReportView{
		VisitaID:              email.VisitaID,
		ClienteNombre:         email.ClienteNombre,
		VisitaFecha:           longDate(email.VisitaFecha, loc),
		VisitaHora:            email.VisitaHora,
		VisitaEstado:          email.VisitaEstado,
		VisitaDireccion:       email.VisitaDireccion,
		VisitaDescripcion:     strings.TrimSpace(email.VisitaDescripcion),
		TecnicoNombre:         email.TecnicoNombre,
		TecnicoTelefono:       email.TecnicoTelefono,
		RegistroFecha:         longDate(email.RegistroFecha, loc),
		RegistroResultado:     strings.TrimSpace(email.RegistroResultado),
		RegistroObservaciones: strings.TrimSpace(email.RegistroObservaciones),
		Year:                  now.In(loc).Year(),
	}

	var buf bytes.Buffer
	if err := visitReportTemplate.Execute(&buf, view); err != nil {
		return Message{}, fmt.Errorf("render visit report: %w", err)
	}
	return Message{To: recipient, Subject: Subject(email.VisitaID), HTML: buf.String()}, nil
}

func longDate(value string, loc *time.Location) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	t, err := application.ParseTimestamp(value, loc)
	if err != nil {
		return value
	}
	return application.FormatLongDate(t.In(loc))
}
