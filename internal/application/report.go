package application

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// ReportColumn maps a header to the row key holding its value.
type ReportColumn struct {
	Header string
	Key    string
}

// ReportRow holds the cell values of one row keyed by column key. Missing or
// nil values are rendered as a placeholder.
type ReportRow map[string]any

// Report is a titled table handed to a ReportWriter.
type Report struct {
	Title       string
	Subtitle    string
	Columns     []ReportColumn
	Rows        []ReportRow
	FileName    string
	GeneratedAt time.Time
}

// ReportWriter renders a report as a downloadable document.
type ReportWriter interface {
	WriteReport(w io.Writer, report Report) error
	ContentType() string
}

// Document is a rendered report ready for download.
type Document struct {
	FileName    string
	ContentType string
	Data        []byte
}

var visitReportColumns = []ReportColumn{
	{Header: "ID", Key: "id"},
	{Header: "Cliente", Key: "cliente"},
	{Header: "Técnico", Key: "tecnico"},
	{Header: "Tipo", Key: "tipo"},
	{Header: "Estado", Key: "estado"},
	{Header: "Fecha", Key: "fecha"},
}

var clientReportColumns = []ReportColumn{
	{Header: "ID", Key: "id"},
	{Header: "Nombre", Key: "nombre"},
	{Header: "Teléfono", Key: "telefono"},
	{Header: "Email", Key: "email"},
	{Header: "Dirección", Key: "direccion"},
	{Header: "Estado", Key: "estado"},
}

var userReportColumns = []ReportColumn{
	{Header: "ID", Key: "id"},
	{Header: "Nombre", Key: "nombre"},
	{Header: "Email", Key: "email"},
	{Header: "Teléfono", Key: "telefono"},
	{Header: "Roles", Key: "roles"},
	{Header: "Estado", Key: "estado"},
}

// BuildVisitReport maps visits to the visit report schema. The subtitle
// describes the active filters, if any, and the row count.
func BuildVisitReport(visits []Visit, filter VisitFilter, now time.Time, loc *time.Location) Report {
	if loc == nil {
		loc = time.UTC
	}
	rows := make([]ReportRow, 0, len(visits))
	technicianName := ""
	for _, v := range visits {
		if technicianName == "" && filter.Technician != "" && v.TechnicianID == filter.Technician {
			technicianName = v.TechnicianName
		}
		date := v.ScheduledAt
		if scheduled, err := v.ScheduledTime(loc); err == nil {
			date = FormatShortDate(scheduled)
		}
		rows = append(rows, ReportRow{
			"id":      v.ID,
			"cliente": v.ClientName,
			"tecnico": v.TechnicianName,
			"tipo":    v.TypeLabel(),
			"estado":  v.StatusLabel(),
			"fecha":   date,
		})
	}

	subtitle := fmt.Sprintf("Total de visitas: %d", len(visits))
	if desc := filter.Describe(technicianName); desc != "" {
		subtitle = desc + ". " + subtitle
	}
	return Report{
		Title:       "Reporte de Visitas",
		Subtitle:    subtitle,
		Columns:     visitReportColumns,
		Rows:        rows,
		FileName:    reportFileName("visitas", now.In(loc)),
		GeneratedAt: now,
	}
}

// BuildClientReport maps clients to the client report schema.
func BuildClientReport(clients []Client, now time.Time) Report {
	rows := make([]ReportRow, 0, len(clients))
	for _, c := range clients {
		status := "Inactivo"
		if c.Active {
			status = "Activo"
		}
		rows = append(rows, ReportRow{
			"id":        c.ID,
			"nombre":    c.DisplayName(),
			"telefono":  c.Phone,
			"email":     c.Email,
			"direccion": c.Address,
			"estado":    status,
		})
	}
	return Report{
		Title:       "Reporte de Clientes",
		Subtitle:    fmt.Sprintf("Total de clientes: %d", len(clients)),
		Columns:     clientReportColumns,
		Rows:        rows,
		FileName:    reportFileName("clientes", now),
		GeneratedAt: now,
	}
}

// BuildUserReport maps users to the user report schema.
func BuildUserReport(users []User, now time.Time) Report {
	rows := make([]ReportRow, 0, len(users))
	for _, u := range users {
		name := u.FullName()
		if name == "" {
			name = "Sin nombre"
		}
		phone := strings.TrimSpace(u.Phone)
		if phone == "" {
			phone = "N/A"
		}
		row := ReportRow{
			"id":       u.ID,
			"nombre":   name,
			"email":    u.Email,
			"telefono": phone,
			"roles":    strings.Join(u.Roles, ", "),
		}
		if u.Active != nil {
			if *u.Active {
				row["estado"] = "Activo"
			} else {
				row["estado"] = "Inactivo"
			}
		}
		rows = append(rows, row)
	}
	return Report{
		Title:       "Reporte de Usuarios",
		Subtitle:    fmt.Sprintf("Total de usuarios: %d", len(users)),
		Columns:     userReportColumns,
		Rows:        rows,
		FileName:    reportFileName("usuarios", now),
		GeneratedAt: now,
	}
}

func reportFileName(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.pdf", prefix, now.Format("2006-01-02"))
}

// VisitSource lists the visits visible to a session after filtering.
type VisitSource interface {
	SearchVisits(ctx context.Context, session Session, filter VisitFilter) ([]Visit, error)
}

// ClientSource lists clients.
type ClientSource interface {
	ListClients(ctx context.Context, session Session) ([]Client, error)
}

// UserSource lists users.
type UserSource interface {
	ListUsers(ctx context.Context, session Session) ([]User, error)
}

// ReportService exports the in-memory collections as documents.
type ReportService struct {
	visits   VisitSource
	clients  ClientSource
	users    UserSource
	writer   ReportWriter
	now      func() time.Time
	location *time.Location
	logger   *slog.Logger
}

// NewReportService wires dependencies for report exports.
func NewReportService(visits VisitSource, clients ClientSource, users UserSource, writer ReportWriter, now func() time.Time, location *time.Location, logger *slog.Logger) *ReportService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &ReportService{
		visits:   visits,
		clients:  clients,
		users:    users,
		writer:   writer,
		now:      now,
		location: location,
		logger:   defaultLogger(logger),
	}
}

// ExportVisits renders the filtered visit list.
func (s *ReportService) ExportVisits(ctx context.Context, session Session, filter VisitFilter) (Document, error) {
	if s == nil {
		return Document{}, fmt.Errorf("ReportService is nil")
	}
	if s.visits == nil {
		return Document{}, fmt.Errorf("visit source not configured")
	}
	visits, err := s.visits.SearchVisits(ctx, session, filter)
	if err != nil {
		return Document{}, err
	}
	return s.render(ctx, session, BuildVisitReport(visits, filter, s.now(), s.location))
}

// ExportClients renders the client list.
func (s *ReportService) ExportClients(ctx context.Context, session Session) (Document, error) {
	if s == nil {
		return Document{}, fmt.Errorf("ReportService is nil")
	}
	if s.clients == nil {
		return Document{}, fmt.Errorf("client source not configured")
	}
	clients, err := s.clients.ListClients(ctx, session)
	if err != nil {
		return Document{}, err
	}
	return s.render(ctx, session, BuildClientReport(clients, s.now().In(s.location)))
}

// ExportUsers renders the user list.
func (s *ReportService) ExportUsers(ctx context.Context, session Session) (Document, error) {
	if s == nil {
		return Document{}, fmt.Errorf("ReportService is nil")
	}
	if s.users == nil {
		return Document{}, fmt.Errorf("user source not configured")
	}
	users, err := s.users.ListUsers(ctx, session)
	if err != nil {
		return Document{}, err
	}
	return s.render(ctx, session, BuildUserReport(users, s.now().In(s.location)))
}

func (s *ReportService) render(ctx context.Context, session Session, report Report) (Document, error) {
	if s.writer == nil {
		return Document{}, fmt.Errorf("report writer not configured")
	}
	var buf bytes.Buffer
	if err := s.writer.WriteReport(&buf, report); err != nil {
		return Document{}, fmt.Errorf("render %s: %w", report.FileName, err)
	}
	serviceLogger(ctx, s.logger, "ReportService", "render", "user_id", session.UserID).InfoContext(ctx, "report exported",
		"file_name", report.FileName,
		"rows", len(report.Rows),
		"bytes", buf.Len(),
	)
	return Document{FileName: report.FileName, ContentType: s.writer.ContentType(), Data: buf.Bytes()}, nil
}
