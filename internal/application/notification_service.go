package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	completionResult        = "Completada exitosamente"
	technicianContactNotice = "(Contactar a través de SkyNet)"
)

// VisitReportEmail is the payload of a visit completion email.
type VisitReportEmail struct {
	VisitaID              int64  `json:"visitaId"`
	ClienteEmail          string `json:"clienteEmail"`
	ClienteNombre         string `json:"clienteNombre"`
	VisitaFecha           string `json:"visitaFecha"`
	VisitaHora            string `json:"visitaHora"`
	VisitaEstado          string `json:"visitaEstado"`
	VisitaDireccion       string `json:"visitaDireccion"`
	VisitaDescripcion     string `json:"visitaDescripcion"`
	RegistroFecha         string `json:"registroFecha"`
	RegistroObservaciones string `json:"registroObservaciones"`
	RegistroResultado     string `json:"registroResultado"`
	TecnicoNombre         string `json:"tecnicoNombre"`
	TecnicoTelefono       string `json:"tecnicoTelefono"`
}

// Mailer delivers a rendered visit report and returns the provider message id.
type Mailer interface {
	SendVisitReport(ctx context.Context, email VisitReportEmail) (string, error)
}

// ComposeVisitReportEmail builds the email payload from a visit detail. The
// completion date falls back to now when the visit has no real end time.
func ComposeVisitReportEmail(detail VisitDetail, now time.Time, loc *time.Location) VisitReportEmail {
	visit := detail.Visit
	client := detail.Client

	name := client.DisplayName()
	if name == "" {
		name = visit.ClientName
	}

	hour := ""
	if scheduled, err := visit.ScheduledTime(loc); err == nil {
		hour = scheduled.Format("15:04")
	}

	email := VisitReportEmail{
		VisitaID:          visit.ID,
		ClienteEmail:      strings.TrimSpace(client.Email),
		ClienteNombre:     name,
		VisitaFecha:       visit.ScheduledAt,
		VisitaHora:        hour,
		VisitaEstado:      visit.StatusLabel(),
		VisitaDireccion:   client.Address,
		VisitaDescripcion: visit.Description,
		RegistroFecha:     now.UTC().Format(time.RFC3339),
		RegistroResultado: completionResult,
		TecnicoNombre:     visit.TechnicianName,
		TecnicoTelefono:   technicianContactNotice,
	}
	if reg := visit.Registration; reg != nil {
		if strings.TrimSpace(reg.EndedAt) != "" {
			email.RegistroFecha = reg.EndedAt
		}
		email.RegistroObservaciones = reg.Observations
	}
	return email
}

// ValidateVisitReportEmail checks the fields the mail template cannot do without.
func ValidateVisitReportEmail(email VisitReportEmail) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(email.ClienteEmail) == "" {
		vErr.add("clienteEmail", "Email del cliente es requerido")
	} else if !emailPattern.MatchString(strings.TrimSpace(email.ClienteEmail)) {
		vErr.add("clienteEmail", "El email del cliente no es válido")
	}
	return vErr
}

// NotificationService composes and dispatches visit completion emails.
type NotificationService struct {
	visits   VisitGateway
	cache    VisitDetailCache
	mailer   Mailer
	now      func() time.Time
	location *time.Location
	logger   *slog.Logger
}

// NewNotificationService wires dependencies for notification dispatch.
func NewNotificationService(visits VisitGateway, cache VisitDetailCache, mailer Mailer, now func() time.Time, location *time.Location, logger *slog.Logger) *NotificationService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &NotificationService{
		visits:   visits,
		cache:    cache,
		mailer:   mailer,
		now:      now,
		location: location,
		logger:   defaultLogger(logger),
	}
}

func (s *NotificationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "NotificationService", operation, attrs...)
}

// NotifyVisitCompleted emails the visit's client a completion report.
func (s *NotificationService) NotifyVisitCompleted(ctx context.Context, session Session, visitID int64) (NotificationResult, error) {
	if s == nil {
		return NotificationResult{}, fmt.Errorf("NotificationService is nil")
	}
	if err := requireSession(session); err != nil {
		return NotificationResult{}, err
	}
	detail, err := loadVisitDetail(ctx, s.visits, s.cache, session.RemoteToken, visitID)
	if err != nil {
		return NotificationResult{Error: err.Error()}, err
	}
	return s.dispatch(ctx, ComposeVisitReportEmail(detail, s.now(), s.location))
}

// SendVisitReport validates and dispatches a caller composed payload.
func (s *NotificationService) SendVisitReport(ctx context.Context, session Session, email VisitReportEmail) (NotificationResult, error) {
	if s == nil {
		return NotificationResult{}, fmt.Errorf("NotificationService is nil")
	}
	if err := requireSession(session); err != nil {
		return NotificationResult{}, err
	}
	if vErr := ValidateVisitReportEmail(email); vErr.HasErrors() {
		return NotificationResult{}, vErr
	}
	return s.dispatch(ctx, email)
}

func (s *NotificationService) dispatch(ctx context.Context, email VisitReportEmail) (result NotificationResult, err error) {
	logger := s.loggerWith(ctx, "dispatch", "visit_id", email.VisitaID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "visit report email not sent", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "visit report email sent", "email_id", result.EmailID)
	}()

	result.Attempted = true
	if vErr := ValidateVisitReportEmail(email); vErr.HasErrors() {
		err = vErr
		result.Error = vErr.FieldErrors["clienteEmail"]
		return result, err
	}
	if s.mailer == nil {
		err = fmt.Errorf("mailer not configured")
		result.Error = err.Error()
		return result, err
	}

	id, sendErr := s.mailer.SendVisitReport(ctx, email)
	if sendErr != nil {
		err = sendErr
		result.Error = sendErr.Error()
		return result, err
	}
	result.Success = true
	result.EmailID = id
	return result, nil
}
