package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func completedDetail() VisitDetail {
	visit := pendingVisit()
	visit.Status = VisitStatusCompleted
	visit.Description = "Cambio de router"
	visit.Registration = &Registration{ID: 100, StartedAt: "2025-03-01T10:00:00", EndedAt: "2025-03-01T11:30:00", Observations: "Sin novedades"}
	return VisitDetail{
		Visit:  visit,
		Client: Client{ID: 3, FirstName: "Juan", FirstSurname: "Pérez", Email: " juan@example.com ", Address: "Zona 10"},
	}
}

func TestComposeVisitReportEmail(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	email := ComposeVisitReportEmail(completedDetail(), now, time.UTC)

	if email.VisitaID != 1 || email.ClienteEmail != "juan@example.com" || email.ClienteNombre != "Juan Pérez" {
		t.Fatalf("unexpected recipient fields %+v", email)
	}
	if email.VisitaHora != "10:00" || email.VisitaEstado != "Completada" || email.VisitaDireccion != "Zona 10" {
		t.Fatalf("unexpected visit fields %+v", email)
	}
	if email.RegistroFecha != "2025-03-01T11:30:00" || email.RegistroObservaciones != "Sin novedades" {
		t.Fatalf("expected registration values, got %+v", email)
	}
	if email.RegistroResultado != "Completada exitosamente" || email.TecnicoTelefono != "(Contactar a través de SkyNet)" {
		t.Fatalf("unexpected fixed fields %+v", email)
	}
}

func TestComposeVisitReportEmail_FallsBackToNow(t *testing.T) {
	t.Parallel()

	detail := completedDetail()
	detail.Visit.Registration = nil
	detail.Client = Client{}

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CST", -6*60*60))
	email := ComposeVisitReportEmail(detail, now, time.UTC)
	if email.RegistroFecha != "2025-03-01T18:00:00Z" {
		t.Fatalf("expected now in UTC, got %q", email.RegistroFecha)
	}
	if email.ClienteNombre != "Juan Pérez" {
		t.Fatalf("expected visit client name fallback, got %q", email.ClienteNombre)
	}
}

func TestNotificationService_NotifyVisitCompleted(t *testing.T) {
	t.Parallel()

	detail := completedDetail()
	gateway := newVisitGatewayStub(detail.Visit)
	gateway.clients[3] = detail.Client
	mailer := &mailerStub{id: "email-1"}
	svc := NewNotificationService(gateway, nil, mailer, nil, nil, nil)

	result, err := svc.NotifyVisitCompleted(context.Background(), testSession(RoleTechnician, "tec-1"), 1)
	if err != nil {
		t.Fatalf("NotifyVisitCompleted returned error: %v", err)
	}
	if !result.Attempted || !result.Success || result.EmailID != "email-1" {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].ClienteEmail != "juan@example.com" {
		t.Fatalf("unexpected sent emails %+v", mailer.sent)
	}
}

func TestNotificationService_MissingClientEmail(t *testing.T) {
	t.Parallel()

	detail := completedDetail()
	detail.Client.Email = ""
	gateway := newVisitGatewayStub(detail.Visit)
	gateway.clients[3] = detail.Client
	mailer := &mailerStub{}
	svc := NewNotificationService(gateway, nil, mailer, nil, nil, nil)

	result, err := svc.NotifyVisitCompleted(context.Background(), testSession(RoleAdministrator, "admin"), 1)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if result.Success || result.Error != "Email del cliente es requerido" {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("expected nothing to be sent")
	}
}

func TestNotificationService_MailerFailure(t *testing.T) {
	t.Parallel()

	mailErr := errors.New("provider rejected")
	svc := NewNotificationService(nil, nil, &mailerStub{err: mailErr}, nil, nil, nil)

	email := ComposeVisitReportEmail(completedDetail(), time.Now(), time.UTC)
	result, err := svc.SendVisitReport(context.Background(), testSession(RoleAdministrator, "admin"), email)
	if !errors.Is(err, mailErr) {
		t.Fatalf("expected mailer error, got %v", err)
	}
	if !result.Attempted || result.Success || result.Error != "provider rejected" {
		t.Fatalf("unexpected result %+v", result)
	}
}
