package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Fernatzoc/skynet-next/internal/application"
)

var discardLogger = slog.New(slog.DiscardHandler)

func testSession(role application.Role, userID string) application.Session {
	return application.Session{
		ID:        "session-" + userID,
		UserID:    userID,
		Email:     userID + "@skynet.test",
		Roles:     []string{string(role)},
		Role:      role,
		ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

type sessionTable map[string]application.Session

func (s sessionTable) ValidateSession(_ context.Context, token string) (application.Session, error) {
	session, ok := s[token]
	if !ok {
		return application.Session{}, application.ErrUnauthorized
	}
	return session, nil
}

func newTestSessions() sessionTable {
	return sessionTable{
		"admin-token": testSession(application.RoleAdministrator, "admin"),
		"tec-token":   testSession(application.RoleTechnician, "tec-1"),
	}
}

type authStub struct {
	session   application.Session
	err       error
	loggedOut []string
}

func (s *authStub) Login(_ context.Context, params application.LoginParams) (application.Session, error) {
	if s.err != nil {
		return application.Session{}, s.err
	}
	session := s.session
	session.Email = params.Email
	return session, nil
}

func (s *authStub) Refresh(context.Context, string) (application.Session, error) {
	return s.session, s.err
}

func (s *authStub) Logout(_ context.Context, token string) error {
	s.loggedOut = append(s.loggedOut, token)
	return s.err
}

type visitStub struct {
	visits     []application.Visit
	lastFilter application.VisitFilter
	changeErr  error
	deleted    []int64
}

func (s *visitStub) SearchVisits(_ context.Context, _ application.Session, filter application.VisitFilter) ([]application.Visit, error) {
	s.lastFilter = filter
	return s.visits, nil
}

func (s *visitStub) GetVisit(_ context.Context, _ application.Session, id int64) (application.VisitDetail, error) {
	for _, v := range s.visits {
		if v.ID == id {
			return application.VisitDetail{Visit: v}, nil
		}
	}
	return application.VisitDetail{}, application.ErrNotFound
}

func (s *visitStub) View(session application.Session, visit application.Visit) application.VisitView {
	return application.NewVisitView(visit, session, time.UTC)
}

func (s *visitStub) CreateVisit(_ context.Context, _ application.Session, input application.VisitInput) (application.Visit, error) {
	return application.Visit{ID: 99, ClientID: input.ClientID, Status: application.VisitStatusPending}, nil
}

func (s *visitStub) UpdateVisit(context.Context, application.Session, int64, application.VisitInput) error {
	return nil
}

func (s *visitStub) StartVisit(_ context.Context, _ application.Session, id int64) (application.Visit, error) {
	return application.Visit{ID: id, Status: application.VisitStatusInProgress}, nil
}

func (s *visitStub) CancelVisit(_ context.Context, _ application.Session, id int64) (application.Visit, error) {
	return application.Visit{ID: id, Status: application.VisitStatusCancelled}, nil
}

func (s *visitStub) CompleteVisit(_ context.Context, _ application.Session, id int64, _ application.CompletionInput) (application.CompletionResult, error) {
	return application.CompletionResult{
		Visit:          application.Visit{ID: id, Status: application.VisitStatusCompleted},
		RegistrationID: 7,
		Notification:   application.NotificationResult{Attempted: true, Success: true, EmailID: "email-1"},
	}, nil
}

func (s *visitStub) ResumeCompletion(_ context.Context, _ application.Session, id int64) (application.CompletionResult, error) {
	return application.CompletionResult{Visit: application.Visit{ID: id, Status: application.VisitStatusCompleted}}, nil
}

func (s *visitStub) ListPendingCompletions(context.Context, application.Session) ([]application.CompletionMarker, error) {
	return nil, nil
}

func (s *visitStub) ChangeStatus(_ context.Context, _ application.Session, id int64, to application.VisitStatus, reason string) (application.StatusChange, error) {
	if s.changeErr != nil {
		return application.StatusChange{}, s.changeErr
	}
	return application.StatusChange{VisitID: id, From: application.VisitStatusPending, To: to, Reason: reason}, nil
}

func (s *visitStub) DeleteVisit(_ context.Context, _ application.Session, id int64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type userStub struct {
	userService
	assigned []string
}

func (s *userStub) AssignRole(_ context.Context, _ application.Session, email string, role application.Role) error {
	s.assigned = append(s.assigned, email+"="+string(role))
	return nil
}

func (s *userStub) MyProfile(_ context.Context, session application.Session) (application.User, error) {
	return application.User{ID: session.UserID, Email: session.Email, Roles: session.Roles, FirstName: "Ana", LastName: "López"}, nil
}

type reportStub struct {
	filter application.VisitFilter
}

func (s *reportStub) ExportVisits(_ context.Context, _ application.Session, filter application.VisitFilter) (application.Document, error) {
	s.filter = filter
	return application.Document{FileName: "visitas.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}, nil
}

func (s *reportStub) ExportClients(context.Context, application.Session) (application.Document, error) {
	return application.Document{}, application.ErrForbidden
}

func (s *reportStub) ExportUsers(context.Context, application.Session) (application.Document, error) {
	return application.Document{}, application.ErrForbidden
}

type notificationStub struct {
	result application.NotificationResult
	err    error
	sent   []application.VisitReportEmail
}

func (s *notificationStub) SendVisitReport(_ context.Context, _ application.Session, email application.VisitReportEmail) (application.NotificationResult, error) {
	s.sent = append(s.sent, email)
	return s.result, s.err
}

type dashboardStub struct{}

func (dashboardStub) Stats(context.Context, application.Session) (application.DashboardStats, error) {
	return application.DashboardStats{TotalVisits: 4, PendingVisits: 2, TodayVisits: 1}, nil
}

func serve(t *testing.T, handler http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return out
}

func TestAuthHandlers(t *testing.T) {
	t.Parallel()

	t.Run("login issues session token via cookie and header", func(t *testing.T) {
		t.Parallel()

		session := testSession(application.RoleAdministrator, "admin")
		session.Token = "local-token"
		router := NewRouter(RouterConfig{Auth: NewAuthHandler(&authStub{session: session}, discardLogger), Sessions: newTestSessions(), Logger: discardLogger})

		rec := serve(t, router, http.MethodPost, "/login", "", `{"email":" Admin@SkyNet.test ","password":"secret"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if got := rec.Header().Get("X-Session-Token"); got != "local-token" {
			t.Fatalf("expected session header, got %q", got)
		}
		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != sessionCookieName || cookies[0].Value != "local-token" {
			t.Fatalf("expected session cookie, got %+v", cookies)
		}

		resp := decodeBody[sessionResponse](t, rec)
		if resp.User.Email != "admin@skynet.test" {
			t.Fatalf("expected normalized email, got %q", resp.User.Email)
		}
		if len(resp.User.Capabilities) != 9 {
			t.Fatalf("expected every capability for administrators, got %v", resp.User.Capabilities)
		}
	})

	t.Run("login with invalid credentials", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{Auth: NewAuthHandler(&authStub{err: application.ErrInvalidCredentials}, discardLogger), Logger: discardLogger})
		rec := serve(t, router, http.MethodPost, "/login", "", `{"email":"a@b.c","password":"x"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		resp := decodeBody[errorResponse](t, rec)
		if resp.ErrorCode != "AUTH_INVALID_CREDENTIALS" || resp.Message != "Correo electrónico o contraseña incorrectos." {
			t.Fatalf("unexpected error response %+v", resp)
		}
	})

	t.Run("login rejects malformed bodies", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{Auth: NewAuthHandler(&authStub{}, discardLogger), Logger: discardLogger})
		rec := serve(t, router, http.MethodPost, "/login", "", `{`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("logout revokes the session", func(t *testing.T) {
		t.Parallel()

		auth := &authStub{}
		router := NewRouter(RouterConfig{Auth: NewAuthHandler(auth, discardLogger), Sessions: newTestSessions(), Logger: discardLogger})
		rec := serve(t, router, http.MethodPost, "/logout", "admin-token", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if len(auth.loggedOut) != 1 || auth.loggedOut[0] != "admin-token" {
			t.Fatalf("expected token to be revoked, got %v", auth.loggedOut)
		}
	})

	t.Run("me describes the current session", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{Auth: NewAuthHandler(&authStub{}, discardLogger), Sessions: newTestSessions(), Logger: discardLogger})
		rec := serve(t, router, http.MethodGet, "/me", "tec-token", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decodeBody[sessionResponse](t, rec)
		if resp.Token != "" || resp.User.Role != string(application.RoleTechnician) {
			t.Fatalf("unexpected me response %+v", resp)
		}
	})
}

func TestVisitHandlers(t *testing.T) {
	t.Parallel()

	newRouter := func(stub *visitStub) http.Handler {
		return NewRouter(RouterConfig{
			Visits:   NewVisitHandler(stub, stub, discardLogger),
			Sessions: newTestSessions(),
			Logger:   discardLogger,
		})
	}

	t.Run("list maps query parameters to the filter", func(t *testing.T) {
		t.Parallel()

		stub := &visitStub{visits: []application.Visit{{ID: 1, Status: application.VisitStatusPending, TechnicianID: "tec-1"}}}
		rec := serve(t, newRouter(stub), http.MethodGet, "/visits?search=router&status=2&technician=tec-1&bucket=week", "admin-token", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if stub.lastFilter.Search != "router" || stub.lastFilter.Status != "2" || stub.lastFilter.Technician != "tec-1" || stub.lastFilter.Bucket != application.BucketWeek {
			t.Fatalf("unexpected filter %+v", stub.lastFilter)
		}
		resp := decodeBody[[]visitDTO](t, rec)
		if len(resp) != 1 || resp[0].StatusName != "Pendiente" {
			t.Fatalf("unexpected visits %+v", resp)
		}
	})

	t.Run("list rejects unknown buckets", func(t *testing.T) {
		t.Parallel()

		rec := serve(t, newRouter(&visitStub{}), http.MethodGet, "/visits?bucket=year", "admin-token", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("get rejects non numeric identifiers", func(t *testing.T) {
		t.Parallel()

		rec := serve(t, newRouter(&visitStub{}), http.MethodGet, "/visits/abc", "admin-token", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("get maps missing visits to 404", func(t *testing.T) {
		t.Parallel()

		rec := serve(t, newRouter(&visitStub{}), http.MethodGet, "/visits/5", "admin-token", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("complete returns the notification outcome", func(t *testing.T) {
		t.Parallel()

		rec := serve(t, newRouter(&visitStub{}), http.MethodPost, "/visits/3/complete", "tec-token",
			`{"start":"2025-03-01T10:00","end":"2025-03-01T11:00","observations":"ok"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decodeBody[completionDTO](t, rec)
		if resp.RegistrationID != 7 || !resp.Notification.Success || resp.Visit.Status != int(application.VisitStatusCompleted) {
			t.Fatalf("unexpected completion %+v", resp)
		}
	})

	t.Run("status change maps invalid transitions to 409", func(t *testing.T) {
		t.Parallel()

		stub := &visitStub{changeErr: application.ErrInvalidTransition}
		rec := serve(t, newRouter(stub), http.MethodPut, "/visits/3/status", "admin-token", `{"status":9}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		resp := decodeBody[errorResponse](t, rec)
		if resp.ErrorCode != "VISIT_INVALID_TRANSITION" {
			t.Fatalf("unexpected error code %q", resp.ErrorCode)
		}
	})

	t.Run("technicians cannot delete visits", func(t *testing.T) {
		t.Parallel()

		stub := &visitStub{}
		rec := serve(t, newRouter(stub), http.MethodDelete, "/visits/3", "tec-token", "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		if len(stub.deleted) != 0 {
			t.Fatalf("expected no deletion, got %v", stub.deleted)
		}
	})

	t.Run("administrators delete visits", func(t *testing.T) {
		t.Parallel()

		stub := &visitStub{}
		rec := serve(t, newRouter(stub), http.MethodDelete, "/visits/3", "admin-token", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if len(stub.deleted) != 1 || stub.deleted[0] != 3 {
			t.Fatalf("expected visit 3 to be deleted, got %v", stub.deleted)
		}
	})
}

func TestUserHandlers(t *testing.T) {
	t.Parallel()

	t.Run("require user management capability", func(t *testing.T) {
		t.Parallel()

		stub := &userStub{}
		router := NewRouter(RouterConfig{Users: NewUserHandler(stub, discardLogger), Sessions: newTestSessions(), Logger: discardLogger})
		rec := serve(t, router, http.MethodPost, "/users/roles", "tec-token", `{"email":"x@y.z","role":"Supervisor"}`)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		if len(stub.assigned) != 0 {
			t.Fatalf("expected no role assignment, got %v", stub.assigned)
		}
	})

	t.Run("assign role forwards email and role", func(t *testing.T) {
		t.Parallel()

		stub := &userStub{}
		router := NewRouter(RouterConfig{Users: NewUserHandler(stub, discardLogger), Sessions: newTestSessions(), Logger: discardLogger})
		rec := serve(t, router, http.MethodPost, "/users/roles", "admin-token", `{"email":"x@y.z","role":"Supervisor"}`)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if len(stub.assigned) != 1 || stub.assigned[0] != "x@y.z=Supervisor" {
			t.Fatalf("unexpected assignments %v", stub.assigned)
		}
	})

	t.Run("my profile is available to every role", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{Users: NewUserHandler(&userStub{}, discardLogger), Sessions: newTestSessions(), Logger: discardLogger})
		rec := serve(t, router, http.MethodGet, "/me/profile", "tec-token", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decodeBody[userDTO](t, rec)
		if resp.FullName != "Ana López" || resp.Role != string(application.RoleTechnician) {
			t.Fatalf("unexpected profile %+v", resp)
		}
	})
}

func TestReportHandlers(t *testing.T) {
	t.Parallel()

	stub := &reportStub{}
	router := NewRouter(RouterConfig{Reports: NewReportHandler(stub, discardLogger), Sessions: newTestSessions(), Logger: discardLogger})

	rec := serve(t, router, http.MethodGet, "/reports/visits.pdf?bucket=today&status=1", "tec-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("expected pdf content type, got %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="visitas.pdf"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if stub.filter.Bucket != application.BucketToday || stub.filter.Status != "1" {
		t.Fatalf("unexpected filter %+v", stub.filter)
	}

	rec = serve(t, router, http.MethodGet, "/reports/users.pdf", "tec-token", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for technicians, got %d", rec.Code)
	}
}

func TestNotificationHandler(t *testing.T) {
	t.Parallel()

	t.Run("missing client email", func(t *testing.T) {
		t.Parallel()

		stub := &notificationStub{err: &application.ValidationError{FieldErrors: map[string]string{"clienteEmail": "Email del cliente es requerido"}}}
		router := NewRouter(RouterConfig{Notifications: NewNotificationHandler(stub, discardLogger), Sessions: newTestSessions(), Logger: discardLogger})
		rec := serve(t, router, http.MethodPost, "/api/send-visit-report", "admin-token", `{"visitaId":1}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		resp := decodeBody[sendReportResponse](t, rec)
		if resp.Error != "Email del cliente es requerido" {
			t.Fatalf("unexpected error %q", resp.Error)
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		t.Parallel()

		stub := &notificationStub{
			result: application.NotificationResult{Attempted: true, Error: "provider rejected"},
			err:    errors.New("provider rejected"),
		}
		router := NewRouter(RouterConfig{Notifications: NewNotificationHandler(stub, discardLogger), Sessions: newTestSessions(), Logger: discardLogger})
		rec := serve(t, router, http.MethodPost, "/api/send-visit-report", "admin-token", `{"visitaId":1,"clienteEmail":"a@b.c"}`)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		resp := decodeBody[sendReportResponse](t, rec)
		if resp.Error != "Error al enviar el email" || resp.Details != "provider rejected" {
			t.Fatalf("unexpected response %+v", resp)
		}
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		stub := &notificationStub{result: application.NotificationResult{Attempted: true, Success: true, EmailID: "email-9"}}
		router := NewRouter(RouterConfig{Notifications: NewNotificationHandler(stub, discardLogger), Sessions: newTestSessions(), Logger: discardLogger})
		rec := serve(t, router, http.MethodPost, "/api/send-visit-report", "admin-token", `{"visitaId":1,"clienteEmail":"a@b.c"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decodeBody[sendReportResponse](t, rec)
		if !resp.Success || resp.EmailID != "email-9" || resp.Message != "Email enviado correctamente" {
			t.Fatalf("unexpected response %+v", resp)
		}
		if len(stub.sent) != 1 || stub.sent[0].ClienteEmail != "a@b.c" {
			t.Fatalf("unexpected payloads %+v", stub.sent)
		}
	})
}

func TestDashboardHandler(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterConfig{Dashboard: NewDashboardHandler(dashboardStub{}, discardLogger), Sessions: newTestSessions(), Logger: discardLogger})
	rec := serve(t, router, http.MethodGet, "/dashboard/stats", "tec-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeBody[dashboardStatsDTO](t, rec)
	if resp.TotalVisits != 4 || resp.PendingVisits != 2 || resp.TodayVisits != 1 {
		t.Fatalf("unexpected stats %+v", resp)
	}
}
