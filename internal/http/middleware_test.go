package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Fernatzoc/skynet-next/internal/application"
)

type fakeSessionValidator struct {
	session application.Session
	err     error
}

func (f fakeSessionValidator) ValidateSession(context.Context, string) (application.Session, error) {
	return f.session, f.err
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests that cannot be authenticated", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			name           string
			token          string
			validatorErr   error
			expectedStatus int
			expectedCode   string
			clearsCookie   bool
		}{
			{name: "missing token", expectedStatus: http.StatusUnauthorized, expectedCode: "AUTH_MISSING_TOKEN"},
			{name: "expired session", token: "old", validatorErr: application.ErrSessionExpired, expectedStatus: http.StatusUnauthorized, expectedCode: "AUTH_SESSION_EXPIRED", clearsCookie: true},
			{name: "unknown token", token: "nope", validatorErr: application.ErrNotFound, expectedStatus: http.StatusUnauthorized, expectedCode: "AUTH_UNAUTHORIZED"},
			{name: "repository failure", token: "boom", validatorErr: errors.New("database is locked"), expectedStatus: http.StatusInternalServerError},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				if tc.token != "" {
					req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tc.token})
				}
				recorder := httptest.NewRecorder()

				handler := RequireSession(fakeSessionValidator{err: tc.validatorErr}, discardLogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Fatal("next handler should not be called when authentication fails")
				}))
				handler.ServeHTTP(recorder, req)

				if recorder.Code != tc.expectedStatus {
					t.Fatalf("expected status %d, got %d", tc.expectedStatus, recorder.Code)
				}
				if tc.expectedCode != "" {
					resp := decodeBody[errorResponse](t, recorder)
					if resp.ErrorCode != tc.expectedCode {
						t.Fatalf("expected error code %q, got %q", tc.expectedCode, resp.ErrorCode)
					}
				}
				cleared := false
				for _, c := range recorder.Result().Cookies() {
					if c.Name == sessionCookieName && c.MaxAge < 0 {
						cleared = true
					}
				}
				if cleared != tc.clearsCookie {
					t.Fatalf("expected cookie cleared=%v, got %v", tc.clearsCookie, cleared)
				}
			})
		}
	})

	t.Run("attaches the session and token to the request context", func(t *testing.T) {
		t.Parallel()

		session := testSession(application.RoleSupervisor, "sup-1")
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		recorder := httptest.NewRecorder()

		var captured application.Session
		var token string
		handler := RequireSession(fakeSessionValidator{session: session}, discardLogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := SessionFromContext(r.Context())
			if !ok {
				t.Fatal("expected session in request context")
			}
			captured = s
			token = tokenFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if captured.UserID != "sup-1" || captured.Role != application.RoleSupervisor {
			t.Fatalf("unexpected session %+v", captured)
		}
		if token != "valid-token" {
			t.Fatalf("expected bearer token in context, got %q", token)
		}
	})
}

func TestRequireCapability(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := RequireCapability(application.CapPlanVisits, discardLogger)(next)

	testCases := []struct {
		name     string
		ctx      context.Context
		expected int
	}{
		{name: "no session", ctx: context.Background(), expected: http.StatusUnauthorized},
		{name: "technician", ctx: ContextWithSession(context.Background(), testSession(application.RoleTechnician, "t")), expected: http.StatusForbidden},
		{name: "supervisor", ctx: ContextWithSession(context.Background(), testSession(application.RoleSupervisor, "s")), expected: http.StatusOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(tc.ctx))
			if recorder.Code != tc.expected {
				t.Fatalf("expected %d, got %d", tc.expected, recorder.Code)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if LoggerFromContext(r.Context()) == nil {
			t.Fatal("expected request logger in context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/visits", nil)
	req.Header.Set("X-Request-ID", "req-123")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if got := recorder.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}
	logs := buf.String()
	if !strings.Contains(logs, `"request_id":"req-123"`) || !strings.Contains(logs, `"status":418`) {
		t.Fatalf("expected request id and status in logs, got %s", logs)
	}
}

func TestRouter_HealthAndMissingToken(t *testing.T) {
	t.Parallel()

	stub := &visitStub{}
	router := NewRouter(RouterConfig{Visits: NewVisitHandler(stub, stub, discardLogger), Sessions: newTestSessions(), Logger: discardLogger})

	if rec := serve(t, router, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", rec.Code)
	}
	rec := serve(t, router, http.MethodGet, "/visits", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec = serve(t, router, http.MethodGet, "/visits", "forged", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", rec.Code)
	}
}
