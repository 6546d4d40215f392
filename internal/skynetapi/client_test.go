package skynetapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL+"/api", WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestNewClient_RejectsInvalidBaseURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "ftp://example.com"} {
		if _, err := NewClient(raw); err == nil {
			t.Fatalf("expected error for base URL %q", raw)
		}
	}
}

func TestClient_SendsBearerTokenAndDecodesVisits(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/visitas/tecnico/tec-1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-123" {
			t.Errorf("expected bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":7,"idCliente":3,"nombreCliente":"Juan Pérez","idTecnico":"tec-1","nombreTecnico":"Ana","idEstadoVisita":1,"estadoVisita":"Pendiente","idTipoVisita":2,"tipoVisita":"Mantenimiento","fechaHoraProgramada":"2025-03-01T10:00:00"}]`)
	})

	visits, err := client.ListVisitsByTechnician(context.Background(), "token-123", "tec-1")
	if err != nil {
		t.Fatalf("ListVisitsByTechnician returned error: %v", err)
	}
	if len(visits) != 1 || visits[0].ID != 7 || visits[0].NombreCliente != "Juan Pérez" {
		t.Fatalf("unexpected visits: %+v", visits)
	}
}

func TestClient_RegisterVisitReturnsRegistrationID(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/visitas/9/registrar" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body RegistrarVisitaRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if body.Observaciones != "ok" {
			t.Errorf("expected observations to be forwarded, got %q", body.Observaciones)
		}
		_, _ = io.WriteString(w, "41")
	})

	id, err := client.RegisterVisit(context.Background(), "t", 9, RegistrarVisitaRequest{
		FechaHoraInicioReal: "2025-03-01T09:00:00Z",
		FechaHoraFinReal:    "2025-03-01T10:30:00Z",
		Observaciones:       "ok",
	})
	if err != nil {
		t.Fatalf("RegisterVisit returned error: %v", err)
	}
	if id != 41 {
		t.Fatalf("expected registration id 41, got %d", id)
	}
}

func TestClient_UpdateVisitStatusUsesPatchPath(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/visitas/5/estado/3" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.UpdateVisitStatus(context.Background(), "t", 5, 3); err != nil {
		t.Fatalf("UpdateVisitStatus returned error: %v", err)
	}
}

func TestClient_NormalizesErrorBodies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		kind     Kind
		message  string
		warning  bool
		hasField bool
	}{
		{
			name:     "field error map joins every message",
			status:   http.StatusBadRequest,
			body:     `{"errors":{"Telefono":["Required field"],"Correo":["Invalid email","otro"]}}`,
			kind:     KindValidation,
			message:  "El correo electrónico no es válido. otro. Este campo es requerido.",
			hasField: true,
		},
		{
			name:    "message is translated",
			status:  http.StatusUnauthorized,
			body:    `{"message":"Invalid credentials"}`,
			kind:    KindUnknown,
			message: "Credenciales inválidas. Verifica tu email y contraseña.",
		},
		{
			name:    "title is used when message is absent",
			status:  http.StatusForbidden,
			body:    `{"title":"Forbidden"}`,
			kind:    KindUnknown,
			message: "Forbidden",
			warning: true,
		},
		{
			name:    "status table when body is not json",
			status:  http.StatusServiceUnavailable,
			body:    `<html>down</html>`,
			kind:    KindTransport,
			message: "Servicio no disponible temporalmente.",
		},
		{
			name:    "generic message for unmapped status",
			status:  http.StatusTeapot,
			body:    ``,
			kind:    KindUnknown,
			message: genericMessage,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})

			err := client.DeleteVisit(context.Background(), "t", 1)
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if apiErr.Kind != tc.kind {
				t.Fatalf("expected kind %q, got %q", tc.kind, apiErr.Kind)
			}
			if apiErr.HTTPStatus != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, apiErr.HTTPStatus)
			}
			if apiErr.Error() != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, apiErr.Error())
			}
			if apiErr.IsWarning() != tc.warning {
				t.Fatalf("expected warning=%v", tc.warning)
			}
			if (apiErr.Fields != nil) != tc.hasField {
				t.Fatalf("expected fields presence %v, got %v", tc.hasField, apiErr.Fields)
			}
		})
	}
}

func TestClient_TransportFailureIsTagged(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, WithTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = client.ListVisits(context.Background(), "t")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.Kind != KindTransport {
		t.Fatalf("expected transport kind, got %q", apiErr.Kind)
	}
	if apiErr.Unwrap() == nil {
		t.Fatalf("expected transport cause to be preserved")
	}
}

func TestRouteTemplate(t *testing.T) {
	t.Parallel()

	got := routeTemplate("/visitas/12/estado/3")
	if got != "/visitas/{id}/estado/{id}" {
		t.Fatalf("unexpected template %q", got)
	}
	got = routeTemplate("/visitas/tecnico/6f1c2a4e-1b2c-4d5e-8f90-123456789abc")
	if got != "/visitas/tecnico/{id}" {
		t.Fatalf("unexpected template %q", got)
	}
}
