package application

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
)

func validClientInput() ClientInput {
	return ClientInput{
		FirstName:    " Juan ",
		FirstSurname: "Pérez",
		Phone:        "55512345",
		Email:        "juan@example.com",
		Address:      "Zona 10",
		Latitude:     14.6,
		Longitude:    -90.5,
	}
}

func TestClientService_CreateClient(t *testing.T) {
	t.Parallel()

	gateway := &clientGatewayStub{}
	svc := NewClientService(gateway, nil)

	client, err := svc.CreateClient(context.Background(), testSession(RoleSupervisor, "sup-1"), validClientInput())
	if err != nil {
		t.Fatalf("CreateClient returned error: %v", err)
	}
	if client.FirstName != "Juan" {
		t.Fatalf("expected trimmed first name, got %q", client.FirstName)
	}
	if len(gateway.created) != 1 {
		t.Fatalf("expected one remote create, got %d", len(gateway.created))
	}
}

func TestClientService_RequiresManageClients(t *testing.T) {
	t.Parallel()

	svc := NewClientService(&clientGatewayStub{}, nil)
	if _, err := svc.ListClients(context.Background(), testSession(RoleTechnician, "tec-1")); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.DeactivateClient(context.Background(), testSession(RoleTechnician, "tec-1"), 1); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestClientService_DeactivateClient(t *testing.T) {
	t.Parallel()

	gateway := &clientGatewayStub{}
	svc := NewClientService(gateway, nil)
	if err := svc.DeactivateClient(context.Background(), testSession(RoleAdministrator, "admin"), 7); err != nil {
		t.Fatalf("DeactivateClient returned error: %v", err)
	}
	if !reflect.DeepEqual(gateway.deactivated, []int64{7}) {
		t.Fatalf("expected client 7 to be deactivated, got %v", gateway.deactivated)
	}
}

func TestClientService_GetClientNotFound(t *testing.T) {
	t.Parallel()

	svc := NewClientService(&clientGatewayStub{}, nil)
	if _, err := svc.GetClient(context.Background(), testSession(RoleAdministrator, "admin"), 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestValidateClientInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*ClientInput)
		field  string
		msg    string
	}{
		{name: "first name required", mutate: func(in *ClientInput) { in.FirstName = "" }, field: "firstName", msg: "El primer nombre es requerido"},
		{name: "surname required", mutate: func(in *ClientInput) { in.FirstSurname = "" }, field: "firstSurname", msg: "El primer apellido es requerido"},
		{name: "phone digits", mutate: func(in *ClientInput) { in.Phone = "5551-2345" }, field: "phone", msg: "El teléfono debe tener 8 dígitos"},
		{name: "phone length", mutate: func(in *ClientInput) { in.Phone = "1234567" }, field: "phone", msg: "El teléfono debe tener 8 dígitos"},
		{name: "email shape", mutate: func(in *ClientInput) { in.Email = "juan@example" }, field: "email", msg: "El correo electrónico no es válido"},
		{name: "address required", mutate: func(in *ClientInput) { in.Address = "" }, field: "address", msg: "La dirección es requerida"},
		{name: "latitude range", mutate: func(in *ClientInput) { in.Latitude = 91 }, field: "location", msg: "Latitud y longitud deben ser números válidos"},
		{name: "longitude not a number", mutate: func(in *ClientInput) { in.Longitude = math.NaN() }, field: "location", msg: "Latitud y longitud deben ser números válidos"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			input := normalizeClientInput(validClientInput())
			tc.mutate(&input)
			vErr := ValidateClientInput(input)
			if !reflect.DeepEqual(vErr.Fields(), []string{tc.field}) {
				t.Fatalf("expected only %s to fail, got %v", tc.field, vErr.Fields())
			}
			if vErr.FieldErrors[tc.field] != tc.msg {
				t.Fatalf("expected %q, got %q", tc.msg, vErr.FieldErrors[tc.field])
			}
		})
	}

	if vErr := ValidateClientInput(normalizeClientInput(validClientInput())); vErr.HasErrors() {
		t.Fatalf("expected valid input, got %v", vErr.FieldErrors)
	}
}

func TestSearchClients(t *testing.T) {
	t.Parallel()

	clients := []Client{
		{ID: 1, FirstName: "Juan", FirstSurname: "Pérez", Phone: "55512345", Address: "Zona 10"},
		{ID: 2, FirstName: "María", FirstSurname: "Gómez", Phone: "44400000", Address: "Mixco"},
	}
	if got := SearchClients(clients, "  "); len(got) != 2 {
		t.Fatalf("expected blank search to keep everything, got %d", len(got))
	}
	if got := SearchClients(clients, "PÉREZ"); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected name match, got %+v", got)
	}
	if got := SearchClients(clients, "444"); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("expected phone match, got %+v", got)
	}
	if got := SearchClients(clients, "mixco"); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("expected address match, got %+v", got)
	}
}
