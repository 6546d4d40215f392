package application

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func boolPtr(v bool) *bool { return &v }

func userFixture() []User {
	return []User{
		{ID: "admin", Email: "admin@skynet.test", Roles: []string{"Administrador"}, Active: boolPtr(true)},
		{ID: "sup-1", Email: "sup@skynet.test", Roles: []string{"Supervisor"}, Active: boolPtr(true)},
		{ID: "tec-1", Email: "tec1@skynet.test", Roles: []string{"Tecnico"}, Active: boolPtr(true)},
		{ID: "tec-2", Email: "tec2@skynet.test", Roles: []string{"Tecnico"}, Active: boolPtr(false)},
	}
}

func userIDs(users []User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func TestUserService_ListUsersRequiresManageUsers(t *testing.T) {
	t.Parallel()

	svc := NewUserService(&userGatewayStub{users: userFixture()}, nil)
	if _, err := svc.ListUsers(context.Background(), testSession(RoleSupervisor, "sup-1")); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	users, err := svc.ListUsers(context.Background(), testSession(RoleAdministrator, "admin"))
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if len(users) != 4 {
		t.Fatalf("expected 4 users, got %d", len(users))
	}
}

func TestUserService_Technicians(t *testing.T) {
	t.Parallel()

	t.Run("supervisor gets assigned technicians", func(t *testing.T) {
		t.Parallel()

		gateway := &userGatewayStub{users: userFixture(), assigned: []User{{ID: "tec-1", Roles: []string{"Tecnico"}}}}
		got, err := NewUserService(gateway, nil).Technicians(context.Background(), testSession(RoleSupervisor, "sup-1"))
		if err != nil {
			t.Fatalf("Technicians returned error: %v", err)
		}
		if !reflect.DeepEqual(userIDs(got), []string{"tec-1"}) {
			t.Fatalf("expected assigned technicians, got %v", userIDs(got))
		}
	})

	t.Run("supervisor falls back to all technicians", func(t *testing.T) {
		t.Parallel()

		gateway := &userGatewayStub{users: userFixture(), assignedErr: errors.New("boom")}
		got, err := NewUserService(gateway, nil).Technicians(context.Background(), testSession(RoleSupervisor, "sup-1"))
		if err != nil {
			t.Fatalf("Technicians returned error: %v", err)
		}
		if !reflect.DeepEqual(userIDs(got), []string{"tec-1", "tec-2"}) {
			t.Fatalf("expected every technician, got %v", userIDs(got))
		}
	})

	t.Run("technicians cannot list technicians", func(t *testing.T) {
		t.Parallel()

		_, err := NewUserService(&userGatewayStub{}, nil).Technicians(context.Background(), testSession(RoleTechnician, "tec-1"))
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})
}

func TestUserService_Supervisors(t *testing.T) {
	t.Parallel()

	got, err := NewUserService(&userGatewayStub{users: userFixture()}, nil).Supervisors(context.Background(), testSession(RoleSupervisor, "sup-1"))
	if err != nil {
		t.Fatalf("Supervisors returned error: %v", err)
	}
	if !reflect.DeepEqual(userIDs(got), []string{"admin", "sup-1"}) {
		t.Fatalf("expected admin and supervisor, got %v", userIDs(got))
	}
}

func TestUserService_RoleChanges(t *testing.T) {
	t.Parallel()

	gateway := &userGatewayStub{}
	svc := NewUserService(gateway, nil)
	session := testSession(RoleAdministrator, "admin")

	if err := svc.AssignRole(context.Background(), session, "Tec1@Skynet.test", RoleSupervisor); err != nil {
		t.Fatalf("AssignRole returned error: %v", err)
	}
	if err := svc.RemoveRole(context.Background(), session, "tec1@skynet.test", RoleTechnician); err != nil {
		t.Fatalf("RemoveRole returned error: %v", err)
	}
	want := []string{"+Supervisor:tec1@skynet.test", "-Tecnico:tec1@skynet.test"}
	if !reflect.DeepEqual(gateway.roleCalls, want) {
		t.Fatalf("expected %v, got %v", want, gateway.roleCalls)
	}

	var vErr *ValidationError
	if err := svc.AssignRole(context.Background(), session, "tec1@skynet.test", Role("Invitado")); !errors.As(err, &vErr) || vErr.FieldErrors["role"] == "" {
		t.Fatalf("expected role validation error, got %v", err)
	}
}

func TestUserService_SetUserStatus(t *testing.T) {
	t.Parallel()

	gateway := &userGatewayStub{}
	svc := NewUserService(gateway, nil)
	session := testSession(RoleAdministrator, "admin")

	var vErr *ValidationError
	err := svc.SetUserStatus(context.Background(), session, "ADMIN@skynet.test", false)
	if !errors.As(err, &vErr) || vErr.FieldErrors["email"] != "No puedes desactivar tu propia cuenta" {
		t.Fatalf("expected self deactivation to be rejected, got %v", err)
	}
	if err := svc.SetUserStatus(context.Background(), session, "tec2@skynet.test", true); err != nil {
		t.Fatalf("SetUserStatus returned error: %v", err)
	}
	if !reflect.DeepEqual(gateway.statusCalls, []string{"tec2@skynet.test:true"}) {
		t.Fatalf("unexpected status calls %v", gateway.statusCalls)
	}
}

func TestUserService_Passwords(t *testing.T) {
	t.Parallel()

	gateway := &userGatewayStub{}
	svc := NewUserService(gateway, nil)

	var vErr *ValidationError
	err := svc.ChangePassword(context.Background(), testSession(RoleTechnician, "tec-1"), PasswordChangeInput{Current: "old", New: "Nueva123", Confirmation: "Nueva124"})
	if !errors.As(err, &vErr) || vErr.FieldErrors["confirmation"] != "Las contraseñas no coinciden" {
		t.Fatalf("expected mismatch error, got %v", err)
	}
	if len(gateway.changes) != 0 {
		t.Fatalf("expected no remote call on mismatch")
	}

	if err := svc.ChangePassword(context.Background(), testSession(RoleTechnician, "tec-1"), PasswordChangeInput{Current: "old", New: "Nueva123", Confirmation: "Nueva123"}); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	if err := svc.ResetPassword(context.Background(), testSession(RoleSupervisor, "sup-1"), PasswordResetInput{Email: "tec1@skynet.test", New: "x", Confirmation: "x"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected supervisors to be forbidden from resets, got %v", err)
	}
	if err := svc.ResetPassword(context.Background(), testSession(RoleAdministrator, "admin"), PasswordResetInput{Email: "tec1@skynet.test", New: "x", Confirmation: "x"}); err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}
	if len(gateway.resets) != 1 || len(gateway.changes) != 1 {
		t.Fatalf("expected one reset and one change, got %d and %d", len(gateway.resets), len(gateway.changes))
	}
}

func TestUserService_RegisterUser(t *testing.T) {
	t.Parallel()

	gateway := &userGatewayStub{}
	svc := NewUserService(gateway, nil)

	var vErr *ValidationError
	err := svc.RegisterUser(context.Background(), testSession(RoleAdministrator, "admin"), RegisterUserInput{Email: "no-es-email"})
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []string{"email", "firstName", "lastName", "password", "phone"}
	if !reflect.DeepEqual(vErr.Fields(), want) {
		t.Fatalf("expected fields %v, got %v", want, vErr.Fields())
	}

	input := RegisterUserInput{Email: "nuevo@skynet.test", Password: "Clave123", FirstName: "Eva", LastName: "Cruz", Phone: "55512345"}
	if err := svc.RegisterUser(context.Background(), testSession(RoleAdministrator, "admin"), input); err != nil {
		t.Fatalf("RegisterUser returned error: %v", err)
	}
	if len(gateway.registered) != 1 {
		t.Fatalf("expected one registration, got %d", len(gateway.registered))
	}
}
