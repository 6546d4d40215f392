package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
)

// UserGateway is the remote data-access contract for user accounts.
type UserGateway interface {
	ListUsers(ctx context.Context, token string) ([]User, error)
	AssignedTechnicians(ctx context.Context, token, supervisorID string) ([]User, error)
	MyProfile(ctx context.Context, token string) (User, error)
	UpdateMyProfile(ctx context.Context, token string, input ProfileInput) error
	RegisterUser(ctx context.Context, token string, input RegisterUserInput) error
	UpdateUserProfile(ctx context.Context, token string, input ProfileInput) error
	AssignRole(ctx context.Context, token, email string, role Role) error
	RemoveRole(ctx context.Context, token, email string, role Role) error
	UpdateUserStatus(ctx context.Context, token, email string, active bool) error
	ChangePassword(ctx context.Context, token string, input PasswordChangeInput) error
	ResetPassword(ctx context.Context, token string, input PasswordResetInput) error
}

// UserService orchestrates validation and authorization for user accounts.
// Accounts are never deleted, only deactivated.
type UserService struct {
	users  UserGateway
	logger *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserGateway, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

func (s *UserService) ready(session Session, capability Capability) error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if err := requireSession(session); err != nil {
		return err
	}
	if capability != "" && !session.Can(capability) {
		return ErrForbidden
	}
	if s.users == nil {
		return fmt.Errorf("user gateway not configured")
	}
	return nil
}

// ListUsers returns every account.
func (s *UserService) ListUsers(ctx context.Context, session Session) ([]User, error) {
	if err := s.ready(session, CapManageUsers); err != nil {
		return nil, err
	}
	users, err := s.users.ListUsers(ctx, session.RemoteToken)
	if err != nil {
		return nil, mapRemoteError(err)
	}
	return users, nil
}

// Technicians returns the technicians a session may assign visits to.
// Supervisors get their assigned technicians and fall back to every
// technician when that lookup fails.
func (s *UserService) Technicians(ctx context.Context, session Session) ([]User, error) {
	if err := s.ready(session, ""); err != nil {
		return nil, err
	}
	if !session.Can(CapManageVisits) && !session.Can(CapPlanVisits) {
		return nil, ErrForbidden
	}

	if session.Role == RoleSupervisor && session.UserID != "" {
		assigned, err := s.users.AssignedTechnicians(ctx, session.RemoteToken, session.UserID)
		if err == nil {
			return assigned, nil
		}
		s.loggerWith(ctx, "Technicians", "user_id", session.UserID).
			WarnContext(ctx, "assigned technicians lookup failed, listing all technicians", "error", err)
	}

	users, err := s.users.ListUsers(ctx, session.RemoteToken)
	if err != nil {
		return nil, mapRemoteError(err)
	}
	return UsersWithRole(users, RoleTechnician), nil
}

// Supervisors returns the accounts that can supervise visits.
func (s *UserService) Supervisors(ctx context.Context, session Session) ([]User, error) {
	if err := s.ready(session, CapManageVisits); err != nil {
		return nil, err
	}
	users, err := s.users.ListUsers(ctx, session.RemoteToken)
	if err != nil {
		return nil, mapRemoteError(err)
	}
	out := make([]User, 0, len(users))
	for _, u := range users {
		if u.HasRole(RoleSupervisor) || u.HasRole(RoleAdministrator) {
			out = append(out, u)
		}
	}
	return out, nil
}

// MyProfile returns the session owner's profile.
func (s *UserService) MyProfile(ctx context.Context, session Session) (User, error) {
	if err := s.ready(session, ""); err != nil {
		return User{}, err
	}
	user, err := s.users.MyProfile(ctx, session.RemoteToken)
	if err != nil {
		return User{}, mapRemoteError(err)
	}
	return user, nil
}

// UpdateMyProfile edits the session owner's profile.
func (s *UserService) UpdateMyProfile(ctx context.Context, session Session, input ProfileInput) error {
	if err := s.ready(session, ""); err != nil {
		return err
	}
	input = normalizeProfileInput(input)
	input.Email = session.Email
	if vErr := validateProfileInput(input, false); vErr.HasErrors() {
		return vErr
	}
	if err := s.users.UpdateMyProfile(ctx, session.RemoteToken, input); err != nil {
		return mapRemoteError(err)
	}
	return nil
}

// RegisterUser creates an account.
func (s *UserService) RegisterUser(ctx context.Context, session Session, input RegisterUserInput) (err error) {
	if err = s.ready(session, CapManageUsers); err != nil {
		return err
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	logger := s.loggerWith(ctx, "RegisterUser", "user_id", session.UserID, "email", input.Email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "user registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user registered")
	}()

	input.FirstName = strings.TrimSpace(input.FirstName)
	input.MiddleName = strings.TrimSpace(input.MiddleName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.SecondSurname = strings.TrimSpace(input.SecondSurname)
	input.Phone = strings.TrimSpace(input.Phone)

	vErr := &ValidationError{}
	validateEmail(input.Email, vErr)
	if input.Password == "" {
		vErr.add("password", "La contraseña es requerida")
	}
	if input.FirstName == "" {
		vErr.add("firstName", "El primer nombre es requerido")
	}
	if input.LastName == "" {
		vErr.add("lastName", "El primer apellido es requerido")
	}
	if input.Phone == "" {
		vErr.add("phone", "El teléfono es requerido")
	}
	if vErr.HasErrors() {
		return vErr
	}

	if err = s.users.RegisterUser(ctx, session.RemoteToken, input); err != nil {
		return mapRemoteError(err)
	}
	return nil
}

// UpdateUserProfile edits another account's profile.
func (s *UserService) UpdateUserProfile(ctx context.Context, session Session, input ProfileInput) (err error) {
	if err = s.ready(session, CapManageUsers); err != nil {
		return err
	}
	input = normalizeProfileInput(input)
	logger := s.loggerWith(ctx, "UpdateUserProfile", "user_id", session.UserID, "email", input.Email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "profile update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile updated")
	}()

	if vErr := validateProfileInput(input, true); vErr.HasErrors() {
		return vErr
	}
	if err = s.users.UpdateUserProfile(ctx, session.RemoteToken, input); err != nil {
		return mapRemoteError(err)
	}
	return nil
}

// AssignRole grants role to the account identified by email.
func (s *UserService) AssignRole(ctx context.Context, session Session, email string, role Role) error {
	return s.changeRole(ctx, session, "AssignRole", email, role, true)
}

// RemoveRole revokes role from the account identified by email.
func (s *UserService) RemoveRole(ctx context.Context, session Session, email string, role Role) error {
	return s.changeRole(ctx, session, "RemoveRole", email, role, false)
}

func (s *UserService) changeRole(ctx context.Context, session Session, operation, email string, role Role, grant bool) (err error) {
	if err = s.ready(session, CapManageUsers); err != nil {
		return err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	role = Role(strings.TrimSpace(string(role)))
	logger := s.loggerWith(ctx, operation, "user_id", session.UserID, "email", email, "role", role)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "role change failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "role changed")
	}()

	vErr := &ValidationError{}
	validateEmail(email, vErr)
	if !ValidRole(role) {
		vErr.add("role", "El rol seleccionado no es válido")
	}
	if vErr.HasErrors() {
		return vErr
	}

	if grant {
		err = s.users.AssignRole(ctx, session.RemoteToken, email, role)
	} else {
		err = s.users.RemoveRole(ctx, session.RemoteToken, email, role)
	}
	return mapRemoteError(err)
}

// SetUserStatus activates or deactivates an account. Operators cannot
// deactivate themselves.
func (s *UserService) SetUserStatus(ctx context.Context, session Session, email string, active bool) (err error) {
	if err = s.ready(session, CapManageUsers); err != nil {
		return err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	logger := s.loggerWith(ctx, "SetUserStatus", "user_id", session.UserID, "email", email, "active", active)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "status change failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user status changed")
	}()

	vErr := &ValidationError{}
	validateEmail(email, vErr)
	if !active && strings.EqualFold(email, session.Email) {
		vErr.add("email", "No puedes desactivar tu propia cuenta")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return mapRemoteError(s.users.UpdateUserStatus(ctx, session.RemoteToken, email, active))
}

// ResetPassword sets another account's password.
func (s *UserService) ResetPassword(ctx context.Context, session Session, input PasswordResetInput) (err error) {
	if err = s.ready(session, CapManageUsers); err != nil {
		return err
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	logger := s.loggerWith(ctx, "ResetPassword", "user_id", session.UserID, "email", input.Email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "password reset failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password reset")
	}()

	vErr := &ValidationError{}
	validateEmail(input.Email, vErr)
	validateNewPassword(input.New, input.Confirmation, vErr)
	if vErr.HasErrors() {
		return vErr
	}
	return mapRemoteError(s.users.ResetPassword(ctx, session.RemoteToken, input))
}

// ChangePassword changes the session owner's password.
func (s *UserService) ChangePassword(ctx context.Context, session Session, input PasswordChangeInput) (err error) {
	if err = s.ready(session, ""); err != nil {
		return err
	}
	logger := s.loggerWith(ctx, "ChangePassword", "user_id", session.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "password change failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password changed")
	}()

	vErr := &ValidationError{}
	if input.Current == "" {
		vErr.add("currentPassword", "La contraseña actual es requerida")
	}
	validateNewPassword(input.New, input.Confirmation, vErr)
	if vErr.HasErrors() {
		return vErr
	}
	return mapRemoteError(s.users.ChangePassword(ctx, session.RemoteToken, input))
}

// UsersWithRole keeps the users that hold role anywhere in their role list.
func UsersWithRole(users []User, role Role) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		if u.HasRole(role) {
			out = append(out, u)
		}
	}
	return out
}

func validateEmail(email string, vErr *ValidationError) {
	if email == "" {
		vErr.add("email", "El email es requerido")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "El email no es válido")
	}
}

func validateNewPassword(password, confirmation string, vErr *ValidationError) {
	if password == "" || confirmation == "" {
		vErr.add("newPassword", "Todos los campos son obligatorios")
		return
	}
	if password != confirmation {
		vErr.add("confirmation", "Las contraseñas no coinciden")
	}
}

func validateProfileInput(input ProfileInput, requireEmail bool) *ValidationError {
	vErr := &ValidationError{}
	if requireEmail {
		validateEmail(input.Email, vErr)
	}
	if input.Phone != "" && !phonePattern.MatchString(input.Phone) {
		vErr.add("phone", "El teléfono debe tener 8 dígitos")
	}
	return vErr
}

func normalizeProfileInput(input ProfileInput) ProfileInput {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.MiddleName = strings.TrimSpace(input.MiddleName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.SecondSurname = strings.TrimSpace(input.SecondSurname)
	input.Phone = strings.TrimSpace(input.Phone)
	return input
}
