package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Fernatzoc/skynet-next/internal/application"
)

type userService interface {
	ListUsers(ctx context.Context, session application.Session) ([]application.User, error)
	Technicians(ctx context.Context, session application.Session) ([]application.User, error)
	Supervisors(ctx context.Context, session application.Session) ([]application.User, error)
	MyProfile(ctx context.Context, session application.Session) (application.User, error)
	UpdateMyProfile(ctx context.Context, session application.Session, input application.ProfileInput) error
	RegisterUser(ctx context.Context, session application.Session, input application.RegisterUserInput) error
	UpdateUserProfile(ctx context.Context, session application.Session, input application.ProfileInput) error
	AssignRole(ctx context.Context, session application.Session, email string, role application.Role) error
	RemoveRole(ctx context.Context, session application.Session, email string, role application.Role) error
	SetUserStatus(ctx context.Context, session application.Session, email string, active bool) error
	ResetPassword(ctx context.Context, session application.Session, input application.PasswordResetInput) error
	ChangePassword(ctx context.Context, session application.Session, input application.PasswordChangeInput) error
}

type UserHandler struct {
	service   userService
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

func (h *UserHandler) session(w http.ResponseWriter, r *http.Request) (application.Session, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return application.Session{}, false
	}
	session, ok := SessionFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return application.Session{}, false
	}
	return session, true
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "List", func(ctx context.Context, s application.Session) ([]application.User, error) {
		return h.service.ListUsers(ctx, s)
	})
}

// Technicians lists every technician for administrators and the assigned
// technicians for supervisors.
func (h *UserHandler) Technicians(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "Technicians", func(ctx context.Context, s application.Session) ([]application.User, error) {
		return h.service.Technicians(ctx, s)
	})
}

func (h *UserHandler) Supervisors(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "Supervisors", func(ctx context.Context, s application.Session) ([]application.User, error) {
		return h.service.Supervisors(ctx, s)
	})
}

func (h *UserHandler) list(w http.ResponseWriter, r *http.Request, operation string, load func(context.Context, application.Session) ([]application.User, error)) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	users, err := load(r.Context(), session)
	if err != nil {
		h.log(r.Context(), operation).ErrorContext(r.Context(), "failed to list users", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := make([]userDTO, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserDTO(u))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	logger := h.log(r.Context(), "Register")

	var req registerUserRequest
	if !decodeJSON(w, r, h.responder, logger, &req) {
		return
	}

	err := h.service.RegisterUser(r.Context(), session, application.RegisterUserInput{
		Email:         req.Email,
		Password:      req.Password,
		FirstName:     req.FirstName,
		MiddleName:    req.MiddleName,
		LastName:      req.LastName,
		SecondSurname: req.SecondSurname,
		Phone:         req.Phone,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to register user", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "user registered", "email", strings.ToLower(strings.TrimSpace(req.Email)))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, nil)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	logger := h.log(r.Context(), "UpdateProfile")

	var req profileRequest
	if !decodeJSON(w, r, h.responder, logger, &req) {
		return
	}

	if err := h.service.UpdateUserProfile(r.Context(), session, req.toInput()); err != nil {
		logger.ErrorContext(r.Context(), "failed to update profile", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *UserHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, "AssignRole", true)
}

func (h *UserHandler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, "RemoveRole", false)
}

func (h *UserHandler) changeRole(w http.ResponseWriter, r *http.Request, operation string, grant bool) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	logger := h.log(r.Context(), operation)

	var req roleRequest
	if !decodeJSON(w, r, h.responder, logger, &req) {
		return
	}

	var err error
	if grant {
		err = h.service.AssignRole(r.Context(), session, req.Email, application.Role(req.Role))
	} else {
		err = h.service.RemoveRole(r.Context(), session, req.Email, application.Role(req.Role))
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to change role", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *UserHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	logger := h.log(r.Context(), "SetStatus")

	var req statusRequest
	if !decodeJSON(w, r, h.responder, logger, &req) {
		return
	}

	if err := h.service.SetUserStatus(r.Context(), session, req.Email, req.Active); err != nil {
		logger.ErrorContext(r.Context(), "failed to change user status", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// ResetPassword sets another account's password.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	logger := h.log(r.Context(), "ResetPassword")

	var req passwordRequest
	if !decodeJSON(w, r, h.responder, logger, &req) {
		return
	}

	err := h.service.ResetPassword(r.Context(), session, application.PasswordResetInput{
		Email:        req.Email,
		New:          req.NewPassword,
		Confirmation: req.Confirmation,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to reset password", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// ChangePassword changes the session owner's password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	logger := h.log(r.Context(), "ChangePassword")

	var req passwordRequest
	if !decodeJSON(w, r, h.responder, logger, &req) {
		return
	}

	err := h.service.ChangePassword(r.Context(), session, application.PasswordChangeInput{
		Current:      req.CurrentPassword,
		New:          req.NewPassword,
		Confirmation: req.Confirmation,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to change password", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *UserHandler) MyProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	user, err := h.service.MyProfile(r.Context(), session)
	if err != nil {
		h.log(r.Context(), "MyProfile").ErrorContext(r.Context(), "failed to load profile", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toUserDTO(user))
}

func (h *UserHandler) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	logger := h.log(r.Context(), "UpdateMyProfile")

	var req profileRequest
	if !decodeJSON(w, r, h.responder, logger, &req) {
		return
	}

	if err := h.service.UpdateMyProfile(r.Context(), session, req.toInput()); err != nil {
		logger.ErrorContext(r.Context(), "failed to update own profile", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type userDTO struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	FullName      string   `json:"full_name"`
	FirstName     string   `json:"first_name"`
	MiddleName    string   `json:"middle_name,omitempty"`
	LastName      string   `json:"last_name"`
	SecondSurname string   `json:"second_surname,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Role          string   `json:"role"`
	Roles         []string `json:"roles"`
	Active        *bool    `json:"active,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
}

func toUserDTO(u application.User) userDTO {
	return userDTO{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName(),
		FirstName:     u.FirstName,
		MiddleName:    u.MiddleName,
		LastName:      u.LastName,
		SecondSurname: u.SecondSurname,
		Phone:         u.Phone,
		Role:          string(u.PrimaryRole()),
		Roles:         append([]string{}, u.Roles...),
		Active:        u.Active,
		CreatedAt:     u.CreatedAt,
	}
}

type registerUserRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"first_name"`
	MiddleName    string `json:"middle_name"`
	LastName      string `json:"last_name"`
	SecondSurname string `json:"second_surname"`
	Phone         string `json:"phone"`
}

type profileRequest struct {
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	MiddleName    string `json:"middle_name"`
	LastName      string `json:"last_name"`
	SecondSurname string `json:"second_surname"`
	Phone         string `json:"phone"`
}

func (req profileRequest) toInput() application.ProfileInput {
	return application.ProfileInput{
		Email:         req.Email,
		FirstName:     req.FirstName,
		MiddleName:    req.MiddleName,
		LastName:      req.LastName,
		SecondSurname: req.SecondSurname,
		Phone:         req.Phone,
	}
}

type roleRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type statusRequest struct {
	Email  string `json:"email"`
	Active bool   `json:"active"`
}

type passwordRequest struct {
	Email           string `json:"email,omitempty"`
	CurrentPassword string `json:"current_password,omitempty"`
	NewPassword     string `json:"new_password"`
	Confirmation    string `json:"confirmation"`
}
