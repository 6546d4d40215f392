package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Fernatzoc/skynet-next/internal/application"
)

type clientService interface {
	ListClients(ctx context.Context, session application.Session) ([]application.Client, error)
	GetClient(ctx context.Context, session application.Session, id int64) (application.Client, error)
	CreateClient(ctx context.Context, session application.Session, input application.ClientInput) (application.Client, error)
	UpdateClient(ctx context.Context, session application.Session, id int64, input application.ClientInput) error
	DeactivateClient(ctx context.Context, session application.Session, id int64) error
}

type ClientHandler struct {
	service   clientService
	responder responder
	logger    *slog.Logger
}

func NewClientHandler(service clientService, logger *slog.Logger) *ClientHandler {
	base := defaultLogger(logger)
	return &ClientHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ClientHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ClientHandler", operation, attrs...)
}

func (h *ClientHandler) session(w http.ResponseWriter, r *http.Request) (application.Session, bool) {
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

// List returns clients, narrowed by the optional search query parameter.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	clients, err := h.service.ListClients(r.Context(), session)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list clients", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	clients = application.SearchClients(clients, r.URL.Query().Get("search"))

	resp := make([]clientDTO, 0, len(clients))
	for _, c := range clients {
		resp = append(resp, toClientDTO(c))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.responder)
	if !ok {
		return
	}

	client, err := h.service.GetClient(r.Context(), session, id)
	if err != nil {
		h.log(r.Context(), "Get", "client_id", id).ErrorContext(r.Context(), "failed to load client", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toClientDTO(client))
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	logger := h.log(r.Context(), "Create")

	var req clientDTO
	if !decodeJSON(w, r, h.responder, logger, &req) {
		return
	}

	client, err := h.service.CreateClient(r.Context(), session, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create client", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "client created", "client_id", client.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toClientDTO(client))
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.responder)
	if !ok {
		return
	}
	logger := h.log(r.Context(), "Update", "client_id", id)

	var req clientDTO
	if !decodeJSON(w, r, h.responder, logger, &req) {
		return
	}

	if err := h.service.UpdateClient(r.Context(), session, id, req.toInput()); err != nil {
		logger.ErrorContext(r.Context(), "failed to update client", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "client updated")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Delete deactivates the client; clients are never purged.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, h.responder)
	if !ok {
		return
	}
	logger := h.log(r.Context(), "Delete", "client_id", id)

	if err := h.service.DeactivateClient(r.Context(), session, id); err != nil {
		logger.ErrorContext(r.Context(), "failed to deactivate client", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "client deactivated")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type clientDTO struct {
	ID            int64   `json:"id,omitempty"`
	FirstName     string  `json:"first_name"`
	MiddleName    string  `json:"middle_name,omitempty"`
	ThirdName     string  `json:"third_name,omitempty"`
	FirstSurname  string  `json:"first_surname"`
	SecondSurname string  `json:"second_surname,omitempty"`
	DisplayName   string  `json:"display_name,omitempty"`
	Phone         string  `json:"phone"`
	Email         string  `json:"email"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Address       string  `json:"address"`
	Active        bool    `json:"active"`
}

func (dto clientDTO) toInput() application.ClientInput {
	return application.ClientInput{
		FirstName:     dto.FirstName,
		MiddleName:    dto.MiddleName,
		ThirdName:     dto.ThirdName,
		FirstSurname:  dto.FirstSurname,
		SecondSurname: dto.SecondSurname,
		Phone:         dto.Phone,
		Email:         dto.Email,
		Latitude:      dto.Latitude,
		Longitude:     dto.Longitude,
		Address:       dto.Address,
	}
}

func toClientDTO(c application.Client) clientDTO {
	return clientDTO{
		ID:            c.ID,
		FirstName:     c.FirstName,
		MiddleName:    c.MiddleName,
		ThirdName:     c.ThirdName,
		FirstSurname:  c.FirstSurname,
		SecondSurname: c.SecondSurname,
		DisplayName:   c.DisplayName(),
		Phone:         c.Phone,
		Email:         c.Email,
		Latitude:      c.Latitude,
		Longitude:     c.Longitude,
		Address:       c.Address,
		Active:        c.Active,
	}
}
