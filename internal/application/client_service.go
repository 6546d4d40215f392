package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{8}$`)
)

// ClientGateway is the remote data-access contract for clients.
type ClientGateway interface {
	ListClients(ctx context.Context, token string) ([]Client, error)
	GetClient(ctx context.Context, token string, id int64) (Client, error)
	CreateClient(ctx context.Context, token string, input ClientInput) (Client, error)
	UpdateClient(ctx context.Context, token string, id int64, input ClientInput) error
	DeactivateClient(ctx context.Context, token string, id int64) error
}

// ClientService manages clients. Clients are never purged; Deactivate only
// clears their active flag.
type ClientService struct {
	clients ClientGateway
	logger  *slog.Logger
}

// NewClientService wires dependencies for client operations.
func NewClientService(clients ClientGateway, logger *slog.Logger) *ClientService {
	return &ClientService{clients: clients, logger: defaultLogger(logger)}
}

func (s *ClientService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ClientService", operation, attrs...)
}

func (s *ClientService) authorize(session Session) error {
	if s == nil {
		return fmt.Errorf("ClientService is nil")
	}
	if err := requireSession(session); err != nil {
		return err
	}
	if !session.Can(CapManageClients) {
		return ErrForbidden
	}
	if s.clients == nil {
		return fmt.Errorf("client gateway not configured")
	}
	return nil
}

// ListClients returns every client.
func (s *ClientService) ListClients(ctx context.Context, session Session) ([]Client, error) {
	if err := s.authorize(session); err != nil {
		return nil, err
	}
	clients, err := s.clients.ListClients(ctx, session.RemoteToken)
	if err != nil {
		return nil, mapRemoteError(err)
	}
	return clients, nil
}

// GetClient returns one client.
func (s *ClientService) GetClient(ctx context.Context, session Session, id int64) (Client, error) {
	if err := s.authorize(session); err != nil {
		return Client{}, err
	}
	client, err := s.clients.GetClient(ctx, session.RemoteToken, id)
	if err != nil {
		return Client{}, mapRemoteError(err)
	}
	if client.ID == 0 {
		return Client{}, ErrNotFound
	}
	return client, nil
}

// CreateClient validates and creates a client.
func (s *ClientService) CreateClient(ctx context.Context, session Session, input ClientInput) (client Client, err error) {
	if err = s.authorize(session); err != nil {
		return Client{}, err
	}
	logger := s.loggerWith(ctx, "CreateClient", "user_id", session.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "client creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "client created", "client_id", client.ID)
	}()

	input = normalizeClientInput(input)
	if vErr := ValidateClientInput(input); vErr.HasErrors() {
		return Client{}, vErr
	}
	client, err = s.clients.CreateClient(ctx, session.RemoteToken, input)
	if err != nil {
		return Client{}, mapRemoteError(err)
	}
	return client, nil
}

// UpdateClient validates and replaces a client's fields.
func (s *ClientService) UpdateClient(ctx context.Context, session Session, id int64, input ClientInput) (err error) {
	if err = s.authorize(session); err != nil {
		return err
	}
	logger := s.loggerWith(ctx, "UpdateClient", "user_id", session.UserID, "client_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "client update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "client updated")
	}()

	input = normalizeClientInput(input)
	vErr := ValidateClientInput(input)
	if id <= 0 {
		vErr.add("id", "El identificador del cliente es inválido")
	}
	if vErr.HasErrors() {
		return vErr
	}
	if err = s.clients.UpdateClient(ctx, session.RemoteToken, id, input); err != nil {
		return mapRemoteError(err)
	}
	return nil
}

// DeactivateClient soft deletes a client.
func (s *ClientService) DeactivateClient(ctx context.Context, session Session, id int64) (err error) {
	if err = s.authorize(session); err != nil {
		return err
	}
	logger := s.loggerWith(ctx, "DeactivateClient", "user_id", session.UserID, "client_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "client deactivation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "client deactivated")
	}()

	if err = s.clients.DeactivateClient(ctx, session.RemoteToken, id); err != nil {
		return mapRemoteError(err)
	}
	return nil
}

// ValidateClientInput checks required fields, phone and email shape, and coordinates.
func ValidateClientInput(input ClientInput) *ValidationError {
	vErr := &ValidationError{}
	if input.FirstName == "" {
		vErr.add("firstName", "El primer nombre es requerido")
	}
	if input.FirstSurname == "" {
		vErr.add("firstSurname", "El primer apellido es requerido")
	}
	switch {
	case input.Phone == "":
		vErr.add("phone", "El teléfono es requerido")
	case !phonePattern.MatchString(input.Phone):
		vErr.add("phone", "El teléfono debe tener 8 dígitos")
	}
	switch {
	case input.Email == "":
		vErr.add("email", "El correo electrónico es requerido")
	case !emailPattern.MatchString(input.Email):
		vErr.add("email", "El correo electrónico no es válido")
	}
	if input.Address == "" {
		vErr.add("address", "La dirección es requerida")
	}
	if !validCoordinate(input.Latitude, 90) || !validCoordinate(input.Longitude, 180) {
		vErr.add("location", "Latitud y longitud deben ser números válidos")
	}
	return vErr
}

func validCoordinate(value, limit float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0) && math.Abs(value) <= limit
}

func normalizeClientInput(input ClientInput) ClientInput {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.MiddleName = strings.TrimSpace(input.MiddleName)
	input.ThirdName = strings.TrimSpace(input.ThirdName)
	input.FirstSurname = strings.TrimSpace(input.FirstSurname)
	input.SecondSurname = strings.TrimSpace(input.SecondSurname)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Email = strings.TrimSpace(input.Email)
	input.Address = strings.TrimSpace(input.Address)
	return input
}

// SearchClients keeps the clients whose full name, phone or address contains term.
func SearchClients(clients []Client, term string) []Client {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return clients
	}
	out := make([]Client, 0, len(clients))
	for _, c := range clients {
		if strings.Contains(strings.ToLower(c.DisplayName()), term) ||
			strings.Contains(c.Phone, term) ||
			strings.Contains(strings.ToLower(c.Address), term) {
			out = append(out, c)
		}
	}
	return out
}
