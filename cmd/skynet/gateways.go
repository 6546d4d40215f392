package main

import (
	"context"
	"strings"
	"time"

	"github.com/Fernatzoc/skynet-next/internal/application"
	"github.com/Fernatzoc/skynet-next/internal/skynetapi"
)

// remoteGateway adapts the SkyNet API client to the application gateways.
type remoteGateway struct {
	api *skynetapi.Client
}

func newRemoteGateway(api *skynetapi.Client) *remoteGateway {
	return &remoteGateway{api: api}
}

func (g *remoteGateway) Login(ctx context.Context, email, password string) (application.RemoteToken, error) {
	resp, err := g.api.Login(ctx, email, password)
	if err != nil {
		return application.RemoteToken{}, err
	}
	return toRemoteToken(resp), nil
}

func (g *remoteGateway) RenewToken(ctx context.Context, token string) (application.RemoteToken, error) {
	resp, err := g.api.RenewToken(ctx, token)
	if err != nil {
		return application.RemoteToken{}, err
	}
	return toRemoteToken(resp), nil
}

func (g *remoteGateway) ListVisits(ctx context.Context, token string) ([]application.Visit, error) {
	visits, err := g.api.ListVisits(ctx, token)
	if err != nil {
		return nil, err
	}
	return toApplicationVisits(visits), nil
}

func (g *remoteGateway) ListVisitsByTechnician(ctx context.Context, token, technicianID string) ([]application.Visit, error) {
	visits, err := g.api.ListVisitsByTechnician(ctx, token, technicianID)
	if err != nil {
		return nil, err
	}
	return toApplicationVisits(visits), nil
}

func (g *remoteGateway) GetVisit(ctx context.Context, token string, id int64) (application.Visit, error) {
	visit, err := g.api.GetVisit(ctx, token, id)
	if err != nil {
		return application.Visit{}, err
	}
	return toApplicationVisit(visit), nil
}

func (g *remoteGateway) GetVisitDetail(ctx context.Context, token string, id int64) (application.VisitDetail, error) {
	detail, err := g.api.GetVisitDetail(ctx, token, id)
	if err != nil {
		return application.VisitDetail{}, err
	}
	return application.VisitDetail{
		Visit:  toApplicationVisit(detail.Visita),
		Client: toApplicationClient(detail.Cliente),
	}, nil
}

func (g *remoteGateway) CreateVisit(ctx context.Context, token string, input application.VisitInput) (application.Visit, error) {
	visit, err := g.api.CreateVisit(ctx, token, toVisitRequest(input))
	if err != nil {
		return application.Visit{}, err
	}
	return toApplicationVisit(visit), nil
}

func (g *remoteGateway) UpdateVisit(ctx context.Context, token string, id int64, input application.VisitInput) error {
	return g.api.UpdateVisit(ctx, token, id, toVisitRequest(input))
}

func (g *remoteGateway) UpdateVisitStatus(ctx context.Context, token string, id int64, status application.VisitStatus) error {
	return g.api.UpdateVisitStatus(ctx, token, id, int(status))
}

func (g *remoteGateway) RegisterVisit(ctx context.Context, token string, id int64, input application.CompletionInput) (int64, error) {
	return g.api.RegisterVisit(ctx, token, id, skynetapi.RegistrarVisitaRequest{
		FechaHoraInicioReal: input.Start,
		FechaHoraFinReal:    input.End,
		Observaciones:       input.Observations,
	})
}

func (g *remoteGateway) DeleteVisit(ctx context.Context, token string, id int64) error {
	return g.api.DeleteVisit(ctx, token, id)
}

func (g *remoteGateway) ListClients(ctx context.Context, token string) ([]application.Client, error) {
	clients, err := g.api.ListClients(ctx, token)
	if err != nil {
		return nil, err
	}
	out := make([]application.Client, 0, len(clients))
	for _, c := range clients {
		out = append(out, toApplicationClient(c))
	}
	return out, nil
}

func (g *remoteGateway) GetClient(ctx context.Context, token string, id int64) (application.Client, error) {
	client, err := g.api.GetClient(ctx, token, id)
	if err != nil {
		return application.Client{}, err
	}
	return toApplicationClient(client), nil
}

func (g *remoteGateway) CreateClient(ctx context.Context, token string, input application.ClientInput) (application.Client, error) {
	client, err := g.api.CreateClient(ctx, token, toClientRequest(input))
	if err != nil {
		return application.Client{}, err
	}
	return toApplicationClient(client), nil
}

func (g *remoteGateway) UpdateClient(ctx context.Context, token string, id int64, input application.ClientInput) error {
	return g.api.UpdateClient(ctx, token, id, toClientRequest(input))
}

func (g *remoteGateway) DeactivateClient(ctx context.Context, token string, id int64) error {
	return g.api.DeactivateClient(ctx, token, id)
}

func (g *remoteGateway) ListUsers(ctx context.Context, token string) ([]application.User, error) {
	users, err := g.api.ListUsers(ctx, token)
	if err != nil {
		return nil, err
	}
	return toApplicationUsers(users), nil
}

func (g *remoteGateway) AssignedTechnicians(ctx context.Context, token, supervisorID string) ([]application.User, error) {
	users, err := g.api.AssignedTechnicians(ctx, token, supervisorID)
	if err != nil {
		return nil, err
	}
	return toApplicationUsers(users), nil
}

func (g *remoteGateway) MyProfile(ctx context.Context, token string) (application.User, error) {
	user, err := g.api.MyProfile(ctx, token)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(user), nil
}

func (g *remoteGateway) UpdateMyProfile(ctx context.Context, token string, input application.ProfileInput) error {
	return g.api.UpdateMyProfile(ctx, token, toProfileRequest(input))
}

func (g *remoteGateway) RegisterUser(ctx context.Context, token string, input application.RegisterUserInput) error {
	_, err := g.api.RegisterUser(ctx, token, skynetapi.RegistrarUsuarioRequest{
		Email:         input.Email,
		Password:      input.Password,
		FirstName:     input.FirstName,
		MiddleName:    input.MiddleName,
		LastName:      input.LastName,
		SecondSurname: input.SecondSurname,
		Phone:         input.Phone,
	})
	return err
}

func (g *remoteGateway) UpdateUserProfile(ctx context.Context, token string, input application.ProfileInput) error {
	return g.api.UpdateUserProfile(ctx, token, toProfileRequest(input))
}

func (g *remoteGateway) AssignRole(ctx context.Context, token, email string, role application.Role) error {
	return g.api.AssignRole(ctx, token, skynetapi.RolRequest{Email: email, Rol: string(role)})
}

func (g *remoteGateway) RemoveRole(ctx context.Context, token, email string, role application.Role) error {
	return g.api.RemoveRole(ctx, token, skynetapi.RolRequest{Email: email, Rol: string(role)})
}

func (g *remoteGateway) UpdateUserStatus(ctx context.Context, token, email string, active bool) error {
	return g.api.UpdateUserStatus(ctx, token, skynetapi.EstadoUsuarioRequest{Email: email, Status: active})
}

func (g *remoteGateway) ChangePassword(ctx context.Context, token string, input application.PasswordChangeInput) error {
	return g.api.ChangePassword(ctx, token, skynetapi.CambiarContraseniaRequest{
		ContraseniaActual:    input.Current,
		NuevaContrasenia:     input.New,
		ConfirmarContrasenia: input.Confirmation,
	})
}

func (g *remoteGateway) ResetPassword(ctx context.Context, token string, input application.PasswordResetInput) error {
	return g.api.ResetPassword(ctx, token, skynetapi.RestablecerContraseniaRequest{
		Email:                input.Email,
		NuevaContrasenia:     input.New,
		ConfirmarContrasenia: input.Confirmation,
	})
}

// toRemoteToken keeps a zero expiry when the server sends an unparseable one;
// the decoded token expiry is used instead.
func toRemoteToken(resp skynetapi.AuthResponse) application.RemoteToken {
	token := application.RemoteToken{Token: resp.Token}
	if expires, err := application.ParseTimestamp(resp.Expiracion, time.UTC); err == nil {
		token.ExpiresAt = expires
	}
	return token
}

func toApplicationVisits(visits []skynetapi.Visita) []application.Visit {
	out := make([]application.Visit, 0, len(visits))
	for _, v := range visits {
		out = append(out, toApplicationVisit(v))
	}
	return out
}

func toApplicationVisit(v skynetapi.Visita) application.Visit {
	visit := application.Visit{
		ID:             v.ID,
		ClientID:       v.IDCliente,
		ClientName:     v.NombreCliente,
		TechnicianID:   v.IDTecnico,
		TechnicianName: v.NombreTecnico,
		SupervisorID:   deref(v.IDSupervisor),
		SupervisorName: deref(v.NombreSupervisor),
		Status:         application.VisitStatus(v.IDEstadoVisita),
		StatusName:     v.EstadoVisita,
		Type:           application.VisitType(v.IDTipoVisita),
		TypeName:       v.TipoVisita,
		ScheduledAt:    v.FechaHoraProgramada,
		Description:    deref(v.Descripcion),
	}
	if v.IDRegistroVisita != nil {
		visit.Registration = &application.Registration{
			ID:           *v.IDRegistroVisita,
			StartedAt:    deref(v.FechaHoraInicioReal),
			EndedAt:      deref(v.FechaHoraFinReal),
			Observations: deref(v.Observaciones),
		}
	}
	return visit
}

func toVisitRequest(input application.VisitInput) skynetapi.CrearVisitaRequest {
	return skynetapi.CrearVisitaRequest{
		IDCliente:           input.ClientID,
		IDTecnico:           input.TechnicianID,
		IDSupervisor:        input.SupervisorID,
		IDEstadoVisita:      int(input.Status),
		IDTipoVisita:        int(input.Type),
		FechaHoraProgramada: input.ScheduledAt,
		Descripcion:         input.Description,
	}
}

func toApplicationClient(c skynetapi.Cliente) application.Client {
	return application.Client{
		ID:            c.ID,
		FirstName:     c.PrimerNombre,
		MiddleName:    c.SegundoNombre,
		ThirdName:     c.TercerNombre,
		FirstSurname:  c.PrimerApellido,
		SecondSurname: c.SegundoApellido,
		Phone:         c.Telefono,
		Email:         c.CorreoElectronico,
		Latitude:      c.Latitud,
		Longitude:     c.Longitud,
		Address:       c.Direccion,
		Active:        c.Estado,
	}
}

func toClientRequest(input application.ClientInput) skynetapi.CrearClienteRequest {
	return skynetapi.CrearClienteRequest{
		PrimerNombre:      input.FirstName,
		SegundoNombre:     input.MiddleName,
		TercerNombre:      input.ThirdName,
		PrimerApellido:    input.FirstSurname,
		SegundoApellido:   input.SecondSurname,
		Telefono:          input.Phone,
		CorreoElectronico: input.Email,
		Latitud:           input.Latitude,
		Longitud:          input.Longitude,
		Direccion:         input.Address,
	}
}

func toApplicationUsers(users []skynetapi.Usuario) []application.User {
	out := make([]application.User, 0, len(users))
	for _, u := range users {
		out = append(out, toApplicationUser(u))
	}
	return out
}

func toApplicationUser(u skynetapi.Usuario) application.User {
	var active *bool
	if u.Status != nil {
		v := *u.Status
		active = &v
	}
	return application.User{
		ID:            u.ID,
		Email:         u.Email,
		Roles:         append([]string(nil), u.Roles...),
		FirstName:     u.FirstName,
		MiddleName:    u.MiddleName,
		LastName:      u.LastName,
		SecondSurname: u.SecondSurname,
		Phone:         u.Phone,
		Active:        active,
		CreatedAt:     u.CreatedAt,
	}
}

func toProfileRequest(input application.ProfileInput) skynetapi.ActualizarPerfilRequest {
	return skynetapi.ActualizarPerfilRequest{
		Email:         strings.TrimSpace(input.Email),
		FirstName:     input.FirstName,
		MiddleName:    input.MiddleName,
		LastName:      input.LastName,
		SecondSurname: input.SecondSurname,
		Phone:         input.Phone,
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
