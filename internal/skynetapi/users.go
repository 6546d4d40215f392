package skynetapi

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/usuarios/login", "", loginRequest{Email: email, Password: password}, &out); err != nil {
		return AuthResponse{}, err
	}
	return out, nil
}

// RenewToken exchanges a still valid token for a fresh one.
func (c *Client) RenewToken(ctx context.Context, token string) (AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodGet, "/usuarios/renovartoken", token, nil, &out); err != nil {
		return AuthResponse{}, err
	}
	return out, nil
}

// MyProfile returns the token owner's profile.
func (c *Client) MyProfile(ctx context.Context, token string) (Usuario, error) {
	var out Usuario
	if err := c.do(ctx, http.MethodGet, "/usuarios/miperfil", token, nil, &out); err != nil {
		return Usuario{}, err
	}
	return out, nil
}

// UpdateMyProfile edits the token owner's profile.
func (c *Client) UpdateMyProfile(ctx context.Context, token string, req ActualizarPerfilRequest) error {
	return c.do(ctx, http.MethodPut, "/usuarios/miperfil", token, req, nil)
}

// RegisterUser creates a user account.
func (c *Client) RegisterUser(ctx context.Context, token string, req RegistrarUsuarioRequest) (AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/usuarios/registrar", token, req, &out); err != nil {
		return AuthResponse{}, err
	}
	return out, nil
}

// ListUsers returns every user.
func (c *Client) ListUsers(ctx context.Context, token string) ([]Usuario, error) {
	var out []Usuario
	if err := c.do(ctx, http.MethodGet, "/usuarios/todos", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AssignedTechnicians returns the technicians assigned to a supervisor.
func (c *Client) AssignedTechnicians(ctx context.Context, token, supervisorID string) ([]Usuario, error) {
	var out []Usuario
	if err := c.do(ctx, http.MethodGet, idPath("/usuarios/tecnicos-asignados/%s", supervisorID), token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUserProfile edits another user's profile, keyed by email.
func (c *Client) UpdateUserProfile(ctx context.Context, token string, req ActualizarPerfilRequest) error {
	return c.do(ctx, http.MethodPut, "/usuarios/perfil", token, req, nil)
}

// AssignRole adds a role to a user.
func (c *Client) AssignRole(ctx context.Context, token string, req RolRequest) error {
	return c.do(ctx, http.MethodPost, "/usuarios/asignarrol", token, req, nil)
}

// RemoveRole removes a role from a user.
func (c *Client) RemoveRole(ctx context.Context, token string, req RolRequest) error {
	return c.do(ctx, http.MethodPost, "/usuarios/removerrol", token, req, nil)
}

// UpdateUserStatus activates or deactivates a user.
func (c *Client) UpdateUserStatus(ctx context.Context, token string, req EstadoUsuarioRequest) error {
	return c.do(ctx, http.MethodPut, "/usuarios/actualizarstatus", token, req, nil)
}

// ChangePassword changes the token owner's password.
func (c *Client) ChangePassword(ctx context.Context, token string, req CambiarContraseniaRequest) error {
	return c.do(ctx, http.MethodPut, "/usuarios/cambiarcontrasenia", token, req, nil)
}

// ResetPassword sets another user's password.
func (c *Client) ResetPassword(ctx context.Context, token string, req RestablecerContraseniaRequest) error {
	return c.do(ctx, http.MethodPut, "/usuarios/restablecercontrasenia", token, req, nil)
}
