package skynetapi

import (
	"context"
	"net/http"
)

// ListVisits returns every visit visible to the token's owner.
func (c *Client) ListVisits(ctx context.Context, token string) ([]Visita, error) {
	var out []Visita
	if err := c.do(ctx, http.MethodGet, "/visitas", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListVisitsByTechnician returns the visits assigned to a technician.
func (c *Client) ListVisitsByTechnician(ctx context.Context, token, technicianID string) ([]Visita, error) {
	var out []Visita
	if err := c.do(ctx, http.MethodGet, idPath("/visitas/tecnico/%s", technicianID), token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListVisitsBySupervisor returns the visits overseen by a supervisor.
func (c *Client) ListVisitsBySupervisor(ctx context.Context, token, supervisorID string) ([]Visita, error) {
	var out []Visita
	if err := c.do(ctx, http.MethodGet, idPath("/visitas/supervisor/%s", supervisorID), token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListVisitsByClient returns the visits scheduled for a client.
func (c *Client) ListVisitsByClient(ctx context.Context, token string, clientID int64) ([]Visita, error) {
	var out []Visita
	if err := c.do(ctx, http.MethodGet, idPath("/visitas/cliente/%s", clientID), token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetVisit fetches a single visit.
func (c *Client) GetVisit(ctx context.Context, token string, id int64) (Visita, error) {
	var out Visita
	if err := c.do(ctx, http.MethodGet, idPath("/visitas/%s", id), token, nil, &out); err != nil {
		return Visita{}, err
	}
	return out, nil
}

// GetVisitDetail fetches a visit together with its client.
func (c *Client) GetVisitDetail(ctx context.Context, token string, id int64) (VisitaDetalle, error) {
	var out VisitaDetalle
	if err := c.do(ctx, http.MethodGet, idPath("/visitas/%s/detalle", id), token, nil, &out); err != nil {
		return VisitaDetalle{}, err
	}
	return out, nil
}

// CreateVisit schedules a new visit.
func (c *Client) CreateVisit(ctx context.Context, token string, req CrearVisitaRequest) (Visita, error) {
	var out Visita
	if err := c.do(ctx, http.MethodPost, "/visitas", token, req, &out); err != nil {
		return Visita{}, err
	}
	return out, nil
}

// UpdateVisit replaces the editable fields of a visit.
func (c *Client) UpdateVisit(ctx context.Context, token string, id int64, req CrearVisitaRequest) error {
	return c.do(ctx, http.MethodPut, idPath("/visitas/%s", id), token, req, nil)
}

// UpdateVisitStatus sets the visit status without touching other fields.
func (c *Client) UpdateVisitStatus(ctx context.Context, token string, id int64, statusID int) error {
	return c.do(ctx, http.MethodPatch, idPath("/visitas/%s/estado/%s", id, statusID), token, nil, nil)
}

// RegisterVisit records real start/end and observations and returns the registration id.
func (c *Client) RegisterVisit(ctx context.Context, token string, id int64, req RegistrarVisitaRequest) (int64, error) {
	var registrationID int64
	if err := c.do(ctx, http.MethodPost, idPath("/visitas/%s/registrar", id), token, req, &registrationID); err != nil {
		return 0, err
	}
	return registrationID, nil
}

// DeleteVisit permanently removes a visit.
func (c *Client) DeleteVisit(ctx context.Context, token string, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath("/visitas/%s", id), token, nil, nil)
}
