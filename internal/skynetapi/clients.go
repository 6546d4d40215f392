package skynetapi

import (
	"context"
	"net/http"
)

// ListClients returns all clients, active and inactive.
func (c *Client) ListClients(ctx context.Context, token string) ([]Cliente, error) {
	var out []Cliente
	if err := c.do(ctx, http.MethodGet, "/clientes", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetClient fetches a single client.
func (c *Client) GetClient(ctx context.Context, token string, id int64) (Cliente, error) {
	var out Cliente
	if err := c.do(ctx, http.MethodGet, idPath("/clientes/%s", id), token, nil, &out); err != nil {
		return Cliente{}, err
	}
	return out, nil
}

// CreateClient registers a new client.
func (c *Client) CreateClient(ctx context.Context, token string, req CrearClienteRequest) (Cliente, error) {
	var out Cliente
	if err := c.do(ctx, http.MethodPost, "/clientes", token, req, &out); err != nil {
		return Cliente{}, err
	}
	return out, nil
}

// UpdateClient replaces a client's fields.
func (c *Client) UpdateClient(ctx context.Context, token string, id int64, req CrearClienteRequest) error {
	return c.do(ctx, http.MethodPut, idPath("/clientes/%s", id), token, req, nil)
}

// DeactivateClient soft deletes a client; the server only clears its active flag.
func (c *Client) DeactivateClient(ctx context.Context, token string, id int64) error {
	return c.do(ctx, http.MethodDelete, idPath("/clientes/%s", id), token, nil, nil)
}
