package api

import (
	"context"
	"net/http"
)

// Health checks if the API is healthy
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var health HealthStatus
	if err := c.getJSON(ctx, http.MethodGet, "/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Login exchanges credentials for a token which is used for later requests
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.getJSON(ctx, http.MethodPost, "/api/v1/auth/login", LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}

	c.token = resp.Token
	return &resp, nil
}
