package apiclient

import (
	"context"
	"net/http"

	"rentals/internal/core"
)

// AuthResponse is what login and register answer with on success.
type AuthResponse struct {
	Token string    `json:"token"`
	User  core.User `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Password: password}, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, profile core.Profile) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", nil, profile, &out)
	return out, err
}
