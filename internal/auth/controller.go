// Package auth drives login, registration and logout against the rental API
// and records the outcome in the caller's session.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"rentals/internal/apiclient"
	"rentals/internal/core"
)

const (
	MsgLoginFailed        = "Login failed. Please try again."
	MsgRegistrationFailed = "Registration failed. Please try again."
	MsgIncompleteResponse = "The server returned an incomplete response."
)

// API is the slice of the rental API the controller needs.
type API interface {
	Login(ctx context.Context, email, password string) (apiclient.AuthResponse, error)
	Register(ctx context.Context, profile core.Profile) (apiclient.AuthResponse, error)
}

// Session is where a successful authentication is recorded.
// *session.Handle implements it.
type Session interface {
	Set(ctx context.Context, token string, user core.User) error
	Clear(ctx context.Context) error
}

// Result is what a view needs to render the outcome of an attempt.
type Result struct {
	OK      bool
	Message string
	User    core.User
}

type Controller struct {
	api    API
	logger *slog.Logger
}

func NewController(api API, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{api: api, logger: logger}
}

// Login makes one attempt to authenticate. The session changes only when
// the API answers 2xx with both a token and a user.
func (c *Controller) Login(ctx context.Context, sess Session, email, password string) Result {
	if err := core.ValidateCredentials(email, password); err != nil {
		return Result{Message: validationMessage(err)}
	}

	resp, err := c.api.Login(ctx, email, password)
	if err != nil {
		c.logger.InfoContext(ctx, "Login rejected", "error", err)
		return Result{Message: apiclient.Message(err, MsgLoginFailed)}
	}
	return c.establish(ctx, sess, resp, "login")
}

// Register validates the profile locally, then makes one attempt to create
// the account. Success signs the user in.
func (c *Controller) Register(ctx context.Context, sess Session, profile core.Profile) Result {
	if err := profile.Validate(); err != nil {
		return Result{Message: err.Error()}
	}

	resp, err := c.api.Register(ctx, profile)
	if err != nil {
		c.logger.InfoContext(ctx, "Registration rejected", "error", err)
		return Result{Message: apiclient.Message(err, MsgRegistrationFailed)}
	}
	return c.establish(ctx, sess, resp, "register")
}

// Logout empties the session. The API keeps no server-side state to revoke.
func (c *Controller) Logout(ctx context.Context, sess Session) Result {
	if err := sess.Clear(ctx); err != nil {
		c.logger.ErrorContext(ctx, "Failed to clear session", "error", err)
		return Result{Message: "Logout failed. Please try again."}
	}
	return Result{OK: true}
}

func (c *Controller) establish(ctx context.Context, sess Session, resp apiclient.AuthResponse, op string) Result {
	err := sess.Set(ctx, resp.Token, resp.User)
	if errors.Is(err, core.ErrPartialSession) {
		c.logger.WarnContext(ctx, "Auth response lacks token or user", "operation", op)
		return Result{Message: MsgIncompleteResponse}
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to store session", "operation", op, "error", err)
		if op == "register" {
			return Result{Message: MsgRegistrationFailed}
		}
		return Result{Message: MsgLoginFailed}
	}
	return Result{OK: true, User: resp.User}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyEmail):
		return "Please enter your email."
	case errors.Is(err, core.ErrEmptyPassword):
		return "Please enter your password."
	default:
		return err.Error()
	}
}
