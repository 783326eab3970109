// Package commands implements the rentalctl subcommands. The CLI keeps one
// session in the configured backend and applies the same route rules as the
// web client before any protected call.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"rentals/internal/apiclient"
	"rentals/internal/auth"
	"rentals/internal/cli"
	"rentals/internal/guard"
	rlog "rentals/internal/log"
	"rentals/internal/session"
)

// SessionID is the key the CLI session is stored under.
const SessionID = "rentalctl"

var (
	ErrNotLoggedIn    = errors.New("not logged in: run `rentalctl login` first")
	ErrSessionExpired = errors.New("session expired: run `rentalctl login` again")
)

// App is the state shared by every command. Fields left nil are built from
// the environment on first use.
type App struct {
	Sessions *session.Store
	API      *apiclient.Client
	Logger   *rlog.Logger

	auth    *auth.Controller
	cleanup func()
}

func (a *App) init(ctx context.Context) error {
	if a.Sessions == nil || a.API == nil || a.Logger == nil {
		cli.LoadEnvFile()
		cfg := cli.LoadAndValidateConfig()
		if a.Logger == nil {
			cfg.LogLevel = "warn"
			a.Logger = cli.SetupLogger(cfg).WithComponent(rlog.ComponentCLI)
		}
		if a.Sessions == nil {
			store, cleanup, err := cli.OpenSessionStore(ctx, cfg, a.Logger)
			if err != nil {
				return err
			}
			a.Sessions, a.cleanup = store, cleanup
		}
		if a.API == nil {
			a.API = apiclient.New(cfg.APIBaseURL, nil, a.Logger.WithComponent(rlog.ComponentAPIClient).Slog())
		}
	}
	a.auth = auth.NewController(a.API, a.Logger.WithComponent(rlog.ComponentAuth).Slog())
	return nil
}

// Close releases the session backend opened by init.
func (a *App) Close() {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
}

func (a *App) handle() *session.Handle {
	return a.Sessions.Handle(SessionID)
}

// authorize runs the route guard for route and returns a client carrying
// the session token.
func (a *App) authorize(ctx context.Context, route string) (*apiclient.Client, error) {
	sess := a.handle().Session(ctx)
	if d := guard.Evaluate(sess.Present(), route); !d.Allow {
		return nil, ErrNotLoggedIn
	}
	return a.API.WithToken(sess.Token), nil
}

// apiError turns a failed call into what the user sees. A rejected token
// ends the session.
func (a *App) apiError(ctx context.Context, err error, fallback string) error {
	if apiclient.IsUnauthorized(err) && a.handle().Present(ctx) {
		if clearErr := a.handle().Clear(ctx); clearErr != nil {
			a.Logger.Warn("Failed to clear rejected session", rlog.FieldError, clearErr)
		}
		return ErrSessionExpired
	}
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return errors.New(apiclient.Message(err, fallback))
	}
	return err
}

// NewRootCmd assembles rentalctl.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "rentalctl",
		Short:         "Browse, list and rent properties from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd.Context())
		},
	}

	root.AddCommand(
		LoginCmd(app),
		RegisterCmd(app),
		LogoutCmd(app),
		WhoamiCmd(app),
		PropertiesCmd(app),
		RentCmd(app),
		TransactionsCmd(app),
	)
	return root
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
