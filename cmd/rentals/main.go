package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"rentals/internal/apiclient"
	"rentals/internal/cli"
	"rentals/internal/config"
	"rentals/internal/events"
	apphttp "rentals/internal/http"
	rlog "rentals/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)

	if err := run(cfg, logger); err != nil {
		os.Exit(1)
	}
}

// run owns every resource the server opens, so its defers have finished by
// the time main exits.
func run(cfg *config.Config, logger *rlog.Logger) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	store, closeStore, err := cli.OpenSessionStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open session store",
			rlog.FieldBackend, cfg.SessionBackend,
			rlog.FieldErrorType, rlog.ErrorTypeDatabase,
			rlog.FieldError, err)
		return err
	}
	defer closeStore()

	// Sessions written before a restart are served from memory straight away.
	if n, err := store.Hydrate(ctx); err != nil {
		logger.Warn("Failed to hydrate sessions", rlog.FieldOperation, rlog.OpHydrate, rlog.FieldError, err)
	} else {
		logger.Info("Sessions hydrated", rlog.FieldOperation, rlog.OpHydrate, "count", n)
	}

	publisher := events.Connect(cfg.AMQPURL, cfg.AMQPExchange, logger.WithComponent(rlog.ComponentEvents).Slog())
	defer publisher.Close()

	api := apiclient.New(cfg.APIBaseURL, nil, logger.WithComponent(rlog.ComponentAPIClient).Slog())

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Sessions:     store,
		API:          api,
		Events:       publisher,
		Logger:       logger,
		CookieSecure: cfg.CookieSecure,
		RateLimit:    cfg.RateLimit,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", rlog.FieldError, err)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting rentals server",
			"port", cfg.Port,
			rlog.FieldBackend, cfg.SessionBackend,
			rlog.FieldEndpoint, cfg.APIBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return store.Run(gctx, cfg.SessionSweepInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", rlog.FieldError, err)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
