// Package cli holds the start-up steps shared by cmd/rentals, cmd/rentalctl
// and cmd/rentals-events.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"rentals/internal/backend"
	"rentals/internal/config"
	rlog "rentals/internal/log"
	"rentals/internal/session"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// makes it the slog default.
func SetupLogger(cfg *config.Config) *rlog.Logger {
	lc := rlog.DefaultConfig()
	lc.Level = rlog.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	logger := rlog.New(lc)
	rlog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration from the environment. Invalid
// configuration is fatal; every problem is reported at once.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		bootstrap := rlog.New(rlog.DefaultConfig())
		bootstrap.Error("Configuration validation failed",
			rlog.FieldErrorType, rlog.ErrorTypeConfiguration,
			rlog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenSessionStore creates the configured backend and wraps it in a Store.
// The returned func closes the backend.
func OpenSessionStore(ctx context.Context, cfg *config.Config, logger *rlog.Logger) (*session.Store, func(), error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	storeLogger := logger.WithComponent(rlog.ComponentSession)
	res, err := backend.NewFactory(logger.WithComponent(rlog.ComponentStorage).Slog()).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s session backend: %w", bcfg.Type, err)
	}

	store := session.NewStore(res.Backend, session.Options{
		TTL:       cfg.SessionTTL,
		CacheSize: cfg.SessionCacheSize,
		Logger:    storeLogger.Slog(),
	})
	cleanup := func() {
		if res.Cleanup == nil {
			return
		}
		if err := res.Cleanup(); err != nil {
			storeLogger.Warn("Failed to close session backend", rlog.FieldBackend, string(bcfg.Type), rlog.FieldError, err)
		}
	}
	storeLogger.Info("Session backend ready", rlog.FieldBackend, string(bcfg.Type))
	return store, cleanup, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. The
// shutdown line is logged only when a signal arrived; calling stop just
// releases the signal handler.
func SignalContext(logger *rlog.Logger) (ctx context.Context, stop context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigs:
			logger.Info("Shutdown signal received",
				rlog.FieldOperation, rlog.OpShutdown,
				"signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigs)
		cancel()
	}
}
