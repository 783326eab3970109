package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"rentals/internal/amqp"
	"rentals/internal/cli"
	"rentals/internal/config"
	"rentals/internal/events"
	rlog "rentals/internal/log"
	"rentals/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg).WithComponent(rlog.ComponentEvents)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required to consume activity events",
			rlog.FieldErrorType, rlog.ErrorTypeConfiguration)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *rlog.Logger) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.Slog())
	if err != nil {
		logger.Error("Failed to initialize AMQP client", rlog.FieldError, err)
		return err
	}
	defer client.Close()

	activity := worker.NewActivityWorker(logger.Slog())
	logger.Info("Consuming activity events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.Consume(gctx, events.Dispatch(activity.HandleEvent))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return activity.ReportEvery(gctx, 5*time.Minute)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Event consumer stopped", rlog.FieldError, err)
		return err
	}
	logger.Info("Event consumer stopped")
	return nil
}
