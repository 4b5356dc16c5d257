package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"relay/internal/api/v1/router"
	"relay/internal/config"
	"relay/internal/forwarder"
	"relay/internal/logger"
	"relay/internal/metrics"
	"relay/internal/pubsub"
	"relay/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	// Parse mode flag
	mode := flag.String("mode", "push", "Trigger mode: push|pull")
	flag.Parse()

	// Load environment variables
	envErr := godotenv.Load()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logger.New("", "")
		bootLogger.Fatal().Msgf("Error loading config: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.Environment, cfg.LogLevel)
	if envErr != nil {
		logger.Debug().Msg("No .env file found, relying on process environment")
	}

	if err := run(*mode, cfg, logger); err != nil {
		logger.Fatal().Msgf("%s relay failed: %v", *mode, err)
	}
	logger.Info().Msgf("%s relay stopped gracefully", *mode)
}

// run owns every resource the relay opens, so its deferred cleanups always
// execute before main decides the exit status.
func run(mode string, cfg *config.Config, logger zerolog.Logger) error {
	if mode != "push" && mode != "pull" {
		return fmt.Errorf("invalid mode %q: want push or pull", mode)
	}

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	webhookURL, err := service.ResolveWebhookURL(ctx, cfg, service.NewSecretManagerService)
	if err != nil {
		return fmt.Errorf("resolve webhook URL: %w", err)
	}
	if webhookURL == "" {
		logger.Warn().Msg("No webhook configured; events will be validated but not forwarded")
	}

	exporter, err := metrics.NewExporter("snapshot-relay")
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}
	defer func() {
		if err := exporter.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Failed to shut down metrics exporter")
		}
	}()

	fwd := forwarder.New(
		webhookURL,
		forwarder.NewWebhookClient(cfg.WebhookTimeout(), logger),
		logger,
		forwarder.WithRecorder(exporter),
	)

	// Dispatch to the selected trigger runtime
	if mode == "pull" {
		return runPull(ctx, cfg, fwd, logger)
	}
	return runPush(ctx, cfg, fwd, exporter.Handler(), logger)
}

func runPush(ctx context.Context, cfg *config.Config, fwd *forwarder.Forwarder, metricsHandler http.Handler, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(cfg, fwd, metricsHandler, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Push server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutdown signal received, exiting...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runPull(ctx context.Context, cfg *config.Config, fwd *forwarder.Forwarder, logger zerolog.Logger) error {
	client, err := pubsub.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Msgf("Failed to close pubsub client: %v", err)
		}
	}()

	sub := pubsub.NewSubscriber(client, cfg.PubSubSubscription, cfg.PubSubMaxOutstanding, fwd, logger)
	return sub.Run(ctx)
}
