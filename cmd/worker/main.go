// Package main provides the entrypoint for the ECOWatch render worker. It
// runs render passes for Pub/Sub triggers and exposes a health endpoint.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ecowatch/ecowatch/internal/airquality"
	"github.com/ecowatch/ecowatch/internal/airquality/waqi"
	"github.com/ecowatch/ecowatch/internal/config"
	"github.com/ecowatch/ecowatch/internal/dashboard"
	"github.com/ecowatch/ecowatch/internal/notify"
	"github.com/ecowatch/ecowatch/internal/observability"
	"github.com/ecowatch/ecowatch/internal/telemetry"
	"github.com/ecowatch/ecowatch/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "ecowatch-worker"

	cfg, err := config.Load()
	if err != nil {
		startupLog := zerolog.New(os.Stderr)
		startupLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := zerolog.New(os.Stdout).
		Level(cfg.App.LogLevel).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting ECOWatch worker")

	if cfg.PubSub.ProjectID == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.FromConfig(cfg, serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	collector, err := observability.NewDashboardCollector(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register dashboard metrics")
	}

	dashboardCfg := dashboard.ServiceConfig{
		Readings: airquality.NewService(airquality.ServiceConfig{
			Provider: waqi.NewClient(waqi.ClientConfig{
				BaseURL: cfg.WAQI.BaseURL,
				Token:   cfg.WAQI.Token,
				Timeout: cfg.WAQI.Timeout,
				Logger:  log,
			}),
			Logger:          log,
			CacheTTL:        cfg.Cache.TTL,
			CacheMaxEntries: cfg.Cache.MaxEntries,
		}),
		DefaultCity: cfg.Dashboard.DefaultCity,
		Recorder:    collector,
		Logger:      log,
	}
	if cfg.Mail.Enabled() {
		dashboardCfg.Notifier = notify.NewSender(notify.Config{
			Host:        cfg.Mail.Host,
			Port:        cfg.Mail.Port,
			Username:    cfg.Mail.Username,
			Password:    cfg.Mail.Password,
			DialTimeout: cfg.Mail.DialTimeout,
			Logger:      log,
		})
	} else {
		log.Warn().Msg("SENDER_EMAIL or SENDER_PASSWORD not set - alert emails disabled")
	}

	handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        cfg.PubSub.ProjectID,
		SubscriptionName: cfg.PubSub.Subscription,
		Processor:        worker.NewProcessor(dashboard.NewService(dashboardCfg), log),
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}
	defer func() {
		if closeErr := handler.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close pubsub client")
		}
	}()

	// Cloud Run needs a listening port even for workers.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "version": Version}) //nolint:errcheck // best effort
	})
	mux.Handle("/metrics", collector.Handler())

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	done := make(chan error, 1)
	go func() {
		done <- handler.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("shutting down worker")
		cancel()
		if err := <-done; err != nil {
			log.Error().Err(err).Msg("receive loop stopped with error")
		}
	case err := <-done:
		if err != nil {
			log.Error().Err(err).Msg("receive loop failed")
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
