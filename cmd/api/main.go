// Package main provides the entrypoint for the ECOWatch API server.
package main

import (
	"context"
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
	"github.com/ecowatch/ecowatch/internal/api"
	"github.com/ecowatch/ecowatch/internal/api/handler"
	"github.com/ecowatch/ecowatch/internal/api/middleware"
	"github.com/ecowatch/ecowatch/internal/api/view"
	"github.com/ecowatch/ecowatch/internal/config"
	"github.com/ecowatch/ecowatch/internal/dashboard"
	"github.com/ecowatch/ecowatch/internal/notify"
	"github.com/ecowatch/ecowatch/internal/observability"
	"github.com/ecowatch/ecowatch/internal/provider/resilience"
	"github.com/ecowatch/ecowatch/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "ecowatch-api"

	cfg, err := config.Load()
	if err != nil {
		startupLog := zerolog.New(os.Stderr)
		startupLog.Fatal().Err(err).Msg("invalid configuration")
	}

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		Level(cfg.App.LogLevel).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.App.Env).
		Msg("starting ECOWatch API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.FromConfig(cfg, serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Float64("sample_ratio", cfg.Telemetry.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	collector, err := observability.NewDashboardCollector(prometheus.DefaultRegisterer)
	if err != nil {
		log.Error().Err(err).Msg("failed to register dashboard metrics")
		os.Exit(1)
	}

	// Air quality provider behind the resilience registry
	registry := resilience.NewRegistry()
	if cfg.WAQI.Token == "" {
		log.Warn().Msg("API_TOKEN not set - readings will fail until it is configured")
	}
	airQuality := airquality.NewService(airquality.ServiceConfig{
		Provider: waqi.NewClient(waqi.ClientConfig{
			BaseURL:  cfg.WAQI.BaseURL,
			Token:    cfg.WAQI.Token,
			Timeout:  cfg.WAQI.Timeout,
			Registry: registry,
			Logger:   log,
		}),
		Logger:          log,
		CacheTTL:        cfg.Cache.TTL,
		CacheMaxEntries: cfg.Cache.MaxEntries,
	})

	dashboardCfg := dashboard.ServiceConfig{
		Readings:    airQuality,
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
		log.Info().Str("smtp_host", cfg.Mail.Host).Msg("alert emails enabled")
	} else {
		log.Warn().Msg("SENDER_EMAIL or SENDER_PASSWORD not set - alert emails disabled")
	}
	dashboardService := dashboard.NewService(dashboardCfg)

	page, err := view.NewPage(view.PageConfig{
		StylesheetPath: cfg.Dashboard.StylesheetPath,
		Logger:         log,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to load dashboard template")
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		Dashboard:   dashboardService,
		Page:        page,
		Ops: handler.OpsConfig{
			Version:         Version,
			BuildTime:       BuildTime,
			Providers:       registry,
			Cache:           airQuality,
			TokenConfigured: cfg.WAQI.Token != "",
			MailConfigured:  cfg.Mail.Enabled(),
		},
		PrometheusHandler: collector.Handler(),
		RequireTLS:        cfg.App.RequireTLS,
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
