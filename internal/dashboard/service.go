// Package dashboard runs render passes: fetch a reading, evaluate alerts,
// send at most one alert email and compose the dashboard view.
package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecowatch/ecowatch/internal/airquality"
	"github.com/ecowatch/ecowatch/internal/notify"
	"github.com/ecowatch/ecowatch/internal/observability"
)

// DefaultCity is used when a request names no city.
const DefaultCity = "Bangalore"

// ReadingFetcher returns the current reading for a city. It never fails;
// problems are reported in the reading.
type ReadingFetcher interface {
	FetchReading(ctx context.Context, city string) *airquality.Reading
}

// Notifier sends an alert email.
type Notifier interface {
	SendAlert(ctx context.Context, to, city string, lines []string) error
}

// Recorder receives render metrics. *observability.DashboardCollector
// implements it.
type Recorder interface {
	ObserveRender(outcome string, cached bool, alerts int, d time.Duration)
	ObserveNotification(result string)
}

// ServiceConfig holds configuration for the dashboard service.
type ServiceConfig struct {
	// Readings supplies air quality readings.
	Readings ReadingFetcher

	// Notifier sends alert emails. If nil, alerts are never emailed.
	Notifier Notifier

	// Thresholds overrides the built-in pollutant limits.
	Thresholds airquality.ThresholdTable

	// DefaultCity replaces an empty city (default: Bangalore).
	DefaultCity string

	// Recorder receives metrics. Optional.
	Recorder Recorder

	// Logger for render operations.
	Logger zerolog.Logger
}

// Service composes dashboard views.
type Service struct {
	readings    ReadingFetcher
	notifier    Notifier
	thresholds  airquality.ThresholdTable
	defaultCity string
	recorder    Recorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewService creates a new dashboard service.
func NewService(cfg ServiceConfig) *Service {
	thresholds := cfg.Thresholds
	if thresholds == nil {
		thresholds = airquality.DefaultThresholds()
	}
	defaultCity := cfg.DefaultCity
	if defaultCity == "" {
		defaultCity = DefaultCity
	}

	return &Service{
		readings:    cfg.Readings,
		notifier:    cfg.Notifier,
		thresholds:  thresholds,
		defaultCity: defaultCity,
		recorder:    cfg.Recorder,
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// Normalize trims the request and applies the default city.
func (s *Service) Normalize(req Request) Request {
	return normalize(req, s.defaultCity)
}

// Validate normalizes and checks a request. Failures wrap ErrInvalidRequest
// and are *ValidationError when field details are available.
func (s *Service) Validate(req Request) error {
	return validateRequest(s.Normalize(req))
}

// Render runs one render pass. It performs one fetch and at most one email
// send; neither a failed fetch nor a failed send is returned as an error.
// The view carries the fetch diagnostic or the panels.
func (s *Service) Render(ctx context.Context, req Request) *View {
	start := time.Now()
	req = s.Normalize(req)

	if err := validateRequest(req); err != nil {
		s.observeRender(observability.OutcomeInvalid, false, 0, start)
		return &View{
			City:        req.City,
			Error:       err.Error(),
			GeneratedAt: s.now(),
		}
	}

	reading := s.readings.FetchReading(ctx, req.City)
	if !reading.OK() {
		s.observeRender(observability.OutcomeFetchError, false, 0, start)
		return &View{
			City:        req.City,
			Error:       "Could not fetch AQI data for '" + req.City + "'. Reason: " + reading.Diagnostic,
			GeneratedAt: s.now(),
		}
	}

	obs := reading.Observation
	alerts := airquality.EvaluateAlerts(obs.Pollutants, s.thresholds)

	panels := &Panels{
		CityLabel:   obs.CityLabel,
		AQI:         obs.AQI,
		Band:        airquality.BandFor(obs.AQI),
		Coordinates: obs.Coordinates,
		Pollutants:  pollutantCards(obs.Pollutants),
		Alerts:      alerts,
		SourceMix:   airquality.EstimateSourceMix(obs.Pollutants),
		Fingerprint: airquality.Fingerprint(obs.Pollutants),
		Trend:       airquality.SampleTrend(req.City),
		MapURL:      MapURL(obs.Coordinates),
		Fact:        Fact,
		Cached:      reading.Cached,
		FetchedAt:   reading.FetchedAt,
	}

	if len(alerts) > 0 {
		panels.Notification = s.notify(ctx, req, alerts)
	}

	s.observeRender(observability.OutcomeOK, reading.Cached, len(alerts), start)
	s.logger.Debug().
		Str("city", req.City).
		Int("aqi", obs.AQI).
		Int("alerts", len(alerts)).
		Bool("cached", reading.Cached).
		Msg("dashboard rendered")

	return &View{
		City:        req.City,
		Panels:      panels,
		GeneratedAt: s.now(),
	}
}

// notify sends the alert email when a recipient was supplied. A nil result
// means no send was attempted.
func (s *Service) notify(ctx context.Context, req Request, alerts []string) *Notification {
	if req.Email == "" {
		return nil
	}
	if s.notifier == nil {
		s.observeNotification(observability.NotificationSkipped)
		return &Notification{
			Recipient: req.Email,
			Error:     "Email credentials not configured. Cannot send alert.",
		}
	}

	n := &Notification{Attempted: true, Recipient: req.Email}
	err := s.notifier.SendAlert(ctx, req.Email, req.City, alerts)
	switch {
	case err == nil:
		n.Sent = true
		s.observeNotification(observability.NotificationSent)
	case errors.Is(err, notify.ErrNotConfigured):
		n.Attempted = false
		n.Error = "Email credentials not configured. Cannot send alert."
		s.observeNotification(observability.NotificationSkipped)
	default:
		n.Error = "Failed to send email: " + err.Error()
		s.observeNotification(observability.NotificationFailed)
		s.logger.Warn().
			Err(err).
			Str("city", req.City).
			Msg("alert email not delivered")
	}
	return n
}

func (s *Service) observeRender(outcome string, cached bool, alerts int, start time.Time) {
	if s.recorder != nil {
		s.recorder.ObserveRender(outcome, cached, alerts, time.Since(start))
	}
}

func (s *Service) observeNotification(result string) {
	if s.recorder != nil {
		s.recorder.ObserveNotification(result)
	}
}
