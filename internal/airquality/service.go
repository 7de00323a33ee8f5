package airquality

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

const tracerName = "github.com/ecowatch/ecowatch/internal/airquality"

// Provider defines the interface for air quality data providers.
type Provider interface {
	// FetchObservation fetches the current observation for a city. Errors
	// should be *FetchError so that a diagnostic can be shown to users.
	FetchObservation(ctx context.Context, city string) (*Observation, error)
}

// FetchError is a provider failure with a user-facing diagnostic.
// Kind is one of ErrNetwork, ErrProvider or ErrNotConfigured.
type FetchError struct {
	Kind       error
	Diagnostic string
	Cause      error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return e.Kind.Error() + ": " + e.Cause.Error()
	}
	return e.Kind.Error() + ": " + e.Diagnostic
}

func (e *FetchError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	// Provider is the air quality data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long a successful reading is reused (default: 10 minutes).
	CacheTTL time.Duration

	// CacheMaxEntries bounds the number of cached cities (default: 256).
	CacheMaxEntries int
}

// Service fetches readings through a provider with a bounded per-city cache.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	cache    *readingCache
	group    singleflight.Group
}

// NewService creates a new air quality service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	maxEntries := cfg.CacheMaxEntries
	if maxEntries <= 0 {
		maxEntries = 256
	}

	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		cache:    newReadingCache(cacheTTL, maxEntries),
	}
}

// FetchReading returns the current reading for a city. It never fails: every
// problem is reported as a reading with StatusError and a diagnostic.
// Successful readings are cached; concurrent calls for the same city share
// one provider request.
func (s *Service) FetchReading(ctx context.Context, city string) *Reading {
	city = strings.TrimSpace(city)
	if city == "" {
		return NewErrorReading(city, "City name is required.", ErrInvalidCity)
	}

	key := cacheKey(city)
	if cached, ok := s.cache.get(key); ok {
		r := *cached
		r.City = city
		r.Cached = true
		return &r
	}

	// The shared fetch outlives any single caller; the provider timeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.fetch(fetchCtx, key, city), nil
	})

	select {
	case res := <-ch:
		r := *res.Val.(*Reading)
		r.City = city
		return &r
	case <-ctx.Done():
		return errorReading(city, ctx.Err())
	}
}

func (s *Service) fetch(ctx context.Context, key, city string) *Reading {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "airquality.FetchReading")
	defer span.End()
	span.SetAttributes(attribute.String("city", city))

	start := time.Now()
	obs, err := s.provider.FetchObservation(ctx, city)
	if err != nil {
		reading := errorReading(city, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, reading.Diagnostic)
		s.logger.Warn().
			Err(err).
			Str("city", city).
			Dur("duration", time.Since(start)).
			Msg("air quality fetch failed")
		return reading
	}

	reading := NewOKReading(city, obs)
	s.cache.put(key, reading)

	s.logger.Info().
		Str("city", city).
		Int("aqi", obs.AQI).
		Int("pollutants", len(obs.Pollutants)).
		Dur("duration", time.Since(start)).
		Msg("air quality reading fetched")

	return reading
}

// errorReading maps a provider error to a reading with a diagnostic.
func errorReading(city string, err error) *Reading {
	var fe *FetchError
	if errors.As(err, &fe) {
		return NewErrorReading(city, fe.Diagnostic, err)
	}
	return NewErrorReading(city, "Network connection failed: "+err.Error(), errors.Join(ErrNetwork, err))
}

// InvalidateCache clears all cached readings.
func (s *Service) InvalidateCache() {
	s.cache.clear()
}

// CacheStatus represents the current state of the cache.
type CacheStatus struct {
	Entries    int
	MaxEntries int
	TTL        time.Duration
}

// CacheStatus returns information about the current cache state.
func (s *Service) CacheStatus() CacheStatus {
	return CacheStatus{
		Entries:    s.cache.len(),
		MaxEntries: s.cache.maxEntries,
		TTL:        s.cache.ttl,
	}
}
