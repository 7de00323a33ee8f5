// Package resilience wraps outbound provider calls with a timeout and a
// circuit breaker, and tracks provider health for the ops endpoints.
package resilience

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig controls when a provider circuit opens. A zero rule field
// disables that rule, so the zero value never opens.
type BreakerConfig struct {
	// Name identifies the circuit in logs and the registry.
	Name string

	// ConsecutiveFailures opens the circuit after that many failures in a row.
	ConsecutiveFailures uint32

	// FailureRatio opens the circuit once at least MinRequests calls were
	// made in the current window and this share of them failed.
	MinRequests  uint32
	FailureRatio float64

	// OpenFor is how long the circuit stays open before a single probe
	// request is let through (default: 30s).
	OpenFor time.Duration

	// Logger receives state changes.
	Logger zerolog.Logger
}

// DefaultBreakerConfig opens after 3 consecutive failures or a 50% failure
// rate over at least 5 calls.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:                name,
		ConsecutiveFailures: 3,
		MinRequests:         5,
		FailureRatio:        0.5,
		OpenFor:             30 * time.Second,
		Logger:              zerolog.Nop(),
	}
}

// ShouldOpen applies the rules to the breaker counts.
func (c BreakerConfig) ShouldOpen(counts gobreaker.Counts) bool {
	if c.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= c.ConsecutiveFailures {
		return true
	}
	if c.FailureRatio <= 0 || counts.Requests == 0 || counts.Requests < c.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

func newBreaker[T any](cfg BreakerConfig) *gobreaker.CircuitBreaker[T] {
	openFor := cfg.OpenFor
	if openFor == 0 {
		openFor = 30 * time.Second
	}
	logger := cfg.Logger

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: cfg.ShouldOpen,
		OnStateChange: func(name string, from, to gobreaker.State) {
			event := logger.Warn()
			if to == gobreaker.StateClosed {
				event = logger.Info()
			}
			event.
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}
