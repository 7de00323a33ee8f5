package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ecowatch/ecowatch/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Requests per window
	RequestLimit int
	// Window duration
	WindowLength time.Duration
}

// Default rate limit configurations.
var (
	// AlertRateLimit applies to render requests that may send an alert
	// email (10 req/min).
	AlertRateLimit = RateLimitConfig{
		RequestLimit: 10,
		WindowLength: time.Minute,
	}

	// DashboardRateLimit applies to dashboard renders (60 req/min).
	DashboardRateLimit = RateLimitConfig{
		RequestLimit: 60,
		WindowLength: time.Minute,
	}

	// OpsRateLimit applies to health and status endpoints (120 req/min).
	OpsRateLimit = RateLimitConfig{
		RequestLimit: 120,
		WindowLength: time.Minute,
	}
)

// RateLimitByIP creates a rate limiter keyed by client IP. Behind a proxy,
// chi's RealIP middleware must run first.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(limitExceededHandler(cfg)),
	)
}

// RateLimitAlerts limits only requests carrying a non-empty email query
// parameter, i.e. renders that may send mail. Other requests pass through
// without consuming the budget.
func RateLimitAlerts(cfg RateLimitConfig) func(http.Handler) http.Handler {
	limiter := RateLimitByIP(cfg)
	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.TrimSpace(r.URL.Query().Get("email")) == "" {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

// limitExceededHandler writes an RFC7807 problem when a limit is hit.
// httprate does not expose the exact reset time, so Retry-After is the
// window length.
func limitExceededHandler(cfg RateLimitConfig) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(cfg.WindowLength.Round(time.Second).Seconds()))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", retryAfter)
		models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.").
			WithInstance(r.URL.Path).
			Write(w)
	}
}
