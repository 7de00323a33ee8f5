package middleware

import (
	"net/http"

	"github.com/ecowatch/ecowatch/internal/api/models"
)

// Content security policies.
const (
	// APIPolicy allows nothing; JSON responses load no resources.
	APIPolicy = "default-src 'none'; frame-ancestors 'none'"

	// PagePolicy allows the inlined stylesheet, inline SVG charts and the
	// embedded AQI and wind maps.
	PagePolicy = "default-src 'none'; style-src 'unsafe-inline'; img-src 'self' data:; " +
		"frame-src https://waqi.info https://earth.nullschool.net; frame-ancestors 'none'; " +
		"form-action 'self'; base-uri 'none'"
)

// ProblemTypeTLSRequired is returned when a plain HTTP request is rejected.
const ProblemTypeTLSRequired = "https://ecowatch.app/problems/tls-required"

// SecurityHeaders returns a middleware that adds standard security headers
// with the given Content-Security-Policy.
func SecurityHeaders(policy string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			h.Set("Content-Security-Policy", policy)
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")

			next.ServeHTTP(w, r)
		})
	}
}

// RequireTLS rejects requests whose X-Forwarded-Proto (set by the load
// balancer) is not https. It is a no-op when disabled.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			proto := r.Header.Get("X-Forwarded-Proto")
			if proto != "" && proto != "https" {
				models.NewProblem(ProblemTypeTLSRequired, "TLS required", http.StatusForbidden, GetRequestID(r.Context())).
					WithDetail("This endpoint requires HTTPS").
					WithInstance(r.URL.Path).
					Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
