// Package observability exposes Prometheus metrics for dashboard render
// passes and alert emails.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Render outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeFetchError = "fetch_error"
	OutcomeInvalid    = "invalid"
)

// Notification results.
const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationSkipped = "skipped"
)

// DashboardCollector bundles the domain metrics served on /metrics.
type DashboardCollector struct {
	gatherer prometheus.Gatherer

	Renders        *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec
	CacheLookups   *prometheus.CounterVec
	Alerts         prometheus.Counter
	Notifications  *prometheus.CounterVec
}

// NewDashboardCollector registers the dashboard metrics against reg,
// defaulting to the global Prometheus registry when nil. Registering twice
// against the same registry returns the existing collectors.
func NewDashboardCollector(reg prometheus.Registerer) (*DashboardCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	renders, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ecowatch_renders_total",
		Help: "Dashboard render passes, labeled by outcome.",
	}, []string{"outcome"}), "ecowatch_renders_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ecowatch_render_duration_seconds",
		Help:    "Dashboard render pass latency in seconds, including fetch and mail send.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	}, []string{"outcome"}), "ecowatch_render_duration_seconds")
	if err != nil {
		return nil, err
	}

	lookups, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ecowatch_reading_cache_lookups_total",
		Help: "Reading cache lookups for successful fetches, labeled hit or miss.",
	}, []string{"result"}), "ecowatch_reading_cache_lookups_total")
	if err != nil {
		return nil, err
	}

	alerts, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ecowatch_threshold_alerts_total",
		Help: "Pollutant threshold exceedances found across render passes.",
	}), "ecowatch_threshold_alerts_total")
	if err != nil {
		return nil, err
	}

	notifications, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ecowatch_alert_emails_total",
		Help: "Alert email attempts, labeled by result.",
	}, []string{"result"}), "ecowatch_alert_emails_total")
	if err != nil {
		return nil, err
	}

	return &DashboardCollector{
		gatherer:       gatherer,
		Renders:        renders,
		RenderDuration: durations,
		CacheLookups:   lookups,
		Alerts:         alerts,
		Notifications:  notifications,
	}, nil
}

// ObserveRender records one render pass.
func (c *DashboardCollector) ObserveRender(outcome string, cached bool, alerts int, d time.Duration) {
	if c == nil {
		return
	}
	c.Renders.WithLabelValues(outcome).Inc()
	c.RenderDuration.WithLabelValues(outcome).Observe(d.Seconds())
	if outcome == OutcomeOK {
		result := "miss"
		if cached {
			result = "hit"
		}
		c.CacheLookups.WithLabelValues(result).Inc()
	}
	if alerts > 0 {
		c.Alerts.Add(float64(alerts))
	}
}

// ObserveNotification records an alert email attempt.
func (c *DashboardCollector) ObserveNotification(result string) {
	if c == nil {
		return
	}
	c.Notifications.WithLabelValues(result).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *DashboardCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}
