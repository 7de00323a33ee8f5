// Package handler provides HTTP handlers for the ECOWatch API.
package handler

import (
	"net/http"
	"time"

	"github.com/ecowatch/ecowatch/internal/airquality"
	"github.com/ecowatch/ecowatch/internal/api/models"
	"github.com/ecowatch/ecowatch/internal/api/response"
	"github.com/ecowatch/ecowatch/internal/provider/resilience"
)

// ProviderHealthSource reports provider health. *resilience.Registry
// implements it.
type ProviderHealthSource interface {
	Snapshot() []resilience.ProviderHealth
}

// CacheStatusSource reports the reading cache state. *airquality.Service
// implements it.
type CacheStatusSource interface {
	CacheStatus() airquality.CacheStatus
}

// OpsConfig holds configuration for the ops endpoints.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Providers reports provider health. Optional.
	Providers ProviderHealthSource

	// Cache reports the reading cache. Optional.
	Cache CacheStatusSource

	// TokenConfigured reports whether the provider token is set. Without
	// it no reading can be fetched and the service is not ready.
	TokenConfigured bool

	// MailConfigured reports whether alert emails can be sent.
	MailConfigured bool
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
	now func() time.Time
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg, now: time.Now}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. The service is ready when the
// provider token is configured and no provider circuit is open.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.TokenConfigured {
		response.ServiceUnavailable(w, r, "API token not configured")
		return
	}
	for _, p := range h.providers() {
		if p.Condition() == resilience.ConditionDown {
			response.ServiceUnavailable(w, r, "provider "+p.Name+" circuit open")
			return
		}
	}
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
	})
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(h.now()),
		Subsystems: h.subsystems(),
		Providers:  []models.ProviderStatus{},
	}

	for _, p := range h.providers() {
		status.Providers = append(status.Providers, providerStatus(p))
	}

	if h.cfg.Cache != nil {
		cs := h.cfg.Cache.CacheStatus()
		status.Cache = models.CacheStatus{
			Entries:    cs.Entries,
			MaxEntries: cs.MaxEntries,
			TTL:        cs.TTL.String(),
		}
	}

	for _, s := range status.Subsystems {
		status.Status = worse(status.Status, s.Status)
	}
	for _, p := range status.Providers {
		status.Status = worse(status.Status, p.Status)
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) providers() []resilience.ProviderHealth {
	if h.cfg.Providers == nil {
		return nil
	}
	return h.cfg.Providers.Snapshot()
}

func (h *OpsHandler) subsystems() []models.SubsystemStatus {
	token := models.SubsystemStatus{Name: "waqi-token", Status: models.HealthStatusOK}
	if !h.cfg.TokenConfigured {
		token.Status = models.HealthStatusFail
		token.Detail = strPtr("API token not configured; readings cannot be fetched")
	}

	mail := models.SubsystemStatus{Name: "smtp", Status: models.HealthStatusOK}
	if !h.cfg.MailConfigured {
		mail.Status = models.HealthStatusDegraded
		mail.Detail = strPtr("Email credentials not configured; alert emails disabled")
	}

	return []models.SubsystemStatus{token, mail}
}

var conditionStatus = map[resilience.Condition]models.HealthStatus{
	resilience.ConditionUp:       models.HealthStatusOK,
	resilience.ConditionDegraded: models.HealthStatusDegraded,
	resilience.ConditionDown:     models.HealthStatusFail,
}

func providerStatus(p resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            p.Name,
		Status:              conditionStatus[p.Condition()],
		CircuitState:        p.CircuitState.String(),
		ConsecutiveFailures: int(p.ConsecutiveFailures),
		LastSuccessAt:       models.TimestampPtr(p.LastSuccessAt),
		LastFailureAt:       models.TimestampPtr(p.LastFailureAt),
	}
	if p.LastError != "" {
		ps.Message = strPtr(p.LastError)
	}
	return ps
}

var statusRank = map[models.HealthStatus]int{
	models.HealthStatusOK:       0,
	models.HealthStatusDegraded: 1,
	models.HealthStatusFail:     2,
}

func worse(a, b models.HealthStatus) models.HealthStatus {
	if statusRank[b] > statusRank[a] {
		return b
	}
	return a
}

func strPtr(s string) *string { return &s }
