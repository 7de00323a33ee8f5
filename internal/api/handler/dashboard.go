package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/ecowatch/ecowatch/internal/api/models"
	"github.com/ecowatch/ecowatch/internal/api/response"
	"github.com/ecowatch/ecowatch/internal/dashboard"
)

// Renderer runs dashboard render passes. *dashboard.Service implements it.
type Renderer interface {
	Validate(req dashboard.Request) error
	Render(ctx context.Context, req dashboard.Request) *dashboard.View
}

// PageRenderer writes the HTML dashboard. *view.Page implements it.
type PageRenderer interface {
	Render(w io.Writer, req dashboard.Request, v *dashboard.View) error
}

// DashboardHandler serves the dashboard as JSON and as an HTML page.
type DashboardHandler struct {
	renderer Renderer
	page     PageRenderer
}

// NewDashboardHandler creates a new DashboardHandler. page may be nil when
// only the JSON endpoint is routed.
func NewDashboardHandler(renderer Renderer, page PageRenderer) *DashboardHandler {
	return &DashboardHandler{renderer: renderer, page: page}
}

func requestFromQuery(r *http.Request) dashboard.Request {
	q := r.URL.Query()
	return dashboard.Request{City: q.Get("city"), Email: q.Get("email")}
}

// GetDashboard handles GET /v1/dashboard. Fetch failures are reported in
// the body with status 200; only invalid input is a 400.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	req := requestFromQuery(r)
	if err := h.renderer.Validate(req); err != nil {
		writeValidationError(w, r, err)
		return
	}

	v := h.renderer.Render(r.Context(), req)
	response.JSON(w, r, http.StatusOK, toDashboardModel(v))
}

// Page handles GET / and renders the HTML dashboard.
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	req := requestFromQuery(r)
	status := http.StatusOK
	if err := h.renderer.Validate(req); err != nil {
		status = http.StatusBadRequest
	}

	v := h.renderer.Render(r.Context(), req)
	response.HTML(w, r, status, func(out io.Writer) error {
		return h.page.Render(out, req, v)
	})
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *dashboard.ValidationError
	if !errors.As(err, &verr) {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	fields := make([]models.FieldError, 0, len(verr.Issues))
	for _, issue := range verr.Issues {
		fields = append(fields, models.FieldError{
			Field:   issue.Field,
			Message: issue.Message,
			Code:    issue.Code,
		})
	}
	response.BadRequest(w, r, "The request contains invalid fields", fields)
}

func toDashboardModel(v *dashboard.View) models.Dashboard {
	out := models.Dashboard{
		City:        v.City,
		GeneratedAt: models.Timestamp(v.GeneratedAt),
	}
	if !v.OK() {
		msg := v.Error
		out.Error = &msg
		return out
	}

	p := v.Panels
	reading := &models.DashboardReading{
		CityLabel:   p.CityLabel,
		AQI:         p.AQI,
		Band:        models.AQIBand{Name: p.Band.Name, Color: p.Band.Color, Beacon: p.Band.Beacon},
		Coordinates: models.Point{Lat: p.Coordinates.Lat, Lon: p.Coordinates.Lon},
		Pollutants:  make([]models.PollutantValue, 0, len(p.Pollutants)),
		Alerts:      p.Alerts,
		SourceMix:   make([]models.SourceShare, 0, len(p.SourceMix)),
		Fingerprint: make([]models.FingerprintBar, 0, len(p.Fingerprint)),
		Trend:       make([]models.TrendPoint, 0, len(p.Trend)),
		MapURL:      p.MapURL,
		WindMapURL:  dashboard.WindMapURL,
		Fact:        p.Fact,
		Cached:      p.Cached,
		FetchedAt:   models.Timestamp(p.FetchedAt),
	}
	if reading.Alerts == nil {
		reading.Alerts = []string{}
	}

	for _, c := range p.Pollutants {
		reading.Pollutants = append(reading.Pollutants, models.PollutantValue{
			Pollutant: c.Label,
			Value:     c.Value,
			Display:   c.Display,
		})
	}
	for _, s := range p.SourceMix {
		reading.SourceMix = append(reading.SourceMix, models.SourceShare{
			Category: string(s.Category),
			Percent:  s.Percent,
		})
	}
	for _, b := range p.Fingerprint {
		reading.Fingerprint = append(reading.Fingerprint, models.FingerprintBar{
			Pollutant:     b.Pollutant,
			Concentration: b.Concentration,
		})
	}
	for _, t := range p.Trend {
		reading.Trend = append(reading.Trend, models.TrendPoint{Day: t.Day, PM25: t.PM25})
	}

	if n := p.Notification; n != nil {
		an := &models.AlertNotification{Attempted: n.Attempted, Sent: n.Sent}
		if n.Error != "" {
			msg := n.Error
			an.Error = &msg
		}
		reading.Notification = an
	}

	out.Reading = reading
	return out
}
