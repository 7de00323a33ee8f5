package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecowatch/ecowatch/internal/airquality"
	"github.com/ecowatch/ecowatch/internal/api/handler"
	"github.com/ecowatch/ecowatch/internal/api/models"
	"github.com/ecowatch/ecowatch/internal/dashboard"
)

type fakeRenderer struct {
	validateErr error
	view        *dashboard.View
	rendered    []dashboard.Request
}

func (f *fakeRenderer) Validate(dashboard.Request) error { return f.validateErr }

func (f *fakeRenderer) Render(_ context.Context, req dashboard.Request) *dashboard.View {
	f.rendered = append(f.rendered, req)
	return f.view
}

type fakePage struct {
	err  error
	seen *dashboard.View
}

func (f *fakePage) Render(w io.Writer, _ dashboard.Request, v *dashboard.View) error {
	f.seen = v
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, "<html>"+v.City+"</html>")
	return err
}

func ptr(v float64) *float64 { return &v }

func okView() *dashboard.View {
	return &dashboard.View{
		City: "Delhi",
		Panels: &dashboard.Panels{
			CityLabel: "Delhi",
			AQI:       152,
			Band:      airquality.BandFor(152),
			Pollutants: []dashboard.PollutantCard{
				{Label: "PM25", Value: ptr(152), Display: "152 µg/m³"},
				{Label: "CO", Display: "N/A"},
			},
			Alerts:       []string{"PM25 is 152 µg/m³ (exceeds 25)"},
			Notification: &dashboard.Notification{Attempted: true, Error: "Failed to send email: boom"},
			SourceMix:    airquality.EstimateSourceMix(nil),
			Fingerprint:  airquality.Fingerprint(nil),
			Trend:        airquality.SampleTrend("Delhi"),
			MapURL:       dashboard.MapURL(airquality.DefaultCoordinates),
			Fact:         dashboard.Fact,
		},
		GeneratedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func get(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, target, http.NoBody))
	return rec
}

func TestGetDashboard_OK(t *testing.T) {
	renderer := &fakeRenderer{view: okView()}
	h := handler.NewDashboardHandler(renderer, nil)

	rec := get(h.GetDashboard, "/v1/dashboard?city=Delhi&email=a@b.co")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, renderer.rendered, 1)
	assert.Equal(t, dashboard.Request{City: "Delhi", Email: "a@b.co"}, renderer.rendered[0])

	var body models.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.Error)
	require.NotNil(t, body.Reading)

	r := body.Reading
	assert.Equal(t, 152, r.AQI)
	assert.Equal(t, "Unhealthy", r.Band.Name)
	require.Len(t, r.Pollutants, 2)
	assert.Nil(t, r.Pollutants[1].Value)
	assert.Len(t, r.SourceMix, 4)
	assert.Len(t, r.Fingerprint, 6)
	assert.Len(t, r.Trend, 7)
	assert.Equal(t, dashboard.WindMapURL, r.WindMapURL)
	require.NotNil(t, r.Notification)
	assert.False(t, r.Notification.Sent)
	require.NotNil(t, r.Notification.Error)
	assert.Contains(t, *r.Notification.Error, "boom")
	assert.Contains(t, rec.Body.String(), `"generatedAt":"2026-03-01T09:00:00Z"`)
	assert.Contains(t, rec.Body.String(), `"value":null`)
}

func TestGetDashboard_FetchErrorIs200(t *testing.T) {
	renderer := &fakeRenderer{view: &dashboard.View{
		City:  "Atlantis",
		Error: "Could not fetch AQI data for 'Atlantis'. Reason: Unknown station",
	}}
	h := handler.NewDashboardHandler(renderer, nil)

	rec := get(h.GetDashboard, "/v1/dashboard?city=Atlantis")
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Contains(t, *body.Error, "Unknown station")
	assert.Nil(t, body.Reading)
}

func TestGetDashboard_InvalidEmail(t *testing.T) {
	svc := dashboard.NewService(dashboard.ServiceConfig{})
	renderer := &fakeRenderer{validateErr: svc.Validate(dashboard.Request{City: "Delhi", Email: "nope"})}
	h := handler.NewDashboardHandler(renderer, nil)

	rec := get(h.GetDashboard, "/v1/dashboard?city=Delhi&email=nope")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Empty(t, renderer.rendered, "invalid requests are not rendered")

	var problem models.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "email", problem.Errors[0].Field)
	assert.Equal(t, "email", problem.Errors[0].Code)
}

func TestGetDashboard_PlainValidationError(t *testing.T) {
	renderer := &fakeRenderer{validateErr: dashboard.ErrInvalidRequest}
	h := handler.NewDashboardHandler(renderer, nil)

	rec := get(h.GetDashboard, "/v1/dashboard")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), dashboard.ErrInvalidRequest.Error())
}

func TestPage_OK(t *testing.T) {
	page := &fakePage{}
	h := handler.NewDashboardHandler(&fakeRenderer{view: okView()}, page)

	rec := get(h.Page, "/?city=Delhi")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<html>Delhi</html>", rec.Body.String())
	assert.Equal(t, "Delhi", page.seen.City)
}

func TestPage_InvalidRequestStillRenders(t *testing.T) {
	renderer := &fakeRenderer{
		validateErr: dashboard.ErrInvalidRequest,
		view:        &dashboard.View{City: "Delhi", Error: "invalid dashboard request: email: must be a valid email address"},
	}
	h := handler.NewDashboardHandler(renderer, &fakePage{})

	rec := get(h.Page, "/?city=Delhi&email=nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "<html>Delhi</html>", rec.Body.String())
}

func TestPage_RenderFailure(t *testing.T) {
	h := handler.NewDashboardHandler(&fakeRenderer{view: okView()}, &fakePage{err: errors.New("bad template")})

	rec := get(h.Page, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}
