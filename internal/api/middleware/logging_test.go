package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ecowatch/ecowatch/internal/api/middleware"
)

func decodeLog(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	handler := middleware.Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("dashboard body"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard?city=Delhi&email=user@example.com", http.NoBody)
	req.Header.Set("User-Agent", "test-agent")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entry := decodeLog(t, &buf)
	assert.Equal(t, "request completed", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/v1/dashboard", entry["path"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, float64(14), entry["bytes"])
	assert.Equal(t, "test-agent", entry["user_agent"])
	assert.NotContains(t, buf.String(), "user@example.com")
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "info"},
		{http.StatusBadRequest, "warn"},
		{http.StatusTooManyRequests, "warn"},
		{http.StatusInternalServerError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			handler := middleware.Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

			entry := decodeLog(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, float64(tt.status), entry["status"])
		})
	}
}

func TestLogger_IncludesRequestIDAndRoute(t *testing.T) {
	var buf bytes.Buffer

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Logger(zerolog.New(&buf)))
	r.Get("/v1/ops/{check}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))

	entry := decodeLog(t, &buf)
	requestID, ok := entry["request_id"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(requestID, "ecw_"))
	assert.Equal(t, "/v1/ops/{check}", entry["route"])
}

func TestLogger_IncludesTraceID(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var buf bytes.Buffer
	handler := middleware.Tracing("ecowatch-api")(
		middleware.Logger(zerolog.New(&buf))(okHandler()),
	)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	entry := decodeLog(t, &buf)
	traceID, ok := entry["trace_id"].(string)
	require.True(t, ok)
	assert.Len(t, traceID, 32)

	spanID, ok := entry["span_id"].(string)
	require.True(t, ok)
	assert.Len(t, spanID, 16)
}

func TestLogger_DefaultStatusCode(t *testing.T) {
	var buf bytes.Buffer
	handler := middleware.Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, float64(200), decodeLog(t, &buf)["status"])
}
