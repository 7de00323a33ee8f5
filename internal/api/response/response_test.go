package response_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ecowatch/ecowatch/internal/api/middleware"
	"github.com/ecowatch/ecowatch/internal/api/models"
	"github.com/ecowatch/ecowatch/internal/api/response"
)

// requestWithContext creates an HTTP request that has been processed by the
// RequestID middleware, so its context carries a request ID.
func requestWithContext(t *testing.T, method, path string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(method, path, http.NoBody)
	rec := httptest.NewRecorder()

	var processedReq *http.Request
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		processedReq = r
	}))
	handler.ServeHTTP(rec, req)

	return processedReq, httptest.NewRecorder()
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	var problem models.Problem
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to decode problem: %v", err)
	}
	return problem
}

func TestJSON_IncludesRequestID(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/v1/dashboard")

	response.JSON(rec, req, http.StatusOK, map[string]string{"city": "Delhi"})

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if id := rec.Header().Get("X-Request-Id"); !strings.HasPrefix(id, "ecw_") {
		t.Errorf("expected generated request ID, got %q", id)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}
}

func TestJSON_WithoutRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard", http.NoBody)
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, nil)

	if id := rec.Header().Get("X-Request-Id"); id != "" {
		t.Errorf("expected no X-Request-Id header when not in context, got %q", id)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got %q", rec.Body.String())
	}
}

func TestHTML_WritesRenderedPage(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/")

	response.HTML(rec, req, http.StatusOK, func(w io.Writer) error {
		_, err := io.WriteString(w, "<h1>ECOWatch</h1>")
		return err
	})

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("unexpected Content-Type %q", ct)
	}
	if rec.Body.String() != "<h1>ECOWatch</h1>" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestHTML_RenderFailure(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/")

	response.HTML(rec, req, http.StatusOK, func(w io.Writer) error {
		_, _ = io.WriteString(w, "<h1>partial")
		return errors.New("template exploded")
	})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "partial") {
		t.Error("partial page must not be written")
	}
	if problem := decodeProblem(t, rec); problem.Type != models.ProblemTypeInternal {
		t.Errorf("unexpected problem type %q", problem.Type)
	}
}

func TestTooManyRequests_IncludesRateLimitHeaders(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/v1/dashboard")

	response.TooManyRequestsWithInfo(rec, req, "rate limit exceeded", &response.RateLimitInfo{
		Limit:      10,
		Remaining:  0,
		ResetAt:    1704067200,
		RetryAfter: 60,
	})

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rec.Code)
	}
	if h := rec.Header().Get("X-RateLimit-Limit"); h != "10" {
		t.Errorf("expected X-RateLimit-Limit 10, got %q", h)
	}
	if h := rec.Header().Get("X-RateLimit-Reset"); h != "1704067200" {
		t.Errorf("expected X-RateLimit-Reset 1704067200, got %q", h)
	}
	if h := rec.Header().Get("Retry-After"); h != "60" {
		t.Errorf("expected Retry-After 60, got %q", h)
	}
}

func TestTooManyRequests_WithoutRateLimitInfo(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/v1/dashboard")

	response.TooManyRequests(rec, req, "rate limit exceeded")

	if h := rec.Header().Get("Retry-After"); h != "" {
		t.Errorf("expected no Retry-After header, got %q", h)
	}
}

func TestBadRequest_IncludesTraceIDAndInstance(t *testing.T) {
	req, rec := requestWithContext(t, http.MethodGet, "/v1/dashboard")

	response.BadRequest(rec, req, "validation failed", []models.FieldError{
		{Field: "email", Message: "must be a valid email address", Code: "email"},
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	problem := decodeProblem(t, rec)
	if problem.TraceID == "" {
		t.Error("expected traceId to be set in Problem response")
	}
	if problem.Instance != "/v1/dashboard" {
		t.Errorf("expected instance /v1/dashboard, got %q", problem.Instance)
	}
	if len(problem.Errors) != 1 || problem.Errors[0].Field != "email" {
		t.Errorf("unexpected field errors %+v", problem.Errors)
	}
}

func TestProblemHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, *http.Request)
		status int
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { response.NotFound(w, r, "no such page") }, http.StatusNotFound},
		{"internal", func(w http.ResponseWriter, r *http.Request) { response.InternalError(w, r, "boom") }, http.StatusInternalServerError},
		{"unavailable", func(w http.ResponseWriter, r *http.Request) { response.ServiceUnavailable(w, r, "down") }, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := requestWithContext(t, http.MethodGet, "/v1/ops/ready")
			tt.write(rec, req)

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("expected problem content type, got %q", ct)
			}
			if problem := decodeProblem(t, rec); problem.Status != tt.status {
				t.Errorf("expected problem status %d, got %d", tt.status, problem.Status)
			}
		})
	}
}
