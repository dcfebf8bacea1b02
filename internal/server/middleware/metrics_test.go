package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhdlcheck/vhdlcheck/internal/observability"
)

func setupTelemetry(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })

	return collector
}

func reviewRouter(status int, body string) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestMetrics)
	r.Post("/api/analyze", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	return r
}

func TestRequestMetricsRecordsSuccessfulReview(t *testing.T) {
	collector := setupTelemetry(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"code":"entity e is end;"}`))
	rec := httptest.NewRecorder()
	reviewRouter(http.StatusOK, `{"success":true}`).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"success":true}`, rec.Body.String())
	assert.Greater(t, collector.CountMetricsByName("http_requests_total"), 0)
	assert.Greater(t, collector.CountMetricsByName("http_request_duration_ms"), 0)
	assert.Greater(t, collector.CountMetricsByName("http_request_size_bytes"), 0)
	assert.Greater(t, collector.CountMetricsByName("http_response_size_bytes"), 0)
	assert.Equal(t, 0, collector.CountMetricsByName("http_errors_total"))
}

func TestRequestMetricsCountsErrors(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			collector := setupTelemetry(t)

			req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{}`))
			rec := httptest.NewRecorder()
			reviewRouter(status, `{"success":false}`).ServeHTTP(rec, req)

			assert.Equal(t, status, rec.Code)
			assert.Greater(t, collector.CountMetricsByName("http_errors_total"), 0)
		})
	}
}

func TestRequestMetricsWithoutTelemetry(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = original })

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	reviewRouter(http.StatusOK, "ok").ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestMetricsDefaultsStatusWhenHandlerOnlyWrites(t *testing.T) {
	collector := setupTelemetry(t)

	h := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("implicit 200"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, collector.CountMetricsByName("http_errors_total"))
}

func TestEndpointLabel(t *testing.T) {
	var seen []string
	r := chi.NewRouter()
	capture := func(w http.ResponseWriter, req *http.Request) {
		// The pattern is only complete once the handler runs.
		seen = append(seen, endpointLabel(req))
	}
	r.Get("/api/models", capture)
	r.Get("/health/*", capture)

	for _, path := range []string{"/api/models", "/health/ready"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, []string{"/api/models", "/health"}, seen)
	assert.Equal(t, unmatchedEndpoint, endpointLabel(httptest.NewRequest(http.MethodGet, "/nope", nil)))
}

func TestRequestMetricsKeepsRequestIDHeader(t *testing.T) {
	setupTelemetry(t)

	h := RequestID(RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	req.Header.Set(RequestIDHeader, "trace-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "trace-42", rec.Header().Get(RequestIDHeader))
}
