package metrics

import (
	"strconv"
	"time"

	"github.com/vhdlcheck/vhdlcheck/internal/observability"
)

// HTTP server metrics
var (
	HTTPRequestsTotal     = "http_requests_total"
	HTTPRequestDurationMs = "http_request_duration_ms"
	HTTPRequestSizeBytes  = "http_request_size_bytes"
	HTTPResponseSizeBytes = "http_response_size_bytes"
	HTTPErrorsTotal       = "http_errors_total"
)

// HTTPRequest describes one completed request. Endpoint must be a route
// pattern, never a raw path.
type HTTPRequest struct {
	Method        string
	Endpoint      string
	Status        int
	Duration      time.Duration
	RequestBytes  int64
	ResponseBytes int64
}

// ErrorClass maps a status code to client_error, server_error or "".
func ErrorClass(status int) string {
	switch {
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "client_error"
	}
	return ""
}

// RecordHTTPRequest emits the request counter, latency histogram and size
// gauges, plus an error counter for 4xx and 5xx responses.
func RecordHTTPRequest(req HTTPRequest) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := strconv.Itoa(req.Status)
	labels := map[string]string{
		"method":   req.Method,
		"endpoint": req.Endpoint,
		"status":   status,
	}
	sizeLabels := map[string]string{
		"method":   req.Method,
		"endpoint": req.Endpoint,
	}

	_ = observability.TelemetrySystem.Counter(HTTPRequestsTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(HTTPRequestDurationMs, req.Duration, labels)
	_ = observability.TelemetrySystem.Gauge(HTTPRequestSizeBytes, float64(req.RequestBytes), sizeLabels)
	_ = observability.TelemetrySystem.Gauge(HTTPResponseSizeBytes, float64(req.ResponseBytes), sizeLabels)

	if class := ErrorClass(req.Status); class != "" {
		_ = observability.TelemetrySystem.Counter(HTTPErrorsTotal, 1, map[string]string{
			"method":     req.Method,
			"endpoint":   req.Endpoint,
			"status":     status,
			"error_type": class,
		})
	}
}
