package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/vhdlcheck/vhdlcheck/internal/metrics"
	"github.com/vhdlcheck/vhdlcheck/internal/observability"
)

const unmatchedEndpoint = "/unmatched"

// endpointLabel returns the chi route pattern so label cardinality stays
// bounded. Requests that never matched a route share one label.
func endpointLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return strings.TrimSuffix(pattern, "/*")
		}
	}
	return unmatchedEndpoint
}

// RequestMetrics records per-request telemetry and writes one access log
// line. Source code in request bodies is never logged.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if observability.TelemetrySystem == nil && observability.ServerLogger == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		requestBytes := r.ContentLength
		if requestBytes < 0 {
			requestBytes = 0
		}

		rec := metrics.HTTPRequest{
			Method:        r.Method,
			Endpoint:      endpointLabel(r),
			Status:        status,
			Duration:      time.Since(start),
			RequestBytes:  requestBytes,
			ResponseBytes: int64(ww.BytesWritten()),
		}
		metrics.RecordHTTPRequest(rec)

		if observability.ServerLogger == nil {
			return
		}
		fields := []zap.Field{
			zap.String("method", rec.Method),
			zap.String("path", r.URL.Path),
			zap.String("endpoint", rec.Endpoint),
			zap.Int("status", rec.Status),
			zap.Duration("duration", rec.Duration),
			zap.Int64("request_size", rec.RequestBytes),
			zap.Int64("response_size", rec.ResponseBytes),
			zap.String("requestID", GetRequestID(r.Context())),
		}
		if metrics.ErrorClass(status) == "server_error" {
			observability.ServerLogger.Warn("HTTP request failed", fields...)
			return
		}
		observability.ServerLogger.Info("HTTP request completed", fields...)
	})
}
