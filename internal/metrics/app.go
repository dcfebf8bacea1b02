package metrics

import (
	"time"

	"github.com/vhdlcheck/vhdlcheck/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Rate limiter
	RateLimitDecisionsTotal = "rate_limit_decisions_total"

	// Provider calls
	AILinkRequestsTotal     = "ailink_requests_total"
	AILinkRequestDurationMs = "ailink_request_duration_ms"

	// Analysis output
	AnalysisIssuesTotal    = "analysis_issues_total"
	AnalysisSoftFailsTotal = "analysis_soft_failures_total"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// RecordRateLimitDecision counts an allow/deny decision for an endpoint.
func RecordRateLimitDecision(endpoint string, allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "denied"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitDecisionsTotal,
			1,
			map[string]string{
				"endpoint": endpoint,
				"decision": decision,
			},
		)
	}
}

// RecordAILinkRequest records one provider call and its latency.
func RecordAILinkRequest(provider, model, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			AILinkRequestsTotal,
			1,
			map[string]string{
				"provider":  provider,
				"model":     model,
				"operation": operation,
				"status":    status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			AILinkRequestDurationMs,
			duration,
			map[string]string{
				"provider":  provider,
				"operation": operation,
			},
		)
	}
}

// RecordAnalysisIssues counts validated issues by severity.
func RecordAnalysisIssues(severity string, count int) {
	if count <= 0 {
		return
	}
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			AnalysisIssuesTotal,
			float64(count),
			map[string]string{
				"severity": severity,
			},
		)
	}
}

// RecordAnalysisSoftFailure counts analyses that returned an empty result with a reason.
func RecordAnalysisSoftFailure(reason string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			AnalysisSoftFailsTotal,
			1,
			map[string]string{
				"reason": reason,
			},
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

// SetServerUptime records the server uptime in seconds
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerUptime,
			float64(seconds),
			nil,
		)
	}
}
