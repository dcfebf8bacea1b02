package middleware

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vhdlcheck/vhdlcheck/internal/metrics"
	"github.com/vhdlcheck/vhdlcheck/internal/observability"
	"github.com/vhdlcheck/vhdlcheck/internal/ratelimit"
)

// Rate limit response headers
const (
	HeaderRetryAfter         = "Retry-After"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// RateLimitExceededMessage is the error text of a 429 response.
const RateLimitExceededMessage = "Rate limit exceeded"

// RateLimitResponse is the body written when a client is over its limit.
type RateLimitResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
}

// RateLimit applies a fixed-window limit per client and request path.
// A nil clock uses time.Now.
func RateLimit(limiter ratelimit.Limiter, clock func() time.Time) func(http.Handler) http.Handler {
	if clock == nil {
		clock = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := ratelimit.ClientIdentifier(r)
			endpoint := r.URL.Path

			decision := limiter.Check(r.Context(), clientID, endpoint)
			metrics.RecordRateLimitDecision(endpoint, decision.Allowed)

			h := w.Header()
			h.Set(HeaderRateLimitLimit, strconv.Itoa(decision.Limit))
			h.Set(HeaderRateLimitRemaining, strconv.Itoa(decision.Remaining))
			h.Set(HeaderRateLimitReset, decision.ResetAt.UTC().Format(time.RFC3339))

			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := decision.RetryAfter(clock())
			h.Set(HeaderRetryAfter, strconv.Itoa(retryAfter))

			if observability.ServerLogger != nil {
				observability.ServerLogger.Warn("Rate limit exceeded",
					zap.String("client", clientID),
					zap.String("endpoint", endpoint),
					zap.Int("retry_after", retryAfter),
					zap.String("requestID", GetRequestID(r.Context())),
				)
			}
			metrics.RecordError("RATE_LIMITED", http.StatusTooManyRequests)

			writeJSON(w, http.StatusTooManyRequests, RateLimitResponse{
				Success:    false,
				Error:      RateLimitExceededMessage,
				RetryAfter: retryAfter,
			})
		})
	}
}
