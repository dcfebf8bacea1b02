package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/vhdlcheck/vhdlcheck/internal/metrics"
	"github.com/vhdlcheck/vhdlcheck/internal/observability"
)

// APIPrefix marks routes that answer with the {success,error} body.
const APIPrefix = "/api/"

// Recovery middleware recovers from panics and answers 500.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				panicErr := errors.NewErrorEnvelope("INTERNAL_ERROR", fmt.Sprintf("panic: %v", err)).
					WithCorrelationID(GetRequestID(r.Context()))
				panicErr, _ = panicErr.WithContext(map[string]interface{}{
					"stack_trace": string(debug.Stack()),
				})
				panicErr, _ = panicErr.WithSeverity(errors.SeverityCritical)

				metrics.RecordPanic()
				if observability.ServerLogger != nil {
					observability.ServerLogger.Error("Recovered from panic",
						zap.String("path", r.URL.Path),
						zap.String("panic", panicErr.Message),
						zap.String("requestID", panicErr.CorrelationID),
					)
				}

				if strings.HasPrefix(r.URL.Path, APIPrefix) {
					writeJSON(w, http.StatusInternalServerError, map[string]any{
						"success": false,
						"error":   "Internal server error",
					})
					return
				}
				writeErrorResponse(w, panicErr, http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// ErrorResponse structure per API standards
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// writeErrorResponse writes error response directly (avoid circular import).
// Panic context stays in the logs.
func writeErrorResponse(w http.ResponseWriter, envelope *errors.ErrorEnvelope, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:      envelope.Code,
			Message:   "internal server error",
			RequestID: envelope.CorrelationID,
		},
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
