package ailink

import (
	"context"
	"errors"
	"strings"

	"github.com/vhdlcheck/vhdlcheck/internal/ailink/driver"
)

func mapProviderError(err error) *ProviderFailure {
	if err == nil {
		return nil
	}
	failure := classifyProviderError(err)
	failure.Err = err
	return failure
}

func classifyProviderError(err error) *ProviderFailure {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderFailure{Code: "AILINK_PROVIDER_TIMEOUT", Message: "provider request timed out"}
	}
	if errors.Is(err, context.Canceled) {
		return &ProviderFailure{Code: "AILINK_REQUEST_CANCELED", Message: "request was canceled"}
	}
	if errors.Is(err, driver.ErrMissingAPIKey) {
		return &ProviderFailure{Code: "AILINK_PROVIDER_NOT_CONFIGURED", Message: "provider api key is not configured"}
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		status := perr.StatusCode
		details := strings.TrimSpace(perr.Message)
		switch {
		case status == 401 || status == 403:
			return &ProviderFailure{Code: "AILINK_PROVIDER_AUTH", Message: "provider authentication failed", Details: details}
		case status == 429:
			return &ProviderFailure{Code: "AILINK_PROVIDER_RATE_LIMIT", Message: "provider rate limited", Details: details}
		case status >= 500 && status <= 599:
			return &ProviderFailure{Code: "AILINK_PROVIDER_UNAVAILABLE", Message: "provider unavailable", Details: details}
		case status >= 400 && status <= 499:
			return &ProviderFailure{Code: "AILINK_PROVIDER_BAD_REQUEST", Message: "provider rejected request", Details: details}
		default:
			return &ProviderFailure{Code: "AILINK_PROVIDER_ERROR", Message: "provider request failed", Details: details}
		}
	}

	return &ProviderFailure{Code: "AILINK_PROVIDER_ERROR", Message: "provider request failed", Details: err.Error()}
}
