package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownClient identifies callers that sent no proxy headers.
const UnknownClient = "unknown"

// ClientIdentifier derives a best-effort caller id from proxy headers.
// It is not authenticated and can be spoofed by direct clients.
func ClientIdentifier(r *http.Request) string {
	if r == nil {
		return UnknownClient
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return UnknownClient
}
