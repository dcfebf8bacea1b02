package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClass(t *testing.T) {
	assert.Equal(t, "", ErrorClass(200))
	assert.Equal(t, "", ErrorClass(304))
	assert.Equal(t, "client_error", ErrorClass(400))
	assert.Equal(t, "client_error", ErrorClass(429))
	assert.Equal(t, "server_error", ErrorClass(502))
}

func TestRecordHTTPRequestWithoutTelemetry(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordHTTPRequest(HTTPRequest{Method: "GET", Endpoint: "/api/models", Status: 500})
	})
}
