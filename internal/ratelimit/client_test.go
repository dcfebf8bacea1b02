package ratelimit

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIdentifier(t *testing.T) {
	cases := []struct {
		name      string
		forwarded string
		realIP    string
		want      string
	}{
		{"forwarded first entry", "203.0.113.7, 10.0.0.1", "198.51.100.1", "203.0.113.7"},
		{"forwarded trimmed", "  203.0.113.8  ", "", "203.0.113.8"},
		{"real ip fallback", "", " 198.51.100.2 ", "198.51.100.2"},
		{"empty forwarded entry", " , 10.0.0.1", "198.51.100.3", "198.51.100.3"},
		{"unknown", "", "", UnknownClient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/analyze", nil)
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			assert.Equal(t, tc.want, ClientIdentifier(req))
		})
	}
	assert.Equal(t, UnknownClient, ClientIdentifier(nil))
}
