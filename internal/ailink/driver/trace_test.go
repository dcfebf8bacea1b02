package driver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestTraceWritesNDJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cleanup := SetTraceWriter(nopCloser{buf})
	defer cleanup()

	require.True(t, IsTracingEnabled())
	Trace(TraceEntry{Driver: "anthropic", Endpoint: "https://example/messages", Method: "POST", RequestBody: []byte(`{"a":1}`), Response: []byte("not json")})
	Trace(TraceEntry{Driver: "google", Method: "POST", Error: "boom"})

	scanner := bufio.NewScanner(buf)
	var entries []map[string]any
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.Len(t, entries, 2)
	require.Equal(t, "anthropic", entries[0]["driver"])
	require.Equal(t, map[string]any{"a": float64(1)}, entries[0]["request_body"])
	require.Equal(t, "not json", entries[0]["response"])
	require.Equal(t, "boom", entries[1]["error"])
}

func TestEnableTracingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.ndjson")
	cleanup, err := EnableTracing(path)
	require.NoError(t, err)

	Trace(TraceEntry{Driver: "anthropic", Method: "POST"})
	cleanup()
	require.False(t, IsTracingEnabled())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"driver":"anthropic"`)
}

func TestTraceDisabledIsNoop(t *testing.T) {
	DisableTracing()
	Trace(TraceEntry{Driver: "anthropic"})
	require.False(t, IsTracingEnabled())
}
