package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vhdlcheck/vhdlcheck/internal/ailink/content"
	"github.com/vhdlcheck/vhdlcheck/internal/ailink/driver"
)

func userRequest(text string) *driver.Request {
	return &driver.Request{
		Model:    "claude-haiku-4-5",
		Messages: []content.Message{content.TextMessage(content.RoleUser, text)},
	}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.Complete(context.Background(), userRequest("hi"))
	require.ErrorIs(t, err, driver.ErrMissingAPIKey)
}

func TestClientRejectsEmptyConversation(t *testing.T) {
	client := NewClient("", "test-key")
	_, err := client.Complete(context.Background(), &driver.Request{
		Model:    "claude-haiku-4-5",
		Messages: []content.Message{content.TextMessage(content.RoleSystem, "only system")},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "messages are required")
}

func TestClientSendsRequestAndParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload messagesRequest
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, "claude-sonnet-4-5", payload.Model)
		require.Equal(t, defaultMaxTokens, payload.MaxTokens)
		require.Equal(t, "sys", payload.System)
		require.NotNil(t, payload.Temperature)
		require.InDelta(t, 0.2, *payload.Temperature, 1e-9)
		require.Len(t, payload.Messages, 2)
		require.Equal(t, "usr", payload.Messages[0].Content)
		require.Equal(t, message{Role: "assistant", Content: "{"}, payload.Messages[1])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"\"issuesFound\":[]}"}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	temp := 0.2
	resp, err := client.Complete(context.Background(), &driver.Request{
		Model: "claude-sonnet-4-5",
		Messages: []content.Message{
			content.TextMessage(content.RoleSystem, "sys"),
			content.TextMessage(content.RoleUser, "usr"),
		},
		ResponseFormat: &driver.ResponseFormat{Type: "json_object"},
		Temperature:    &temp,
	})
	require.NoError(t, err)
	require.Equal(t, "end_turn", resp.FinishReason)
	require.Equal(t, 15, resp.Usage.TotalTokens)
	require.Equal(t, `{"issuesFound":[]}`, resp.Text())
}

func TestClientTextModeOmitsPrefill(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload.Messages, 1)
		require.Nil(t, payload.Temperature)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"library ieee;"}],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.Complete(context.Background(), userRequest("write a testbench"))
	require.NoError(t, err)
	require.Equal(t, "library ieee;", resp.Text())
	require.Nil(t, resp.Usage)
}

func TestClientErrorsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), userRequest("hi"))
	require.Error(t, err)

	var perr *driver.ProviderError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	require.Equal(t, "slow down", perr.Message)
	require.Contains(t, err.Error(), "status 429")
}

func TestClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()
	client.Timeout = 50 * time.Millisecond

	_, err := client.Complete(context.Background(), userRequest("hi"))
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClientRejectsNonTextResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"tool_use"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), userRequest("hi"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no text blocks")
}

func TestClientRejectsOversizedResponse(t *testing.T) {
	original := maxResponseBytes
	maxResponseBytes = 64
	t.Cleanup(func() { maxResponseBytes = original })

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"` + strings.Repeat("x", 256) + `"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	_, err := client.Complete(context.Background(), userRequest("hi"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "exceeds 64 bytes")
}
