package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/vhdlcheck/vhdlcheck/internal/ailink/content"
	"github.com/vhdlcheck/vhdlcheck/internal/ailink/driver"
)

const providerName = "google"

var newGenaiClient = genai.NewClient

// Client implements the Gemini driver on top of the genai SDK.
type Client struct {
	// BaseURL redirects SDK traffic to another host, used against test servers.
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration

	sdkOnce sync.Once
	sdk     *genai.Client
	sdkErr  error
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimSpace(baseURL),
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return providerName
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		SupportsJSONMode:  true,
		SupportsStreaming: false,
		SupportedModels:   []string{"gemini-2.5-flash", "gemini-2.5-pro", "gemini-3-pro-preview"},
	}
}

// Complete sends a GenerateContent request.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("gemini client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, driver.ErrMissingAPIKey
	}

	contents, config, err := buildGenerateRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := driver.WithTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	client, err := c.sdkClient(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := client.Models.GenerateContent(ctx, req.Model, contents, config)
	duration := time.Since(start)

	entry := driver.TraceEntry{
		Driver:      providerName,
		Endpoint:    "models/" + req.Model + ":generateContent",
		Method:      http.MethodPost,
		Model:       req.Model,
		PromptSlug:  req.PromptSlug,
		RequestBody: traceBody(map[string]any{"contents": contents, "config": config}),
		DurationMs:  duration.Milliseconds(),
	}
	if err != nil {
		entry.Error = err.Error()
		driver.Trace(entry)
		return nil, toProviderError(err)
	}
	entry.StatusCode = http.StatusOK
	entry.Response = traceBody(result)
	driver.Trace(entry)

	return toDriverResponse(result)
}

// sdkClient builds the genai client on first use and reuses it afterwards.
func (c *Client) sdkClient(ctx context.Context) (*genai.Client, error) {
	c.sdkOnce.Do(func() {
		c.sdk, c.sdkErr = newGenaiClient(context.WithoutCancel(ctx), &genai.ClientConfig{
			APIKey:     c.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: c.httpClient(),
		})
		if c.sdkErr != nil {
			c.sdkErr = fmt.Errorf("create genai client: %w", c.sdkErr)
		}
	})
	return c.sdk, c.sdkErr
}

func (c *Client) httpClient() *http.Client {
	base := c.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	if c.BaseURL == "" {
		return base
	}
	return &http.Client{
		Transport: &rewriteTransport{BaseURL: c.BaseURL, RealTransport: base.Transport},
		Timeout:   base.Timeout,
	}
}

func buildGenerateRequest(req *driver.Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	if req == nil {
		return nil, nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, nil, fmt.Errorf("model is required")
	}

	system, rest := content.SplitSystem(req.Messages)
	if len(rest) == 0 {
		return nil, nil, fmt.Errorf("messages are required")
	}

	contents := make([]*genai.Content, 0, len(rest))
	for _, msg := range rest {
		var role genai.Role
		switch msg.Role {
		case content.RoleUser:
			role = genai.RoleUser
		case content.RoleAssistant:
			role = genai.RoleModel
		default:
			return nil, nil, fmt.Errorf("unsupported role: %s", msg.Role)
		}
		contents = append(contents, genai.NewContentFromText(content.JoinText(msg.Content), role))
	}

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if req.ResponseFormat.JSONObject() {
		config.ResponseMIMEType = "application/json"
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(*req.MaxTokens)
	}

	return contents, config, nil
}

func toDriverResponse(result *genai.GenerateContentResponse) (*driver.Response, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, fmt.Errorf("empty response candidates")
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("response contained no text (finish reason %s)", result.Candidates[0].FinishReason)
	}

	response := &driver.Response{
		Content:      []content.ContentBlock{{Type: content.ContentTypeText, Text: text}},
		FinishReason: string(result.Candidates[0].FinishReason),
	}
	if meta := result.UsageMetadata; meta != nil {
		response.Usage = &driver.Usage{
			PromptTokens:     int(meta.PromptTokenCount),
			CompletionTokens: int(meta.CandidatesTokenCount),
			TotalTokens:      int(meta.TotalTokenCount),
		}
	}
	return response, nil
}

func toProviderError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &driver.ProviderError{Provider: providerName, StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	return fmt.Errorf("request failed: %w", err)
}

func traceBody(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// rewriteTransport sends every request to BaseURL, keeping the path.
type rewriteTransport struct {
	BaseURL       string
	RealTransport http.RoundTripper
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	target, err := url.Parse(t.BaseURL)
	if err != nil {
		return nil, err
	}
	req = req.Clone(req.Context())
	req.URL.Scheme = target.Scheme
	req.URL.Host = target.Host
	req.Host = target.Host
	rt := t.RealTransport
	if rt == nil {
		rt = http.DefaultTransport
	}
	return rt.RoundTrip(req)
}
