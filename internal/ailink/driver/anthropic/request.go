package anthropic

import (
	"fmt"
	"strings"

	"github.com/vhdlcheck/vhdlcheck/internal/ailink/content"
	"github.com/vhdlcheck/vhdlcheck/internal/ailink/driver"
)

const defaultMaxTokens = 4096

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func buildMessagesRequest(req *driver.Request) (*messagesRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}

	system, rest := content.SplitSystem(req.Messages)
	if len(rest) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	msgs := make([]message, 0, len(rest))
	for _, msg := range rest {
		switch msg.Role {
		case content.RoleUser, content.RoleAssistant:
		default:
			return nil, fmt.Errorf("unsupported role: %s", msg.Role)
		}
		msgs = append(msgs, message{Role: msg.Role, Content: content.JoinText(msg.Content)})
	}

	// The Messages API has no JSON mode; prefilling the assistant turn with
	// "{" keeps the reply a bare object.
	prefill := req.ResponseFormat.JSONObject() && msgs[len(msgs)-1].Role == content.RoleUser
	if prefill {
		msgs = append(msgs, message{Role: content.RoleAssistant, Content: "{"})
	}

	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	return &messagesRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    msgs,
		Temperature: req.Temperature,
	}, nil
}

func prefilled(payload *messagesRequest) string {
	if payload == nil || len(payload.Messages) == 0 {
		return ""
	}
	last := payload.Messages[len(payload.Messages)-1]
	if last.Role != content.RoleAssistant {
		return ""
	}
	return last.Content
}
