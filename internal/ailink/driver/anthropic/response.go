package anthropic

import (
	"fmt"

	"github.com/vhdlcheck/vhdlcheck/internal/ailink/content"
	"github.com/vhdlcheck/vhdlcheck/internal/ailink/driver"
)

type messagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      *usage         `json:"usage,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func toDriverResponse(resp *messagesResponse, prefix string) (*driver.Response, error) {
	if resp == nil || len(resp.Content) == 0 {
		return nil, fmt.Errorf("empty response content")
	}

	blocks := make([]content.ContentBlock, 0, len(resp.Content))
	for i, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		text := block.Text
		if i == 0 && prefix != "" {
			text = prefix + text
		}
		blocks = append(blocks, content.ContentBlock{Type: content.ContentTypeText, Text: text})
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("response contained no text blocks")
	}

	response := &driver.Response{
		Content:      blocks,
		FinishReason: resp.StopReason,
	}
	if resp.Usage != nil {
		response.Usage = &driver.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		}
	}
	return response, nil
}
