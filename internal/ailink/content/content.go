package content

import "strings"

// ContentType represents supported content types using IANA media types.
type ContentType string

const (
	ContentTypeText ContentType = "text/plain"
	ContentTypeJSON ContentType = "application/json"
)

// Chat roles understood by every driver.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContentBlock represents a single piece of content.
type ContentBlock struct {
	Type ContentType `json:"type"`
	Text string      `json:"text,omitempty"`
}

// Message represents a chat message.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// TextMessage builds a single-block text message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{{Type: ContentTypeText, Text: text}}}
}

// JoinText concatenates the text of all text-like blocks.
func JoinText(blocks []ContentBlock) string {
	var sb strings.Builder
	for _, block := range blocks {
		if block.Type != ContentTypeText && block.Type != ContentTypeJSON {
			continue
		}
		sb.WriteString(block.Text)
	}
	return sb.String()
}

// SplitSystem separates system messages from the conversation.
// Providers that take the system prompt out of band use this.
func SplitSystem(messages []Message) (system string, rest []Message) {
	var parts []string
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			if text := strings.TrimSpace(JoinText(msg.Content)); text != "" {
				parts = append(parts, text)
			}
			continue
		}
		rest = append(rest, msg)
	}
	return strings.Join(parts, "\n\n"), rest
}
