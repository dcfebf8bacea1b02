package ailink

import (
	"regexp"
	"strings"
)

// fenceRegex matches the first fenced block (``` or ~~~) with an optional language tag.
var fenceRegex = regexp.MustCompile("(?s)(```|~~~)[ \\t]*([A-Za-z0-9_+-]*)[ \\t]*\\r?\\n?(.*?)(?:\\r?\\n)?[ \\t]*(?:```|~~~)")

// StripCodeFences removes markdown fences surrounding generated source.
// Text without a fence is returned trimmed.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if m := fenceRegex.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[3])
	}
	// Unterminated fence: drop the opening line only.
	if strings.HasPrefix(text, "```") || strings.HasPrefix(text, "~~~") {
		if _, rest, ok := strings.Cut(text, "\n"); ok {
			return strings.TrimSpace(rest)
		}
		return ""
	}
	return text
}

// ExtractJSON locates the JSON object in a model reply. It accepts bare
// objects, fenced objects and objects surrounded by prose.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
		return text
	}

	candidate := StripCodeFences(text)
	if strings.HasPrefix(candidate, "{") && strings.HasSuffix(candidate, "}") {
		return candidate
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return candidate
}
