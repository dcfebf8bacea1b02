package ailink

import "strings"

// rawExcerpt returns text truncated to the configured capture limit, on one line.
// It returns "" when raw capture is disabled.
func rawExcerpt(cfg DebugConfig, text string) string {
	if !cfg.CaptureRawEnabled {
		return ""
	}
	limit := cfg.CaptureRawMaxBytes
	if limit <= 0 {
		limit = 2048
	}
	return safeOneLine(truncate(text, limit))
}

func truncate(input string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(input) <= max {
		return input
	}
	// Back off to a rune boundary.
	for max > 0 && !isRuneStart(input[max]) {
		max--
	}
	return input[:max]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func safeOneLine(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}
