// Package validation checks the JSON a model returns for an analysis request.
//
// The envelope is strict: anything other than an object with an array-typed
// issuesFound field is rejected. Individual issues are lenient: malformed
// entries are dropped and their valid siblings survive.
package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/schema"

	"github.com/vhdlcheck/vhdlcheck/internal/core"
)

// DefaultReasoning is used when the model omits a reasoning string.
const DefaultReasoning = "Analysis completed"

const envelopeSchema = `{
  "type": "object",
  "required": ["issuesFound"],
  "properties": {
    "issuesFound": {"type": "array"},
    "reasoning": {}
  }
}`

// Result is either a valid response or the reason validation failed.
type Result struct {
	Valid    bool
	Response *core.AIAnalysisResponse
	Reason   string
}

func invalid(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

var envelopeValidator = sync.OnceValues(func() (*schema.Validator, error) {
	return schema.NewValidator([]byte(envelopeSchema))
})

// Validate decodes raw JSON and validates it.
func Validate(raw []byte) Result {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return invalid("response is not valid JSON: %v", err)
	}

	validator, err := envelopeValidator()
	if err != nil {
		return invalid("compile envelope schema: %v", err)
	}
	diagnostics, err := validator.ValidateJSON(raw)
	if err != nil {
		return invalid("envelope validation: %v", err)
	}
	if len(diagnostics) > 0 {
		if reason := envelopeShapeReason(decoded); reason != "" {
			return invalid("%s", reason)
		}
		return invalid("envelope rejected: %s", diagnostics[len(diagnostics)-1].Message)
	}

	return validateEnvelope(decoded)
}

// envelopeShapeReason names what is wrong with the top-level shape, or
// returns "" when the shape is acceptable.
func envelopeShapeReason(decoded any) string {
	obj, ok := decoded.(map[string]any)
	if !ok {
		return "response is not an object"
	}
	if _, ok := obj["issuesFound"].([]any); !ok {
		return "issuesFound is missing or not an array"
	}
	return ""
}

// ValidateValue validates an already-decoded value such as a map[string]any.
func ValidateValue(v any) Result {
	if v == nil {
		return invalid("response is empty")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return invalid("response is not JSON encodable: %v", err)
	}
	return Validate(raw)
}

func validateEnvelope(decoded any) Result {
	if reason := envelopeShapeReason(decoded); reason != "" {
		return invalid("%s", reason)
	}
	obj := decoded.(map[string]any)
	rawIssues := obj["issuesFound"].([]any)

	issues := make([]core.AIIssue, 0, len(rawIssues))
	for _, item := range rawIssues {
		if issue, ok := validateIssue(item); ok {
			issues = append(issues, issue)
		}
	}

	reasoning := DefaultReasoning
	if s, ok := obj["reasoning"].(string); ok {
		reasoning = s
	}

	return Result{
		Valid: true,
		Response: &core.AIAnalysisResponse{
			IssuesFound: issues,
			Reasoning:   reasoning,
		},
	}
}

func validateIssue(item any) (core.AIIssue, bool) {
	obj, ok := item.(map[string]any)
	if !ok {
		return core.AIIssue{}, false
	}

	description, _ := obj["description"].(string)
	description = strings.TrimSpace(description)
	if description == "" {
		return core.AIIssue{}, false
	}

	lines := validateLines(obj["lines"])
	if len(lines) == 0 {
		return core.AIIssue{}, false
	}

	category, _ := obj["category"].(string)
	if !core.Category(category).Valid() {
		return core.AIIssue{}, false
	}
	severity, _ := obj["severity"].(string)
	if !core.Severity(severity).Valid() {
		return core.AIIssue{}, false
	}

	rawSuggestions, ok := obj["suggestions"].([]any)
	if !ok {
		return core.AIIssue{}, false
	}
	suggestions := make([]string, 0, len(rawSuggestions))
	for _, s := range rawSuggestions {
		str, ok := s.(string)
		if !ok {
			continue
		}
		if str = strings.TrimSpace(str); str != "" {
			suggestions = append(suggestions, str)
		}
	}

	return core.AIIssue{
		Description: description,
		Lines:       lines,
		Category:    core.Category(category),
		Severity:    core.Severity(severity),
		Suggestions: suggestions,
	}, true
}

func validateLines(v any) []core.LineRange {
	rawLines, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]core.LineRange, 0, len(rawLines))
	for _, entry := range rawLines {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		start, ok := integer(obj["start"])
		if !ok || start < 1 {
			continue
		}
		end, ok := integer(obj["end"])
		if !ok || end < start {
			continue
		}
		out = append(out, core.LineRange{Start: start, End: end})
	}
	return out
}

func integer(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}
