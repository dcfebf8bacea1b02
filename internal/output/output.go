package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vhdlcheck/vhdlcheck/internal/core"
	"github.com/vhdlcheck/vhdlcheck/internal/models"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders review results.
type Formatter interface {
	FormatAnalysis(result *core.AnalysisResult) (string, error)
	FormatTestbench(result *core.TestbenchResult) (string, error)
	FormatModels(list []models.Model) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

func lineLabel(ranges []core.LineRange) string {
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		if r.Start == r.End {
			parts = append(parts, fmt.Sprintf("%d", r.Start))
			continue
		}
		parts = append(parts, fmt.Sprintf("%d-%d", r.Start, r.End))
	}
	return strings.Join(parts, ", ")
}

// severityRank orders issues most urgent first.
func severityRank(s core.Severity) int {
	for i, known := range core.Severities {
		if s == known {
			return i
		}
	}
	return len(core.Severities)
}

// sortedIssues returns a copy of issues ordered by severity, keeping model order within a level.
func sortedIssues(issues []core.Issue) []core.Issue {
	out := append([]core.Issue(nil), issues...)
	sort.SliceStable(out, func(i, j int) bool {
		return severityRank(out[i].Severity) < severityRank(out[j].Severity)
	})
	return out
}

func issueSummary(issues []core.Issue) string {
	if len(issues) == 0 {
		return "no issues found"
	}
	counts := make(map[core.Severity]int, len(core.Severities))
	for _, issue := range issues {
		counts[issue.Severity]++
	}
	parts := make([]string, 0, len(core.Severities))
	for _, s := range core.Severities {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], s))
		}
	}
	noun := "issues"
	if len(issues) == 1 {
		noun = "issue"
	}
	return fmt.Sprintf("%d %s (%s)", len(issues), noun, strings.Join(parts, ", "))
}
