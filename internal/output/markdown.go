package output

import (
	"fmt"
	"strings"

	"github.com/vhdlcheck/vhdlcheck/internal/core"
	"github.com/vhdlcheck/vhdlcheck/internal/models"
)

// MarkdownFormatter renders results as markdown.
type MarkdownFormatter struct{}

// FormatAnalysis renders an analysis result as a markdown report.
func (f *MarkdownFormatter) FormatAnalysis(result *core.AnalysisResult) (string, error) {
	if result == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## VHDL review\n\n")
	sb.WriteString(fmt.Sprintf("**Summary**: %s\n\n", issueSummary(result.Issues)))

	if len(result.Issues) > 0 {
		sb.WriteString("| Lines | Severity | Category | Description | Suggestions |\n")
		sb.WriteString("|-------|----------|----------|-------------|-------------|\n")
		for _, issue := range sortedIssues(result.Issues) {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				escapeMarkdownCell(lineLabel(issue.LineRanges)),
				escapeMarkdownCell(string(issue.Severity)),
				escapeMarkdownCell(string(issue.Category)),
				escapeMarkdownCell(issue.Description),
				escapeMarkdownCell(strings.Join(issue.Suggestions, "; ")),
			))
		}
		sb.WriteString("\n")
	}

	if reasoning := strings.TrimSpace(result.Reasoning); reasoning != "" {
		sb.WriteString("### Reasoning\n\n")
		sb.WriteString(reasoning)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// FormatTestbench renders the generated source in a fenced block.
func (f *MarkdownFormatter) FormatTestbench(result *core.TestbenchResult) (string, error) {
	if result == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Testbench\n\n")
	if desc := strings.TrimSpace(result.Scenario.Description); desc != "" {
		sb.WriteString(fmt.Sprintf("**Scenario**: %s\n\n", desc))
	}
	sb.WriteString("```vhdl\n")
	sb.WriteString(strings.TrimRight(result.Code, "\n"))
	sb.WriteString("\n```\n")
	return sb.String(), nil
}

// FormatModels renders the model list as a markdown table.
func (f *MarkdownFormatter) FormatModels(list []models.Model) (string, error) {
	var sb strings.Builder
	sb.WriteString("| ID | Name | Provider | Default |\n")
	sb.WriteString("|----|------|----------|---------|\n")
	for _, m := range list {
		def := ""
		if m.Default {
			def = "yes"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			escapeMarkdownCell(m.ID),
			escapeMarkdownCell(m.Name),
			escapeMarkdownCell(m.Provider),
			def,
		))
	}
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	value = strings.ReplaceAll(value, "\r\n", " ")
	return strings.ReplaceAll(value, "\n", " ")
}
