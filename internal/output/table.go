package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/vhdlcheck/vhdlcheck/internal/core"
	"github.com/vhdlcheck/vhdlcheck/internal/models"
)

const descriptionWidth = 60

// newTable returns a rounded table whose footer keeps the summary's case.
func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	return t
}

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatAnalysis renders review issues as a table followed by the model's reasoning.
func (f *TableFormatter) FormatAnalysis(result *core.AnalysisResult) (string, error) {
	if result == nil {
		return "", nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"Lines", "Severity", "Category", "Description", "Suggestions"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: descriptionWidth, WidthMaxEnforcer: text.WrapSoft},
		{Number: 5, WidthMax: descriptionWidth, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, issue := range sortedIssues(result.Issues) {
		t.AppendRow(table.Row{
			lineLabel(issue.LineRanges),
			string(issue.Severity),
			string(issue.Category),
			issue.Description,
			strings.Join(issue.Suggestions, "\n"),
		})
	}
	t.AppendFooter(table.Row{"", "", "", issueSummary(result.Issues), ""})

	var sb strings.Builder
	sb.WriteString(t.Render())
	if reasoning := strings.TrimSpace(result.Reasoning); reasoning != "" {
		sb.WriteString("\n\nReasoning:\n")
		sb.WriteString(reasoning)
	}
	sb.WriteString("\n")
	return sb.String(), nil
}

// FormatTestbench returns the generated source unchanged.
func (f *TableFormatter) FormatTestbench(result *core.TestbenchResult) (string, error) {
	if result == nil {
		return "", nil
	}
	code := result.Code
	if !strings.HasSuffix(code, "\n") {
		code += "\n"
	}
	return code, nil
}

// FormatModels renders the selectable models.
func (f *TableFormatter) FormatModels(list []models.Model) (string, error) {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "Name", "Provider", "Default"})
	for _, m := range list {
		def := ""
		if m.Default {
			def = "yes"
		}
		t.AppendRow(table.Row{m.ID, m.Name, m.Provider, def})
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d models", len(list))})
	return t.Render() + "\n", nil
}
