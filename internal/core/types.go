package core

import "time"

// Category classifies the kind of problem an analysis issue describes.
type Category string

const (
	CategorySyntax     Category = "syntax"
	CategoryLogic      Category = "logic"
	CategoryStyle      Category = "style"
	CategoryEfficiency Category = "efficiency"
)

// Categories lists every accepted issue category.
var Categories = []Category{CategorySyntax, CategoryLogic, CategoryStyle, CategoryEfficiency}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Severity classifies the urgency of an analysis issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists every accepted severity, most urgent first.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	for _, known := range Severities {
		if s == known {
			return true
		}
	}
	return false
}

// LineRange is an inclusive 1-based span of source lines.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Issue is a single validated finding returned by a model.
type Issue struct {
	ID          string      `json:"id"`
	Description string      `json:"description"`
	LineRanges  []LineRange `json:"lineRanges"`
	Category    Category    `json:"category"`
	Severity    Severity    `json:"severity"`
	Suggestions []string    `json:"suggestions"`
}

// AnalysisResult is the outcome of one review request.
type AnalysisResult struct {
	Issues    []Issue   `json:"issues"`
	Reasoning string    `json:"reasoning"`
	Timestamp time.Time `json:"timestamp"`
}

// AIIssue is an issue as emitted by the model, after validation.
type AIIssue struct {
	Description string      `json:"description"`
	Lines       []LineRange `json:"lines"`
	Category    Category    `json:"category"`
	Severity    Severity    `json:"severity"`
	Suggestions []string    `json:"suggestions"`
}

// AIAnalysisResponse is the validated envelope returned by a model.
type AIAnalysisResponse struct {
	IssuesFound []AIIssue `json:"issuesFound"`
	Reasoning   string    `json:"reasoning"`
}

// TestbenchScenario describes the behaviour a generated testbench should exercise.
type TestbenchScenario struct {
	Description    string `json:"description" validate:"notblank"`
	ClockPeriod    string `json:"clockPeriod,omitempty"`
	SimulationTime string `json:"simulationTime,omitempty"`
}

// TestbenchResult carries generated testbench source.
type TestbenchResult struct {
	Code      string            `json:"code"`
	Scenario  TestbenchScenario `json:"scenario"`
	Timestamp time.Time         `json:"timestamp"`
}
