package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vhdlcheck/vhdlcheck/internal/core"
	"github.com/vhdlcheck/vhdlcheck/internal/observability"
	"github.com/vhdlcheck/vhdlcheck/internal/output"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.vhd|->",
	Short: "Review a VHDL source file",
	Long: `Review a VHDL source file with the selected model and print the issues found.

Use "-" to read the source from stdin. With --fail-on, the command exits
non-zero when any issue at or above the given severity is reported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := mustLoadConfig(cmd)

		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		failOn, err := resolveFailOn(cmd)
		if err != nil {
			return err
		}

		code, err := readSource(args[0], cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}

		svc, err := newReviewService(cfg, observability.CLILogger)
		if err != nil {
			return err
		}

		model := resolveModel(cmd)
		observability.CLILogger.Debug("Analyzing source",
			zap.String("source", args[0]),
			zap.String("model", model),
			zap.Int("bytes", len(code)))

		result, err := svc.Analyze(ctx, code, model)
		if err != nil {
			return err
		}

		rendered, err := output.NewFormatter(format).FormatAnalysis(result)
		if err != nil {
			return err
		}
		if err := writeOutput(cmd, rendered); err != nil {
			return err
		}

		if n := countAtOrAbove(result.Issues, failOn); n > 0 {
			return fmt.Errorf("%d issue(s) at or above %s severity", n, failOn)
		}
		return nil
	},
}

func resolveFailOn(cmd *cobra.Command) (core.Severity, error) {
	value, err := cmd.Flags().GetString("fail-on")
	if err != nil {
		return "", err
	}
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", nil
	}
	sev := core.Severity(value)
	if !sev.Valid() {
		return "", fmt.Errorf("invalid --fail-on severity %q", value)
	}
	return sev, nil
}

// countAtOrAbove counts issues whose severity is at least threshold.
// An empty threshold never matches.
func countAtOrAbove(issues []core.Issue, threshold core.Severity) int {
	if threshold == "" {
		return 0
	}
	limit := -1
	for i, s := range core.Severities {
		if s == threshold {
			limit = i
		}
	}
	n := 0
	for _, issue := range issues {
		for i, s := range core.Severities {
			if s == issue.Severity && i <= limit {
				n++
			}
		}
	}
	return n
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("model", "m", "", "model id (default is the registry default; see 'models')")
	analyzeCmd.Flags().String("fail-on", "", "exit non-zero when an issue of this severity or higher is found (critical, high, medium, low)")
	addOutputFlags(analyzeCmd)
}
