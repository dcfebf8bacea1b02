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

var testbenchCmd = &cobra.Command{
	Use:   "testbench <file.vhd|->",
	Short: "Generate a testbench for a VHDL design",
	Long: `Generate a VHDL testbench that exercises the described scenario.

The generated source is printed to stdout, or written to --out.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := mustLoadConfig(cmd)

		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		scenario, err := scenarioFromFlags(cmd)
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
		observability.CLILogger.Debug("Generating testbench",
			zap.String("source", args[0]),
			zap.String("model", model))

		result, err := svc.GenerateTestbench(ctx, code, scenario, model)
		if err != nil {
			return err
		}

		rendered, err := output.NewFormatter(format).FormatTestbench(result)
		if err != nil {
			return err
		}
		return writeOutput(cmd, rendered)
	},
}

func scenarioFromFlags(cmd *cobra.Command) (core.TestbenchScenario, error) {
	description, _ := cmd.Flags().GetString("scenario")
	clock, _ := cmd.Flags().GetString("clock-period")
	simTime, _ := cmd.Flags().GetString("simulation-time")

	scenario := core.TestbenchScenario{
		Description:    strings.TrimSpace(description),
		ClockPeriod:    strings.TrimSpace(clock),
		SimulationTime: strings.TrimSpace(simTime),
	}
	if scenario.Description == "" {
		return scenario, fmt.Errorf("--scenario is required")
	}
	return scenario, nil
}

func init() {
	rootCmd.AddCommand(testbenchCmd)

	testbenchCmd.Flags().StringP("scenario", "s", "", "test scenario description")
	testbenchCmd.Flags().String("clock-period", "", "clock period, e.g. 10 ns")
	testbenchCmd.Flags().String("simulation-time", "", "total simulation time, e.g. 1 us")
	testbenchCmd.Flags().StringP("model", "m", "", "model id (default is the registry default; see 'models')")
	addOutputFlags(testbenchCmd)
}
