package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vhdlcheck/vhdlcheck/internal/output"
)

type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output-format", "o", string(output.FormatTable), "output format (table, json, markdown)")
	cmd.Flags().String("out", "", "write output to a file instead of stdout")
}

func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("output-format")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value)
}

func openSink(path string, stdout io.Writer) (*outputSink, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		return &outputSink{writer: stdout, close: func() error { return nil }, path: "-"}, nil
	}

	if err := os.MkdirAll(filepath.Dir(trimmed), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(trimmed)
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close, path: trimmed}, nil
}

// writeOutput writes rendered output to --out, or the command's stdout.
func writeOutput(cmd *cobra.Command, rendered string) error {
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	sink, err := openSink(outPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if _, err := io.WriteString(sink.writer, rendered); err != nil {
		_ = sink.close()
		return err
	}
	if !strings.HasSuffix(rendered, "\n") {
		if _, err := io.WriteString(sink.writer, "\n"); err != nil {
			_ = sink.close()
			return err
		}
	}
	return sink.close()
}
