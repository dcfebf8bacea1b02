package output

import (
	"encoding/json"

	"github.com/vhdlcheck/vhdlcheck/internal/core"
	"github.com/vhdlcheck/vhdlcheck/internal/models"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatAnalysis renders an analysis result as JSON.
func (f *JSONFormatter) FormatAnalysis(result *core.AnalysisResult) (string, error) {
	if result == nil {
		return "", nil
	}
	return f.marshal(result)
}

// FormatTestbench renders a testbench result as JSON.
func (f *JSONFormatter) FormatTestbench(result *core.TestbenchResult) (string, error) {
	if result == nil {
		return "", nil
	}
	return f.marshal(result)
}

// FormatModels renders the model list as JSON.
func (f *JSONFormatter) FormatModels(list []models.Model) (string, error) {
	if list == nil {
		list = []models.Model{}
	}
	return f.marshal(list)
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
