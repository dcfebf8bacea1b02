package ailink

import "errors"

// ErrUnknownModel is returned when a model id is not in the model registry.
var ErrUnknownModel = errors.New("unsupported ai model")

// ProviderFailure describes a provider failure without exposing provider internals.
type ProviderFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (f *ProviderFailure) Error() string {
	if f == nil {
		return "provider request failed"
	}
	return f.Message
}

func (f *ProviderFailure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// Operation labels used in metrics and logs.
const (
	OperationAnalyze   = "analyze"
	OperationTestbench = "testbench"
)
