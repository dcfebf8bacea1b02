package prompt

// Config describes a prompt definition loaded from YAML frontmatter.
type Config struct {
	Slug           string       `yaml:"slug" json:"slug"`
	Name           string       `yaml:"name,omitempty" json:"name,omitempty"`
	Description    string       `yaml:"description,omitempty" json:"description,omitempty"`
	Version        string       `yaml:"version,omitempty" json:"version,omitempty"`
	Updated        string       `yaml:"updated,omitempty" json:"updated,omitempty"`
	Input          InputSpec    `yaml:"input,omitempty" json:"input,omitempty"`
	SystemTemplate string       `yaml:"system_template,omitempty" json:"system_template,omitempty"`
	UserTemplate   string       `yaml:"user_template,omitempty" json:"user_template,omitempty"`
	Response       ResponseSpec `yaml:"response,omitempty" json:"response,omitempty"`
}

// InputSpec defines prompt input requirements.
type InputSpec struct {
	RequiredVariables []string `yaml:"required_variables,omitempty" json:"required_variables,omitempty"`
	OptionalVariables []string `yaml:"optional_variables,omitempty" json:"optional_variables,omitempty"`
}

// ResponseSpec holds generation settings for the prompt.
type ResponseSpec struct {
	// Format is "json" or "text".
	Format      string   `yaml:"format,omitempty" json:"format,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens   int      `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
}

// Prompt wraps a validated prompt configuration with its source.
type Prompt struct {
	Config Config
	Source string
}

// Well-known prompt slugs.
const (
	SlugAnalyze   = "analyze-vhdl"
	SlugTestbench = "generate-testbench"
)
