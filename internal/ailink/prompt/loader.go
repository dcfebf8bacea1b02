package prompt

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/schema"
	"gopkg.in/yaml.v3"
)

//go:embed prompt.schema.json
var promptSchema []byte

var promptValidator = sync.OnceValues(func() (*schema.Validator, error) {
	return schema.NewValidator(promptSchema)
})

// Load parses a markdown prompt with YAML frontmatter and validates it against
// the embedded schema. The body is the system template unless the frontmatter
// sets system_template.
func Load(source string, data []byte) (*Prompt, error) {
	config, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", source, err)
	}

	config.SystemTemplate = strings.TrimSpace(config.SystemTemplate)
	if config.SystemTemplate == "" {
		config.SystemTemplate = strings.TrimSpace(body)
	}
	if config.SystemTemplate == "" {
		return nil, fmt.Errorf("prompt %s missing system_template", source)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("validate prompt %s: %w", source, err)
	}

	return &Prompt{Config: config, Source: source}, nil
}

// LoadFromDir loads every *.md prompt in dir, in lexical order.
func LoadFromDir(dir string) ([]*Prompt, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("scan prompts: %w", err)
	}
	results := make([]*Prompt, 0, len(entries))
	for _, path := range entries {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied prompt directory
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", path, err)
		}
		prompt, err := Load(path, data)
		if err != nil {
			return nil, err
		}
		results = append(results, prompt)
	}
	return results, nil
}

const frontmatterDelim = "---"

// splitFrontmatter decodes the leading "---" delimited YAML block and returns
// the remaining markdown body.
func splitFrontmatter(data []byte) (Config, string, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return Config{}, "", fmt.Errorf("empty prompt")
	}
	if !strings.HasPrefix(text, frontmatterDelim) {
		return Config{}, "", fmt.Errorf("missing frontmatter")
	}

	front, rest, ok := strings.Cut(strings.TrimPrefix(text, frontmatterDelim), "\n"+frontmatterDelim)
	if !ok {
		return Config{}, "", fmt.Errorf("unterminated frontmatter")
	}
	body := ""
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		body = rest[nl+1:]
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(front), &cfg); err != nil {
		return Config{}, "", fmt.Errorf("invalid frontmatter: %w", err)
	}
	return cfg, body, nil
}

func validateConfig(cfg Config) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	validator, err := promptValidator()
	if err != nil {
		return fmt.Errorf("compile prompt schema: %w", err)
	}
	diagnostics, err := validator.ValidateJSON(payload)
	if err != nil {
		return err
	}
	if len(diagnostics) > 0 {
		return fmt.Errorf("schema validation failed: %s", diagnostics[0].Message)
	}
	return nil
}
