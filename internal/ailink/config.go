package ailink

import "time"

// Provider timeout bounds.
const (
	DefaultTimeout = 60 * time.Second
	MaxTimeout     = 5 * time.Minute
)

// Config defines provider configuration for AILink.
type Config struct {
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`

	// PromptsDir overlays the embedded prompt set; prompts are matched by slug.
	PromptsDir string `mapstructure:"prompts_dir"`

	// Debug controls optional diagnostics like raw payload capture.
	Debug DebugConfig `mapstructure:"debug"`

	// Providers is keyed by provider id ("anthropic", "google").
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

type DebugConfig struct {
	CaptureRawEnabled  bool `mapstructure:"capture_raw_enabled"`
	CaptureRawMaxBytes int  `mapstructure:"capture_raw_max_bytes"`
}

// ProviderConfig configures one provider.
type ProviderConfig struct {
	// APIKey is a shorthand for a single unlabeled credential.
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`

	// SelectionPolicy controls which credential is chosen.
	// Supported values: "priority" (default), "round_robin".
	SelectionPolicy string `mapstructure:"selection_policy"`

	// DefaultCredential, if set, forces selecting the matching credential label.
	DefaultCredential string `mapstructure:"default_credential"`

	Credentials []CredentialConfig `mapstructure:"credentials"`
}

// CredentialConfig is a single credential for a provider.
type CredentialConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Label    string `mapstructure:"label"`
	APIKey   string `mapstructure:"api_key"`
	Priority int    `mapstructure:"priority"`
}

// Timeout returns the effective provider timeout, clamped to MaxTimeout.
func (c Config) Timeout() time.Duration {
	switch {
	case c.DefaultTimeout <= 0:
		return DefaultTimeout
	case c.DefaultTimeout > MaxTimeout:
		return MaxTimeout
	default:
		return c.DefaultTimeout
	}
}

func (p ProviderConfig) credentials() []CredentialConfig {
	creds := make([]CredentialConfig, 0, len(p.Credentials)+1)
	creds = append(creds, p.Credentials...)
	if len(p.Credentials) == 0 && p.APIKey != "" {
		creds = append(creds, CredentialConfig{Enabled: true, APIKey: p.APIKey})
	}
	return creds
}
