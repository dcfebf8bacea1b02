// Package config loads vhdlcheck configuration from defaults, an optional
// YAML file, a .env file and the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/vhdlcheck/vhdlcheck/internal/appid"
	"github.com/vhdlcheck/vhdlcheck/internal/ratelimit"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigFile is an explicit YAML file; it must exist when set.
	ConfigFile string
	// EnvFile is loaded into the process environment when present. Defaults to ".env".
	EnvFile string
	// Viper carries bound CLI flags. Nil uses a fresh instance.
	Viper *viper.Viper
}

// envAliases are bare environment names honoured next to the prefixed ones.
var envAliases = map[string][]string{
	"rate_limit.window_ms":               {"RATE_LIMIT_WINDOW_MS"},
	"rate_limit.max_requests":            {"RATE_LIMIT_MAX_REQUESTS"},
	"ailink.providers.anthropic.api_key": {"ANTHROPIC_API_KEY"},
	"ailink.providers.google.api_key":    {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"rate_limit.redis.addr":              {"REDIS_ADDR"},
	"rate_limit.redis.password":          {"REDIS_PASSWORD"},
}

// Load resolves configuration and stores it for GetConfig.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	identity, err := appid.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load app identity: %w", err)
	}

	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := opts.Viper
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	if err := readConfigFile(v, identity, opts.ConfigFile); err != nil {
		return nil, err
	}
	if err := bindEnv(v, identity); err != nil {
		return nil, err
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "2m")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("rate_limit.window_ms", ratelimit.DefaultWindow.Milliseconds())
	v.SetDefault("rate_limit.max_requests", ratelimit.DefaultMaxRequests)
	v.SetDefault("rate_limit.backend", BackendMemory)
	v.SetDefault("rate_limit.redis.addr", "")
	v.SetDefault("rate_limit.redis.password", "")
	v.SetDefault("rate_limit.redis.db", 0)
	v.SetDefault("rate_limit.redis.prefix", ratelimit.DefaultRedisPrefix)

	v.SetDefault("ailink.default_timeout", "60s")
	v.SetDefault("ailink.prompts_dir", "")
	v.SetDefault("ailink.debug.capture_raw_enabled", false)
	v.SetDefault("ailink.debug.capture_raw_max_bytes", 2048)
	for _, provider := range []string{"anthropic", "google"} {
		v.SetDefault("ailink.providers."+provider+".api_key", "")
		v.SetDefault("ailink.providers."+provider+".base_url", "")
		v.SetDefault("ailink.providers."+provider+".selection_policy", "priority")
	}

	v.SetDefault("logging.level", "info")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("admin.token", "")
}

// Validate checks field constraints on a loaded configuration.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config %s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.RateLimit.Backend == BackendRedis && strings.TrimSpace(cfg.RateLimit.Redis.Addr) == "" {
		return errors.New("invalid config rate_limit.redis.addr: required for redis backend")
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func normalize(cfg *Config) {
	cfg.RateLimit.Backend = strings.ToLower(strings.TrimSpace(cfg.RateLimit.Backend))
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	for id, provider := range cfg.AILink.Providers {
		provider.APIKey = strings.TrimSpace(provider.APIKey)
		provider.BaseURL = strings.TrimSpace(provider.BaseURL)
		cfg.AILink.Providers[id] = provider
	}
}

func loadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func readConfigFile(v *viper.Viper, identity *appidentity.Identity, explicit string) error {
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", explicit, err)
		}
		return nil
	}

	if dir := gfconfig.GetAppConfigDir(configName(identity)); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func bindEnv(v *viper.Viper, identity *appidentity.Identity) error {
	prefix := strings.TrimSuffix(identity.EnvPrefix, "_")
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range envBindings(prefix) {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

// envBindings lists, per key, the environment names checked in order: the
// full prefixed name, a short provider form, then bare aliases.
func envBindings(prefix string) map[string][]string {
	bindings := make(map[string][]string)
	for key, aliases := range envAliases {
		bindings[key] = append([]string{envName(prefix, key)}, aliases...)
	}
	for _, provider := range []string{"anthropic", "google"} {
		for _, field := range []string{"api_key", "base_url"} {
			key := "ailink.providers." + provider + "." + field
			short := prefix + "_" + strings.ToUpper(provider+"_"+field)
			bindings[key] = append([]string{envName(prefix, key), short}, envAliases[key]...)
		}
	}
	return bindings
}

func envName(prefix, key string) string {
	return prefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func configName(identity *appidentity.Identity) string {
	if identity == nil {
		return appid.BinaryName
	}
	if name := strings.TrimSpace(identity.ConfigName); name != "" {
		return name
	}
	if name := strings.TrimSpace(identity.BinaryName); name != "" {
		return name
	}
	return appid.BinaryName
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	identity, _ := appid.Get(context.Background())
	dir := gfconfig.GetAppConfigDir(configName(identity))
	if strings.TrimSpace(dir) == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}
