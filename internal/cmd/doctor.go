package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vhdlcheck/vhdlcheck/internal/config"
	errwrap "github.com/vhdlcheck/vhdlcheck/internal/errors"
	"github.com/vhdlcheck/vhdlcheck/internal/models"
	"github.com/vhdlcheck/vhdlcheck/internal/observability"
	"github.com/vhdlcheck/vhdlcheck/internal/ratelimit"
)

const doctorRedisTimeout = 3 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the system and suggest fixes for common issues.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := observability.CLILogger
		identity := GetAppIdentity()

		log.Info("=== " + identity.BinaryName + " doctor ===")
		log.Info("")

		allChecks := true
		const totalChecks = 7

		goVersion := runtime.Version()
		if goVersion >= "go1.23" {
			log.Info(fmt.Sprintf("[1/%d] Checking Go version... ✅ %s", totalChecks, goVersion), zap.String("go_version", goVersion))
		} else {
			log.Warn(fmt.Sprintf("[1/%d] Checking Go version... ⚠️  %s (recommended: go1.23+)", totalChecks, goVersion), zap.String("go_version", goVersion))
			allChecks = false
		}

		version := crucible.GetVersion()
		if version.Crucible != "" && version.Gofulmen != "" {
			log.Info(fmt.Sprintf("[2/%d] Checking Fulmen libraries... ✅ gofulmen v%s, crucible v%s", totalChecks, version.Gofulmen, version.Crucible))
		} else {
			log.Error(fmt.Sprintf("[2/%d] Checking Fulmen libraries... ❌ version metadata unavailable", totalChecks))
			allChecks = false
		}

		configPath := config.DefaultConfigPath()
		if configPath == "" {
			log.Error(fmt.Sprintf("[3/%d] Checking config directory... ❌ Cannot resolve config directory", totalChecks))
			ExitWithCode(log, foundry.ExitFileNotFound, "Cannot resolve config directory", errwrap.NewInternalError("config directory not resolved"))
		}
		log.Info(fmt.Sprintf("[3/%d] Checking config directory... ✅ %s (%s)", totalChecks, configPath, existenceStatus(fileExists(configPath))))

		log.Info(fmt.Sprintf("[4/%d] Checking environment... ✅ %s/%s", totalChecks, runtime.GOOS, runtime.GOARCH),
			zap.String("os", runtime.GOOS),
			zap.String("arch", runtime.GOARCH))

		cfg, cfgErr := loadConfig(ctx)
		if cfgErr != nil {
			log.Error(fmt.Sprintf("[5/%d] Checking configuration... ❌ %v", totalChecks, cfgErr))
			allChecks = false
		} else {
			log.Info(fmt.Sprintf("[5/%d] Checking configuration... ✅ valid", totalChecks))
		}

		if cfgErr == nil {
			svc, err := newReviewService(cfg, log)
			if err != nil {
				log.Error(fmt.Sprintf("[6/%d] Checking AI providers... ❌ %v", totalChecks, err))
				allChecks = false
			} else {
				providers := configuredProviders(svc)
				switch {
				case len(providers) == 0:
					log.Warn(fmt.Sprintf("[6/%d] Checking AI providers... ⚠️  none configured (set ANTHROPIC_API_KEY or GOOGLE_API_KEY)", totalChecks))
					allChecks = false
				case len(providers) < len(models.Providers()):
					log.Warn(fmt.Sprintf("[6/%d] Checking AI providers... ⚠️  %s only", totalChecks, strings.Join(providers, ", ")))
				default:
					log.Info(fmt.Sprintf("[6/%d] Checking AI providers... ✅ %s", totalChecks, strings.Join(providers, ", ")))
				}
			}

			if status, ok := checkLimiterBackend(ctx, cfg.RateLimit); ok {
				log.Info(fmt.Sprintf("[7/%d] Checking rate limiter... ✅ %s", totalChecks, status))
			} else {
				log.Warn(fmt.Sprintf("[7/%d] Checking rate limiter... ⚠️  %s", totalChecks, status))
				allChecks = false
			}
		} else {
			log.Warn(fmt.Sprintf("[6/%d] Checking AI providers... ⚠️  skipped (config not loaded)", totalChecks))
			log.Warn(fmt.Sprintf("[7/%d] Checking rate limiter... ⚠️  skipped (config not loaded)", totalChecks))
		}

		log.Info("")
		if allChecks {
			log.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", identity.BinaryName))
		} else {
			log.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		log.Info("")
		log.Info("=== End Diagnostics ===")
	},
}

// checkLimiterBackend reports the backend and, for redis, whether it answers a ping.
func checkLimiterBackend(ctx context.Context, cfg config.RateLimitConfig) (string, bool) {
	summary := fmt.Sprintf("%s, %d requests per %s", cfg.Backend, cfg.MaxRequests, cfg.Window())
	if cfg.Backend != config.BackendRedis {
		return summary, true
	}

	ctx, cancel := context.WithTimeout(ctx, doctorRedisTimeout)
	defer cancel()
	limiter, err := ratelimit.NewRedis(ctx, cfg.Limiter(), ratelimit.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	if err != nil {
		return fmt.Sprintf("redis %s unreachable (requests would not be limited): %v", cfg.Redis.Addr, err), false
	}
	_ = limiter.Close()
	return summary + " at " + cfg.Redis.Addr, true
}

var (
	doctorInitForce        bool
	doctorInitAnthropicKey string
	doctorInitGoogleKey    string
)

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}

		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		keys := map[string]string{}
		for provider, value := range map[string]string{
			models.ProviderAnthropic: doctorInitAnthropicKey,
			models.ProviderGoogle:    doctorInitGoogleKey,
		} {
			value = strings.TrimSpace(value)
			if strings.EqualFold(value, "prompt") {
				entered, err := promptForValue(fmt.Sprintf("Enter %s API key (leave blank to skip): ", provider), cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
				value = entered
			}
			if value != "" {
				keys[provider] = value
			}
		}

		body, err := buildInitConfig(keys)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		mode := os.FileMode(0644)
		if len(keys) > 0 {
			mode = 0600
		}
		if err := os.WriteFile(configPath, body, mode); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration status and paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := observability.CLILogger
		configPath := config.DefaultConfigPath()

		log.Info("Configuration:")
		log.Info(fmt.Sprintf("  Config file:   %s (%s)", configPath, existenceStatus(fileExists(configPath))))
		log.Info(fmt.Sprintf("  Env file:      %s (%s)", envFile, existenceStatus(fileExists(envFile))))
		log.Info("")

		log.Info("Environment:")
		for _, name := range []string{
			"ANTHROPIC_API_KEY",
			"GOOGLE_API_KEY",
			"GEMINI_API_KEY",
			"RATE_LIMIT_WINDOW_MS",
			"RATE_LIMIT_MAX_REQUESTS",
			"REDIS_ADDR",
		} {
			log.Info(fmt.Sprintf("  %s: %s", name, envStatus(name)))
		}

		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return nil
		}

		log.Info("")
		log.Info("Effective Settings:")
		log.Info(fmt.Sprintf("  server: %s:%d", cfg.Server.Host, cfg.Server.Port))
		log.Info(fmt.Sprintf("  rate_limit: %d per %s (%s)", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window(), cfg.RateLimit.Backend))
		log.Info(fmt.Sprintf("  ailink.default_timeout: %s", cfg.AILink.Timeout()))
		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := cfgFile
		if configPath == "" {
			configPath = config.DefaultConfigPath()
		}
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", configPath)
		}

		if _, err := loadConfig(cmd.Context()); err != nil {
			return err
		}

		observability.CLILogger.Info("Config is valid", zap.String("path", configPath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.AddCommand(doctorConfigCmd)
	doctorCmd.AddCommand(doctorValidateCmd)

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")
	doctorInitCmd.Flags().StringVar(&doctorInitAnthropicKey, "anthropic-key", "", "set the Anthropic API key or use 'prompt' to enter")
	doctorInitCmd.Flags().StringVar(&doctorInitGoogleKey, "google-key", "", "set the Google API key or use 'prompt' to enter")
}

type initConfigFile struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
	RateLimit struct {
		WindowMS    int64  `yaml:"window_ms"`
		MaxRequests int    `yaml:"max_requests"`
		Backend     string `yaml:"backend"`
	} `yaml:"rate_limit"`
	AILink struct {
		Providers map[string]initProvider `yaml:"providers"`
	} `yaml:"ailink"`
}

type initProvider struct {
	APIKey string `yaml:"api_key,omitempty"`
}

// buildInitConfig renders a starter config. Providers without a key are
// listed empty so the file shows where keys go.
func buildInitConfig(keys map[string]string) ([]byte, error) {
	var file initConfigFile
	file.Server.Host = "localhost"
	file.Server.Port = 8080
	file.RateLimit.WindowMS = ratelimit.DefaultWindow.Milliseconds()
	file.RateLimit.MaxRequests = ratelimit.DefaultMaxRequests
	file.RateLimit.Backend = config.BackendMemory
	file.AILink.Providers = make(map[string]initProvider)
	for _, provider := range models.Providers() {
		file.AILink.Providers[provider] = initProvider{APIKey: keys[provider]}
	}

	body, err := yaml.Marshal(&file)
	if err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	header := "# vhdlcheck config - created by 'vhdlcheck doctor init'\n" +
		"# API keys may instead come from ANTHROPIC_API_KEY and GOOGLE_API_KEY.\n"
	return append([]byte(header), body...), nil
}

func promptForValue(prompt string, in io.Reader, out io.Writer) (string, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return "", err
	}
	value, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func existenceStatus(exists bool) string {
	if exists {
		return "exists"
	}
	return "missing"
}

func envStatus(name string) string {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return "(set)"
	}
	return "(not set)"
}
