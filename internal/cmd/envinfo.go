package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vhdlcheck/vhdlcheck/internal/config"
	"github.com/vhdlcheck/vhdlcheck/internal/models"
	"github.com/vhdlcheck/vhdlcheck/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration, and version information. Secrets are reported as set or not set.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		version := crucible.GetVersion()
		identity := GetAppIdentity()

		log.Info("=== Environment Information ===")
		log.Info("")

		log.Info("Application:")
		log.Info("  Name:       " + identity.BinaryName)
		log.Info("  Version:    " + versionInfo.Version)
		log.Info("  Commit:     " + versionInfo.Commit)
		log.Info("  Built:      " + versionInfo.BuildDate)
		log.Info("")

		log.Info("SSOT:")
		log.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		log.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		log.Info("")

		log.Info("Runtime:")
		log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		log.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		log.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		log.Info(fmt.Sprintf("  NumCPU:     %d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		log.Info("")

		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return
		}

		log.Info("Configuration:")
		log.Info("  Server Host:    "+cfg.Server.Host, zap.String("host", cfg.Server.Host))
		log.Info(fmt.Sprintf("  Server Port:    %d", cfg.Server.Port), zap.Int("port", cfg.Server.Port))
		log.Info("  Log Level:      "+cfg.Logging.Level, zap.String("log_level", cfg.Logging.Level))
		log.Info(fmt.Sprintf("  Metrics:        %t (port %d)", cfg.Metrics.Enabled, cfg.Metrics.Port))
		log.Info("  Config File:    "+config.DefaultConfigPath(), zap.String("config_file", config.DefaultConfigPath()))
		log.Info("")

		log.Info("Rate Limit:")
		log.Info("  Backend:        " + cfg.RateLimit.Backend)
		log.Info("  Window:         " + cfg.RateLimit.Window().String())
		log.Info(fmt.Sprintf("  Max Requests:   %d", cfg.RateLimit.MaxRequests))
		if cfg.RateLimit.Backend == config.BackendRedis {
			log.Info("  Redis Addr:     " + cfg.RateLimit.Redis.Addr)
		}
		log.Info("")

		log.Info("AILink:")
		log.Info("  Default Timeout:  " + cfg.AILink.Timeout().String())
		log.Info("  Default Model:    " + models.Default().ID)
		if dir := strings.TrimSpace(cfg.AILink.PromptsDir); dir != "" {
			log.Info("  Prompts Dir:      " + dir)
		}
		for _, providerID := range models.Providers() {
			providerCfg := cfg.AILink.Providers[providerID]
			log.Info(fmt.Sprintf("  %s.api_key:  %s", providerID, secretStatus(providerCfg.APIKey, len(providerCfg.Credentials))))
			if providerCfg.BaseURL != "" {
				log.Info(fmt.Sprintf("  %s.base_url: %s", providerID, providerCfg.BaseURL))
			}
		}
		log.Info("")

		log.Info("=== End Environment Information ===")
	},
}

func secretStatus(value string, credentials int) string {
	switch {
	case strings.TrimSpace(value) != "":
		return "(set)"
	case credentials > 0:
		return fmt.Sprintf("(%d credentials)", credentials)
	default:
		return "(not set)"
	}
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
