package cmd

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/vhdlcheck/vhdlcheck/internal/errors"
	"github.com/vhdlcheck/vhdlcheck/internal/models"
	"github.com/vhdlcheck/vhdlcheck/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Verify that configuration loads, the prompt set parses and at least one provider is configured.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("version information missing"))
			return
		}
		logger.Info("✅ Version information available", zap.String("version", versionInfo.Version))

		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration invalid", err)
			return
		}
		logger.Info("✅ Configuration loaded")

		svc, err := newReviewService(cfg, logger)
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Prompt set invalid", err)
			return
		}
		logger.Info("✅ Prompt set loaded")

		providers := configuredProviders(svc)
		switch {
		case len(providers) == 0:
			ExitWithCode(logger, foundry.ExitConfigInvalid, "No AI provider configured",
				errwrap.NewConfigInvalidError("set ANTHROPIC_API_KEY or GOOGLE_API_KEY"))
			return
		case len(providers) < len(models.Providers()):
			logger.Warn(fmt.Sprintf("⚠️  Providers configured: %s (some models unavailable)", strings.Join(providers, ", ")))
		default:
			logger.Info("✅ Providers configured: " + strings.Join(providers, ", "))
		}

		logger.Info("")
		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
