package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vhdlcheck/vhdlcheck/internal/ailink/driver"
	"github.com/vhdlcheck/vhdlcheck/internal/appid"
	"github.com/vhdlcheck/vhdlcheck/internal/config"
	"github.com/vhdlcheck/vhdlcheck/internal/observability"
)

var (
	cfgFile   string
	envFile   string
	verbose   bool
	traceFile string

	appIdentity *appidentity.Identity

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}

	configOnce sync.Once
	appConfig  *config.Config
	configErr  error
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the loaded app identity (only valid after initConfig)
func GetAppIdentity() *appidentity.Identity {
	return appIdentity
}

var rootCmd = &cobra.Command{
	Use:   filepath.Base(os.Args[0]),
	Short: "AI-assisted VHDL code review",
	Long: `AI-assisted VHDL code review.

Serve the review API, or analyze files and generate testbenches from the command line.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Keep config loading quiet; serve installs the real telemetry system.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	if identity, err := appid.Get(context.Background()); err == nil && identity != nil {
		appIdentity = identity
		applyIdentity(identity)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/vhdlcheck/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "trace provider requests/responses to NDJSON file")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func applyIdentity(identity *appidentity.Identity) {
	if identity.BinaryName != "" {
		rootCmd.Use = identity.BinaryName
	}
	if identity.Description != "" {
		rootCmd.Short = identity.Description
		rootCmd.Long = fmt.Sprintf("%s - %s\n\nServe the review API, or analyze files and generate testbenches from the command line.", identity.BinaryName, identity.Description)
	}
}

// initConfig resolves identity, the CLI logger and tracing. Configuration
// itself is loaded on demand by the commands that need it.
func initConfig() {
	identity, err := appid.Get(context.Background())
	if err != nil {
		ExitWithCodeStderr(foundry.ExitFileNotFound, "Failed to load app identity", err)
	}
	appIdentity = identity
	applyIdentity(identity)

	observability.InitCLILogger(appIdentity.BinaryName, verbose)

	if traceFile != "" {
		if _, err := driver.EnableTracing(traceFile); err != nil {
			observability.CLILogger.Warn("Failed to enable tracing", zap.Error(err))
		} else {
			// The trace file stays open for the whole session.
			observability.CLILogger.Debug("Provider tracing enabled", zap.String("file", traceFile))
		}
	}
}

// loadConfig loads configuration once per process, honouring --config,
// --env-file and any flags bound to the global viper instance.
func loadConfig(ctx context.Context) (*config.Config, error) {
	configOnce.Do(func() {
		appConfig, configErr = config.Load(ctx, config.LoadOptions{
			ConfigFile: cfgFile,
			EnvFile:    envFile,
			Viper:      viper.GetViper(),
		})
		if configErr == nil && verbose {
			if used := viper.ConfigFileUsed(); used != "" {
				observability.CLILogger.Debug("Using config file", zap.String("path", used))
			} else {
				observability.CLILogger.Debug("No config file found, using defaults and environment variables")
			}
		}
	})
	return appConfig, configErr
}

// mustLoadConfig exits with a config-invalid code when configuration cannot be loaded.
func mustLoadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to load configuration", err)
	}
	return cfg
}
