package cmd

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vhdlcheck/vhdlcheck/internal/ailink"
	"github.com/vhdlcheck/vhdlcheck/internal/config"
	errwrap "github.com/vhdlcheck/vhdlcheck/internal/errors"
	"github.com/vhdlcheck/vhdlcheck/internal/metrics"
	"github.com/vhdlcheck/vhdlcheck/internal/models"
	"github.com/vhdlcheck/vhdlcheck/internal/observability"
	"github.com/vhdlcheck/vhdlcheck/internal/ratelimit"
	"github.com/vhdlcheck/vhdlcheck/internal/server"
	"github.com/vhdlcheck/vhdlcheck/internal/server/handlers"
)

const defaultShutdownTimeout = 10 * time.Second

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// providerHealthChecker is degraded when only some providers have credentials
// and unhealthy when none do.
func providerHealthChecker(svc *ailink.Service) handlers.HealthChecker {
	return handlers.HealthCheckerFunc(func(ctx context.Context) error {
		configured := configuredProviders(svc)
		all := models.Providers()
		switch {
		case len(configured) == 0:
			return errwrap.NewConfigInvalidError("no AI provider credentials configured")
		case len(configured) < len(all):
			return fmt.Errorf("%w: only %s configured", handlers.ErrDegraded, strings.Join(configured, ", "))
		}
		return nil
	})
}

type pinger interface {
	Ping(ctx context.Context) error
}

// limiterHealthChecker pings shared backends. A failing backend lets requests
// through, so it reports degraded rather than unhealthy.
func limiterHealthChecker(limiter ratelimit.Limiter) handlers.HealthChecker {
	return handlers.HealthCheckerFunc(func(ctx context.Context) error {
		p, ok := limiter.(pinger)
		if !ok {
			return nil
		}
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter backend unreachable: %v", handlers.ErrDegraded, err)
		}
		return nil
	})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the review API server with graceful shutdown support.

Endpoints:
  POST /api/analyze               Review VHDL code
  POST /api/generate-testbench    Generate a VHDL testbench
  GET  /api/models                List selectable models

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Re-validate configuration (restart to apply)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := mustLoadConfig(cmd)

		identity := GetAppIdentity()
		namespace := identity.TelemetryNamespace()

		observability.InitServerLogger(identity.BinaryName, cfg.Logging.Level, namespace)
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(identity.BinaryName, cfg.Metrics.Port, namespace); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
			}
		}

		svc, err := newReviewService(cfg, logger)
		if err != nil {
			return errwrap.WrapInternal(ctx, err, "review service initialization failed")
		}

		limiter, err := newLimiter(ctx, cfg.RateLimit)
		if err != nil {
			logger.Error("Failed to initialize rate limiter",
				zap.String("backend", cfg.RateLimit.Backend), zap.Error(err))
			return errwrap.WrapInternal(ctx, err, "rate limiter initialization failed")
		}

		providers := configuredProviders(svc)
		if len(providers) == 0 {
			logger.Warn("No AI provider credentials configured; review requests will return an explanatory result")
		}

		logger.Info("Initializing server",
			zap.String("service", identity.BinaryName),
			zap.String("namespace", namespace),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
			zap.Int("metrics_port", cfg.Metrics.Port),
			zap.String("rate_limit_backend", cfg.RateLimit.Backend),
			zap.Duration("rate_limit_window", cfg.RateLimit.Window()),
			zap.Int("rate_limit_max", cfg.RateLimit.MaxRequests),
			zap.Strings("providers", providers))

		hm := handlers.InitHealthManager(versionInfo.Version)
		hm.RegisterChecker("ai_providers", providerHealthChecker(svc))
		hm.RegisterChecker("rate_limiter", limiterHealthChecker(limiter))
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}

		handlers.SetAppIdentity(identity)

		srv := server.New(server.Options{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
			Reviewer:     svc,
			Limiter:      limiter,
			AdminToken:   cfg.Admin.Token,
		})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = defaultShutdownTimeout
		}

		// Shutdown handlers run LIFO.
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Flushing logger...")
			observability.Flush()
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			if err := limiter.Close(); err != nil {
				logger.Warn("Rate limiter close returned error", zap.Error(err))
			}
			if err := observability.ShutdownMetrics(); err != nil {
				logger.Warn("Metrics exporter stop returned error", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: re-validating configuration")

			reloaded, err := config.Load(ctx, config.LoadOptions{
				ConfigFile: cfgFile,
				EnvFile:    envFile,
				Viper:      viper.GetViper(),
			})
			if err != nil {
				logger.Error("Configuration reload failed", zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			logger.Info("Configuration is valid; restart to apply changes",
				zap.String("file", viper.ConfigFileUsed()),
				zap.Int("rate_limit_max", reloaded.RateLimit.MaxRequests))
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		metrics.SetServerStartTime(time.Now().Unix())

		errChan := make(chan error, 1)
		go func() {
			logger.Info("Starting HTTP server...",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(ctx); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(ctx, err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("rate-limit-backend", config.BackendMemory, "rate limiter backend (memory, redis)")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("rate_limit.backend", serveCmd.Flags().Lookup("rate-limit-backend"))
}
