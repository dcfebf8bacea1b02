package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/spf13/cobra"

	"github.com/vhdlcheck/vhdlcheck/internal/ailink"
	"github.com/vhdlcheck/vhdlcheck/internal/config"
	"github.com/vhdlcheck/vhdlcheck/internal/models"
	"github.com/vhdlcheck/vhdlcheck/internal/ratelimit"
)

// maxSourceBytes matches the HTTP request body cap.
const maxSourceBytes = 1 << 20

func newReviewService(cfg *config.Config, logger *logging.Logger) (*ailink.Service, error) {
	svc, err := ailink.NewService(cfg.AILink, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize review service: %w", err)
	}
	return svc, nil
}

// newLimiter builds the configured rate limiter backend.
func newLimiter(ctx context.Context, cfg config.RateLimitConfig) (ratelimit.Limiter, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		limiter, err := ratelimit.NewRedis(ctx, cfg.Limiter(), ratelimit.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return limiter, nil
	default:
		mem := ratelimit.NewMemory(cfg.Limiter())
		mem.Start(ctx)
		return mem, nil
	}
}

// configuredProviders lists providers that have at least one credential.
func configuredProviders(svc *ailink.Service) []string {
	var out []string
	for _, p := range models.Providers() {
		if svc.Registry.Configured(p) {
			out = append(out, p)
		}
	}
	return out
}

// resolveModel returns the flag value, or the default model when unset.
func resolveModel(cmd *cobra.Command) string {
	value, _ := cmd.Flags().GetString("model")
	if strings.TrimSpace(value) == "" {
		return models.Default().ID
	}
	return strings.TrimSpace(value)
}

// readSource reads VHDL source from a path, or stdin when path is "-".
func readSource(path string, stdin io.Reader) (string, error) {
	var r io.Reader
	if strings.TrimSpace(path) == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close() //nolint:errcheck
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, maxSourceBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxSourceBytes {
		return "", fmt.Errorf("source exceeds %d bytes", maxSourceBytes)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("source is empty")
	}
	return string(data), nil
}
