package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vhdlcheck/vhdlcheck/internal/ailink"
	"github.com/vhdlcheck/vhdlcheck/internal/config"
	"github.com/vhdlcheck/vhdlcheck/internal/core"
	"github.com/vhdlcheck/vhdlcheck/internal/models"
	"github.com/vhdlcheck/vhdlcheck/internal/ratelimit"
	"github.com/vhdlcheck/vhdlcheck/internal/server/handlers"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, name := range []string{
		"ANTHROPIC_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY",
		"VHDLCHECK_ANTHROPIC_API_KEY", "VHDLCHECK_GOOGLE_API_KEY",
		"RATE_LIMIT_WINDOW_MS", "RATE_LIMIT_MAX_REQUESTS", "REDIS_ADDR",
	} {
		t.Setenv(name, "")
	}
}

func TestReadSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counter.vhd")
	require.NoError(t, os.WriteFile(path, []byte("entity counter is end;"), 0o644))

	code, err := readSource(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "entity counter is end;", code)

	code, err = readSource("-", strings.NewReader("architecture rtl of x is begin end;"))
	require.NoError(t, err)
	assert.Contains(t, code, "architecture")

	_, err = readSource("-", strings.NewReader("  \n\t"))
	assert.EqualError(t, err, "source is empty")

	_, err = readSource("-", bytes.NewReader(make([]byte, maxSourceBytes+1)))
	assert.Error(t, err)

	_, err = readSource(filepath.Join(dir, "missing.vhd"), nil)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCountAtOrAbove(t *testing.T) {
	issues := []core.Issue{
		{Severity: core.SeverityLow},
		{Severity: core.SeverityMedium},
		{Severity: core.SeverityHigh},
		{Severity: core.SeverityCritical},
	}

	assert.Equal(t, 0, countAtOrAbove(issues, ""))
	assert.Equal(t, 1, countAtOrAbove(issues, core.SeverityCritical))
	assert.Equal(t, 2, countAtOrAbove(issues, core.SeverityHigh))
	assert.Equal(t, 4, countAtOrAbove(issues, core.SeverityLow))
	assert.Equal(t, 0, countAtOrAbove(nil, core.SeverityLow))
}

func newFlagCommand(t *testing.T, setup func(*cobra.Command)) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	setup(c)
	return c
}

func TestResolveFailOn(t *testing.T) {
	c := newFlagCommand(t, func(c *cobra.Command) { c.Flags().String("fail-on", "", "") })

	sev, err := resolveFailOn(c)
	require.NoError(t, err)
	assert.Equal(t, core.Severity(""), sev)

	require.NoError(t, c.Flags().Set("fail-on", " HIGH "))
	sev, err = resolveFailOn(c)
	require.NoError(t, err)
	assert.Equal(t, core.SeverityHigh, sev)

	require.NoError(t, c.Flags().Set("fail-on", "urgent"))
	_, err = resolveFailOn(c)
	assert.Error(t, err)
}

func TestScenarioFromFlags(t *testing.T) {
	c := newFlagCommand(t, func(c *cobra.Command) {
		c.Flags().String("scenario", "", "")
		c.Flags().String("clock-period", "", "")
		c.Flags().String("simulation-time", "", "")
	})

	_, err := scenarioFromFlags(c)
	assert.EqualError(t, err, "--scenario is required")

	require.NoError(t, c.Flags().Set("scenario", "  count to 15 then wrap  "))
	require.NoError(t, c.Flags().Set("clock-period", "10 ns"))
	scenario, err := scenarioFromFlags(c)
	require.NoError(t, err)
	assert.Equal(t, core.TestbenchScenario{Description: "count to 15 then wrap", ClockPeriod: "10 ns"}, scenario)
}

func TestResolveModel(t *testing.T) {
	c := newFlagCommand(t, func(c *cobra.Command) { c.Flags().String("model", "", "") })
	assert.Equal(t, models.Default().ID, resolveModel(c))

	require.NoError(t, c.Flags().Set("model", " gemini-2.5-pro "))
	assert.Equal(t, "gemini-2.5-pro", resolveModel(c))
}

func TestWriteOutput(t *testing.T) {
	c := newFlagCommand(t, addOutputFlags)
	var stdout bytes.Buffer
	c.SetOut(&stdout)

	require.NoError(t, writeOutput(c, "hello"))
	assert.Equal(t, "hello\n", stdout.String())

	path := filepath.Join(t.TempDir(), "nested", "tb_counter.vhd")
	require.NoError(t, c.Flags().Set("out", path))
	require.NoError(t, writeOutput(c, "entity tb is end;\n"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "entity tb is end;\n", string(data))
	assert.Equal(t, "hello\n", stdout.String())
}

func TestBuildInitConfigLoads(t *testing.T) {
	clearProviderEnv(t)

	body, err := buildInitConfig(map[string]string{models.ProviderAnthropic: "sk-test"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "# vhdlcheck config"))

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(body, &parsed))
	assert.Contains(t, parsed, "rate_limit")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := config.Load(context.Background(), config.LoadOptions{
		ConfigFile: path,
		EnvFile:    filepath.Join(dir, "absent.env"),
		Viper:      viper.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.AILink.Providers[models.ProviderAnthropic].APIKey)
	assert.Empty(t, cfg.AILink.Providers[models.ProviderGoogle].APIKey)
	assert.Equal(t, ratelimit.DefaultWindow, cfg.RateLimit.Window())
	assert.Equal(t, ratelimit.DefaultMaxRequests, cfg.RateLimit.MaxRequests)
}

func TestPromptForValue(t *testing.T) {
	var out bytes.Buffer
	value, err := promptForValue("key: ", strings.NewReader("  abc \n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "abc", value)
	assert.Equal(t, "key: ", out.String())
}

func TestProviderHealthChecker(t *testing.T) {
	ctx := context.Background()

	build := func(providers map[string]ailink.ProviderConfig) *ailink.Service {
		svc, err := ailink.NewService(ailink.Config{Providers: providers}, nil)
		require.NoError(t, err)
		return svc
	}

	err := providerHealthChecker(build(nil)).CheckHealth(ctx)
	require.Error(t, err)
	assert.False(t, errors.Is(err, handlers.ErrDegraded))

	err = providerHealthChecker(build(map[string]ailink.ProviderConfig{
		models.ProviderGoogle: {APIKey: "g"},
	})).CheckHealth(ctx)
	assert.ErrorIs(t, err, handlers.ErrDegraded)

	err = providerHealthChecker(build(map[string]ailink.ProviderConfig{
		models.ProviderAnthropic: {APIKey: "a"},
		models.ProviderGoogle:    {APIKey: "g"},
	})).CheckHealth(ctx)
	assert.NoError(t, err)
}

type fakePingLimiter struct {
	ratelimit.Limiter
	err error
}

func (f fakePingLimiter) Ping(context.Context) error { return f.err }

func TestLimiterHealthChecker(t *testing.T) {
	ctx := context.Background()
	mem := ratelimit.NewMemory(ratelimit.Config{Window: time.Minute, MaxRequests: 1})
	t.Cleanup(func() { _ = mem.Close() })

	assert.NoError(t, limiterHealthChecker(mem).CheckHealth(ctx))
	assert.NoError(t, limiterHealthChecker(fakePingLimiter{Limiter: mem}).CheckHealth(ctx))

	err := limiterHealthChecker(fakePingLimiter{Limiter: mem, err: errors.New("connection refused")}).CheckHealth(ctx)
	assert.ErrorIs(t, err, handlers.ErrDegraded)
}

func TestNewLimiterMemory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter, err := newLimiter(ctx, config.RateLimitConfig{WindowMS: 60000, MaxRequests: 2, Backend: config.BackendMemory})
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close() })

	for i := 0; i < 2; i++ {
		assert.True(t, limiter.Check(ctx, "10.0.0.1", "/api/analyze").Allowed)
	}
	assert.False(t, limiter.Check(ctx, "10.0.0.1", "/api/analyze").Allowed)
}

func TestSecretStatus(t *testing.T) {
	assert.Equal(t, "(set)", secretStatus("k", 0))
	assert.Equal(t, "(2 credentials)", secretStatus("", 2))
	assert.Equal(t, "(not set)", secretStatus(" ", 0))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "analyze", "testbench", "models", "version", "health", "doctor", "envinfo"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
