package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with no inherited settings.
func isolate(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	for _, key := range []string{
		"RATE_LIMIT_WINDOW_MS", "RATE_LIMIT_MAX_REQUESTS",
		"ANTHROPIC_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY",
		"REDIS_ADDR", "REDIS_PASSWORD",
		"VHDLCHECK_SERVER_PORT", "VHDLCHECK_LOGGING_LEVEL",
		"VHDLCHECK_ANTHROPIC_API_KEY", "VHDLCHECK_GOOGLE_API_KEY",
		"VHDLCHECK_RATE_LIMIT_BACKEND", "VHDLCHECK_RATE_LIMIT_REDIS_ADDR",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(context.Background(), LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, int64(900000), cfg.RateLimit.WindowMS)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window())
	assert.Equal(t, 100, cfg.RateLimit.MaxRequests)
	assert.Equal(t, BackendMemory, cfg.RateLimit.Backend)

	assert.Equal(t, 60*time.Second, cfg.AILink.DefaultTimeout)
	assert.Empty(t, cfg.AILink.Providers["anthropic"].APIKey)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)

	assert.Same(t, cfg, GetConfig())
}

func TestLoadBareEnvironmentNames(t *testing.T) {
	isolate(t)
	t.Setenv("RATE_LIMIT_WINDOW_MS", "60000")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "5")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("GEMINI_API_KEY", "gemini-test")

	cfg, err := Load(context.Background(), LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.RateLimit.Window())
	assert.Equal(t, 5, cfg.RateLimit.MaxRequests)
	assert.Equal(t, "sk-ant-test", cfg.AILink.Providers["anthropic"].APIKey)
	assert.Equal(t, "gemini-test", cfg.AILink.Providers["google"].APIKey)

	limiter := cfg.RateLimit.Limiter()
	assert.Equal(t, time.Minute, limiter.Window)
	assert.Equal(t, 5, limiter.MaxRequests)
}

func TestLoadPrefixedEnvironmentWins(t *testing.T) {
	isolate(t)
	t.Setenv("GOOGLE_API_KEY", "bare")
	t.Setenv("VHDLCHECK_GOOGLE_API_KEY", "prefixed")
	t.Setenv("VHDLCHECK_SERVER_PORT", "3000")
	t.Setenv("VHDLCHECK_LOGGING_LEVEL", "debug")

	cfg, err := Load(context.Background(), LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "prefixed", cfg.AILink.Providers["google"].APIKey)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "vhdlcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
  write_timeout: 5m
rate_limit:
  max_requests: 20
ailink:
  default_timeout: 90s
  providers:
    anthropic:
      selection_policy: round_robin
      credentials:
        - label: primary
          api_key: key-a
          enabled: true
          priority: 1
        - label: backup
          api_key: key-b
          enabled: true
`), 0o600))

	cfg, err := Load(context.Background(), LoadOptions{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 20, cfg.RateLimit.MaxRequests)
	assert.Equal(t, int64(900000), cfg.RateLimit.WindowMS)
	assert.Equal(t, 90*time.Second, cfg.AILink.DefaultTimeout)

	anthropic := cfg.AILink.Providers["anthropic"]
	assert.Equal(t, "round_robin", anthropic.SelectionPolicy)
	require.Len(t, anthropic.Credentials, 2)
	assert.Equal(t, "primary", anthropic.Credentials[0].Label)
	assert.Equal(t, 1, anthropic.Credentials[0].Priority)
}

func TestLoadDiscoversLocalConfigDir(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.yaml"), []byte("server:\n  host: 0.0.0.0\n"), 0o600))

	cfg, err := Load(context.Background(), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoadMissingExplicitConfigFails(t *testing.T) {
	dir := isolate(t)

	_, err := Load(context.Background(), LoadOptions{ConfigFile: filepath.Join(dir, "nope.yaml")})
	require.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := isolate(t)
	// godotenv skips keys that are already present, even when empty.
	require.NoError(t, os.Unsetenv("RATE_LIMIT_MAX_REQUESTS"))
	t.Cleanup(func() { _ = os.Unsetenv("RATE_LIMIT_MAX_REQUESTS") })

	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("RATE_LIMIT_MAX_REQUESTS=42\n"), 0o600))

	cfg, err := Load(context.Background(), LoadOptions{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.RateLimit.MaxRequests)
}

func TestLoadUsesSuppliedViper(t *testing.T) {
	isolate(t)
	v := viper.New()
	v.Set("server.port", 7070)

	cfg, err := Load(context.Background(), LoadOptions{Viper: v})
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"zero max requests":   {"RATE_LIMIT_MAX_REQUESTS": "0"},
		"negative window":     {"RATE_LIMIT_WINDOW_MS": "-1"},
		"unknown backend":     {"VHDLCHECK_RATE_LIMIT_BACKEND": "memcached"},
		"redis without addr":  {"VHDLCHECK_RATE_LIMIT_BACKEND": "redis"},
		"bad log level":       {"VHDLCHECK_LOGGING_LEVEL": "loud"},
		"port out of range":   {"VHDLCHECK_SERVER_PORT": "70000"},
		"non numeric maximum": {"RATE_LIMIT_MAX_REQUESTS": "lots"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load(context.Background(), LoadOptions{})
			assert.Error(t, err)
		})
	}
}

func TestLoadRedisBackend(t *testing.T) {
	isolate(t)
	t.Setenv("VHDLCHECK_RATE_LIMIT_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")

	cfg, err := Load(context.Background(), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.RateLimit.Backend)
	assert.Equal(t, "127.0.0.1:6379", cfg.RateLimit.Redis.Addr)
	assert.Equal(t, "vhdlcheck:ratelimit:", cfg.RateLimit.Redis.Prefix)
}
