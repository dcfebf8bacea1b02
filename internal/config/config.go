package config

import (
	"time"

	"github.com/vhdlcheck/vhdlcheck/internal/ailink"
	"github.com/vhdlcheck/vhdlcheck/internal/ratelimit"
)

// Config represents the complete application configuration.
// Sources, lowest precedence first: defaults, config file, .env, environment.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	AILink    ailink.Config   `mapstructure:"ailink"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=0,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// Rate limiter backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// RateLimitConfig configures the fixed-window limiter on the review routes.
type RateLimitConfig struct {
	WindowMS    int64       `mapstructure:"window_ms" validate:"gt=0"`
	MaxRequests int         `mapstructure:"max_requests" validate:"gt=0"`
	Backend     string      `mapstructure:"backend" validate:"oneof=memory redis"`
	Redis       RedisConfig `mapstructure:"redis"`
}

// RedisConfig locates the shared counter store for the redis backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix"`
}

// Window returns the window length as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMS) * time.Millisecond
}

// Limiter returns the limiter settings.
func (c RateLimitConfig) Limiter() ratelimit.Config {
	return ratelimit.Config{Window: c.Window(), MaxRequests: c.MaxRequests}
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn warning error"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated exporter port; /metrics on the main port proxies it.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// AdminConfig guards the admin signal endpoint.
type AdminConfig struct {
	// Token enables POST /admin/signal with bearer auth when set.
	Token string `mapstructure:"token"`
}
