// Package ratelimit implements the per-client fixed-window request limiter
// placed in front of the analysis endpoints.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Defaults applied when configuration leaves a value unset.
const (
	DefaultWindow      = 15 * time.Minute
	DefaultMaxRequests = 100
)

// Config controls window size and the per-window request budget.
type Config struct {
	Window      time.Duration
	MaxRequests int
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.MaxRequests <= 0 {
		c.MaxRequests = DefaultMaxRequests
	}
	return c
}

// Decision is the outcome of a single Check.
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// RetryAfter returns whole seconds until the window resets, never less than 1.
func (d Decision) RetryAfter(now time.Time) int {
	secs := int(math.Ceil(d.ResetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter decides whether a client may call an endpoint.
// Implementations never fail; backend trouble resolves to an allow.
type Limiter interface {
	Check(ctx context.Context, clientID, endpoint string) Decision
	Close() error
}

// Key builds the counter key for a client and endpoint.
func Key(clientID, endpoint string) string {
	return clientID + ":" + endpoint
}
