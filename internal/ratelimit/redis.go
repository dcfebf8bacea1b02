package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vhdlcheck/vhdlcheck/internal/observability"
)

// DefaultRedisPrefix namespaces limiter keys in a shared Redis.
const DefaultRedisPrefix = "vhdlcheck:ratelimit:"

// fixedWindowScript returns {allowed, count, pttl}. A full window is not
// incremented so the counter never exceeds the limit.
var fixedWindowScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= limit then
  return {0, current, redis.call('PTTL', KEYS[1])}
end
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if count == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], window)
  ttl = window
end
return {1, count, ttl}
`)

// RedisConfig points the limiter at a Redis server.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Redis is a fixed-window limiter shared across processes through Redis.
type Redis struct {
	cfg    Config
	client redis.UniversalClient
	prefix string
	clock  func() time.Time
	owned  bool
}

// NewRedis dials Redis and verifies connectivity.
func NewRedis(ctx context.Context, cfg Config, rc RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", rc.Addr, err)
	}
	r := NewRedisWithClient(cfg, client, rc.Prefix)
	r.owned = true
	return r, nil
}

// NewRedisWithClient wraps an existing client. The caller keeps ownership of it.
func NewRedisWithClient(cfg Config, client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{
		cfg:    cfg.withDefaults(),
		client: client,
		prefix: prefix,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// Check runs the fixed-window script. Redis failures allow the request.
func (r *Redis) Check(ctx context.Context, clientID, endpoint string) Decision {
	now := r.clock()
	key := r.prefix + Key(clientID, endpoint)

	res, err := fixedWindowScript.Run(ctx, r.client, []string{key},
		r.cfg.MaxRequests, r.cfg.Window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 3 {
		if err == nil {
			err = fmt.Errorf("unexpected script reply length %d", len(res))
		}
		if observability.ServerLogger != nil {
			observability.ServerLogger.Warn("Rate limit backend unavailable, allowing request",
				zap.String("endpoint", endpoint),
				zap.Error(err))
		}
		return Decision{
			Allowed:   true,
			Remaining: r.cfg.MaxRequests,
			Limit:     r.cfg.MaxRequests,
			ResetAt:   now.Add(r.cfg.Window),
		}
	}

	allowed, count, ttl := res[0] == 1, int(res[1]), time.Duration(res[2])*time.Millisecond
	if ttl <= 0 {
		ttl = r.cfg.Window
	}
	remaining := r.cfg.MaxRequests - count
	if !allowed || remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   allowed,
		Remaining: remaining,
		Limit:     r.cfg.MaxRequests,
		ResetAt:   now.Add(ttl),
	}
}

// Close releases the client when NewRedis created it.
func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}

// Ping reports whether the Redis server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
