package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/vhdlcheck/vhdlcheck/internal/core"
)

// Memory is a process-local fixed-window limiter.
type Memory struct {
	cfg   Config
	clock func() time.Time

	mu      sync.Mutex
	entries map[string]core.RateLimitEntry

	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// MemoryOption customizes a Memory limiter.
type MemoryOption func(*Memory)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) MemoryOption {
	return func(m *Memory) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewMemory returns an in-memory limiter. Call Start to enable the sweep.
func NewMemory(cfg Config, opts ...MemoryOption) *Memory {
	m := &Memory{
		cfg:     cfg.withDefaults(),
		clock:   func() time.Time { return time.Now().UTC() },
		entries: make(map[string]core.RateLimitEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Check performs an atomic check-and-increment for the client and endpoint.
func (m *Memory) Check(_ context.Context, clientID, endpoint string) Decision {
	key := Key(clientID, endpoint)
	now := m.clock()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok || entry.Expired(now) {
		entry = core.RateLimitEntry{Count: 1, ResetAt: now.Add(m.cfg.Window)}
		m.entries[key] = entry
		return Decision{
			Allowed:   true,
			Remaining: m.cfg.MaxRequests - 1,
			Limit:     m.cfg.MaxRequests,
			ResetAt:   entry.ResetAt,
		}
	}

	if entry.Count >= m.cfg.MaxRequests {
		return Decision{
			Allowed:   false,
			Remaining: 0,
			Limit:     m.cfg.MaxRequests,
			ResetAt:   entry.ResetAt,
		}
	}

	entry.Count++
	m.entries[key] = entry
	return Decision{
		Allowed:   true,
		Remaining: m.cfg.MaxRequests - entry.Count,
		Limit:     m.cfg.MaxRequests,
		ResetAt:   entry.ResetAt,
	}
}

// Sweep deletes every entry whose window has elapsed and returns how many were removed.
func (m *Memory) Sweep() int {
	now := m.clock()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Start runs the periodic sweep until ctx is cancelled or Close is called.
// Calling Start more than once, or after Close, has no effect.
func (m *Memory) Start(ctx context.Context) {
	m.mu.Lock()
	if m.closed || m.done != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

// Close stops the sweep and waits for it to exit.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}
