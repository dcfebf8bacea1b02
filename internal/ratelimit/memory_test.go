package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestMemoryDefaults(t *testing.T) {
	m := NewMemory(Config{})
	assert.Equal(t, DefaultWindow, m.cfg.Window)
	assert.Equal(t, DefaultMaxRequests, m.cfg.MaxRequests)
}

func TestMemoryCountsWithinWindow(t *testing.T) {
	clock := newClock()
	m := NewMemory(Config{Window: time.Minute, MaxRequests: 5}, WithClock(clock.Now))
	ctx := context.Background()

	for n := 1; n <= 5; n++ {
		d := m.Check(ctx, "10.0.0.1", "/api/analyze")
		require.True(t, d.Allowed, "call %d", n)
		assert.Equal(t, 5-n, d.Remaining)
		assert.Equal(t, 5, d.Limit)
		assert.Equal(t, clock.Now().Add(time.Minute), d.ResetAt)
	}

	d := m.Check(ctx, "10.0.0.1", "/api/analyze")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, clock.Now().Add(time.Minute), d.ResetAt)
}

func TestMemoryDeniedCallsDoNotExtendWindow(t *testing.T) {
	clock := newClock()
	m := NewMemory(Config{Window: time.Minute, MaxRequests: 1}, WithClock(clock.Now))
	ctx := context.Background()

	first := m.Check(ctx, "c", "/e")
	require.True(t, first.Allowed)

	clock.Advance(30 * time.Second)
	denied := m.Check(ctx, "c", "/e")
	require.False(t, denied.Allowed)
	assert.Equal(t, first.ResetAt, denied.ResetAt)
	assert.Equal(t, 30, denied.RetryAfter(clock.Now()))
}

func TestMemoryResetsAfterWindow(t *testing.T) {
	clock := newClock()
	m := NewMemory(Config{Window: time.Minute, MaxRequests: 2}, WithClock(clock.Now))
	ctx := context.Background()

	m.Check(ctx, "c", "/e")
	m.Check(ctx, "c", "/e")
	require.False(t, m.Check(ctx, "c", "/e").Allowed)

	// The window is still live at exactly resetAt.
	clock.Advance(time.Minute)
	require.False(t, m.Check(ctx, "c", "/e").Allowed)

	clock.Advance(time.Millisecond)
	d := m.Check(ctx, "c", "/e")
	require.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, clock.Now().Add(time.Minute), d.ResetAt)
}

func TestMemoryKeysAreIndependent(t *testing.T) {
	m := NewMemory(Config{Window: time.Minute, MaxRequests: 1}, WithClock(newClock().Now))
	ctx := context.Background()

	require.True(t, m.Check(ctx, "a", "/api/analyze").Allowed)
	require.False(t, m.Check(ctx, "a", "/api/analyze").Allowed)
	assert.True(t, m.Check(ctx, "a", "/api/generate-testbench").Allowed)
	assert.True(t, m.Check(ctx, "b", "/api/analyze").Allowed)
	assert.Equal(t, 3, m.Len())
}

func TestMemorySweepRemovesOnlyExpired(t *testing.T) {
	clock := newClock()
	m := NewMemory(Config{Window: time.Minute, MaxRequests: 10}, WithClock(clock.Now))
	ctx := context.Background()

	m.Check(ctx, "old", "/e")
	clock.Advance(45 * time.Second)
	m.Check(ctx, "new", "/e")
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())

	d := m.Check(ctx, "new", "/e")
	assert.Equal(t, 8, d.Remaining)
}

func TestMemoryConcurrentChecksDoNotLoseIncrements(t *testing.T) {
	const workers, perWorker = 20, 50
	m := NewMemory(Config{Window: time.Hour, MaxRequests: workers * perWorker}, WithClock(newClock().Now))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Check(ctx, "shared", "/api/analyze")
			}
		}()
	}
	wg.Wait()

	d := m.Check(ctx, "shared", "/api/analyze")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
}

func TestMemoryStartAndClose(t *testing.T) {
	m := NewMemory(Config{Window: 10 * time.Millisecond, MaxRequests: 1})
	ctx := context.Background()

	m.Start(ctx)
	m.Start(ctx)
	m.Check(ctx, "c", "/e")

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestMemoryCloseWithoutStart(t *testing.T) {
	m := NewMemory(Config{})
	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
}

func TestMemoryStartAfterCloseIsNoop(t *testing.T) {
	m := NewMemory(Config{Window: time.Millisecond})
	require.NoError(t, m.Close())

	m.Start(context.Background())

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Nil(t, m.done, "no sweep goroutine may start after Close")
	assert.Nil(t, m.cancel)
}

func TestDecisionRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d := Decision{ResetAt: now.Add(1500 * time.Millisecond)}
	assert.Equal(t, 2, d.RetryAfter(now))

	d = Decision{ResetAt: now.Add(-time.Second)}
	assert.Equal(t, 1, d.RetryAfter(now))
}
