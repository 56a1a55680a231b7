package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestLimiter_HundredthAllowedHundredFirstRejected(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))
	defer l.Close()

	for i := 1; i <= 100; i++ {
		require.True(t, l.Allow("10.0.0.1", 100), "request %d should be allowed", i)
	}
	assert.False(t, l.Allow("10.0.0.1", 100), "101st request should be rejected")
}

func TestLimiter_ResetsAfterWindow(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))
	defer l.Close()

	for i := 0; i < 3; i++ {
		l.Allow("k", 2)
	}
	assert.False(t, l.Allow("k", 2))

	// Still inside the window at exactly resetAt.
	clock.Advance(time.Minute)
	assert.False(t, l.Allow("k", 2))

	clock.Advance(time.Nanosecond)
	assert.True(t, l.Allow("k", 2), "counting restarts after reset")
	assert.True(t, l.Allow("k", 2))
	assert.False(t, l.Allow("k", 2))

	// The new window runs a full minute from the reset.
	clock.Advance(time.Minute)
	assert.False(t, l.Allow("k", 2))
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := New(WithClock(newFakeClock().Now))
	defer l.Close()

	assert.True(t, l.Allow("a", 1))
	assert.False(t, l.Allow("a", 1))
	assert.True(t, l.Allow("b", 1))
}

func TestLimiter_SweepRemovesExpired(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))
	defer l.Close()

	l.Allow("old", 10)
	clock.Advance(30 * time.Second)
	l.Allow("new", 10)
	clock.Advance(31 * time.Second)

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
}

func TestLimiter_BoundedKeys(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now), WithMaxKeys(3))
	defer l.Close()

	for i := 0; i < 3; i++ {
		l.Allow(fmt.Sprintf("k%d", i), 10)
		clock.Advance(time.Second)
	}
	// k0 resets soonest and is evicted to make room.
	l.Allow("k3", 10)
	assert.Equal(t, 3, l.Len())

	assert.True(t, l.Allow("k0", 1), "evicted key starts a fresh window")
}

func TestLimiter_BoundedKeysPrefersExpired(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now), WithMaxKeys(2))
	defer l.Close()

	l.Allow("a", 2)
	l.Allow("a", 2)
	clock.Advance(2 * time.Minute)
	l.Allow("b", 2)
	l.Allow("c", 2)

	assert.Equal(t, 2, l.Len())
	assert.True(t, l.Allow("b", 2))
	assert.False(t, l.Allow("b", 2), "live key b must keep its count")
}

func TestLimiter_ConcurrentUse(t *testing.T) {
	l := New()
	defer l.Close()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if l.Allow("shared", 100) {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, allowed)
}

func TestLimiter_StartAndClose(t *testing.T) {
	l := New(WithWindow(10 * time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l.Start(ctx)
	l.Allow("k", 1)
	assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)

	l.Close()
	l.Close()
}
