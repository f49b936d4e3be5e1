package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
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

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Limit: 5, Window: time.Minute, MaxUsers: 100, Now: clock.Now})

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("user-1"), "call %d within budget", i+1)
	}
	assert.False(t, l.Allow("user-1"), "limit+1 denied")
	assert.False(t, l.Allow("user-1"))
}

func TestLimiter_BudgetIsPerUser(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Limit: 2, Window: time.Minute, MaxUsers: 100, Now: clock.Now})

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	// b is unaffected by a's exhaustion
	assert.True(t, l.Allow("b"))
	assert.True(t, l.Allow("b"))
	assert.False(t, l.Allow("b"))
}

func TestLimiter_BudgetRefillsOverWindow(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Limit: 10, Window: time.Minute, MaxUsers: 100, Now: clock.Now})

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("u"))
	}
	assert.False(t, l.Allow("u"))

	// A full window restores the whole budget
	clock.Advance(time.Minute)
	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("u"), "refilled call %d", i+1)
	}
	assert.False(t, l.Allow("u"))

	// Partial windows restore proportionally (6s = one token at 10/min)
	clock.Advance(6 * time.Second)
	assert.True(t, l.Allow("u"))
	assert.False(t, l.Allow("u"))
}

func TestLimiter_BurstCeilingIsTwiceLimit(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Limit: 10, Window: time.Minute, MaxUsers: 100, Now: clock.Now})

	// Full burst up front, then the continuous refill grants one token
	// every 6s. Inside the first rolling window that is at most 2x limit.
	granted := 0
	for i := 0; i < 10; i++ {
		if l.Allow("u") {
			granted++
		}
	}
	for elapsed := 0 * time.Second; elapsed < time.Minute-6*time.Second; elapsed += 6 * time.Second {
		clock.Advance(6 * time.Second)
		if l.Allow("u") {
			granted++
		}
		assert.False(t, l.Allow("u"), "refill is one token per 6s")
	}

	assert.Equal(t, 19, granted)
	assert.LessOrEqual(t, granted, 2*10)
}

func TestLimiter_EvictsLeastRecentUser(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Limit: 1, Window: time.Minute, MaxUsers: 3, Now: clock.Now})

	assert.True(t, l.Allow("a")) // a's only token
	assert.True(t, l.Allow("b"))
	assert.True(t, l.Allow("c"))
	assert.Equal(t, 3, l.TrackedUsers())

	// d evicts a (least recently seen)
	assert.True(t, l.Allow("d"))
	assert.Equal(t, 3, l.TrackedUsers())
	assert.Equal(t, int64(1), l.Evictions())

	// a returns with a fresh bucket despite having spent its token
	assert.True(t, l.Allow("a"))
}

func TestLimiter_TouchRefreshesRecency(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Limit: 10, Window: time.Minute, MaxUsers: 2, Now: clock.Now})

	l.Allow("a")
	l.Allow("b")
	l.Allow("a") // a is now most recent

	l.Allow("c") // evicts b, not a
	assert.Equal(t, 2, l.TrackedUsers())

	// a kept its bucket: two calls spent so far
	for i := 0; i < 8; i++ {
		assert.True(t, l.Allow("a"))
	}
	assert.False(t, l.Allow("a"))
}

func TestLimiter_BoundNeverExceeded(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Limit: 1, Window: time.Minute, MaxUsers: 50, Now: clock.Now})

	for i := 0; i < 500; i++ {
		l.Allow(fmt.Sprintf("user-%d", i))
		assert.LessOrEqual(t, l.TrackedUsers(), 50)
	}
	assert.Equal(t, 50, l.TrackedUsers())
	assert.Equal(t, int64(450), l.Evictions())
}

func TestLimiter_ConcurrentAccess(t *testing.T) {
	l := New(Config{Limit: 100, Window: time.Minute, MaxUsers: 20})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Allow(fmt.Sprintf("user-%d", (n+j)%40))
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, l.TrackedUsers(), 20)
}
