package ratelimit

import (
	"container/list"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds per-user rate limiter configuration.
type Config struct {
	// Limit is the number of evaluations allowed per user per window.
	Limit int

	// Window is the rolling interval the limit applies to.
	Window time.Duration

	// MaxUsers bounds how many per-user buckets are kept; the least
	// recently seen user is evicted when the bound is hit.
	MaxUsers int

	// Now overrides the clock, for tests
	Now func() time.Time
}

// DefaultConfig returns the default per-user limits.
func DefaultConfig() Config {
	return Config{
		Limit:    1000,
		Window:   time.Minute,
		MaxUsers: 10_000,
	}
}

// Limiter enforces a per-user evaluation budget using one token bucket per
// user. Bucket capacity equals the window limit and refills continuously at
// limit-per-window, so a quiet user regains full budget within one window.
// The guarantee is on sustained rate, not a hard per-window count: a user
// starting from a full bucket can spend up to twice the limit inside a
// single rolling window before settling at limit-per-window.
type Limiter struct {
	mu sync.Mutex

	limit    int
	maxUsers int
	interval time.Duration
	now      func() time.Time

	users     map[string]*list.Element
	order     *list.List
	evictions int64
}

type userBucket struct {
	userID string
	bucket *rate.Limiter
}

// New creates a limiter.
func New(cfg Config) *Limiter {
	if cfg.Limit <= 0 {
		cfg.Limit = 1000
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.MaxUsers <= 0 {
		cfg.MaxUsers = 10_000
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Limiter{
		limit:    cfg.Limit,
		maxUsers: cfg.MaxUsers,
		interval: cfg.Window / time.Duration(cfg.Limit),
		now:      cfg.Now,
		users:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Allow reports whether the user has budget for one more evaluation and
// consumes it when so.
func (l *Limiter) Allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	elem, ok := l.users[userID]
	if ok {
		l.order.MoveToFront(elem)
	} else {
		entry := &userBucket{
			userID: userID,
			bucket: rate.NewLimiter(rate.Every(l.interval), l.limit),
		}
		elem = l.order.PushFront(entry)
		l.users[userID] = elem

		if l.order.Len() > l.maxUsers {
			oldest := l.order.Back()
			l.order.Remove(oldest)
			delete(l.users, oldest.Value.(*userBucket).userID)
			l.evictions++
		}
	}

	return elem.Value.(*userBucket).bucket.AllowN(l.now(), 1)
}

// TrackedUsers returns the number of users with live buckets.
func (l *Limiter) TrackedUsers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}

// Evictions returns how many user buckets were evicted at the bound.
func (l *Limiter) Evictions() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.evictions
}
