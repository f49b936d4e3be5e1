package featureflagshq

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/featureflagshq/featureflagshq-go/internal/transport"
)

// Option configures a FeatureFlagsHQ client.
type Option func(*clientConfig) error

// ChangeHandler receives flag-change notifications after a refresh. Old is
// nil for added flags; New is nil for removed ones.
type ChangeHandler func(flagKey string, old, new any)

// clientConfig holds construction state before validation.
type clientConfig struct {
	cfg          Config
	logger       zerolog.Logger
	transport    transport.Transport
	onFlagChange ChangeHandler
}

// WithConfig replaces the whole configuration at once. Options applied
// after it still override individual fields.
func WithConfig(cfg Config) Option {
	return func(c *clientConfig) error {
		c.cfg = cfg
		return nil
	}
}

// WithBaseURL sets the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *clientConfig) error {
		c.cfg.BaseURL = baseURL
		return nil
	}
}

// WithCredentials sets the client ID and secret used for request signing.
func WithCredentials(clientID, clientSecret string) Option {
	return func(c *clientConfig) error {
		c.cfg.ClientID = clientID
		c.cfg.ClientSecret = clientSecret
		return nil
	}
}

// WithEnvironment labels this deployment (e.g. "production", "staging").
func WithEnvironment(environment string) Option {
	return func(c *clientConfig) error {
		c.cfg.Environment = environment
		return nil
	}
}

// WithPollingInterval sets how often flags are refreshed. Minimum 30s.
func WithPollingInterval(interval time.Duration) Option {
	return func(c *clientConfig) error {
		c.cfg.PollingInterval = interval
		return nil
	}
}

// WithInitialTimeout bounds the blocking first fetch performed by New.
func WithInitialTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) error {
		c.cfg.InitialTimeout = timeout
		return nil
	}
}

// WithLogUploadInterval sets how often access logs are flushed.
func WithLogUploadInterval(interval time.Duration) Option {
	return func(c *clientConfig) error {
		c.cfg.LogUploadInterval = interval
		return nil
	}
}

// WithMaxLogsBatch caps how many access logs go into one upload.
func WithMaxLogsBatch(n int) Option {
	return func(c *clientConfig) error {
		c.cfg.MaxLogsBatch = n
		return nil
	}
}

// WithRequestTimeout sets the per-request HTTP timeout.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) error {
		c.cfg.RequestTimeout = timeout
		return nil
	}
}

// WithMaxRetries sets how many times failed requests are retried.
func WithMaxRetries(n int) Option {
	return func(c *clientConfig) error {
		c.cfg.MaxRetries = n
		return nil
	}
}

// WithOfflineMode disables all network activity. Evaluation serves
// whatever snapshot is loaded, which may be empty.
func WithOfflineMode(offline bool) Option {
	return func(c *clientConfig) error {
		c.cfg.OfflineMode = offline
		return nil
	}
}

// WithAnalytics toggles access-log collection and upload.
func WithAnalytics(enabled bool) Option {
	return func(c *clientConfig) error {
		c.cfg.EnableAnalytics = enabled
		return nil
	}
}

// WithRateLimit sets the per-user evaluation budget.
func WithRateLimit(limit int, window time.Duration) Option {
	return func(c *clientConfig) error {
		c.cfg.RateLimitPerUser = limit
		c.cfg.RateLimitWindow = window
		return nil
	}
}

// WithCircuitBreaker tunes the breaker guarding API calls.
func WithCircuitBreaker(threshold int, resetTimeout time.Duration) Option {
	return func(c *clientConfig) error {
		c.cfg.CircuitThreshold = threshold
		c.cfg.CircuitResetTimeout = resetTimeout
		return nil
	}
}

// WithMemoryBounds caps the tracked-user set, tracked-flag set and pending
// access-log queue.
func WithMemoryBounds(maxUsers, maxFlags, maxPendingLogs int) Option {
	return func(c *clientConfig) error {
		c.cfg.MaxTrackedUsers = maxUsers
		c.cfg.MaxTrackedFlags = maxFlags
		c.cfg.MaxPendingLogs = maxPendingLogs
		return nil
	}
}

// WithCustomHeaders adds headers to every API request. Reserved headers
// are silently skipped.
func WithCustomHeaders(headers map[string]string) Option {
	return func(c *clientConfig) error {
		c.cfg.CustomHeaders = headers
		return nil
	}
}

// WithLogger sets the structured logger. Default is a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *clientConfig) error {
		c.logger = logger
		return nil
	}
}

// WithOnFlagChange registers a handler invoked once per changed flag after
// each refresh. The handler runs on the refresh goroutine; keep it fast.
func WithOnFlagChange(handler ChangeHandler) Option {
	return func(c *clientConfig) error {
		c.onFlagChange = handler
		return nil
	}
}

// WithTransport replaces the HTTP transport, primarily for tests. When
// set, BaseURL and credentials are not required.
func WithTransport(t transport.Transport) Option {
	return func(c *clientConfig) error {
		c.transport = t
		return nil
	}
}
