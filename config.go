package featureflagshq

import (
	"net/url"
	"time"
)

// Config holds all configuration for a FeatureFlagsHQ client.
type Config struct {
	// API configuration
	BaseURL      string
	ClientID     string
	ClientSecret string

	// Environment is an optional deployment label sent with every request
	Environment string

	// PollingInterval determines how often flags are refreshed.
	// Minimum 30 seconds.
	PollingInterval time.Duration

	// InitialTimeout bounds the blocking flag fetch performed by New
	InitialTimeout time.Duration

	// LogUploadInterval determines how often queued access logs are flushed
	LogUploadInterval time.Duration

	// MaxLogsBatch is the maximum number of access logs per upload
	MaxLogsBatch int

	// RequestTimeout applies to each HTTP request
	RequestTimeout time.Duration

	// MaxRetries for failed HTTP requests (5xx, 429, network errors)
	MaxRetries int

	// OfflineMode disables all network activity
	OfflineMode bool

	// EnableAnalytics controls access-log collection and upload
	EnableAnalytics bool

	// Rate limiting, per user
	RateLimitPerUser int
	RateLimitWindow  time.Duration

	// Circuit breaker
	CircuitThreshold    int
	CircuitResetTimeout time.Duration

	// Memory bounds
	MaxTrackedUsers int
	MaxTrackedFlags int
	MaxPendingLogs  int

	// CustomHeaders are added to every request. Headers the SDK owns
	// (auth, signing, session) cannot be overridden.
	CustomHeaders map[string]string
}

// DefaultConfig returns recommended default configuration.
func DefaultConfig() Config {
	return Config{
		PollingInterval:     5 * time.Minute,
		InitialTimeout:      10 * time.Second,
		LogUploadInterval:   2 * time.Minute,
		MaxLogsBatch:        100,
		RequestTimeout:      30 * time.Second,
		MaxRetries:          3,
		EnableAnalytics:     true,
		RateLimitPerUser:    1000,
		RateLimitWindow:     time.Minute,
		CircuitThreshold:    5,
		CircuitResetTimeout: 60 * time.Second,
		MaxTrackedUsers:     10_000,
		MaxTrackedFlags:     1_000,
		MaxPendingLogs:      10_000,
	}
}

// minPollingInterval guards against hammering the API.
const minPollingInterval = 30 * time.Second

// Validate checks the configuration. Credential checks are skipped in
// offline mode and when a custom transport is supplied.
func (c Config) Validate(requireCredentials bool) error {
	if requireCredentials {
		if c.BaseURL == "" {
			return NewConfigError("BaseURL", "required")
		}
		parsed, err := url.Parse(c.BaseURL)
		if err != nil || parsed.Host == "" {
			return NewConfigError("BaseURL", "must be a valid URL")
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return NewConfigError("BaseURL", "scheme must be http or https")
		}
		if c.ClientID == "" {
			return NewConfigError("ClientID", "required")
		}
		if c.ClientSecret == "" {
			return NewConfigError("ClientSecret", "required")
		}
	}

	if c.PollingInterval < minPollingInterval {
		return NewConfigError("PollingInterval", "must be at least 30s")
	}
	if c.LogUploadInterval <= 0 {
		return NewConfigError("LogUploadInterval", "must be positive")
	}
	if c.MaxLogsBatch <= 0 {
		return NewConfigError("MaxLogsBatch", "must be positive")
	}
	if c.RequestTimeout <= 0 {
		return NewConfigError("RequestTimeout", "must be positive")
	}
	if c.MaxRetries < 0 {
		return NewConfigError("MaxRetries", "must not be negative")
	}
	if c.RateLimitPerUser <= 0 {
		return NewConfigError("RateLimitPerUser", "must be positive")
	}
	if c.RateLimitWindow <= 0 {
		return NewConfigError("RateLimitWindow", "must be positive")
	}
	if c.CircuitThreshold <= 0 {
		return NewConfigError("CircuitThreshold", "must be positive")
	}
	if c.CircuitResetTimeout <= 0 {
		return NewConfigError("CircuitResetTimeout", "must be positive")
	}
	if c.MaxTrackedUsers <= 0 {
		return NewConfigError("MaxTrackedUsers", "must be positive")
	}
	if c.MaxTrackedFlags <= 0 {
		return NewConfigError("MaxTrackedFlags", "must be positive")
	}
	if c.MaxPendingLogs <= 0 {
		return NewConfigError("MaxPendingLogs", "must be positive")
	}

	return nil
}
