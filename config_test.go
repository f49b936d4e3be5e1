package featureflagshq

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featureflagshq/featureflagshq-go/internal/transport"
)

func validCredentialedConfig() Config {
	cfg := DefaultConfig()
	cfg.BaseURL = "https://api.featureflagshq.com"
	cfg.ClientID = "client-id"
	cfg.ClientSecret = "client-secret"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing base URL", func(c *Config) { c.BaseURL = "" }, "BaseURL"},
		{"unparseable base URL", func(c *Config) { c.BaseURL = "://bad" }, "BaseURL"},
		{"wrong scheme", func(c *Config) { c.BaseURL = "ftp://api.example.com" }, "BaseURL"},
		{"missing client ID", func(c *Config) { c.ClientID = "" }, "ClientID"},
		{"missing client secret", func(c *Config) { c.ClientSecret = "" }, "ClientSecret"},
		{"polling too frequent", func(c *Config) { c.PollingInterval = 10 * time.Second }, "PollingInterval"},
		{"zero upload interval", func(c *Config) { c.LogUploadInterval = 0 }, "LogUploadInterval"},
		{"zero batch size", func(c *Config) { c.MaxLogsBatch = 0 }, "MaxLogsBatch"},
		{"zero request timeout", func(c *Config) { c.RequestTimeout = 0 }, "RequestTimeout"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "MaxRetries"},
		{"zero rate limit", func(c *Config) { c.RateLimitPerUser = 0 }, "RateLimitPerUser"},
		{"zero rate window", func(c *Config) { c.RateLimitWindow = 0 }, "RateLimitWindow"},
		{"zero circuit threshold", func(c *Config) { c.CircuitThreshold = 0 }, "CircuitThreshold"},
		{"zero circuit reset", func(c *Config) { c.CircuitResetTimeout = 0 }, "CircuitResetTimeout"},
		{"zero tracked users", func(c *Config) { c.MaxTrackedUsers = 0 }, "MaxTrackedUsers"},
		{"zero tracked flags", func(c *Config) { c.MaxTrackedFlags = 0 }, "MaxTrackedFlags"},
		{"zero pending logs", func(c *Config) { c.MaxPendingLogs = 0 }, "MaxPendingLogs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validCredentialedConfig()
			tt.mutate(&cfg)

			err := cfg.Validate(true)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantField, ce.Field)
		})
	}
}

func TestConfig_ValidateSkipsCredentialsWhenNotRequired(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate(false))
}

func TestOptions_Apply(t *testing.T) {
	cc := &clientConfig{cfg: DefaultConfig(), logger: zerolog.Nop()}

	mock := transport.NewMockTransport()
	opts := []Option{
		WithBaseURL("https://api.featureflagshq.com"),
		WithCredentials("id", "secret"),
		WithEnvironment("staging"),
		WithPollingInterval(time.Minute),
		WithInitialTimeout(5 * time.Second),
		WithLogUploadInterval(30 * time.Second),
		WithMaxLogsBatch(50),
		WithRequestTimeout(10 * time.Second),
		WithMaxRetries(1),
		WithAnalytics(false),
		WithRateLimit(10, time.Second),
		WithCircuitBreaker(3, 15*time.Second),
		WithMemoryBounds(100, 20, 500),
		WithCustomHeaders(map[string]string{"X-Team": "payments"}),
		WithTransport(mock),
	}
	for _, opt := range opts {
		require.NoError(t, opt(cc))
	}

	assert.Equal(t, "https://api.featureflagshq.com", cc.cfg.BaseURL)
	assert.Equal(t, "id", cc.cfg.ClientID)
	assert.Equal(t, "secret", cc.cfg.ClientSecret)
	assert.Equal(t, "staging", cc.cfg.Environment)
	assert.Equal(t, time.Minute, cc.cfg.PollingInterval)
	assert.Equal(t, 5*time.Second, cc.cfg.InitialTimeout)
	assert.Equal(t, 30*time.Second, cc.cfg.LogUploadInterval)
	assert.Equal(t, 50, cc.cfg.MaxLogsBatch)
	assert.Equal(t, 10*time.Second, cc.cfg.RequestTimeout)
	assert.Equal(t, 1, cc.cfg.MaxRetries)
	assert.False(t, cc.cfg.EnableAnalytics)
	assert.Equal(t, 10, cc.cfg.RateLimitPerUser)
	assert.Equal(t, time.Second, cc.cfg.RateLimitWindow)
	assert.Equal(t, 3, cc.cfg.CircuitThreshold)
	assert.Equal(t, 15*time.Second, cc.cfg.CircuitResetTimeout)
	assert.Equal(t, 100, cc.cfg.MaxTrackedUsers)
	assert.Equal(t, 20, cc.cfg.MaxTrackedFlags)
	assert.Equal(t, 500, cc.cfg.MaxPendingLogs)
	assert.Equal(t, "payments", cc.cfg.CustomHeaders["X-Team"])
	assert.Same(t, mock, cc.transport)
}

func TestOptions_WithConfigThenOverride(t *testing.T) {
	cc := &clientConfig{cfg: DefaultConfig(), logger: zerolog.Nop()}

	base := validCredentialedConfig()
	base.Environment = "production"

	require.NoError(t, WithConfig(base)(cc))
	require.NoError(t, WithEnvironment("staging")(cc))

	assert.Equal(t, "staging", cc.cfg.Environment)
	assert.Equal(t, base.BaseURL, cc.cfg.BaseURL)
}
