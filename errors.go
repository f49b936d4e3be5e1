package featureflagshq

import (
	"errors"
	"fmt"
)

// ErrOffline is returned by network-touching operations while the client
// runs in offline mode.
var ErrOffline = errors.New("featureflagshq: client is in offline mode")

// ErrAnalyticsDisabled is returned by FlushLogs when analytics collection
// is turned off.
var ErrAnalyticsDisabled = errors.New("featureflagshq: analytics are disabled")

// ConfigError reports invalid construction-time configuration.
type ConfigError struct {
	Field   string
	Message string
}

// NewConfigError creates a config error for a field.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("featureflagshq: invalid config: %s: %s", e.Field, e.Message)
}

// IsConfigError checks if err is a configuration error.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
