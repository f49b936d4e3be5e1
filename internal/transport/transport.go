package transport

import (
	"context"
	"time"

	"github.com/featureflagshq/featureflagshq-go/internal/domain"
)

// Transport moves data between the SDK and the FeatureFlagsHQ API. The
// caller treats any returned error as one failure signal for the circuit
// breaker; partial data is never returned alongside an error.
type Transport interface {
	// FetchFlags downloads the full flag collection.
	FetchFlags(ctx context.Context) (*FlagsResponse, error)

	// UploadLogs sends a batch of access logs and session stats.
	UploadLogs(ctx context.Context, batch LogBatch) error
}

// FlagsResponse is the decoded flag collection payload.
type FlagsResponse struct {
	Data        []FlagRecord `json:"data"`
	Environment string       `json:"environment,omitempty"`
}

// LogBatch is the upload payload for queued access logs.
type LogBatch struct {
	SessionID string                  `json:"session_id"`
	Logs      []domain.AccessLogEntry `json:"logs"`
	Metadata  SessionMetadata         `json:"session_metadata"`
}

// SessionMetadata describes the SDK process attached to each upload.
type SessionMetadata struct {
	SessionID   string    `json:"session_id"`
	SDKVersion  string    `json:"sdk_version"`
	Language    string    `json:"sdk_language"`
	Hostname    string    `json:"hostname"`
	Platform    string    `json:"platform"`
	RuntimeInfo string    `json:"runtime_version"`
	PID         int       `json:"pid"`
	Environment string    `json:"environment,omitempty"`
	StartedAt   time.Time `json:"session_start_time"`
	Stats       any       `json:"stats,omitempty"`
}
