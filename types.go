package featureflagshq

import (
	"time"
)

// APICallStats counts outbound API calls.
type APICallStats struct {
	Successful int64 `json:"successful"`
	Failed     int64 `json:"failed"`
	Total      int64 `json:"total"`
}

// TimingStats summarizes evaluation latency in milliseconds.
type TimingStats struct {
	Count int64   `json:"count"`
	MinMs float64 `json:"min_ms"`
	MaxMs float64 `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
}

// Stats is a point-in-time value copy of the client's counters.
type Stats struct {
	SessionID          string       `json:"session_id"`
	TotalEvaluations   int64        `json:"total_evaluations"`
	UniqueUsers        int          `json:"unique_users"`
	UniqueFlags        int          `json:"unique_flags"`
	SegmentMatches     int64        `json:"segment_matches"`
	RolloutEvaluations int64        `json:"rollout_evaluations"`
	BlockedEvaluations int64        `json:"blocked_evaluations"`
	InvalidInputs      int64        `json:"invalid_inputs"`
	CoercionErrors     int64        `json:"coercion_errors"`
	DataErrors         int64        `json:"data_errors"`
	DroppedLogs        int64        `json:"dropped_logs"`
	PendingLogs        int          `json:"pending_logs"`
	CachedFlags        int          `json:"cached_flags"`
	APICalls           APICallStats `json:"api_calls"`
	Timing             TimingStats  `json:"evaluation_timing"`
	CircuitState       string       `json:"circuit_state"`
	LastSync           time.Time    `json:"last_sync"`
	LastLogUpload      time.Time    `json:"last_log_upload"`
}

// HealthCheck summarizes the client's operational state.
type HealthCheck struct {
	Status           string        `json:"status"`
	SDKVersion       string        `json:"sdk_version"`
	SessionID        string        `json:"session_id"`
	Environment      string        `json:"environment,omitempty"`
	OfflineMode      bool          `json:"offline_mode"`
	AnalyticsEnabled bool          `json:"analytics_enabled"`
	CachedFlags      int           `json:"cached_flags"`
	LastSync         time.Time     `json:"last_sync"`
	CircuitState     string        `json:"circuit_state"`
	CircuitFailures  int           `json:"circuit_failures"`
	PendingLogs      int           `json:"pending_logs"`
	Uptime           time.Duration `json:"uptime"`
}

// FlagSummary describes a cached flag's configuration without exposing the
// evaluation internals.
type FlagSummary struct {
	Key               string `json:"key"`
	Type              string `json:"type"`
	Active            bool   `json:"active"`
	RolloutPercentage int    `json:"rollout_percentage"`
	HasTargeting      bool   `json:"has_targeting"`
	Version           int    `json:"version"`
	UpdatedAt         string `json:"updated_at,omitempty"`
}
