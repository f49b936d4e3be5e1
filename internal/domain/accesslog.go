package domain

import (
	"strings"
	"time"
)

// AccessOutcome classifies how an evaluation concluded.
type AccessOutcome string

const (
	OutcomeResolved AccessOutcome = "resolved"
	OutcomeDefault  AccessOutcome = "default"
	OutcomeBlocked  AccessOutcome = "blocked"
	OutcomeError    AccessOutcome = "error"
)

// AccessLogEntry records a single flag access for batch upload.
type AccessLogEntry struct {
	RequestID      string         `json:"request_id"`
	SessionID      string         `json:"session_id"`
	UserID         string         `json:"user_id"`
	FlagKey        string         `json:"flag_key"`
	Value          any            `json:"flag_value"`
	Kind           string         `json:"flag_type"`
	Outcome        AccessOutcome  `json:"outcome"`
	Reason         string         `json:"reason,omitempty"`
	Segments       map[string]any `json:"segments,omitempty"`
	EvaluationTime float64        `json:"evaluation_time_ms"`
	Timestamp      time.Time      `json:"timestamp"`
}

var sensitiveAttributeMarkers = []string{
	"password",
	"secret",
	"token",
	"signature",
	"api_key",
	"apikey",
	"credential",
}

// RedactSegments returns a copy of the segment map with values of sensitive
// attributes masked. Applied before an entry is queued so secrets never sit
// in memory or leave the process.
func RedactSegments(segments map[string]any) map[string]any {
	if len(segments) == 0 {
		return nil
	}

	out := make(map[string]any, len(segments))
	for name, value := range segments {
		if isSensitiveAttribute(name) {
			out[name] = "[REDACTED]"
			continue
		}
		out[name] = value
	}
	return out
}

func isSensitiveAttribute(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range sensitiveAttributeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
