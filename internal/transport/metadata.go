package transport

import (
	"os"
	"runtime"
	"time"
)

// NewSessionMetadata collects process information attached to uploads.
func NewSessionMetadata(sessionID, sdkVersion, environment string, startedAt time.Time) SessionMetadata {
	hostname, _ := os.Hostname()

	return SessionMetadata{
		SessionID:   sessionID,
		SDKVersion:  sdkVersion,
		Language:    "go",
		Hostname:    hostname,
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
		RuntimeInfo: runtime.Version(),
		PID:         os.Getpid(),
		Environment: environment,
		StartedAt:   startedAt,
	}
}
