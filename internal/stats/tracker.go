package stats

import (
	"sync"
	"time"

	"github.com/featureflagshq/featureflagshq-go/internal/domain"
)

// Config bounds the tracker's memory.
type Config struct {
	// MaxUsers caps the unique-user set.
	MaxUsers int

	// MaxFlags caps the unique-flag set.
	MaxFlags int

	// QueueCapacity caps the pending access-log queue.
	QueueCapacity int
}

// DefaultConfig returns the default tracker bounds.
func DefaultConfig() Config {
	return Config{
		MaxUsers:      10_000,
		MaxFlags:      1_000,
		QueueCapacity: 10_000,
	}
}

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

// Snapshot is a point-in-time value copy of all counters.
type Snapshot struct {
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
	APICalls           APICallStats `json:"api_calls"`
	Timing             TimingStats  `json:"evaluation_timing"`
	LastSync           time.Time    `json:"last_sync"`
	LastUpload         time.Time    `json:"last_log_upload"`
}

// Tracker accumulates evaluation statistics and queues access-log entries
// for batch upload. All memory is bounded: unique sets evict least-recent
// keys at their caps, and the log queue drops its oldest entry on overflow.
type Tracker struct {
	mu sync.Mutex

	users *boundedSet
	flags *boundedSet

	totalEvaluations   int64
	segmentMatches     int64
	rolloutEvaluations int64
	blocked            int64
	invalidInputs      int64
	coercionErrors     int64
	dataErrors         int64

	apiSuccess int64
	apiFailed  int64

	timingCount int64
	timingTotal float64
	timingMin   float64
	timingMax   float64

	queue    []domain.AccessLogEntry
	queueCap int
	dropped  int64

	lastSync   time.Time
	lastUpload time.Time
}

// New creates a tracker.
func New(cfg Config) *Tracker {
	if cfg.MaxUsers <= 0 {
		cfg.MaxUsers = 10_000
	}
	if cfg.MaxFlags <= 0 {
		cfg.MaxFlags = 1_000
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 10_000
	}

	return &Tracker{
		users:    newBoundedSet(cfg.MaxUsers),
		flags:    newBoundedSet(cfg.MaxFlags),
		queueCap: cfg.QueueCapacity,
	}
}

// RecordAccess counts one evaluation and, when queueLog is set, queues its
// access-log entry for upload. If the queue is full, the oldest pending
// entry is dropped to make room.
func (t *Tracker) RecordAccess(entry domain.AccessLogEntry, segmentMatched, rolloutEvaluated, queueLog bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalEvaluations++
	t.users.Touch(entry.UserID)
	t.flags.Touch(entry.FlagKey)

	if entry.Outcome == domain.OutcomeBlocked {
		t.blocked++
	}
	if segmentMatched {
		t.segmentMatches++
	}
	if rolloutEvaluated {
		t.rolloutEvaluations++
	}

	if entry.EvaluationTime > 0 {
		t.recordTiming(entry.EvaluationTime)
	}

	if queueLog {
		t.enqueue(entry)
	}
}

func (t *Tracker) recordTiming(ms float64) {
	t.timingCount++
	t.timingTotal += ms
	if t.timingCount == 1 || ms < t.timingMin {
		t.timingMin = ms
	}
	if ms > t.timingMax {
		t.timingMax = ms
	}
}

func (t *Tracker) enqueue(entry domain.AccessLogEntry) {
	if len(t.queue) >= t.queueCap {
		t.queue = t.queue[1:]
		t.dropped++
	}
	t.queue = append(t.queue, entry)
}

// RecordInvalidInput counts an evaluation rejected before any work.
func (t *Tracker) RecordInvalidInput() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.invalidInputs++
}

// RecordCoercionError counts a typed accessor falling back to its default.
func (t *Tracker) RecordCoercionError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.coercionErrors++
}

// RecordDataErrors counts malformed flag definitions skipped in a refresh.
func (t *Tracker) RecordDataErrors(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dataErrors += int64(n)
}

// RecordAPICall counts one outbound request outcome.
func (t *Tracker) RecordAPICall(success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if success {
		t.apiSuccess++
	} else {
		t.apiFailed++
	}
}

// MarkSync records the completion time of a successful refresh.
func (t *Tracker) MarkSync(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSync = at
}

// MarkUpload records the completion time of a successful log upload.
func (t *Tracker) MarkUpload(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastUpload = at
}

// DrainBatch removes and returns up to max of the oldest pending entries.
func (t *Tracker) DrainBatch(max int) []domain.AccessLogEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.queue) == 0 {
		return nil
	}
	if max <= 0 || max > len(t.queue) {
		max = len(t.queue)
	}

	batch := make([]domain.AccessLogEntry, max)
	copy(batch, t.queue[:max])
	t.queue = append(t.queue[:0], t.queue[max:]...)
	return batch
}

// Requeue puts a failed batch back at the head of the queue so entries keep
// their age order. The capacity still holds: if the batch plus the pending
// entries overflow, the oldest entries are dropped and counted.
func (t *Tracker) Requeue(batch []domain.AccessLogEntry) {
	if len(batch) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	merged := make([]domain.AccessLogEntry, 0, len(batch)+len(t.queue))
	merged = append(merged, batch...)
	merged = append(merged, t.queue...)

	if overflow := len(merged) - t.queueCap; overflow > 0 {
		merged = merged[overflow:]
		t.dropped += int64(overflow)
	}
	t.queue = merged
}

// PendingLogs returns the number of queued entries.
func (t *Tracker) PendingLogs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Snapshot returns a value copy of all counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		TotalEvaluations:   t.totalEvaluations,
		UniqueUsers:        t.users.Len(),
		UniqueFlags:        t.flags.Len(),
		SegmentMatches:     t.segmentMatches,
		RolloutEvaluations: t.rolloutEvaluations,
		BlockedEvaluations: t.blocked,
		InvalidInputs:      t.invalidInputs,
		CoercionErrors:     t.coercionErrors,
		DataErrors:         t.dataErrors,
		DroppedLogs:        t.dropped,
		PendingLogs:        len(t.queue),
		APICalls: APICallStats{
			Successful: t.apiSuccess,
			Failed:     t.apiFailed,
			Total:      t.apiSuccess + t.apiFailed,
		},
		LastSync:   t.lastSync,
		LastUpload: t.lastUpload,
	}

	if t.timingCount > 0 {
		snap.Timing = TimingStats{
			Count: t.timingCount,
			MinMs: t.timingMin,
			MaxMs: t.timingMax,
			AvgMs: t.timingTotal / float64(t.timingCount),
		}
	}

	return snap
}
