package transport

import (
	"context"
	"sync"
)

// MockTransport is a mock implementation of Transport for testing. All state
// is guarded by mu so tests can swap behaviors on a live client.
type MockTransport struct {
	mu sync.RWMutex

	// Stored wire records returned by the default FetchFlags
	records []FlagRecord

	// Mock behaviors
	fetchFlagsFunc func(ctx context.Context) (*FlagsResponse, error)
	uploadLogsFunc func(ctx context.Context, batch LogBatch) error

	// Call tracking
	fetchFlagsCalls int
	uploadLogsCalls int

	// Captured upload batches
	uploadedBatches []LogBatch
}

// NewMockTransport creates a new mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// SetRecords replaces the wire records served by FetchFlags
func (m *MockTransport) SetRecords(records ...FlagRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = records
}

// SetFetchFlagsFunc overrides FetchFlags; nil restores the default behavior
func (m *MockTransport) SetFetchFlagsFunc(fn func(ctx context.Context) (*FlagsResponse, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchFlagsFunc = fn
}

// SetUploadLogsFunc overrides UploadLogs; nil restores the default behavior
func (m *MockTransport) SetUploadLogsFunc(fn func(ctx context.Context, batch LogBatch) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadLogsFunc = fn
}

// FetchFlags returns the stored records
func (m *MockTransport) FetchFlags(ctx context.Context) (*FlagsResponse, error) {
	m.mu.Lock()
	m.fetchFlagsCalls++
	fn := m.fetchFlagsFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data := make([]FlagRecord, len(m.records))
	copy(data, m.records)

	return &FlagsResponse{Data: data}, nil
}

// UploadLogs captures the batch
func (m *MockTransport) UploadLogs(ctx context.Context, batch LogBatch) error {
	m.mu.Lock()
	m.uploadLogsCalls++
	fn := m.uploadLogsFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, batch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadedBatches = append(m.uploadedBatches, batch)

	return nil
}

// Calls returns the call counters
func (m *MockTransport) Calls() (fetches, uploads int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fetchFlagsCalls, m.uploadLogsCalls
}

// UploadedBatches returns a copy of the captured upload batches
func (m *MockTransport) UploadedBatches() []LogBatch {
	m.mu.RLock()
	defer m.mu.RUnlock()

	batches := make([]LogBatch, len(m.uploadedBatches))
	copy(batches, m.uploadedBatches)
	return batches
}

// Reset resets the mock state
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = nil
	m.fetchFlagsFunc = nil
	m.uploadLogsFunc = nil
	m.fetchFlagsCalls = 0
	m.uploadLogsCalls = 0
	m.uploadedBatches = nil
}
