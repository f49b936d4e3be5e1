package circuit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State represents the circuit breaker state
type State int

const (
	// StateClosed - circuit is closed, requests pass through
	StateClosed State = iota
	// StateOpen - circuit is open, requests fail fast
	StateOpen
	// StateHalfOpen - circuit is testing if the API recovered
	StateHalfOpen
)

// String returns string representation of state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds circuit breaker configuration
type Config struct {
	// FailureThreshold is the number of consecutive failures before opening
	FailureThreshold int

	// ResetTimeout is how long to wait before attempting a recovery probe
	ResetTimeout time.Duration

	// OnStateChange is called when state changes
	OnStateChange func(from, to State)

	// Now overrides the clock, for tests
	Now func() time.Time
}

// DefaultConfig returns default circuit breaker configuration
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
	}
}

// Breaker implements the circuit breaker pattern around API calls. After
// FailureThreshold consecutive failures the circuit opens and calls fail
// fast. Once ResetTimeout elapses a single probe call is admitted; its
// outcome alone decides whether the circuit closes again or re-opens.
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	resetTimeout     time.Duration
	now              func() time.Time

	state           State
	failures        int
	probing         bool
	lastFailureTime time.Time
	lastStateChange time.Time

	totalRequests   int64
	totalSuccesses  int64
	totalFailures   int64
	totalRejections int64

	onStateChange func(from, to State)
}

// New creates a new circuit breaker
func New(config Config) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 60 * time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Breaker{
		failureThreshold: config.FailureThreshold,
		resetTimeout:     config.ResetTimeout,
		now:              config.Now,
		state:            StateClosed,
		lastStateChange:  config.Now(),
		onStateChange:    config.OnStateChange,
	}
}

// Call executes the function with circuit breaker protection. The context
// is passed through to the function; the breaker itself never blocks.
func (b *Breaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}

	err := fn(ctx)

	b.afterCall(err)

	return err
}

// beforeCall checks if the circuit breaker admits the call
func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalRequests++

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if b.now().Sub(b.lastStateChange) >= b.resetTimeout {
			// Admit exactly one probe
			b.setState(StateHalfOpen)
			b.probing = true
			return nil
		}

		b.totalRejections++
		return &OpenError{
			State:           b.state,
			Failures:        b.failures,
			LastFailureTime: b.lastFailureTime,
		}

	case StateHalfOpen:
		if b.probing {
			// A probe is already in flight; reject until it reports
			b.totalRejections++
			return &OpenError{
				State:           b.state,
				Failures:        b.failures,
				LastFailureTime: b.lastFailureTime,
			}
		}
		b.probing = true
		return nil

	default:
		return fmt.Errorf("unknown circuit breaker state: %d", b.state)
	}
}

// afterCall records the result of the call
func (b *Breaker) afterCall(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.onFailure()
	} else {
		b.onSuccess()
	}
}

// onSuccess handles successful calls
func (b *Breaker) onSuccess() {
	b.totalSuccesses++
	b.failures = 0

	switch b.state {
	case StateClosed:
		// Remain closed

	case StateHalfOpen:
		// One successful probe closes the circuit
		b.probing = false
		b.setState(StateClosed)

	case StateOpen:
		// This shouldn't happen, but reset if it does
		b.setState(StateClosed)
	}
}

// onFailure handles failed calls
func (b *Breaker) onFailure() {
	b.totalFailures++
	b.failures++
	b.lastFailureTime = b.now()

	switch b.state {
	case StateClosed:
		if b.failures >= b.failureThreshold {
			b.setState(StateOpen)
		}

	case StateHalfOpen:
		// A failed probe re-opens the circuit and restarts the timeout
		b.probing = false
		b.setState(StateOpen)

	case StateOpen:
		b.lastStateChange = b.now()
	}
}

// setState transitions to a new state
func (b *Breaker) setState(newState State) {
	oldState := b.state

	if oldState == newState {
		return
	}

	b.state = newState
	b.lastStateChange = b.now()

	if b.onStateChange != nil {
		go b.onStateChange(oldState, newState)
	}
}

// GetState returns the current state
func (b *Breaker) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset resets the circuit breaker to closed state
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.setState(StateClosed)
	b.failures = 0
	b.probing = false
}

// GetStats returns circuit breaker statistics
func (b *Breaker) GetStats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		State:           b.state,
		Failures:        b.failures,
		TotalRequests:   b.totalRequests,
		TotalSuccesses:  b.totalSuccesses,
		TotalFailures:   b.totalFailures,
		TotalRejections: b.totalRejections,
		LastFailureTime: b.lastFailureTime,
		LastStateChange: b.lastStateChange,
	}
}

// Stats represents circuit breaker statistics
type Stats struct {
	State           State
	Failures        int
	TotalRequests   int64
	TotalSuccesses  int64
	TotalFailures   int64
	TotalRejections int64
	LastFailureTime time.Time
	LastStateChange time.Time
}

// OpenError is returned when the circuit rejects a call
type OpenError struct {
	State           State
	Failures        int
	LastFailureTime time.Time
}

// Error implements the error interface
func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker is %s (failures: %d, last failure: %s)",
		e.State.String(), e.Failures, e.LastFailureTime.Format(time.RFC3339))
}

// IsOpen checks if error is a circuit rejection
func IsOpen(err error) bool {
	_, ok := err.(*OpenError)
	return ok
}
