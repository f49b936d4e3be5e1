package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	meterName  = "featureflagshq"
	tracerName = "featureflagshq"
)

// Provider instruments the SDK with OpenTelemetry metrics and traces. It
// records against the globally registered providers; an application that
// does not install an SDK gets no-op instruments for free.
type Provider struct {
	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	evaluations     metric.Int64Counter
	blocked         metric.Int64Counter
	invalidInputs   metric.Int64Counter
	droppedLogs     metric.Int64Counter
	evalDuration    metric.Float64Histogram
	refreshDuration metric.Float64Histogram
	refreshSuccess  metric.Int64Counter
	refreshFailure  metric.Int64Counter
	uploadSuccess   metric.Int64Counter
	uploadFailure   metric.Int64Counter
	circuitState    metric.Int64ObservableGauge

	// Current circuit state (for gauge): 0=closed, 1=open, 2=half-open
	currentCircuitState atomic.Int64
}

// New creates a telemetry provider
func New() (*Provider, error) {
	provider := &Provider{
		tracer: otel.Tracer(tracerName),
		meter:  otel.Meter(meterName),
	}

	if err := provider.initMetrics(); err != nil {
		return nil, err
	}

	return provider, nil
}

// initMetrics initializes all metrics
func (p *Provider) initMetrics() error {
	var err error

	p.evaluations, err = p.meter.Int64Counter(
		"featureflagshq.evaluations",
		metric.WithDescription("Number of flag evaluations"),
	)
	if err != nil {
		return err
	}

	p.blocked, err = p.meter.Int64Counter(
		"featureflagshq.evaluations.blocked",
		metric.WithDescription("Number of evaluations denied by the rate limiter"),
	)
	if err != nil {
		return err
	}

	p.invalidInputs, err = p.meter.Int64Counter(
		"featureflagshq.evaluations.invalid_input",
		metric.WithDescription("Number of evaluations rejected for invalid input"),
	)
	if err != nil {
		return err
	}

	p.droppedLogs, err = p.meter.Int64Counter(
		"featureflagshq.logs.dropped",
		metric.WithDescription("Number of access logs dropped at queue capacity"),
	)
	if err != nil {
		return err
	}

	p.evalDuration, err = p.meter.Float64Histogram(
		"featureflagshq.evaluation.duration",
		metric.WithDescription("Duration of flag evaluations"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	p.refreshDuration, err = p.meter.Float64Histogram(
		"featureflagshq.refresh.duration",
		metric.WithDescription("Duration of flag refresh operations"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	p.refreshSuccess, err = p.meter.Int64Counter(
		"featureflagshq.refresh.success",
		metric.WithDescription("Number of successful refreshes"),
	)
	if err != nil {
		return err
	}

	p.refreshFailure, err = p.meter.Int64Counter(
		"featureflagshq.refresh.failure",
		metric.WithDescription("Number of failed refreshes"),
	)
	if err != nil {
		return err
	}

	p.uploadSuccess, err = p.meter.Int64Counter(
		"featureflagshq.upload.success",
		metric.WithDescription("Number of successful log uploads"),
	)
	if err != nil {
		return err
	}

	p.uploadFailure, err = p.meter.Int64Counter(
		"featureflagshq.upload.failure",
		metric.WithDescription("Number of failed log uploads"),
	)
	if err != nil {
		return err
	}

	p.circuitState, err = p.meter.Int64ObservableGauge(
		"featureflagshq.circuit.state",
		metric.WithDescription("Circuit breaker state (0=closed, 1=open, 2=half-open)"),
		metric.WithInt64Callback(func(ctx context.Context, observer metric.Int64Observer) error {
			observer.Observe(p.currentCircuitState.Load())
			return nil
		}),
	)
	if err != nil {
		return err
	}

	return nil
}

// StartSpan creates a new trace span
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordEvaluation records one flag evaluation
func (p *Provider) RecordEvaluation(ctx context.Context, flagKey, outcome string, duration time.Duration) {
	p.evaluations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flag.key", flagKey),
		attribute.String("outcome", outcome),
	))
	p.evalDuration.Record(ctx, float64(duration.Microseconds())/1000.0,
		metric.WithAttributes(
			attribute.String("flag.key", flagKey),
		))
}

// RecordBlocked records an evaluation denied by the rate limiter
func (p *Provider) RecordBlocked(ctx context.Context, flagKey string) {
	p.blocked.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flag.key", flagKey),
	))
}

// RecordInvalidInput records an evaluation rejected before any work
func (p *Provider) RecordInvalidInput(ctx context.Context) {
	p.invalidInputs.Add(ctx, 1)
}

// RecordDroppedLogs records access logs lost to the queue bound
func (p *Provider) RecordDroppedLogs(ctx context.Context, n int64) {
	if n > 0 {
		p.droppedLogs.Add(ctx, n)
	}
}

// RecordRefresh records a flag refresh operation
func (p *Provider) RecordRefresh(ctx context.Context, success bool, duration time.Duration, flagCount int) {
	p.refreshDuration.Record(ctx, float64(duration.Milliseconds()),
		metric.WithAttributes(
			attribute.Bool("success", success),
		))

	if success {
		p.refreshSuccess.Add(ctx, 1, metric.WithAttributes(
			attribute.Int("flag.count", flagCount),
		))
	} else {
		p.refreshFailure.Add(ctx, 1)
	}
}

// RecordUpload records a log upload operation
func (p *Provider) RecordUpload(ctx context.Context, success bool, batchSize int) {
	if success {
		p.uploadSuccess.Add(ctx, 1, metric.WithAttributes(
			attribute.Int("batch.size", batchSize),
		))
	} else {
		p.uploadFailure.Add(ctx, 1)
	}
}

// RecordCircuitState records the circuit breaker state
func (p *Provider) RecordCircuitState(state string) {
	switch state {
	case "open":
		p.currentCircuitState.Store(1)
	case "half-open":
		p.currentCircuitState.Store(2)
	default:
		p.currentCircuitState.Store(0)
	}
}
