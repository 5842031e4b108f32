package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds the kernel's domain metrics
type Registry struct {
	meter metric.Meter

	// Clock metrics
	TimersActive    metric.Int64ObservableGauge
	EventsFired     metric.Int64Counter
	HandlerFailures metric.Int64Counter
	AdvanceDuration metric.Float64Histogram
	DispatchLag     metric.Float64Histogram

	// Backtest metrics
	BatchesProcessed  metric.Int64Counter
	BatchLoadDuration metric.Float64Histogram
	RunsCompleted     metric.Int64Counter
	SimulatedSpan     metric.Float64Histogram

	// State for observable metrics
	mu           sync.RWMutex
	timersActive int64
}

// NewRegistry creates a new metrics registry with all domain metrics
func NewRegistry(meterName string) (*Registry, error) {
	meter := otel.Meter(meterName)
	r := &Registry{meter: meter}

	if err := r.initClockMetrics(); err != nil {
		return nil, err
	}

	if err := r.initBacktestMetrics(); err != nil {
		return nil, err
	}

	return r, nil
}

// initClockMetrics initializes clock domain metrics
func (r *Registry) initClockMetrics() error {
	var err error

	r.TimersActive, err = r.meter.Int64ObservableGauge(
		"tradesim.clock.timers_active",
		metric.WithDescription("Number of currently active alerts and timers"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.timersActive)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	r.EventsFired, err = r.meter.Int64Counter(
		"tradesim.clock.events_fired_total",
		metric.WithDescription("Total number of timer firings dispatched"),
	)
	if err != nil {
		return err
	}

	r.HandlerFailures, err = r.meter.Int64Counter(
		"tradesim.clock.handler_failures_total",
		metric.WithDescription("Total number of handler failures recovered at the dispatch boundary"),
	)
	if err != nil {
		return err
	}

	r.AdvanceDuration, err = r.meter.Float64Histogram(
		"tradesim.clock.advance_duration",
		metric.WithDescription("Wall-clock duration of one simulated time advancement in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 500),
	)
	if err != nil {
		return err
	}

	r.DispatchLag, err = r.meter.Float64Histogram(
		"tradesim.clock.dispatch_lag",
		metric.WithDescription("Lag between scheduled and actual firing time in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 50, 100, 1000),
	)
	return err
}

// initBacktestMetrics initializes backtest domain metrics
func (r *Registry) initBacktestMetrics() error {
	var err error

	r.BatchesProcessed, err = r.meter.Int64Counter(
		"tradesim.backtest.batches_total",
		metric.WithDescription("Total number of data batches processed"),
	)
	if err != nil {
		return err
	}

	r.BatchLoadDuration, err = r.meter.Float64Histogram(
		"tradesim.backtest.batch_load_duration",
		metric.WithDescription("Duration of loading one batch into the engine in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000),
	)
	if err != nil {
		return err
	}

	r.RunsCompleted, err = r.meter.Int64Counter(
		"tradesim.backtest.runs_total",
		metric.WithDescription("Total number of backtest runs completed"),
	)
	if err != nil {
		return err
	}

	r.SimulatedSpan, err = r.meter.Float64Histogram(
		"tradesim.backtest.simulated_span",
		metric.WithDescription("Simulated time span covered per run in seconds"),
		metric.WithUnit("s"),
	)
	return err
}

// SetTimersActive updates the active timer gauge state
func (r *Registry) SetTimersActive(count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timersActive = count
}

// RecordEventFired records one dispatched firing
func (r *Registry) RecordEventFired(ctx context.Context, label string) {
	r.EventsFired.Add(ctx, 1, metric.WithAttributes(attribute.String("label", label)))
}

// RecordHandlerFailure records one recovered handler failure
func (r *Registry) RecordHandlerFailure(ctx context.Context, label string) {
	r.HandlerFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("label", label)))
}

// RecordAdvance records the wall-clock cost of one advancement
func (r *Registry) RecordAdvance(ctx context.Context, elapsed time.Duration) {
	r.AdvanceDuration.Record(ctx, float64(elapsed.Microseconds())/1000.0)
}

// RecordDispatchLag records scheduled-to-actual lag for a live firing
func (r *Registry) RecordDispatchLag(ctx context.Context, lag time.Duration) {
	r.DispatchLag.Record(ctx, float64(lag.Microseconds())/1000.0)
}

// RecordBatch records one processed batch and its engine load duration
func (r *Registry) RecordBatch(ctx context.Context, runID string, loadElapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("run.id", runID))
	r.BatchesProcessed.Add(ctx, 1, attrs)
	r.BatchLoadDuration.Record(ctx, float64(loadElapsed.Microseconds())/1000.0, attrs)
}

// RecordRunCompleted records one finished run and the simulated span covered
func (r *Registry) RecordRunCompleted(ctx context.Context, runID string, simulated time.Duration) {
	attrs := metric.WithAttributes(attribute.String("run.id", runID))
	r.RunsCompleted.Add(ctx, 1, attrs)
	r.SimulatedSpan.Record(ctx, simulated.Seconds(), attrs)
}
