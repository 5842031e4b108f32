package backtest

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/antonveldt/tradesim-kernel/internal/domain/clock"
	"github.com/antonveldt/tradesim-kernel/internal/domain/data"
	"github.com/antonveldt/tradesim-kernel/internal/domain/errors"
	"github.com/antonveldt/tradesim-kernel/internal/infrastructure/telemetry"
	"github.com/antonveldt/tradesim-kernel/internal/metrics"
)

// runner executes one backtest run against a test clock: load data, advance
// the clock, repeat. The clock advancement happens strictly after the batch
// it bounds has been loaded, and never interleaves with feed I/O.
type runner struct {
	runID    string
	clk      *clock.TestClock
	engine   Engine
	metrics  *metrics.Registry
	logger   *zap.Logger
	progress rate.Sometimes
}

func newRunner(runID string, clk *clock.TestClock, engine Engine, reg *metrics.Registry, logger *zap.Logger) *runner {
	return &runner{
		runID:   runID,
		clk:     clk,
		engine:  engine,
		metrics: reg,
		logger:  logger,
		// Progress lines per batch are throttled so large runs do not
		// flood the log.
		progress: rate.Sometimes{First: 3, Interval: 5 * time.Second},
	}
}

// runFullLoad drains the feed, loads everything in one pass, then advances
// the clock to the run's stop time in a single jump. Every timer firing due
// within the span replays in order during that one advancement.
func (r *runner) runFullLoad(ctx context.Context, feed DataFeed, stop time.Time) (int, error) {
	var items []data.Data
	for {
		item, err := feed.Next(ctx)
		if err == ErrEndOfFeed {
			break
		}
		if err != nil {
			return 0, errors.Wrap(err, "reading data feed")
		}
		items = append(items, item)
	}

	batches := 0
	if len(items) > 0 {
		loadStart := time.Now()
		if err := r.engine.LoadBatch(ctx, data.GroupByType(items)); err != nil {
			return 0, errors.Wrap(err, "loading engine data")
		}
		r.metrics.RecordBatch(ctx, r.runID, time.Since(loadStart))
		batches = 1
	}

	if err := r.clk.IterateTime(stop); err != nil {
		return batches, errors.Wrap(err, "advancing clock")
	}
	return batches, nil
}

// runStreaming processes the feed in byte-capped batches, advancing the
// clock once per batch to the batch's last timestamp, then to the run's
// stop time after the feed is drained.
func (r *runner) runStreaming(ctx context.Context, batcher *Batcher, stop time.Time) (int, error) {
	batches := 0
	for {
		batch, err := batcher.NextBatch(ctx)
		if err == ErrEndOfFeed {
			break
		}
		if err != nil {
			return batches, err
		}

		batchCtx, span := telemetry.StartBatchSpan(ctx, r.runID, batches, len(batch))
		if err := r.processBatch(batchCtx, batch); err != nil {
			telemetry.WithSpanError(span, err)
			span.End()
			return batches, err
		}
		span.End()
		batches++

		r.progress.Do(func() {
			r.logger.Info("batch processed",
				zap.String("run_id", r.runID),
				zap.Int("batch", batches),
				zap.Int("items", len(batch)),
				zap.Time("sim_time", r.clk.Now()))
		})
	}

	if err := r.clk.IterateTime(stop); err != nil {
		return batches, errors.Wrap(err, "advancing clock to stop time")
	}
	return batches, nil
}

func (r *runner) processBatch(ctx context.Context, batch []data.Data) error {
	loadStart := time.Now()
	if err := r.engine.LoadBatch(ctx, data.GroupByType(batch)); err != nil {
		return errors.Wrap(err, "loading engine batch")
	}
	r.metrics.RecordBatch(ctx, r.runID, time.Since(loadStart))

	// One advancement per processed batch, bounded by the batch's last
	// item. Feed items are timestamp ordered by contract.
	batchEnd := batch[len(batch)-1].Timestamp()
	advanceStart := time.Now()
	if err := r.clk.IterateTime(batchEnd); err != nil {
		return errors.Wrap(err, "advancing clock to batch end")
	}
	r.metrics.RecordAdvance(ctx, time.Since(advanceStart))
	return nil
}
