package backtest

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/antonveldt/tradesim-kernel/internal/domain/clock"
	"github.com/antonveldt/tradesim-kernel/internal/domain/errors"
	"github.com/antonveldt/tradesim-kernel/internal/domain/values"
	"github.com/antonveldt/tradesim-kernel/internal/infrastructure/config"
	"github.com/antonveldt/tradesim-kernel/internal/infrastructure/telemetry"
	"github.com/antonveldt/tradesim-kernel/internal/metrics"
)

// Node orchestrates groups of configurable backtest runs. Each run gets its
// own engine and its own deterministic test clock; the node wires venues,
// timer fixtures and the data feed together, then executes a full-load or
// streaming pass depending on the run's batch size.
type Node struct {
	engines EngineFactory
	feeds   FeedFactory
	metrics *metrics.Registry
	logger  *zap.Logger
}

// Result summarizes one completed run.
type Result struct {
	RunID           string
	Start           time.Time
	Stop            time.Time
	Elapsed         time.Duration
	Batches         int
	EventsFired     int64
	HandlerFailures int64
}

// NewNode creates a backtest node.
func NewNode(engines EngineFactory, feeds FeedFactory, reg *metrics.Registry, logger *zap.Logger) (*Node, error) {
	if engines == nil {
		return nil, errors.NewValidationError("NIL_ENGINE_FACTORY", "engine factory is required")
	}
	if feeds == nil {
		return nil, errors.NewValidationError("NIL_FEED_FACTORY", "feed factory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Node{
		engines: engines,
		feeds:   feeds,
		metrics: reg,
		logger:  logger,
	}, nil
}

// Run executes the given run configs in order, synchronously, and returns
// their results. The first failing run aborts the remainder.
func (n *Node) Run(ctx context.Context, runs []config.RunConfig) ([]Result, error) {
	results := make([]Result, 0, len(runs))
	for _, rc := range runs {
		result, err := n.runOne(ctx, rc)
		if err != nil {
			return results, errors.Wrap(err, "run "+rc.ID)
		}
		results = append(results, result)
	}
	return results, nil
}

func (n *Node) runOne(ctx context.Context, rc config.RunConfig) (Result, error) {
	ctx, span := telemetry.StartRunSpan(ctx, rc.ID)
	defer span.End()

	started := time.Now()
	n.logger.Info("backtest run starting",
		zap.String("run_id", rc.ID),
		zap.Time("start", rc.Start),
		zap.Time("stop", rc.Stop),
		zap.Int("batch_size_bytes", rc.BatchSizeBytes))

	engine, err := n.engines.NewEngine(ctx, rc.ID)
	if err != nil {
		telemetry.WithSpanError(span, err)
		return Result{}, errors.Wrap(err, "creating engine")
	}
	defer func() {
		if cerr := engine.Close(ctx); cerr != nil {
			n.logger.Warn("engine close failed", zap.String("run_id", rc.ID), zap.Error(cerr))
		}
	}()

	// Venue setup precedes every timer registration.
	for _, vc := range rc.Venues {
		venue, err := buildVenue(vc)
		if err != nil {
			telemetry.WithSpanError(span, err)
			return Result{}, err
		}
		if err := engine.AddVenue(ctx, venue); err != nil {
			telemetry.WithSpanError(span, err)
			return Result{}, errors.Wrap(err, "adding venue "+vc.Name)
		}
	}

	clk := clock.NewTestClockAt(rc.Start, n.logger)
	defer clk.StopAllTimers()

	var fired, failures atomic.Int64
	clk.OnHandlerFailure(func(label values.Label, err error) {
		failures.Add(1)
		n.metrics.RecordHandlerFailure(ctx, label.String())
		n.logger.Error("timer handler failed",
			zap.String("run_id", rc.ID),
			zap.String("label", label.String()),
			zap.Error(err))
	})

	handler := func(ev clock.TimeEvent) {
		fired.Add(1)
		n.metrics.RecordEventFired(ctx, ev.Label.String())
		n.metrics.RecordDispatchLag(ctx, ev.Actual.Sub(ev.Scheduled))
		engine.OnTimeEvent(ev)
	}
	if err := registerFixtures(clk, rc.Timers, handler); err != nil {
		telemetry.WithSpanError(span, err)
		return Result{}, err
	}
	n.metrics.SetTimersActive(int64(len(clk.GetLabels())))

	feed, err := n.feeds.Open(ctx, rc.ID)
	if err != nil {
		telemetry.WithSpanError(span, err)
		return Result{}, errors.Wrap(err, "opening data feed")
	}
	defer feed.Close()

	run := newRunner(rc.ID, clk, engine, n.metrics, n.logger)
	var batches int
	if rc.BatchSizeBytes > 0 {
		batcher, err := NewBatcher(feed, rc.BatchSizeBytes)
		if err != nil {
			telemetry.WithSpanError(span, err)
			return Result{}, err
		}
		batches, err = run.runStreaming(ctx, batcher, rc.Stop)
		if err != nil {
			telemetry.WithSpanError(span, err)
			return Result{}, err
		}
	} else {
		batches, err = run.runFullLoad(ctx, feed, rc.Stop)
		if err != nil {
			telemetry.WithSpanError(span, err)
			return Result{}, err
		}
	}

	elapsed := time.Since(started)
	n.metrics.SetTimersActive(int64(len(clk.GetLabels())))
	n.metrics.RecordRunCompleted(ctx, rc.ID, rc.Stop.Sub(rc.Start))
	n.logger.Info("backtest run complete",
		zap.String("run_id", rc.ID),
		zap.Duration("elapsed", elapsed),
		zap.Int("batches", batches),
		zap.Int64("events_fired", fired.Load()))

	return Result{
		RunID:           rc.ID,
		Start:           rc.Start,
		Stop:            rc.Stop,
		Elapsed:         elapsed,
		Batches:         batches,
		EventsFired:     fired.Load(),
		HandlerFailures: failures.Load(),
	}, nil
}

func buildVenue(vc config.VenueConfig) (VenueSetup, error) {
	balances := make([]values.Money, 0, len(vc.StartingBalances))
	for _, raw := range vc.StartingBalances {
		m, err := values.ParseMoney(raw)
		if err != nil {
			return VenueSetup{}, errors.Wrap(err, "venue "+vc.Name+" starting balance")
		}
		balances = append(balances, m)
	}
	return VenueSetup{
		Name:             vc.Name,
		OMSType:          vc.OMSType,
		AccountType:      vc.AccountType,
		BaseCurrency:     vc.BaseCurrency,
		StartingBalances: balances,
	}, nil
}

func registerFixtures(clk clock.Clock, fixtures []config.TimerConfig, handler clock.Handler) error {
	for _, tc := range fixtures {
		label, err := values.NewLabel(tc.Label)
		if err != nil {
			return err
		}
		switch tc.Type {
		case "alert":
			err = clk.SetTimeAlert(label, tc.AlertTime, handler)
		default:
			err = clk.SetTimer(label, tc.Interval, tc.Start, tc.Stop, tc.Repeating, handler)
		}
		if err != nil {
			return errors.Wrap(err, "registering fixture "+tc.Label)
		}
	}
	return nil
}
