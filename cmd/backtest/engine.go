package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/antonveldt/tradesim-kernel/internal/domain/clock"
	"github.com/antonveldt/tradesim-kernel/internal/domain/data"
	"github.com/antonveldt/tradesim-kernel/internal/service/backtest"
)

// loggingEngine is the reference engine: it consumes venue setups, data
// batches and time events and logs what it sees. Real strategy engines
// implement the same interface.
type loggingEngine struct {
	runID  string
	logger *zap.Logger

	items  int
	events int
}

type loggingEngineFactory struct {
	logger *zap.Logger
}

func newLoggingEngineFactory(logger *zap.Logger) *loggingEngineFactory {
	return &loggingEngineFactory{logger: logger}
}

func (f *loggingEngineFactory) NewEngine(_ context.Context, runID string) (backtest.Engine, error) {
	return &loggingEngine{runID: runID, logger: f.logger}, nil
}

func (e *loggingEngine) AddVenue(_ context.Context, venue backtest.VenueSetup) error {
	balances := make([]string, 0, len(venue.StartingBalances))
	for _, b := range venue.StartingBalances {
		balances = append(balances, b.String())
	}
	e.logger.Info("venue added",
		zap.String("run_id", e.runID),
		zap.String("venue", venue.Name),
		zap.String("oms_type", venue.OMSType),
		zap.String("account_type", venue.AccountType),
		zap.Strings("starting_balances", balances))
	return nil
}

func (e *loggingEngine) LoadBatch(_ context.Context, groups []data.Group) error {
	for _, g := range groups {
		e.items += len(g.Items)
		e.logger.Debug("batch group loaded",
			zap.String("run_id", e.runID),
			zap.String("type", g.TypeName),
			zap.Int("items", len(g.Items)))
	}
	return nil
}

func (e *loggingEngine) OnTimeEvent(ev clock.TimeEvent) {
	e.events++
	e.logger.Debug("time event",
		zap.String("run_id", e.runID),
		zap.String("label", ev.Label.String()),
		zap.Time("scheduled", ev.Scheduled))
}

func (e *loggingEngine) Close(context.Context) error {
	e.logger.Info("engine closed",
		zap.String("run_id", e.runID),
		zap.Int("items_loaded", e.items),
		zap.Int("events_handled", e.events))
	return nil
}
