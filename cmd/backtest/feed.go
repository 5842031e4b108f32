package main

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/antonveldt/tradesim-kernel/internal/domain/data"
	"github.com/antonveldt/tradesim-kernel/internal/infrastructure/config"
	"github.com/antonveldt/tradesim-kernel/internal/service/backtest"
)

const tickSpacing = time.Second

// quoteTick is the synthetic market data item the reference feed produces.
type quoteTick struct {
	symbol string
	bid    decimal.Decimal
	ask    decimal.Decimal
	ts     time.Time
}

func (t quoteTick) Timestamp() time.Time { return t.ts }
func (t quoteTick) SizeBytes() int       { return 48 }

// syntheticFeed generates one quote per second across the run's span, with a
// deterministic oscillating mid so repeated runs replay identically. It
// stands in for a historical data loader.
type syntheticFeed struct {
	cursor time.Time
	stop   time.Time
	step   int
}

var (
	baseMid    = decimal.RequireFromString("1.1000")
	pipSize    = decimal.RequireFromString("0.0001")
	halfSpread = decimal.RequireFromString("0.00005")
	wavelength = 20
)

func (f *syntheticFeed) Next(ctx context.Context) (data.Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !f.cursor.Before(f.stop) {
		return nil, backtest.ErrEndOfFeed
	}

	// Triangle wave around the base mid, one pip per step.
	phase := f.step % wavelength
	if phase > wavelength/2 {
		phase = wavelength - phase
	}
	mid := baseMid.Add(pipSize.Mul(decimal.NewFromInt(int64(phase))))

	tick := quoteTick{
		symbol: "EUR/USD",
		bid:    mid.Sub(halfSpread),
		ask:    mid.Add(halfSpread),
		ts:     f.cursor,
	}
	f.cursor = f.cursor.Add(tickSpacing)
	f.step++
	return tick, nil
}

func (f *syntheticFeed) Close() error { return nil }

type syntheticFeedFactory struct {
	runs map[string]config.RunConfig
}

func newSyntheticFeedFactory(runs []config.RunConfig) *syntheticFeedFactory {
	byID := make(map[string]config.RunConfig, len(runs))
	for _, rc := range runs {
		byID[rc.ID] = rc
	}
	return &syntheticFeedFactory{runs: byID}
}

func (f *syntheticFeedFactory) Open(_ context.Context, runID string) (backtest.DataFeed, error) {
	rc := f.runs[runID]
	return &syntheticFeed{cursor: rc.Start, stop: rc.Stop}, nil
}
