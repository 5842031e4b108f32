package backtest

import (
	"context"
	"errors"

	"github.com/antonveldt/tradesim-kernel/internal/domain/clock"
	"github.com/antonveldt/tradesim-kernel/internal/domain/data"
	"github.com/antonveldt/tradesim-kernel/internal/domain/values"
)

// ErrEndOfFeed is returned by a DataFeed once all items have been yielded.
var ErrEndOfFeed = errors.New("end of data feed")

// VenueSetup is a venue definition with parsed starting balances, applied
// to the engine before any timers are registered.
type VenueSetup struct {
	Name             string
	OMSType          string
	AccountType      string
	BaseCurrency     string
	StartingBalances []values.Money
}

// Engine is the execution engine boundary. Order matching, accounting and
// venue simulation live behind it; the kernel only feeds it venues, data
// batches and time events.
type Engine interface {
	// AddVenue installs a trading venue. Called once per venue before any
	// data is loaded or timers registered.
	AddVenue(ctx context.Context, venue VenueSetup) error

	// LoadBatch hands one type-grouped batch of data to the engine.
	LoadBatch(ctx context.Context, groups []data.Group) error

	// OnTimeEvent observes each timer firing replayed by the clock.
	OnTimeEvent(event clock.TimeEvent)

	// Close releases engine resources at the end of a run.
	Close(ctx context.Context) error
}

// EngineFactory builds one engine per backtest run.
type EngineFactory interface {
	NewEngine(ctx context.Context, runID string) (Engine, error)
}

// DataFeed yields timestamp-ordered opaque data items for one run.
type DataFeed interface {
	// Next returns the next item, or ErrEndOfFeed when drained.
	Next(ctx context.Context) (data.Data, error)

	Close() error
}

// FeedFactory opens the data feed for one run.
type FeedFactory interface {
	Open(ctx context.Context, runID string) (DataFeed, error)
}
