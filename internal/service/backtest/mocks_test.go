package backtest

import (
	"context"
	"sync"

	"github.com/antonveldt/tradesim-kernel/internal/domain/clock"
	"github.com/antonveldt/tradesim-kernel/internal/domain/data"
)

// fakeEngine records everything the node and runner hand it.
type fakeEngine struct {
	mu         sync.Mutex
	venues     []VenueSetup
	batches    [][]data.Group
	timeEvents []clock.TimeEvent
	closed     bool

	addVenueErr  error
	loadBatchErr error
}

func (e *fakeEngine) AddVenue(_ context.Context, venue VenueSetup) error {
	if e.addVenueErr != nil {
		return e.addVenueErr
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.venues = append(e.venues, venue)
	return nil
}

func (e *fakeEngine) LoadBatch(_ context.Context, groups []data.Group) error {
	if e.loadBatchErr != nil {
		return e.loadBatchErr
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batches = append(e.batches, groups)
	return nil
}

func (e *fakeEngine) OnTimeEvent(ev clock.TimeEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timeEvents = append(e.timeEvents, ev)
}

func (e *fakeEngine) Close(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

type fakeEngineFactory struct {
	engines map[string]*fakeEngine
}

func newFakeEngineFactory() *fakeEngineFactory {
	return &fakeEngineFactory{engines: make(map[string]*fakeEngine)}
}

func (f *fakeEngineFactory) NewEngine(_ context.Context, runID string) (Engine, error) {
	e := &fakeEngine{}
	f.engines[runID] = e
	return e, nil
}

// scriptedFeed yields a fixed slice of items in order.
type scriptedFeed struct {
	items  []data.Data
	pos    int
	closed bool
}

func (f *scriptedFeed) Next(context.Context) (data.Data, error) {
	if f.pos >= len(f.items) {
		return nil, ErrEndOfFeed
	}
	item := f.items[f.pos]
	f.pos++
	return item, nil
}

func (f *scriptedFeed) Close() error {
	f.closed = true
	return nil
}

type scriptedFeedFactory struct {
	feeds map[string]*scriptedFeed
}

func newScriptedFeedFactory() *scriptedFeedFactory {
	return &scriptedFeedFactory{feeds: make(map[string]*scriptedFeed)}
}

func (f *scriptedFeedFactory) add(runID string, items []data.Data) *scriptedFeed {
	feed := &scriptedFeed{items: items}
	f.feeds[runID] = feed
	return feed
}

func (f *scriptedFeedFactory) Open(_ context.Context, runID string) (DataFeed, error) {
	if feed, ok := f.feeds[runID]; ok {
		return feed, nil
	}
	return &scriptedFeed{}, nil
}
