package backtest

import (
	"context"

	"github.com/antonveldt/tradesim-kernel/internal/domain/data"
	"github.com/antonveldt/tradesim-kernel/internal/domain/errors"
)

// Batcher accumulates feed items into byte-capped batches. Items keep feed
// order, so each batch covers a contiguous, ascending span of simulated
// time and its last item bounds the clock advancement for that batch.
type Batcher struct {
	feed        DataFeed
	targetBytes int
	drained     bool
}

// NewBatcher creates a batcher over the feed with the given byte target.
func NewBatcher(feed DataFeed, targetBytes int) (*Batcher, error) {
	if feed == nil {
		return nil, errors.NewValidationError("NIL_FEED", "data feed is required")
	}
	if targetBytes <= 0 {
		return nil, errors.NewValidationError("INVALID_BATCH_SIZE",
			"target batch size must be positive")
	}
	return &Batcher{feed: feed, targetBytes: targetBytes}, nil
}

// NextBatch reads items until the byte target is reached or the feed is
// drained. The item that crosses the target is included, so batches are at
// least one item. Returns ErrEndOfFeed once nothing remains.
func (b *Batcher) NextBatch(ctx context.Context) ([]data.Data, error) {
	if b.drained {
		return nil, ErrEndOfFeed
	}

	var batch []data.Data
	var size int
	for size < b.targetBytes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item, err := b.feed.Next(ctx)
		if err == ErrEndOfFeed {
			b.drained = true
			if len(batch) == 0 {
				return nil, ErrEndOfFeed
			}
			return batch, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading data feed")
		}

		batch = append(batch, item)
		size += data.EstimateSize(item)
	}
	return batch, nil
}
