package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antonveldt/tradesim-kernel/internal/testutil"
)

func TestNewBatcher_Validation(t *testing.T) {
	feed := &scriptedFeed{}

	_, err := NewBatcher(nil, 1024)
	assert.Error(t, err)

	_, err = NewBatcher(feed, 0)
	assert.Error(t, err)

	_, err = NewBatcher(feed, 1024)
	assert.NoError(t, err)
}

func TestBatcher_ByteCappedBatches(t *testing.T) {
	start := time.Unix(0, 0).UTC()
	// 10 ticks at 48 bytes each; a 100-byte target yields batches of 3
	// (the item crossing the cap is included).
	feed := &scriptedFeed{items: testutil.GenerateTicks("EURUSD", start, 10, time.Second)}
	batcher, err := NewBatcher(feed, 100)
	require.NoError(t, err)

	var sizes []int
	for {
		batch, err := batcher.NextBatch(context.Background())
		if err == ErrEndOfFeed {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, len(batch))
	}

	assert.Equal(t, []int{3, 3, 3, 1}, sizes)
}

func TestBatcher_DrainedFeedKeepsReturningEndOfFeed(t *testing.T) {
	start := time.Unix(0, 0).UTC()
	feed := &scriptedFeed{items: testutil.GenerateTicks("EURUSD", start, 1, time.Second)}
	batcher, err := NewBatcher(feed, 1024)
	require.NoError(t, err)

	batch, err := batcher.NextBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch, 1)

	for i := 0; i < 3; i++ {
		_, err = batcher.NextBatch(context.Background())
		assert.ErrorIs(t, err, ErrEndOfFeed)
	}
}

func TestBatcher_ContextCancellation(t *testing.T) {
	start := time.Unix(0, 0).UTC()
	feed := &scriptedFeed{items: testutil.GenerateTicks("EURUSD", start, 100, time.Second)}
	batcher, err := NewBatcher(feed, 1<<20)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = batcher.NextBatch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
