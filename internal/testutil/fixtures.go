// Package testutil provides shared fixtures for kernel tests: synthetic
// data items and thread-safe event recorders.
package testutil

import (
	"time"

	"github.com/antonveldt/tradesim-kernel/internal/domain/data"
)

// Tick is a synthetic timestamped data item with a known byte size.
type Tick struct {
	Symbol string
	Price  float64
	At     time.Time
}

func (t Tick) Timestamp() time.Time { return t.At }
func (t Tick) SizeBytes() int       { return 48 }

// Bar is a second synthetic item type, used to exercise type grouping.
type Bar struct {
	Symbol string
	Close  float64
	At     time.Time
}

func (b Bar) Timestamp() time.Time { return b.At }
func (b Bar) SizeBytes() int       { return 96 }

// GenerateTicks produces n ticks spaced evenly from start, in ascending
// timestamp order.
func GenerateTicks(symbol string, start time.Time, n int, spacing time.Duration) []data.Data {
	out := make([]data.Data, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Tick{
			Symbol: symbol,
			Price:  100 + float64(i)*0.01,
			At:     start.Add(time.Duration(i) * spacing),
		})
	}
	return out
}

var _ data.Data = Tick{}
var _ data.Sized = Tick{}
