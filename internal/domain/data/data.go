// Package data defines the opaque market data contract consumed by the
// backtest orchestration. The kernel never inspects payloads; it only needs
// a timestamp for batching and an optional byte size for batch capping.
package data

import (
	"fmt"
	"sort"
	"time"
)

// Data is a single timestamped simulation input item. Payload semantics
// belong to the engine, not the kernel.
type Data interface {
	Timestamp() time.Time
}

// Sized is optionally implemented by data items that know their own
// serialized size, used for byte-capped batching.
type Sized interface {
	SizeBytes() int
}

// DefaultItemSize is the per-item estimate used when an item does not
// implement Sized.
const DefaultItemSize = 64

// EstimateSize returns the item's byte size, falling back to
// DefaultItemSize for unsized items.
func EstimateSize(d Data) int {
	if s, ok := d.(Sized); ok {
		return s.SizeBytes()
	}
	return DefaultItemSize
}

// Group is a run of items sharing one concrete type, ready for bulk
// loading into an engine.
type Group struct {
	TypeName string
	Items    []Data
}

// GroupByType partitions a batch by concrete item type. Groups are returned
// in ascending type-name order and items keep their relative order within
// each group, so grouping is deterministic for identical inputs.
func GroupByType(items []Data) []Group {
	if len(items) == 0 {
		return nil
	}

	buckets := make(map[string][]Data)
	for _, item := range items {
		name := fmt.Sprintf("%T", item)
		buckets[name] = append(buckets[name], item)
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]Group, 0, len(names))
	for _, name := range names {
		groups = append(groups, Group{TypeName: name, Items: buckets[name]})
	}
	return groups
}
