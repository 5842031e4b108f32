package testutil

import (
	"sync"

	"github.com/antonveldt/tradesim-kernel/internal/domain/clock"
)

// EventRecorder captures time events dispatched from any clock variant.
// Safe for concurrent use, so it works under live dispatch too.
type EventRecorder struct {
	mu     sync.Mutex
	events []clock.TimeEvent
}

// Handle is the clock.Handler to register.
func (r *EventRecorder) Handle(ev clock.TimeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Count returns the number of recorded events.
func (r *EventRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Events returns a copy of the recorded events in dispatch order.
func (r *EventRecorder) Events() []clock.TimeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]clock.TimeEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Labels returns the recorded labels in dispatch order.
func (r *EventRecorder) Labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Label.String())
	}
	return out
}
