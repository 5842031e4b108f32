// Package clock provides the time abstraction driving the simulation kernel:
// a polymorphic clock that registers one-shot alerts and repeating timers
// keyed by label, firing them either as real time elapses (LiveClock) or as
// simulated time is explicitly advanced (TestClock).
package clock

import (
	"time"

	"github.com/antonveldt/tradesim-kernel/internal/domain/errors"
	"github.com/antonveldt/tradesim-kernel/internal/domain/values"
)

// Clock is the capability set shared by all clock variants. Components that
// need time hold an explicit Clock reference, never a process-wide singleton,
// so simulated and live time are fully substitutable.
type Clock interface {
	// Timezone returns the clock's timezone, always UTC.
	Timezone() *time.Location

	// UnixEpoch returns the fixed reference point 1970-01-01T00:00:00Z.
	UnixEpoch() time.Time

	// Now returns the clock's current notion of now.
	Now() time.Time

	// GetLabels returns the labels of all currently active alerts and
	// timers, in registration order.
	GetLabels() []values.Label

	// SetTimeAlert registers a non-repeating timer that fires exactly once
	// at alertTime. An alert time at or before Now is due immediately and
	// fires on the next advancement or dispatch.
	SetTimeAlert(label values.Label, alertTime time.Time, handler Handler) error

	// SetTimer registers a timer. A non-repeating timer fires once at
	// start+interval; a repeating timer fires at start+interval,
	// start+2*interval, ... while at or before stop. A zero stop time means
	// no stop bound, which is only valid for non-repeating timers.
	SetTimer(label values.Label, interval time.Duration, start, stop time.Time, repeating bool, handler Handler) error

	// CancelTimeAlert removes the named alert if present. Cancelling an
	// unknown label is a no-op, since cancellation races natural expiry.
	CancelTimeAlert(label values.Label)

	// CancelTimer removes the named timer if present; idempotent.
	CancelTimer(label values.Label)

	// StopAllTimers clears the registry without invoking handlers and
	// releases any underlying scheduling resources.
	StopAllTimers()

	// SetTime sets the clock's current time without firing side effects.
	// Only supported by TestClock.
	SetTime(t time.Time) error

	// IterateTime advances the clock to t, invoking every due handler in
	// globally ordered sequence before returning. Only supported by
	// TestClock.
	IterateTime(t time.Time) error
}

// FailureFunc is the side channel through which recovered handler failures
// are reported to the driver. It must not block.
type FailureFunc func(label values.Label, err error)

// registry maps labels to their timers, preserving insertion order so that
// simultaneous firings replay deterministically in registration order.
type registry struct {
	entries map[string]*Timer
	order   []string
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*Timer)}
}

func (r *registry) add(t *Timer) error {
	key := t.Label().String()
	if _, exists := r.entries[key]; exists {
		return errors.NewDuplicateLabelError(key)
	}
	r.entries[key] = t
	r.order = append(r.order, key)
	return nil
}

func (r *registry) get(key string) (*Timer, bool) {
	t, ok := r.entries[key]
	return t, ok
}

func (r *registry) remove(key string) bool {
	if _, ok := r.entries[key]; !ok {
		return false
	}
	delete(r.entries, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// timers returns the active timers in registration order.
func (r *registry) timers() []*Timer {
	out := make([]*Timer, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.entries[key])
	}
	return out
}

func (r *registry) labels() []values.Label {
	out := make([]values.Label, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.entries[key].Label())
	}
	return out
}

func (r *registry) clear() {
	r.entries = make(map[string]*Timer)
	r.order = nil
}

func (r *registry) len() int {
	return len(r.entries)
}
