package clock

import (
	"fmt"
	"time"

	"github.com/antonveldt/tradesim-kernel/internal/domain/errors"
	"github.com/antonveldt/tradesim-kernel/internal/domain/values"
)

// Timer is a single schedulable unit: a one-shot alert or a repeating
// interval timer. The owning clock is its sole mutator; once expired it is
// terminal and removed from the registry.
type Timer struct {
	label     values.Label
	interval  time.Duration
	startTime time.Time
	stopTime  time.Time
	hasStop   bool
	repeating bool
	handler   Handler

	// nextFire is the cursor to the next owed firing instant. It is
	// advanced by Advance and never rewinds.
	nextFire time.Time
	expired  bool
}

// NewTimeAlert creates a non-repeating timer firing exactly once at alertTime.
func NewTimeAlert(label values.Label, alertTime time.Time, handler Handler) (*Timer, error) {
	if label.IsZero() {
		return nil, errors.NewInvalidScheduleError("label is required")
	}
	if handler == nil {
		return nil, errors.NewInvalidScheduleError("handler is required")
	}
	if alertTime.IsZero() {
		return nil, errors.NewInvalidScheduleError("alert time is required")
	}

	return &Timer{
		label:     label,
		startTime: alertTime.UTC(),
		handler:   handler,
		nextFire:  alertTime.UTC(),
	}, nil
}

// NewTimer creates a timer. A non-repeating timer fires once at
// start+interval; a repeating timer fires every interval from start until
// stop. A zero stop means unbounded, which repeating timers may not be.
func NewTimer(label values.Label, interval time.Duration, start, stop time.Time, repeating bool, handler Handler) (*Timer, error) {
	if label.IsZero() {
		return nil, errors.NewInvalidScheduleError("label is required")
	}
	if handler == nil {
		return nil, errors.NewInvalidScheduleError("handler is required")
	}
	if start.IsZero() {
		return nil, errors.NewInvalidScheduleError("start time is required")
	}
	if interval < 0 {
		return nil, errors.NewInvalidScheduleError("interval cannot be negative")
	}
	if repeating && interval <= 0 {
		return nil, errors.NewInvalidScheduleError("repeating timer requires a positive interval")
	}
	if repeating && stop.IsZero() {
		return nil, errors.NewInvalidScheduleError("repeating timer requires a stop time")
	}

	start = start.UTC()
	hasStop := !stop.IsZero()
	if hasStop {
		stop = stop.UTC()
		if stop.Before(start) {
			return nil, errors.NewInvalidScheduleError(fmt.Sprintf(
				"stop time %s is before start time %s",
				stop.Format(time.RFC3339Nano), start.Format(time.RFC3339Nano)))
		}
	}

	first := start.Add(interval)
	if hasStop && first.After(stop) {
		return nil, errors.NewInvalidScheduleError("stop time precedes the first firing")
	}

	return &Timer{
		label:     label,
		interval:  interval,
		startTime: start,
		stopTime:  stop,
		hasStop:   hasStop,
		repeating: repeating,
		handler:   handler,
		nextFire:  first,
	}, nil
}

// Label returns the timer's label.
func (t *Timer) Label() values.Label {
	return t.label
}

// Interval returns the duration between firings, zero for a pure alert.
func (t *Timer) Interval() time.Duration {
	return t.interval
}

// StartTime returns the timestamp the schedule is computed from.
func (t *Timer) StartTime() time.Time {
	return t.startTime
}

// StopTime returns the bound after which the timer is exhausted, and
// whether one was set.
func (t *Timer) StopTime() (time.Time, bool) {
	return t.stopTime, t.hasStop
}

// IsRepeating reports whether the timer fires more than once.
func (t *Timer) IsRepeating() bool {
	return t.repeating
}

// NextFireTime returns the next scheduled firing instant.
func (t *Timer) NextFireTime() time.Time {
	return t.nextFire
}

// IsExpired reports whether the timer has no further in-bound firings.
// Expiry is terminal.
func (t *Timer) IsExpired() bool {
	return t.expired
}

// Advance computes every scheduled instant owed up to and including to, in
// ascending order, moving the cursor to the first instant strictly after to
// or marking the timer expired when none remains within its bound. A single
// large jump therefore replays each missed firing exactly once.
func (t *Timer) Advance(to time.Time) []time.Time {
	if t.expired {
		return nil
	}

	var due []time.Time
	for !t.expired && !t.nextFire.After(to) {
		due = append(due, t.nextFire)
		t.step()
	}
	return due
}

func (t *Timer) step() {
	if !t.repeating {
		t.expired = true
		return
	}
	t.nextFire = t.nextFire.Add(t.interval)
	if t.hasStop && t.nextFire.After(t.stopTime) {
		t.expired = true
	}
}
