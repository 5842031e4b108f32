package clock

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/antonveldt/tradesim-kernel/internal/domain/errors"
	"github.com/antonveldt/tradesim-kernel/internal/domain/values"
)

// LiveClock is the real-time clock variant. Its current time always reads
// the OS clock; each registration arms an OS-level timer that dispatches the
// handler on its own goroutine when the real deadline elapses. Multiple
// timers may fire concurrently, so the registry is mutex-guarded.
type LiveClock struct {
	mu        sync.Mutex
	reg       *registry
	armed     map[string]*time.Timer
	wg        sync.WaitGroup
	logger    *zap.Logger
	onFailure FailureFunc
}

var _ Clock = (*LiveClock)(nil)

// NewLiveClock creates a live clock backed by the system time source.
func NewLiveClock(logger *zap.Logger) *LiveClock {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveClock{
		reg:    newRegistry(),
		armed:  make(map[string]*time.Timer),
		logger: logger,
	}
}

// OnHandlerFailure installs the side channel through which recovered handler
// failures are reported. When unset, failures are logged. Must be set before
// any timer is registered.
func (c *LiveClock) OnHandlerFailure(fn FailureFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFailure = fn
}

// Timezone returns UTC; all timestamps are UTC-anchored.
func (c *LiveClock) Timezone() *time.Location {
	return time.UTC
}

// UnixEpoch returns 1970-01-01T00:00:00Z.
func (c *LiveClock) UnixEpoch() time.Time {
	return unixEpoch
}

// Now returns the current OS time in UTC.
func (c *LiveClock) Now() time.Time {
	return time.Now().UTC()
}

// GetLabels returns a consistent snapshot of active labels in registration
// order.
func (c *LiveClock) GetLabels() []values.Label {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reg.labels()
}

// SetTimeAlert registers a one-shot alert firing at alertTime. An alert at
// or before the current time dispatches immediately on its own goroutine.
func (c *LiveClock) SetTimeAlert(label values.Label, alertTime time.Time, handler Handler) error {
	t, err := NewTimeAlert(label, alertTime, handler)
	if err != nil {
		return err
	}
	return c.register(t)
}

// SetTimer registers a timer per the shared contract.
func (c *LiveClock) SetTimer(label values.Label, interval time.Duration, start, stop time.Time, repeating bool, handler Handler) error {
	t, err := NewTimer(label, interval, start, stop, repeating, handler)
	if err != nil {
		return err
	}
	return c.register(t)
}

func (c *LiveClock) register(t *Timer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.reg.add(t); err != nil {
		return err
	}
	c.arm(t)
	return nil
}

// arm schedules the timer's next firing against the OS clock. Caller must
// hold mu.
func (c *LiveClock) arm(t *Timer) {
	key := t.Label().String()
	delay := time.Until(t.NextFireTime())
	if delay < 0 {
		delay = 0
	}
	c.armed[key] = time.AfterFunc(delay, func() { c.fire(key) })
}

// fire dispatches one owed firing for the labelled timer, re-arming it when
// it repeats and removing it when it expires. The handler runs outside the
// lock; failures are recovered at this boundary and never stop other timers.
func (c *LiveClock) fire(key string) {
	c.mu.Lock()
	t, ok := c.reg.get(key)
	if !ok {
		// Cancelled or torn down after the OS timer fired.
		c.mu.Unlock()
		return
	}

	scheduled := t.NextFireTime()
	t.Advance(scheduled)
	if t.IsExpired() {
		c.reg.remove(key)
		delete(c.armed, key)
	} else {
		c.arm(t)
	}

	handler := t.handler
	label := t.Label()
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	c.dispatch(handler, newTimeEvent(label, scheduled, time.Now().UTC()))
}

// CancelTimeAlert removes the named alert and disarms its OS timer; no-op
// when absent. An in-flight firing is never retracted, but no further
// occurrence follows.
func (c *LiveClock) CancelTimeAlert(label values.Label) {
	c.cancel(label)
}

// CancelTimer removes the named timer; idempotent.
func (c *LiveClock) CancelTimer(label values.Label) {
	c.cancel(label)
}

func (c *LiveClock) cancel(label values.Label) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := label.String()
	if osTimer, ok := c.armed[key]; ok {
		osTimer.Stop()
		delete(c.armed, key)
	}
	c.reg.remove(key)
}

// StopAllTimers cancels every pending OS-level schedule and waits out
// in-flight dispatches; no handler fires after it returns.
func (c *LiveClock) StopAllTimers() {
	c.mu.Lock()
	for _, osTimer := range c.armed {
		osTimer.Stop()
	}
	c.armed = make(map[string]*time.Timer)
	c.reg.clear()
	c.mu.Unlock()

	c.wg.Wait()
}

// SetTime is not meaningful for a live clock; its time is externally driven.
func (c *LiveClock) SetTime(time.Time) error {
	return errors.NewUnsupportedOperationError("SetTime")
}

// IterateTime is not meaningful for a live clock.
func (c *LiveClock) IterateTime(time.Time) error {
	return errors.NewUnsupportedOperationError("IterateTime")
}

func (c *LiveClock) dispatch(h Handler, ev TimeEvent) {
	defer func() {
		if r := recover(); r != nil {
			c.reportFailure(ev.Label, errors.NewHandlerFailureError(
				ev.Label.String(), fmt.Errorf("panic: %v", r)))
		}
	}()
	h(ev)
}

func (c *LiveClock) reportFailure(label values.Label, err error) {
	c.mu.Lock()
	fn := c.onFailure
	c.mu.Unlock()

	if fn != nil {
		fn(label, err)
		return
	}
	c.logger.Error("timer handler failed",
		zap.String("label", label.String()),
		zap.Error(err))
}
