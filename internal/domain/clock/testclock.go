package clock

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/antonveldt/tradesim-kernel/internal/domain/errors"
	"github.com/antonveldt/tradesim-kernel/internal/domain/values"
)

// TestClock is the deterministic, manually advanced clock used for
// simulation and backtesting. It is single-threaded by contract: one logical
// driver advances it, and handlers run synchronously on the driver's
// goroutine. Advancing the clock replays every owed firing across all timers
// in one globally ordered sequence before returning.
type TestClock struct {
	current   time.Time
	reg       *registry
	logger    *zap.Logger
	onFailure FailureFunc

	// advancing guards against a handler re-advancing its own clock.
	advancing bool
}

// NewTestClock creates a test clock starting at the Unix epoch.
func NewTestClock(logger *zap.Logger) *TestClock {
	return NewTestClockAt(unixEpoch, logger)
}

// NewTestClockAt creates a test clock starting at the given time.
func NewTestClockAt(start time.Time, logger *zap.Logger) *TestClock {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TestClock{
		current: start.UTC(),
		reg:     newRegistry(),
		logger:  logger,
	}
}

var unixEpoch = time.Unix(0, 0).UTC()

var _ Clock = (*TestClock)(nil)

// OnHandlerFailure installs the side channel through which recovered handler
// failures are reported. When unset, failures are logged.
func (c *TestClock) OnHandlerFailure(fn FailureFunc) {
	c.onFailure = fn
}

// Timezone returns UTC; all timestamps are UTC-anchored.
func (c *TestClock) Timezone() *time.Location {
	return time.UTC
}

// UnixEpoch returns 1970-01-01T00:00:00Z.
func (c *TestClock) UnixEpoch() time.Time {
	return unixEpoch
}

// Now returns the simulated current time.
func (c *TestClock) Now() time.Time {
	return c.current
}

// GetLabels returns the active labels in registration order.
func (c *TestClock) GetLabels() []values.Label {
	return c.reg.labels()
}

// SetTimeAlert registers a one-shot alert firing at alertTime. An alert at
// or before the current time fires on the next advancement.
func (c *TestClock) SetTimeAlert(label values.Label, alertTime time.Time, handler Handler) error {
	t, err := NewTimeAlert(label, alertTime, handler)
	if err != nil {
		return err
	}
	return c.reg.add(t)
}

// SetTimer registers a timer per the shared contract.
func (c *TestClock) SetTimer(label values.Label, interval time.Duration, start, stop time.Time, repeating bool, handler Handler) error {
	t, err := NewTimer(label, interval, start, stop, repeating, handler)
	if err != nil {
		return err
	}
	return c.reg.add(t)
}

// CancelTimeAlert removes the named alert; no-op when absent.
func (c *TestClock) CancelTimeAlert(label values.Label) {
	c.reg.remove(label.String())
}

// CancelTimer removes the named timer; no-op when absent.
func (c *TestClock) CancelTimer(label values.Label) {
	c.reg.remove(label.String())
}

// StopAllTimers clears the registry without invoking handlers.
func (c *TestClock) StopAllTimers() {
	c.reg.clear()
}

// SetTime unconditionally sets the current time with no firing side
// effects, regardless of jump direction. It establishes a reference point
// before a run; it does not replay missed events.
func (c *TestClock) SetTime(t time.Time) error {
	if c.advancing {
		return errors.NewReentrantAdvanceError()
	}
	c.current = t.UTC()
	return nil
}

// firing pairs an owed instant with the timer that owes it. Firings are
// merged across timers ordered by instant ascending, ties broken by the
// timer's registration order.
type firing struct {
	at    time.Time
	timer *Timer
}

// IterateTime advances the clock to t, computing every firing owed in
// (current, t], invoking handlers synchronously in globally ordered
// sequence, removing expired timers, and finally setting the current time.
// The caller observes a fully consistent state with no partial firing.
func (c *TestClock) IterateTime(t time.Time) error {
	if c.advancing {
		return errors.NewReentrantAdvanceError()
	}

	t = t.UTC()
	if t.Before(c.current) {
		return errors.NewNonMonotonicTimeError(fmt.Sprintf(
			"cannot iterate backwards from %s to %s",
			c.current.Format(time.RFC3339Nano), t.Format(time.RFC3339Nano)))
	}

	c.advancing = true
	defer func() { c.advancing = false }()

	// Timers are visited in registration order, so the stable sort below
	// preserves that order among equal instants.
	snapshot := c.reg.timers()
	var firings []firing
	for _, timer := range snapshot {
		for _, at := range timer.Advance(t) {
			firings = append(firings, firing{at: at, timer: timer})
		}
	}

	sort.SliceStable(firings, func(i, j int) bool {
		return firings[i].at.Before(firings[j].at)
	})

	for _, f := range firings {
		// A handler may have cancelled a later timer mid-advancement.
		if _, active := c.reg.get(f.timer.Label().String()); !active {
			continue
		}
		c.dispatch(f.timer.handler, newTimeEvent(f.timer.Label(), f.at, f.at))
	}

	for _, timer := range snapshot {
		if timer.IsExpired() {
			c.reg.remove(timer.Label().String())
		}
	}

	c.current = t
	return nil
}

func (c *TestClock) dispatch(h Handler, ev TimeEvent) {
	defer func() {
		if r := recover(); r != nil {
			c.reportFailure(ev.Label, errors.NewHandlerFailureError(
				ev.Label.String(), fmt.Errorf("panic: %v", r)))
		}
	}()
	h(ev)
}

func (c *TestClock) reportFailure(label values.Label, err error) {
	if c.onFailure != nil {
		c.onFailure(label, err)
		return
	}
	c.logger.Error("timer handler failed",
		zap.String("label", label.String()),
		zap.Error(err))
}
