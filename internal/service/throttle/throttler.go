// Package throttle provides a message gate limited to N messages per
// interval. The window is driven entirely by clock alerts, so the gate is
// deterministic under a test clock and real-time under a live clock.
package throttle

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/antonveldt/tradesim-kernel/internal/domain/clock"
	"github.com/antonveldt/tradesim-kernel/internal/domain/errors"
	"github.com/antonveldt/tradesim-kernel/internal/domain/values"
)

// Throttler passes messages through while under the per-window limit and
// queues the overflow. A window alert on the owning clock resets the count
// and drains the queue when capacity returns.
type Throttler struct {
	name     string
	clk      clock.Clock
	limit    int
	interval time.Duration
	output   func(msg any)
	logger   *zap.Logger

	mu     sync.Mutex
	sent   int
	queue  []any
	armed  bool
	window uint64
}

// New creates a throttler sending at most limit messages per interval
// through output.
func New(name string, clk clock.Clock, limit int, interval time.Duration, output func(msg any), logger *zap.Logger) (*Throttler, error) {
	if name == "" {
		return nil, errors.NewValidationError("EMPTY_THROTTLER_NAME", "throttler name is required")
	}
	if clk == nil {
		return nil, errors.NewValidationError("NIL_CLOCK", "clock is required")
	}
	if limit <= 0 {
		return nil, errors.NewValidationError("INVALID_LIMIT", "limit must be positive")
	}
	if interval <= 0 {
		return nil, errors.NewValidationError("INVALID_INTERVAL", "interval must be positive")
	}
	if output == nil {
		return nil, errors.NewValidationError("NIL_OUTPUT", "output is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Throttler{
		name:     name,
		clk:      clk,
		limit:    limit,
		interval: interval,
		output:   output,
		logger:   logger,
	}, nil
}

// Send passes msg through when the current window has capacity, otherwise
// queues it for a later window. Returns true when the message went out
// immediately.
func (t *Throttler) Send(msg any) bool {
	t.mu.Lock()

	if !t.armed {
		if err := t.armWindow(t.clk.Now().Add(t.interval)); err != nil {
			t.logger.Error("failed to arm throttle window",
				zap.String("throttler", t.name), zap.Error(err))
		}
	}

	if t.sent < t.limit {
		t.sent++
		t.mu.Unlock()
		t.output(msg)
		return true
	}

	t.queue = append(t.queue, msg)
	t.mu.Unlock()
	return false
}

// QueueLen returns the number of queued messages.
func (t *Throttler) QueueLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Reset drops the queue and window state. The pending window alert, if
// any, is cancelled.
func (t *Throttler) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.armed {
		t.clk.CancelTimeAlert(t.windowLabel())
		t.armed = false
	}
	t.sent = 0
	t.queue = nil
}

// Stop tears the throttler down, cancelling its pending alert. Queued
// messages are discarded.
func (t *Throttler) Stop() {
	t.Reset()
}

// armWindow registers the alert closing the current window. Windows are
// labelled with a sequence number so re-arming inside a firing never
// collides with the expiring alert's label. Caller must hold mu.
func (t *Throttler) armWindow(at time.Time) error {
	t.window++
	if err := t.clk.SetTimeAlert(t.windowLabel(), at, t.onWindow); err != nil {
		return err
	}
	t.armed = true
	return nil
}

func (t *Throttler) windowLabel() values.Label {
	return values.MustNewLabel(fmt.Sprintf("%s-window-%d", t.name, t.window))
}

// onWindow closes one window: the counter resets and queued messages drain
// up to the limit. Another window is armed while traffic remains, so the
// drain cadence stays deterministic relative to the clock.
func (t *Throttler) onWindow(ev clock.TimeEvent) {
	t.mu.Lock()
	t.sent = 0
	t.armed = false

	n := len(t.queue)
	if n > t.limit {
		n = t.limit
	}
	drained := t.queue[:n]
	t.queue = t.queue[n:]
	t.sent = n

	if len(t.queue) > 0 || n > 0 {
		if err := t.armWindow(ev.Scheduled.Add(t.interval)); err != nil {
			t.logger.Error("failed to re-arm throttle window",
				zap.String("throttler", t.name), zap.Error(err))
		}
	}
	t.mu.Unlock()

	for _, msg := range drained {
		t.output(msg)
	}
}
