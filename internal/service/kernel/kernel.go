// Package kernel runs the live trading node's scheduling core: cron-derived
// session activations registered as clock alerts and delivered through a
// rate-limited gate. The kernel only ever talks to the clock interface, so
// the same wiring runs deterministically under a test clock.
package kernel

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/antonveldt/tradesim-kernel/internal/domain/clock"
	"github.com/antonveldt/tradesim-kernel/internal/domain/errors"
	"github.com/antonveldt/tradesim-kernel/internal/domain/values"
	"github.com/antonveldt/tradesim-kernel/internal/infrastructure/config"
	"github.com/antonveldt/tradesim-kernel/internal/service/throttle"
)

// Activation is one session firing delivered to the kernel's output.
type Activation struct {
	Session   string
	Scheduled time.Time
	Actual    time.Time
}

// Kernel owns the live node's clock registrations. Start arms one alert per
// session; each firing re-arms the next occurrence under a fresh label, so
// a session stays scheduled for as long as the kernel runs.
type Kernel struct {
	clk      clock.Clock
	logger   *zap.Logger
	gate     *throttle.Throttler
	sessions []*session

	mu      sync.Mutex
	seq     map[string]uint64
	started bool
	stopped bool
}

// New builds a kernel from the live configuration. Activations pass through
// a throttler sized by cfg.Throttle before reaching output.
func New(clk clock.Clock, cfg config.LiveConfig, output func(Activation), logger *zap.Logger) (*Kernel, error) {
	if clk == nil {
		return nil, errors.NewValidationError("NIL_CLOCK", "clock is required")
	}
	if output == nil {
		return nil, errors.NewValidationError("NIL_OUTPUT", "output is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sessions := make([]*session, 0, len(cfg.Sessions))
	for _, sc := range cfg.Sessions {
		s, err := newSession(sc)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	gate, err := throttle.New("activations", clk, cfg.Throttle.Limit, cfg.Throttle.Interval,
		func(msg any) { output(msg.(Activation)) }, logger)
	if err != nil {
		return nil, err
	}

	return &Kernel{
		clk:      clk,
		logger:   logger,
		gate:     gate,
		sessions: sessions,
		seq:      make(map[string]uint64),
	}, nil
}

// Start arms the first activation of every session. Calling Start twice is
// an error.
func (k *Kernel) Start() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.started {
		return errors.NewConflictError("ALREADY_STARTED", "kernel already started")
	}
	k.started = true

	for _, s := range k.sessions {
		if err := k.arm(s, k.clk.Now()); err != nil {
			return err
		}
		k.logger.Info("session scheduled",
			zap.String("session", s.name),
			zap.Time("next", s.nextActivation(k.clk.Now())))
	}
	return nil
}

// Stop cancels all pending alerts and tears the throttler down. Blocks
// until in-flight handlers have returned. Queued activations are dropped.
func (k *Kernel) Stop() {
	k.mu.Lock()
	if k.stopped {
		k.mu.Unlock()
		return
	}
	k.stopped = true
	k.mu.Unlock()

	k.clk.StopAllTimers()
	k.gate.Stop()
	k.logger.Info("kernel stopped")
}

// QueuedActivations reports how many activations are waiting behind the
// throttle.
func (k *Kernel) QueuedActivations() int {
	return k.gate.QueueLen()
}

// arm registers the session's next alert after the given instant. Labels
// carry a per-session sequence number so a firing can re-arm without
// colliding with its own expiring label. Caller must hold mu.
func (k *Kernel) arm(s *session, after time.Time) error {
	next := s.nextActivation(after)
	k.seq[s.name]++
	label := values.MustNewLabel(fmt.Sprintf("session-%s-%d", s.name, k.seq[s.name]))

	return k.clk.SetTimeAlert(label, next, func(ev clock.TimeEvent) {
		k.onActivation(s, ev)
	})
}

func (k *Kernel) onActivation(s *session, ev clock.TimeEvent) {
	k.gate.Send(Activation{
		Session:   s.name,
		Scheduled: ev.Scheduled,
		Actual:    ev.Actual,
	})

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.stopped {
		return
	}
	if err := k.arm(s, ev.Scheduled); err != nil {
		k.logger.Error("failed to re-arm session",
			zap.String("session", s.name), zap.Error(err))
	}
}
