package kernel

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antonveldt/tradesim-kernel/internal/domain/clock"
	"github.com/antonveldt/tradesim-kernel/internal/infrastructure/config"
)

type activationLog struct {
	mu   sync.Mutex
	acts []Activation
}

func (l *activationLog) record(a Activation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acts = append(l.acts, a)
}

func (l *activationLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.acts)
}

func liveConfig(sessions ...config.SessionConfig) config.LiveConfig {
	return config.LiveConfig{
		MetricsAddr: ":0",
		Sessions:    sessions,
		Throttle:    config.ThrottleConfig{Limit: 100, Interval: time.Second},
	}
}

func sessionLabels(clk clock.Clock) []string {
	var out []string
	for _, label := range clk.GetLabels() {
		if strings.HasPrefix(label.String(), "session-") {
			out = append(out, label.String())
		}
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	clk := clock.NewTestClock(nil)
	out := func(Activation) {}

	_, err := New(nil, liveConfig(), out, nil)
	assert.Error(t, err)

	_, err = New(clk, liveConfig(), nil, nil)
	assert.Error(t, err)

	_, err = New(clk, liveConfig(config.SessionConfig{Name: "bad", Cron: "not a cron"}), out, nil)
	assert.Error(t, err)

	_, err = New(clk, liveConfig(config.SessionConfig{Cron: "* * * * *"}), out, nil)
	assert.Error(t, err)
}

func TestKernel_StartArmsEverySession(t *testing.T) {
	clk := clock.NewTestClock(nil)
	cfg := liveConfig(
		config.SessionConfig{Name: "london", Cron: "0 8 * * *"},
		config.SessionConfig{Name: "newyork", Cron: "30 14 * * *"},
	)

	k, err := New(clk, cfg, func(Activation) {}, nil)
	require.NoError(t, err)
	require.NoError(t, k.Start())

	assert.Equal(t, []string{"session-london-1", "session-newyork-1"}, sessionLabels(clk))
	assert.Error(t, k.Start())
}

func TestKernel_SessionReArmsAfterEachFiring(t *testing.T) {
	clk := clock.NewTestClock(nil)
	log := &activationLog{}
	cfg := liveConfig(config.SessionConfig{Name: "quarter", Cron: "*/15 * * * *"})

	k, err := New(clk, cfg, log.record, nil)
	require.NoError(t, err)
	require.NoError(t, k.Start())

	// Each advancement fires one activation and arms the next occurrence
	// under a fresh label.
	for i := 1; i <= 4; i++ {
		at := clk.UnixEpoch().Add(time.Duration(i) * 15 * time.Minute)
		require.NoError(t, clk.IterateTime(at))
		assert.Equal(t, i, log.count())
	}

	assert.Equal(t, []string{"session-quarter-5"}, sessionLabels(clk))
	log.mu.Lock()
	defer log.mu.Unlock()
	for i, act := range log.acts {
		assert.Equal(t, "quarter", act.Session)
		assert.Equal(t, clk.UnixEpoch().Add(time.Duration(i+1)*15*time.Minute), act.Scheduled)
	}
}

func TestKernel_ThrottleQueuesBurst(t *testing.T) {
	clk := clock.NewTestClock(nil)
	log := &activationLog{}
	cfg := liveConfig(config.SessionConfig{Name: "quarter", Cron: "*/15 * * * *"})
	cfg.Throttle = config.ThrottleConfig{Limit: 1, Interval: 24 * time.Hour}

	k, err := New(clk, cfg, log.record, nil)
	require.NoError(t, err)
	require.NoError(t, k.Start())

	require.NoError(t, clk.IterateTime(clk.UnixEpoch().Add(15*time.Minute)))
	require.NoError(t, clk.IterateTime(clk.UnixEpoch().Add(30*time.Minute)))

	assert.Equal(t, 1, log.count())
	assert.Equal(t, 1, k.QueuedActivations())
}

func TestKernel_StopCancelsPendingAlerts(t *testing.T) {
	clk := clock.NewTestClock(nil)
	cfg := liveConfig(config.SessionConfig{Name: "london", Cron: "0 8 * * *"})

	k, err := New(clk, cfg, func(Activation) {}, nil)
	require.NoError(t, err)
	require.NoError(t, k.Start())
	require.NotEmpty(t, clk.GetLabels())

	k.Stop()
	assert.Empty(t, clk.GetLabels())

	// Idempotent.
	k.Stop()
}

func TestKernel_LiveClockFiresSessions(t *testing.T) {
	clk := clock.NewLiveClock(nil)
	log := &activationLog{}

	// A minute is the finest granularity cron offers, too slow to await in
	// a unit test, so only arming and teardown are asserted here.
	cfg := liveConfig(config.SessionConfig{Name: "minutely", Cron: "* * * * *"})
	k, err := New(clk, cfg, log.record, nil)
	require.NoError(t, err)
	require.NoError(t, k.Start())

	assert.Equal(t, []string{"session-minutely-1"}, sessionLabels(clk))
	k.Stop()
	assert.Empty(t, clk.GetLabels())
}
