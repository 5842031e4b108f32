package throttle

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antonveldt/tradesim-kernel/internal/domain/clock"
)

type sink struct {
	mu   sync.Mutex
	msgs []any
}

func (s *sink) send(msg any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func TestNew_Validation(t *testing.T) {
	clk := clock.NewTestClock(nil)
	out := func(any) {}

	_, err := New("", clk, 1, time.Second, out, nil)
	assert.Error(t, err)

	_, err = New("t", nil, 1, time.Second, out, nil)
	assert.Error(t, err)

	_, err = New("t", clk, 0, time.Second, out, nil)
	assert.Error(t, err)

	_, err = New("t", clk, 1, 0, out, nil)
	assert.Error(t, err)

	_, err = New("t", clk, 1, time.Second, nil, nil)
	assert.Error(t, err)
}

func TestThrottler_UnderLimitPassesThrough(t *testing.T) {
	clk := clock.NewTestClock(nil)
	out := &sink{}
	th, err := New("orders", clk, 3, time.Minute, out.send, nil)
	require.NoError(t, err)

	assert.True(t, th.Send("a"))
	assert.True(t, th.Send("b"))
	assert.Equal(t, 2, out.count())
	assert.Zero(t, th.QueueLen())
}

func TestThrottler_OverLimitQueuesAndDrainsDeterministically(t *testing.T) {
	clk := clock.NewTestClock(nil)
	out := &sink{}
	th, err := New("orders", clk, 2, time.Minute, out.send, nil)
	require.NoError(t, err)

	assert.True(t, th.Send("a"))
	assert.True(t, th.Send("b"))
	assert.False(t, th.Send("c"))
	assert.False(t, th.Send("d"))
	assert.False(t, th.Send("e"))
	assert.Equal(t, 2, out.count())
	assert.Equal(t, 3, th.QueueLen())

	// The first window closes: two queued messages drain.
	require.NoError(t, clk.IterateTime(clk.UnixEpoch().Add(time.Minute)))
	assert.Equal(t, 4, out.count())
	assert.Equal(t, 1, th.QueueLen())

	// The next window drains the remainder.
	require.NoError(t, clk.IterateTime(clk.UnixEpoch().Add(2*time.Minute)))
	assert.Equal(t, 5, out.count())
	assert.Zero(t, th.QueueLen())

	assert.Equal(t, []any{"a", "b", "c", "d", "e"}, out.msgs)
}

func TestThrottler_WindowResetRestoresCapacity(t *testing.T) {
	clk := clock.NewTestClock(nil)
	out := &sink{}
	th, err := New("orders", clk, 1, time.Minute, out.send, nil)
	require.NoError(t, err)

	assert.True(t, th.Send("a"))
	assert.False(t, th.Send("b"))

	require.NoError(t, clk.IterateTime(clk.UnixEpoch().Add(time.Minute)))
	assert.Equal(t, 2, out.count())

	// Window with an empty queue disarms; capacity is fresh afterwards.
	require.NoError(t, clk.IterateTime(clk.UnixEpoch().Add(2*time.Minute)))
	require.NoError(t, clk.IterateTime(clk.UnixEpoch().Add(3*time.Minute)))
	assert.True(t, th.Send("c"))
	assert.Equal(t, 3, out.count())
}

func TestThrottler_ResetDropsQueue(t *testing.T) {
	clk := clock.NewTestClock(nil)
	out := &sink{}
	th, err := New("orders", clk, 1, time.Minute, out.send, nil)
	require.NoError(t, err)

	th.Send("a")
	th.Send("b")
	require.Equal(t, 1, th.QueueLen())

	th.Reset()
	assert.Zero(t, th.QueueLen())
	assert.Empty(t, clk.GetLabels())

	// Nothing drains after reset.
	require.NoError(t, clk.IterateTime(clk.UnixEpoch().Add(time.Hour)))
	assert.Equal(t, 1, out.count())
}

func TestThrottler_StopCancelsPendingAlert(t *testing.T) {
	clk := clock.NewTestClock(nil)
	out := &sink{}
	th, err := New("orders", clk, 1, time.Minute, out.send, nil)
	require.NoError(t, err)

	th.Send("a")
	require.Len(t, clk.GetLabels(), 1)

	th.Stop()
	assert.Empty(t, clk.GetLabels())
}

func TestThrottler_LiveClockDrains(t *testing.T) {
	clk := clock.NewLiveClock(nil)
	defer clk.StopAllTimers()

	out := &sink{}
	th, err := New("orders", clk, 1, 20*time.Millisecond, out.send, nil)
	require.NoError(t, err)

	assert.True(t, th.Send("a"))
	assert.False(t, th.Send("b"))

	require.Eventually(t, func() bool { return out.count() == 2 },
		2*time.Second, 5*time.Millisecond)
}
