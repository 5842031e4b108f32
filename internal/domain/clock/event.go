package clock

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/antonveldt/tradesim-kernel/internal/domain/values"
)

// TimeEvent is delivered to a handler on each firing. Scheduled is the
// instant the firing was owed; Actual is when it was dispatched. Under a
// test clock the two are equal, under a live clock Actual trails Scheduled
// by the dispatch latency.
type TimeEvent struct {
	ID        uuid.UUID
	Label     values.Label
	Scheduled time.Time
	Actual    time.Time
}

func (e TimeEvent) String() string {
	return fmt.Sprintf("TimeEvent(label=%s, scheduled=%s)", e.Label, e.Scheduled.Format(time.RFC3339Nano))
}

// Handler is invoked on each firing. The clock consumes no return value.
type Handler func(event TimeEvent)

func newTimeEvent(label values.Label, scheduled, actual time.Time) TimeEvent {
	return TimeEvent{
		ID:        uuid.New(),
		Label:     label,
		Scheduled: scheduled,
		Actual:    actual,
	}
}
