package kernel

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/antonveldt/tradesim-kernel/internal/domain/errors"
	"github.com/antonveldt/tradesim-kernel/internal/infrastructure/config"
)

// session is a named recurring activation derived from a standard 5-field
// cron expression. Occurrences are computed in UTC to match the clock.
type session struct {
	name     string
	schedule cron.Schedule
}

func newSession(cfg config.SessionConfig) (*session, error) {
	if cfg.Name == "" {
		return nil, errors.NewValidationError("EMPTY_SESSION_NAME", "session name is required")
	}
	schedule, err := cron.ParseStandard(cfg.Cron)
	if err != nil {
		return nil, errors.NewValidationError("INVALID_CRON",
			"invalid cron expression for session "+cfg.Name).WithCause(err)
	}
	return &session{name: cfg.Name, schedule: schedule}, nil
}

// nextActivation returns the first occurrence strictly after the given
// instant.
func (s *session) nextActivation(after time.Time) time.Time {
	return s.schedule.Next(after.UTC())
}
