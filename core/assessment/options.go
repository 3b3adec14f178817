package assessment

import (
	"context"
	"time"

	"github.com/koscakluka/prep-core/core/autosave"
	"github.com/koscakluka/prep-core/core/events"
	"github.com/koscakluka/prep-core/core/timers"
)

type MachineOption func(*Machine)

// WithEventHandler receives state, timer and autosave events. The handler
// runs on the goroutine that caused the event and must not block.
func WithEventHandler(handler events.Handler) MachineOption {
	return func(m *Machine) {
		if handler != nil {
			m.emit = handler
		}
	}
}

// WithTickInterval shortens the one second tick of the session clock and the
// per-question countdowns.
func WithTickInterval(interval time.Duration) MachineOption {
	return func(m *Machine) {
		if interval > 0 {
			m.tickInterval = interval
		}
	}
}

func WithAutosaveOptions(opts ...autosave.Option) MachineOption {
	return func(m *Machine) {
		m.autosaveOptions = append(m.autosaveOptions, opts...)
	}
}

// WithContext sets the context used for work the machine starts on its own,
// such as autosaves and the submit that follows a final timeout.
func WithContext(ctx context.Context) MachineOption {
	return func(m *Machine) {
		if ctx != nil {
			m.baseCtx = ctx
		}
	}
}

func (m *Machine) newClock() *timers.Clock {
	return timers.NewClock(
		timers.WithClockInterval(m.tickInterval),
		timers.WithClockTickCallback(func(elapsed int) {
			m.emit(events.NewElapsedTicked(elapsed))
		}),
	)
}

func (m *Machine) newCountdowns() *timers.Countdowns {
	return timers.NewCountdowns(
		timers.WithCountdownInterval(m.tickInterval),
		timers.WithCountdownTickCallback(func(key string, remaining int) {
			m.emit(events.NewCountdownTicked(key, remaining))
		}),
	)
}
