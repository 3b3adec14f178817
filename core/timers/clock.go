package timers

import (
	"sync"
	"time"
)

const DefaultInterval = time.Second

// State is a point-in-time view of a timer.
type State struct {
	ElapsedSeconds   int
	SecondsRemaining int
	Running          bool
}

// Clock counts elapsed seconds while running. It only resets through Reset,
// which callers use when a new session starts.
type Clock struct {
	interval time.Duration
	onTick   func(elapsed int)

	mu      sync.Mutex
	elapsed int
	// stop is non-nil while a ticker goroutine is running.
	stop chan struct{}
}

type ClockOption func(*Clock)

func WithClockInterval(interval time.Duration) ClockOption {
	return func(c *Clock) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithClockTickCallback registers a callback invoked after every tick with
// the new elapsed value. It runs on the ticker goroutine and may still be
// executing when Stop returns.
func WithClockTickCallback(onTick func(elapsed int)) ClockOption {
	return func(c *Clock) {
		if onTick != nil {
			c.onTick = onTick
		}
	}
}

func NewClock(opts ...ClockOption) *Clock {
	c := &Clock{
		interval: DefaultInterval,
		onTick:   func(int) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins ticking. A clock that is already running is cancelled first,
// so there is never more than one ticker.
func (c *Clock) Start() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	stop := make(chan struct{})
	c.stop = stop
	go c.run(stop)
}

// Stop pauses the clock. No tick is counted after Stop returns.
func (c *Clock) Stop() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

func (c *Clock) Reset(elapsed int) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.elapsed = max(elapsed, 0)
}

func (c *Clock) Elapsed() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

func (c *Clock) Running() bool {
	if c == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

func (c *Clock) State() State {
	if c == nil {
		return State{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return State{ElapsedSeconds: c.elapsed, Running: c.stop != nil}
}

func (c *Clock) cancelLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Clock) run(stop <-chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			select {
			case <-stop:
				c.mu.Unlock()
				return
			default:
			}
			c.elapsed++
			elapsed := c.elapsed
			c.mu.Unlock()

			c.onTick(elapsed)
		}
	}
}
