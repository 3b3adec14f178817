package timers

import (
	"sync"
	"time"
)

type countdown struct {
	limit     int
	remaining int
	expired   bool
	onExpire  func(key string)
}

// Countdowns runs at most one per-key countdown at a time and remembers the
// remaining time of every key it has run, so switching back to a key
// continues from where it was paused instead of starting over.
type Countdowns struct {
	interval time.Duration
	onTick   func(key string, remaining int)

	mu      sync.Mutex
	entries map[string]*countdown
	active  string
	stop    chan struct{}
	closed  bool
}

type CountdownOption func(*Countdowns)

func WithCountdownInterval(interval time.Duration) CountdownOption {
	return func(c *Countdowns) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithCountdownTickCallback registers a callback invoked after every tick of
// the active countdown, including the final tick that reaches zero.
func WithCountdownTickCallback(onTick func(key string, remaining int)) CountdownOption {
	return func(c *Countdowns) {
		if onTick != nil {
			c.onTick = onTick
		}
	}
}

func NewCountdowns(opts ...CountdownOption) *Countdowns {
	c := &Countdowns{
		interval: DefaultInterval,
		onTick:   func(string, int) {},
		entries:  make(map[string]*countdown),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start activates the countdown for key. Any running countdown, including
// one for the same key, is cancelled first. A key seen before resumes from
// its remaining time; an expired key stays expired and does not tick again.
// A limit of zero or less disables the countdown for that key.
//
// onExpire is invoked exactly once, on the ticker goroutine, when the
// countdown reaches zero.
func (c *Countdowns) Start(key string, limit int, onExpire func(key string)) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	if c.closed {
		return
	}

	c.active = key
	if limit <= 0 {
		return
	}

	entry, ok := c.entries[key]
	if !ok {
		entry = &countdown{limit: limit, remaining: limit}
		c.entries[key] = entry
	}
	if onExpire != nil {
		entry.onExpire = onExpire
	}
	if entry.expired {
		return
	}

	c.startLocked()
}

// Seed records how much time key has left before it is first started, so the
// next Start continues from remaining instead of the full limit. A remaining
// of zero or less marks key expired without calling any expiry handler.
func (c *Countdowns) Seed(key string, limit, remaining int) {
	if c == nil || limit <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == key {
		c.cancelLocked()
	}
	remaining = min(max(remaining, 0), limit)
	c.entries[key] = &countdown{limit: limit, remaining: remaining, expired: remaining == 0}
}

// Reset forgets the persisted state of key so the next Start begins from the
// full limit again. Resetting the active key cancels its ticker.
func (c *Countdowns) Reset(key string) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == key {
		c.cancelLocked()
	}
	delete(c.entries, key)
}

// Pause stops the active countdown and keeps its remaining time.
func (c *Countdowns) Pause() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

// Resume restarts the active countdown after Pause.
func (c *Countdowns) Resume() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.stop != nil {
		return
	}
	if entry, ok := c.entries[c.active]; ok && !entry.expired {
		c.startLocked()
	}
}

// Close cancels every countdown for good. Later Start and Resume calls are
// ignored.
func (c *Countdowns) Close() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	c.closed = true
}

func (c *Countdowns) Active() string {
	if c == nil {
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Remaining returns the remaining seconds of key and whether the key has a
// countdown at all.
func (c *Countdowns) Remaining(key string) (int, bool) {
	if c == nil {
		return 0, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	return entry.remaining, true
}

func (c *Countdowns) Expired(key string) bool {
	if c == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	return ok && entry.expired
}

func (c *Countdowns) State(key string) State {
	if c == nil {
		return State{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return State{}
	}
	return State{SecondsRemaining: entry.remaining, Running: c.active == key && c.stop != nil}
}

func (c *Countdowns) Running() bool {
	if c == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

func (c *Countdowns) startLocked() {
	stop := make(chan struct{})
	c.stop = stop
	go c.run(c.active, stop)
}

func (c *Countdowns) cancelLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Countdowns) run(key string, stop chan struct{}) {
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

			entry, ok := c.entries[key]
			if !ok {
				c.mu.Unlock()
				return
			}
			entry.remaining--
			remaining := entry.remaining
			var onExpire func(string)
			if remaining <= 0 {
				entry.remaining = 0
				entry.expired = true
				onExpire = entry.onExpire
				if c.stop == stop {
					c.stop = nil
				}
				close(stop)
			}
			c.mu.Unlock()

			c.onTick(key, remaining)
			if onExpire != nil {
				onExpire(key)
				return
			}
			if remaining <= 0 {
				return
			}
		}
	}
}
