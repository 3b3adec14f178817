package timers

import (
	"sync/atomic"
	"testing"
	"time"
)

const testInterval = 5 * time.Millisecond

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestClockCountsWhileRunningAndKeepsValueWhenStopped(t *testing.T) {
	clock := NewClock(WithClockInterval(testInterval))
	clock.Start()
	waitFor(t, "three ticks", func() bool { return clock.Elapsed() >= 3 })

	clock.Stop()
	stopped := clock.Elapsed()
	time.Sleep(5 * testInterval)
	if got := clock.Elapsed(); got != stopped {
		t.Fatalf("expected elapsed to stay %d after stop, got %d", stopped, got)
	}
	if clock.Running() {
		t.Fatalf("expected clock not to be running")
	}

	clock.Start()
	waitFor(t, "resumed ticks", func() bool { return clock.Elapsed() > stopped })
	clock.Stop()
}

func TestClockRestartDoesNotDoubleTick(t *testing.T) {
	var ticks atomic.Int32
	clock := NewClock(
		WithClockInterval(20*time.Millisecond),
		WithClockTickCallback(func(int) { ticks.Add(1) }),
	)
	for range 5 {
		clock.Start()
	}
	time.Sleep(110 * time.Millisecond)
	clock.Stop()
	time.Sleep(10 * time.Millisecond)

	// A single ticker yields about five ticks; five leaked tickers would
	// yield about twenty-five.
	if got := ticks.Load(); got > 7 {
		t.Fatalf("expected a single ticker, got %d ticks", got)
	}
	if int(ticks.Load()) != clock.Elapsed() {
		t.Fatalf("expected every tick to be reported, got %d ticks for %d seconds", ticks.Load(), clock.Elapsed())
	}
}

func TestClockResetSeedsElapsed(t *testing.T) {
	clock := NewClock()
	clock.Reset(42)
	if got := clock.State(); got.ElapsedSeconds != 42 || got.Running {
		t.Fatalf("expected stopped clock at 42, got %+v", got)
	}
	clock.Reset(-3)
	if got := clock.Elapsed(); got != 0 {
		t.Fatalf("expected negative reset to clamp to 0, got %d", got)
	}
}

func TestCountdownExpiresExactlyOnce(t *testing.T) {
	var expired atomic.Int32
	countdowns := NewCountdowns(WithCountdownInterval(testInterval))
	countdowns.Start("q1", 3, func(string) { expired.Add(1) })

	waitFor(t, "expiry", func() bool { return expired.Load() == 1 })
	time.Sleep(5 * testInterval)

	countdowns.Start("q1", 3, func(string) { expired.Add(1) })
	countdowns.Resume()
	time.Sleep(5 * testInterval)

	if got := expired.Load(); got != 1 {
		t.Fatalf("expected one expiry, got %d", got)
	}
	if !countdowns.Expired("q1") {
		t.Fatalf("expected q1 to be expired")
	}
	if remaining, _ := countdowns.Remaining("q1"); remaining != 0 {
		t.Fatalf("expected 0 remaining, got %d", remaining)
	}
}

func TestCountdownSwitchPersistsRemaining(t *testing.T) {
	countdowns := NewCountdowns(WithCountdownInterval(testInterval))
	countdowns.Start("q1", 1000, nil)
	waitFor(t, "q1 ticks", func() bool {
		remaining, _ := countdowns.Remaining("q1")
		return remaining <= 997
	})

	countdowns.Start("q2", 1000, nil)
	paused, _ := countdowns.Remaining("q1")
	time.Sleep(5 * testInterval)
	if got, _ := countdowns.Remaining("q1"); got != paused {
		t.Fatalf("expected q1 to stay at %d while q2 runs, got %d", paused, got)
	}
	if state := countdowns.State("q2"); !state.Running {
		t.Fatalf("expected q2 to be running")
	}

	countdowns.Start("q1", 1000, nil)
	if got, _ := countdowns.Remaining("q1"); got > paused {
		t.Fatalf("expected q1 to continue from %d, got %d", paused, got)
	}
	countdowns.Close()
}

func TestCountdownResetRestoresFullLimit(t *testing.T) {
	countdowns := NewCountdowns(WithCountdownInterval(testInterval))
	countdowns.Start("q1", 1000, nil)
	waitFor(t, "q1 ticks", func() bool {
		remaining, _ := countdowns.Remaining("q1")
		return remaining < 1000
	})

	countdowns.Reset("q1")
	if _, ok := countdowns.Remaining("q1"); ok {
		t.Fatalf("expected q1 to be forgotten")
	}
	if countdowns.Running() {
		t.Fatalf("expected reset of the active key to stop ticking")
	}
	countdowns.Close()
}

func TestCountdownSeedContinuesFromRemaining(t *testing.T) {
	var expired atomic.Int32
	countdowns := NewCountdowns(WithCountdownInterval(time.Hour))
	countdowns.Seed("q1", 60, 0)
	countdowns.Seed("q2", 60, 40)
	countdowns.Seed("q3", 60, 500)

	if !countdowns.Expired("q1") {
		t.Fatalf("expected q1 to be seeded as expired")
	}
	countdowns.Start("q1", 60, func(string) { expired.Add(1) })
	if countdowns.Running() {
		t.Fatalf("expected an expired key not to tick")
	}

	countdowns.Start("q2", 60, nil)
	if got, _ := countdowns.Remaining("q2"); got != 40 {
		t.Fatalf("expected q2 to start from 40, got %d", got)
	}
	if got, _ := countdowns.Remaining("q3"); got != 60 {
		t.Fatalf("expected q3 to be capped at its limit, got %d", got)
	}
	if got := expired.Load(); got != 0 {
		t.Fatalf("expected no expiry callback for a seeded key, got %d", got)
	}
	countdowns.Close()
}

func TestCountdownPauseAndResume(t *testing.T) {
	countdowns := NewCountdowns(WithCountdownInterval(testInterval))
	countdowns.Start("q1", 1000, nil)
	countdowns.Pause()
	paused, _ := countdowns.Remaining("q1")
	time.Sleep(5 * testInterval)
	if got, _ := countdowns.Remaining("q1"); got != paused {
		t.Fatalf("expected paused countdown to stay at %d, got %d", paused, got)
	}

	countdowns.Resume()
	waitFor(t, "resumed ticks", func() bool {
		remaining, _ := countdowns.Remaining("q1")
		return remaining < paused
	})
	countdowns.Close()
}

func TestCountdownZeroLimitIsUntimed(t *testing.T) {
	countdowns := NewCountdowns(WithCountdownInterval(testInterval))
	countdowns.Start("q1", 0, func(string) { t.Errorf("untimed question must not expire") })
	time.Sleep(5 * testInterval)

	if countdowns.Running() {
		t.Fatalf("expected no ticker for an untimed question")
	}
	if countdowns.Active() != "q1" {
		t.Fatalf("expected q1 to be the active key, got %q", countdowns.Active())
	}
}

func TestCountdownCloseIgnoresLaterStarts(t *testing.T) {
	var ticks atomic.Int32
	countdowns := NewCountdowns(
		WithCountdownInterval(testInterval),
		WithCountdownTickCallback(func(string, int) { ticks.Add(1) }),
	)
	countdowns.Close()
	countdowns.Start("q1", 10, nil)
	time.Sleep(5 * testInterval)

	if got := ticks.Load(); got != 0 {
		t.Fatalf("expected no ticks after close, got %d", got)
	}
}

func TestNilTimersAreSafe(t *testing.T) {
	var clock *Clock
	clock.Start()
	clock.Stop()
	if clock.Elapsed() != 0 || clock.Running() {
		t.Fatalf("expected zero values from nil clock")
	}

	var countdowns *Countdowns
	countdowns.Start("q1", 10, nil)
	countdowns.Pause()
	countdowns.Close()
	if _, ok := countdowns.Remaining("q1"); ok {
		t.Fatalf("expected no countdown from nil registry")
	}
}
