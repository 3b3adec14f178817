package autosave

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/prep-core/core/events"
	"github.com/koscakluka/prep-core/core/sessions"
	"pgregory.net/rapid"
)

type fakeBackend struct {
	mu        sync.Mutex
	calls     []sessions.AnswerMap
	callTimes []time.Time
	inFlight  atomic.Int32
	maxFlight atomic.Int32

	// release, when set, blocks each save until a value is received.
	release chan struct{}
	err     error
}

func (f *fakeBackend) save(ctx context.Context, answers sessions.AnswerMap) (sessions.Draft, error) {
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxFlight.Load()
		if current <= seen || f.maxFlight.CompareAndSwap(seen, current) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, answers.Clone())
	f.callTimes = append(f.callTimes, time.Now())
	release := f.release
	err := f.err
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return sessions.Draft{}, ctx.Err()
		}
	}
	if err != nil {
		return sessions.Draft{}, err
	}
	return sessions.Draft{Answers: answers, SavedAt: time.Now()}, nil
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeBackend) call(i int) sessions.AnswerMap {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func selectAnswer(id, option string) func(sessions.AnswerMap) {
	return func(answers sessions.AnswerMap) {
		answers[id] = sessions.Selected(option)
	}
}

func TestEditsInsideDebounceWindowCollapseIntoOneSave(t *testing.T) {
	backend := &fakeBackend{}
	debounce := 100 * time.Millisecond
	controller := New(backend.save, sessions.AnswerMap{"q1": nil},
		WithDebounce(debounce),
		WithInterval(time.Hour),
	)
	controller.Start()
	defer controller.Close()

	controller.Edit(selectAnswer("q1", "A"))
	time.Sleep(debounce * 3 / 10)
	secondEdit := time.Now()
	controller.Edit(selectAnswer("q1", "B"))

	waitFor(t, "debounced save", func() bool { return backend.callCount() == 1 })
	time.Sleep(2 * debounce)

	if got := backend.callCount(); got != 1 {
		t.Fatalf("expected exactly one save, got %d", got)
	}
	backend.mu.Lock()
	delay := backend.callTimes[0].Sub(secondEdit)
	backend.mu.Unlock()
	if delay < debounce {
		t.Fatalf("expected save at least %s after the last edit, got %s", debounce, delay)
	}
	if got := backend.call(0)["q1"]; got == nil || *got != "B" {
		t.Fatalf("expected the save to carry the latest edit")
	}
	if controller.Dirty() {
		t.Fatalf("expected draft to be clean after the save")
	}
}

func TestEditDuringFlightQueuesOneFollowUpAndDiscardsStaleResponse(t *testing.T) {
	backend := &fakeBackend{release: make(chan struct{})}
	var discarded atomic.Int32
	controller := New(backend.save, sessions.AnswerMap{"q1": nil, "q2": nil},
		WithDebounce(time.Hour),
		WithInterval(time.Hour),
		WithEventHandler(func(event events.Event) {
			if event.Kind() == events.KindAutosaveDiscarded {
				discarded.Add(1)
			}
		}),
	)
	controller.Start()
	defer controller.Close()

	controller.Edit(selectAnswer("q1", "A"))
	controller.Request()
	waitFor(t, "first save in flight", func() bool { return backend.callCount() == 1 })

	controller.Edit(selectAnswer("q2", "C"))
	controller.Request()
	controller.Request()

	backend.release <- struct{}{}
	waitFor(t, "follow-up save", func() bool { return backend.callCount() == 2 })

	if got := controller.Answers()["q2"]; got == nil || *got != "C" {
		t.Fatalf("expected stale response not to overwrite q2")
	}
	waitFor(t, "stale response discarded", func() bool { return discarded.Load() == 1 })
	if got := backend.call(1)["q2"]; got == nil || *got != "C" {
		t.Fatalf("expected follow-up save to carry the new edit")
	}

	backend.release <- struct{}{}
	if err := controller.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected wait error: %v", err)
	}
	if got := backend.callCount(); got != 2 {
		t.Fatalf("expected exactly two saves, got %d", got)
	}
	if controller.Dirty() {
		t.Fatalf("expected draft to be clean after the follow-up save")
	}
}

func TestSavesNeverOverlap(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		backend := &fakeBackend{release: make(chan struct{})}
		controller := New(backend.save, sessions.AnswerMap{"q1": nil},
			WithDebounce(time.Hour),
			WithInterval(time.Hour),
		)
		controller.Start()
		defer controller.Close()

		edits := rapid.IntRange(1, 30).Draw(t, "edits")
		for i := range edits {
			option := rapid.SampledFrom([]string{"A", "B", "C", "D"}).Draw(t, "option")
			controller.Edit(selectAnswer("q1", option))
			if i == 0 || rapid.Bool().Draw(t, "request") {
				controller.Request()
			}
		}

		if got := backend.maxFlight.Load(); got > 1 {
			t.Fatalf("expected at most one save in flight, got %d", got)
		}
		deadline := time.Now().Add(time.Second)
		for backend.callCount() == 0 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		if got := backend.callCount(); got > 2 {
			t.Fatalf("expected at most two saves while one is blocked, got %d", got)
		}

		close(backend.release)
		if err := controller.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected wait error: %v", err)
		}
		if got := backend.callCount(); got > 2 {
			t.Fatalf("expected at most two saves for one window, got %d", got)
		}
		if got := backend.maxFlight.Load(); got > 1 {
			t.Fatalf("expected at most one save in flight, got %d", got)
		}
	})
}

func TestFailedSaveKeepsDraftDirty(t *testing.T) {
	backend := &fakeBackend{err: errors.New("connection refused")}
	var failures atomic.Int32
	controller := New(backend.save, sessions.AnswerMap{"q1": nil},
		WithDebounce(time.Hour),
		WithInterval(time.Hour),
		WithEventHandler(func(event events.Event) {
			if failed, ok := event.(events.AutosaveFailed); ok {
				failures.Store(int32(failed.ConsecutiveFailures))
			}
		}),
	)
	controller.Start()
	defer controller.Close()

	controller.Edit(selectAnswer("q1", "A"))
	controller.Request()
	waitFor(t, "first failure", func() bool { return failures.Load() == 1 })
	controller.Request()
	waitFor(t, "second failure", func() bool { return failures.Load() == 2 })

	if !controller.Dirty() {
		t.Fatalf("expected draft to stay dirty after failures")
	}
	if got := controller.ConsecutiveFailures(); got != 2 {
		t.Fatalf("expected 2 consecutive failures, got %d", got)
	}

	backend.mu.Lock()
	backend.err = nil
	backend.mu.Unlock()
	if err := controller.Flush(context.Background()); err != nil {
		t.Fatalf("unexpected flush error: %v", err)
	}
	if controller.Dirty() || controller.ConsecutiveFailures() != 0 {
		t.Fatalf("expected a successful flush to clear the failure streak")
	}
}

func TestRepeatedSaveOfUnchangedAnswersOnlyMovesTimestamp(t *testing.T) {
	backend := &fakeBackend{}
	controller := New(backend.save, sessions.AnswerMap{"q1": sessions.Selected("A"), "q2": nil},
		WithDebounce(time.Hour),
		WithInterval(time.Hour),
	)
	controller.Start()
	defer controller.Close()

	controller.Request()
	_ = controller.Wait(context.Background())
	first := controller.Answers()
	firstSavedAt := controller.SavedAt()

	time.Sleep(2 * time.Millisecond)
	controller.Request()
	_ = controller.Wait(context.Background())

	if !controller.Answers().Equal(first) {
		t.Fatalf("expected answers to stay the same across saves")
	}
	if !controller.SavedAt().After(firstSavedAt) {
		t.Fatalf("expected the saved timestamp to move forward")
	}
}

func TestPeriodicTickSavesOnlyWhenDirty(t *testing.T) {
	backend := &fakeBackend{}
	controller := New(backend.save, sessions.AnswerMap{"q1": nil},
		WithDebounce(time.Hour),
		WithInterval(10*time.Millisecond),
	)
	controller.Start()
	defer controller.Close()

	time.Sleep(50 * time.Millisecond)
	if got := backend.callCount(); got != 0 {
		t.Fatalf("expected no saves without edits, got %d", got)
	}

	controller.Edit(selectAnswer("q1", "D"))
	waitFor(t, "periodic save", func() bool { return backend.callCount() == 1 })
}

func TestStoppedControllerDoesNotSchedule(t *testing.T) {
	backend := &fakeBackend{}
	controller := New(backend.save, sessions.AnswerMap{"q1": nil},
		WithDebounce(5*time.Millisecond),
		WithInterval(5*time.Millisecond),
	)
	controller.Start()
	controller.Stop()

	controller.Edit(selectAnswer("q1", "A"))
	controller.Request()
	time.Sleep(40 * time.Millisecond)

	if got := backend.callCount(); got != 0 {
		t.Fatalf("expected no saves while stopped, got %d", got)
	}
	if !controller.Dirty() {
		t.Fatalf("expected edit to be kept as unsaved")
	}
	controller.Close()
}
