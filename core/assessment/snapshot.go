package assessment

import (
	"time"

	"github.com/koscakluka/prep-core/core/sessions"
)

// Snapshot is a consistent copy of everything a runner view renders.
type Snapshot struct {
	State          State
	Session        *sessions.Session
	CurrentIndex   int
	Current        *sessions.Question
	Answers        sessions.AnswerMap
	ElapsedSeconds int
	// SecondsRemaining is the countdown of the current question; Timed is
	// false when the question has none.
	SecondsRemaining int
	Timed            bool
	Unsaved          bool
	LastSavedAt      time.Time
	Result           *sessions.Result
	// Detail is set once Review has loaded the graded breakdown.
	Detail    *sessions.AttemptDetail
	LastError error
}

func (m *Machine) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{State: StateNotStarted}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := Snapshot{
		State:          m.state,
		ElapsedSeconds: m.clock.Elapsed(),
		Result:         m.result,
		Detail:         m.detail,
		LastError:      m.lastErr,
	}
	if m.session == nil {
		return snapshot
	}

	snapshot.Session = m.session.Clone()
	snapshot.CurrentIndex = m.current
	current := snapshot.Session.Questions[m.current]
	snapshot.Current = &current
	snapshot.Answers = m.draft.Answers()
	snapshot.Unsaved = m.draft.Dirty()
	snapshot.LastSavedAt = m.draft.SavedAt()
	snapshot.SecondsRemaining, snapshot.Timed = m.countdowns.Remaining(current.ID)
	return snapshot
}

// Current returns the index and the question the user is on.
func (m *Machine) Current() (int, *sessions.Question) {
	if m == nil {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return 0, nil
	}
	question := m.session.Questions[m.current]
	return m.current, &question
}

// Answers returns a copy of the in-progress answers.
func (m *Machine) Answers() sessions.AnswerMap {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft.Answers()
}

func (m *Machine) Elapsed() int {
	if m == nil {
		return 0
	}
	return m.clock.Elapsed()
}

func (m *Machine) Result() *sessions.Result {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}
