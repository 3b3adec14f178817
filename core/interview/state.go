package interview

import "github.com/koscakluka/prep-core/core/sessions"

// Snapshot is a consistent view of the interview for rendering.
type Snapshot struct {
	Phase         Phase
	Session       *sessions.Session
	Current       *sessions.Question
	InputUnlocked bool
	Submitting    bool
	Answered      int
	Evaluation    *sessions.Evaluation
	Finished      bool
	Completed     bool
	Result        *sessions.InterviewResult
	Transcript    string
	LastError     error
	// ElapsedSeconds is also copied into Session.ElapsedSeconds.
	ElapsedSeconds int
}

func (o *Orchestrator) Snapshot() Snapshot {
	if o == nil {
		return Snapshot{Phase: PhaseIdle}
	}

	o.mu.Lock()
	snapshot := Snapshot{
		Phase:         o.phase,
		InputUnlocked: o.inputUnlocked,
		Submitting:    o.submitting,
		Answered:      o.answered,
		Evaluation:    o.evaluation,
		Finished:      o.finished,
		Completed:     o.completed,
		Result:        o.result,
		LastError:     o.lastErr,
	}
	snapshot.ElapsedSeconds = o.clock.Elapsed()
	if o.session != nil {
		snapshot.Session = o.session.Clone()
		snapshot.Session.ElapsedSeconds = snapshot.ElapsedSeconds
		current := snapshot.Session.Questions[o.current]
		snapshot.Current = &current
	}
	o.mu.Unlock()

	if o.capture != nil {
		snapshot.Transcript = o.capture.Transcript()
	}
	return snapshot
}

func (o *Orchestrator) Phase() Phase {
	if o == nil {
		return PhaseIdle
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) InputUnlocked() bool {
	if o == nil {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inputUnlocked
}

// Current returns the question being asked.
func (o *Orchestrator) Current() (sessions.Question, bool) {
	if o == nil {
		return sessions.Question{}, false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return sessions.Question{}, false
	}
	return o.session.Questions[o.current], true
}
