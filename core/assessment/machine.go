package assessment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/koscakluka/prep-core/core/autosave"
	"github.com/koscakluka/prep-core/core/events"
	"github.com/koscakluka/prep-core/core/sessions"
	"github.com/koscakluka/prep-core/core/timers"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StateActive     State = "ACTIVE"
	StateSubmitting State = "SUBMITTING"
	StateCompleted  State = "COMPLETED"
	StateReviewing  State = "REVIEWING"
)

var (
	ErrNotActive          = errors.New("assessment is not active")
	ErrAlreadyStarted     = errors.New("assessment already started")
	ErrSubmitInProgress   = errors.New("submit already in progress")
	ErrNotCompleted       = errors.New("assessment is not completed")
	ErrBackwardNavigation = errors.New("backward navigation is disabled in timed sessions")
	ErrOutOfRange         = errors.New("question index out of range")
	ErrInvalidOption      = errors.New("option is not valid for this question")
	ErrQuestionExpired    = errors.New("question time has run out")
	ErrClosed             = errors.New("assessment is closed")
)

// Machine runs one multiple-choice session from start (or resume) to
// submit. The answers themselves live in the autosave controller; the
// machine owns navigation, timers and the lifecycle.
type Machine struct {
	backend sessions.AssessmentBackend

	emit            events.Handler
	tickInterval    time.Duration
	autosaveOptions []autosave.Option
	baseCtx         context.Context

	clock      *timers.Clock
	countdowns *timers.Countdowns

	mu       sync.Mutex
	state    State
	starting bool
	closed   bool
	session  *sessions.Session
	current  int
	draft    *autosave.Controller
	result   *sessions.Result
	detail   *sessions.AttemptDetail
	lastErr  error
}

func NewMachine(backend sessions.AssessmentBackend, opts ...MachineOption) *Machine {
	m := &Machine{
		backend:      backend,
		emit:         events.Noop,
		tickInterval: timers.DefaultInterval,
		baseCtx:      context.Background(),
		state:        StateNotStarted,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.clock = m.newClock()
	m.countdowns = m.newCountdowns()
	return m
}

// CheckActive asks the backend for an abandoned session the user can resume
// or discard. It returns sessions.ErrNoActiveSession when there is none.
func (m *Machine) CheckActive(ctx context.Context) (*sessions.ActiveSession, error) {
	if m == nil {
		return nil, ErrClosed
	}
	if err := m.ensureNotStarted(); err != nil {
		return nil, err
	}

	active, err := m.backend.Active(ctx)
	if err != nil {
		if errors.Is(err, sessions.ErrNoActiveSession) || errors.Is(err, sessions.ErrSessionExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to query active session: %w", err)
	}
	return active, nil
}

// Start requests a new session. On failure no session is created and the
// machine stays NOT_STARTED.
func (m *Machine) Start(ctx context.Context, config sessions.StartConfig) error {
	if m == nil {
		return ErrClosed
	}
	if err := config.Validate(); err != nil {
		return sessions.NewError(sessions.ErrorStart, "start", err)
	}
	if err := m.claimStart(); err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "start assessment", trace.WithAttributes(
		attribute.String("assessment.mode", string(config.Mode)),
		attribute.Int("assessment.count", config.Count),
	))
	defer span.End()

	session, err := m.backend.Start(ctx, config)
	if err == nil && (session == nil || len(session.Questions) == 0) {
		err = errors.New("backend returned no questions")
	}
	if err != nil {
		m.releaseStart()
		err = sessions.NewError(sessions.ErrorStart, "start", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.String("assessment.session_id", session.ID))
	m.begin(session.Clone(), sessions.NewAnswerMap(session.Questions), 0, 0)
	return nil
}

// Resume continues an abandoned session from its last persisted draft,
// positioned at the first unanswered question. Timed sessions kept running
// while the user was away: questions whose deadline has passed are closed and
// the current question only gets the time left until its own deadline.
func (m *Machine) Resume(ctx context.Context, active *sessions.ActiveSession) error {
	if m == nil {
		return ErrClosed
	}
	if active == nil || active.Session == nil || len(active.Session.Questions) == 0 {
		return sessions.NewError(sessions.ErrorStart, "resume", sessions.ErrNoActiveSession)
	}
	if err := m.claimStart(); err != nil {
		return err
	}

	_, span := tracer.Start(ctx, "resume assessment", trace.WithAttributes(
		attribute.String("assessment.session_id", active.Session.ID),
	))
	defer span.End()

	session := active.Session.Clone()
	answers := active.Answers.Complete(session.Questions)

	elapsed := session.ElapsedSeconds
	if elapsed <= 0 && !session.StartedAt.IsZero() {
		elapsed = int(time.Since(session.StartedAt).Seconds())
	}

	current := answers.FirstUnanswered(session.Questions)
	if session.IsTimed() {
		var ok bool
		if current, ok = m.seedDeadlines(session, answers, elapsed); !ok {
			m.releaseStart()
			err := sessions.NewError(sessions.ErrorStart, "resume", sessions.ErrSessionExpired)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	m.begin(session, answers, elapsed, current)
	return nil
}

// seedDeadlines seeds the countdown of every question from the deadlines of
// session at elapsed and returns where to resume: the first unanswered
// question that is still open, else the first open one. It returns false when
// every deadline has passed.
func (m *Machine) seedDeadlines(session *sessions.Session, answers sessions.AnswerMap, elapsed int) (int, bool) {
	firstOpen, firstUnanswered := -1, -1
	for i, deadline := range session.Deadlines() {
		question := session.Questions[i]
		if deadline == 0 {
			continue
		}
		m.countdowns.Seed(question.ID, session.TimeLimit(i), deadline-elapsed)
		if deadline <= elapsed {
			continue
		}
		if firstOpen < 0 {
			firstOpen = i
		}
		if firstUnanswered < 0 && !answers.IsAnswered(question.ID) {
			firstUnanswered = i
		}
	}

	switch {
	case firstUnanswered >= 0:
		return firstUnanswered, true
	case firstOpen >= 0:
		return firstOpen, true
	}
	return 0, false
}

// Discard drops an abandoned session instead of resuming it.
func (m *Machine) Discard(ctx context.Context, sessionID string) error {
	if m == nil {
		return ErrClosed
	}
	if err := m.ensureNotStarted(); err != nil {
		return err
	}

	if err := m.backend.Discard(ctx, sessionID); err != nil {
		return sessions.NewError(sessions.ErrorNetwork, "discard", err)
	}
	return nil
}

func (m *Machine) ensureNotStarted() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.closed:
		return ErrClosed
	case m.state != StateNotStarted || m.starting:
		return ErrAlreadyStarted
	}
	return nil
}

func (m *Machine) claimStart() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.closed:
		return ErrClosed
	case m.state != StateNotStarted || m.starting:
		return ErrAlreadyStarted
	}
	m.starting = true
	return nil
}

func (m *Machine) releaseStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starting = false
}

func (m *Machine) begin(session *sessions.Session, answers sessions.AnswerMap, elapsed int, current int) {
	sessionID := session.ID
	save := func(ctx context.Context, answers sessions.AnswerMap) (sessions.Draft, error) {
		draft, err := m.backend.Autosave(ctx, sessionID, answers)
		if err != nil {
			return sessions.Draft{}, sessions.NewError(sessions.ErrorNetwork, "autosave", err)
		}
		return draft, nil
	}
	opts := append([]autosave.Option{
		autosave.WithEventHandler(m.emit),
		autosave.WithContext(m.baseCtx),
	}, m.autosaveOptions...)

	m.mu.Lock()
	m.starting = false
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.session = session
	m.current = current
	m.draft = autosave.New(save, answers, opts...)
	m.result = nil
	m.detail = nil
	m.lastErr = nil
	m.clock.Reset(elapsed)
	changed := m.transitionLocked(StateActive)
	m.resumeActivityLocked()
	m.mu.Unlock()

	m.emit(changed)
}

// resumeActivityLocked starts everything that only runs while ACTIVE.
func (m *Machine) resumeActivityLocked() {
	m.clock.Start()
	m.draft.Start()
	m.activateCountdownLocked()
}

// pauseActivityLocked stops the clock, countdown and autosave scheduling
// together on any transition out of ACTIVE.
func (m *Machine) pauseActivityLocked() {
	m.clock.Stop()
	m.countdowns.Pause()
	m.draft.Stop()
}

func (m *Machine) activateCountdownLocked() {
	question := m.session.Questions[m.current]
	m.countdowns.Start(question.ID, m.session.TimeLimit(m.current), m.onCountdownExpired)
}

func (m *Machine) transitionLocked(to State) events.Event {
	from := m.state
	m.state = to
	sessionID := ""
	if m.session != nil {
		sessionID = m.session.ID
	}
	return events.NewSessionStateChanged(sessionID, string(from), string(to))
}

// Answer selects option for the current question.
func (m *Machine) Answer(option string) error {
	if m == nil {
		return ErrClosed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.activeLocked(); err != nil {
		return err
	}
	question := m.session.Questions[m.current]
	if m.countdowns.Expired(question.ID) {
		return fmt.Errorf("%w: %s", ErrQuestionExpired, question.ID)
	}
	if !question.HasOption(option) {
		return fmt.Errorf("%w: %q for question %s", ErrInvalidOption, option, question.ID)
	}

	m.draft.Edit(func(answers sessions.AnswerMap) {
		answers[question.ID] = sessions.Selected(option)
	})
	return nil
}

// ClearAnswer marks the current question as unanswered again.
func (m *Machine) ClearAnswer() error {
	if m == nil {
		return ErrClosed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.activeLocked(); err != nil {
		return err
	}
	questionID := m.session.Questions[m.current].ID
	if m.countdowns.Expired(questionID) {
		return fmt.Errorf("%w: %s", ErrQuestionExpired, questionID)
	}
	m.draft.Edit(func(answers sessions.AnswerMap) {
		answers[questionID] = nil
	})
	return nil
}

func (m *Machine) Next() error {
	if m == nil {
		return ErrClosed
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.goToLocked(m.current + 1)
}

func (m *Machine) Previous() error {
	if m == nil {
		return ErrClosed
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.goToLocked(m.current - 1)
}

// GoTo jumps to the question at index. Timed sessions only move forward.
func (m *Machine) GoTo(index int) error {
	if m == nil {
		return ErrClosed
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.goToLocked(index)
}

func (m *Machine) goToLocked(index int) error {
	if err := m.activeLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(m.session.Questions) {
		return ErrOutOfRange
	}
	if index < m.current && m.session.IsTimed() {
		return ErrBackwardNavigation
	}
	if index == m.current {
		return nil
	}

	m.current = index
	m.activateCountdownLocked()
	return nil
}

func (m *Machine) activeLocked() error {
	switch {
	case m.closed:
		return ErrClosed
	case m.state == StateSubmitting:
		return ErrSubmitInProgress
	case m.state != StateActive:
		return ErrNotActive
	}
	return nil
}

// onCountdownExpired runs on the countdown goroutine.
func (m *Machine) onCountdownExpired(questionID string) {
	m.mu.Lock()
	if m.closed || m.state != StateActive || m.session.Questions[m.current].ID != questionID {
		m.mu.Unlock()
		return
	}

	if _, ok := m.draft.Answers()[questionID]; !ok {
		m.draft.Edit(func(answers sessions.AnswerMap) {
			answers[questionID] = nil
		})
	}

	last := m.current == len(m.session.Questions)-1
	if !last {
		m.current++
		m.activateCountdownLocked()
	}
	m.mu.Unlock()

	m.emit(events.NewCountdownExpired(questionID))
	if !last {
		return
	}

	if _, err := m.Submit(m.baseCtx); err != nil && !errors.Is(err, ErrSubmitInProgress) {
		logger.WarnContext(m.baseCtx, "automatic submit after timeout failed",
			"question_id", questionID,
			"error", err)
	}
}

// Submit sends the complete answer map. A second call while a submit is in
// flight returns ErrSubmitInProgress. On failure the session returns to
// ACTIVE and can be retried.
func (m *Machine) Submit(ctx context.Context) (*sessions.Result, error) {
	if m == nil {
		return nil, ErrClosed
	}

	m.mu.Lock()
	if err := m.activeLocked(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.pauseActivityLocked()
	toSubmitting := m.transitionLocked(StateSubmitting)
	session := m.session
	answers := m.draft.Answers().Complete(session.Questions)
	elapsed := m.clock.Elapsed()
	m.mu.Unlock()

	m.emit(toSubmitting)

	ctx, span := tracer.Start(ctx, "submit assessment", trace.WithAttributes(
		attribute.String("assessment.session_id", session.ID),
		attribute.Int("assessment.answered", answers.Answered()),
		attribute.Int("assessment.elapsed_seconds", elapsed),
	))
	defer span.End()

	result, err := m.backend.Submit(ctx, session.ID, answers, elapsed)
	if err == nil && result == nil {
		err = errors.New("backend returned no result")
	}

	m.mu.Lock()
	if err != nil {
		err = sessions.NewError(sessions.ErrorNetwork, "submit", err)
		m.lastErr = err
		toActive := m.transitionLocked(StateActive)
		if !m.closed {
			m.resumeActivityLocked()
		}
		m.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.emit(toActive)
		m.emit(events.NewSessionFailed(session.ID, err))
		return nil, err
	}

	m.result = result
	m.lastErr = nil
	toCompleted := m.transitionLocked(StateCompleted)
	m.clock.Stop()
	m.countdowns.Close()
	m.draft.Close()
	m.mu.Unlock()

	m.emit(toCompleted)
	m.emit(events.NewSessionCompleted(session.ID, answers.Answered(), len(session.Questions)))
	return result, nil
}

// Review moves a completed session into REVIEWING and returns its graded
// breakdown. The detail is loaded once; when loading fails the session stays
// where it was and Review can be retried.
func (m *Machine) Review(ctx context.Context) (*sessions.AttemptDetail, error) {
	if m == nil {
		return nil, ErrClosed
	}

	m.mu.Lock()
	if m.state != StateCompleted && m.state != StateReviewing {
		m.mu.Unlock()
		return nil, ErrNotCompleted
	}
	if m.detail != nil {
		detail := m.detail
		m.mu.Unlock()
		return detail, nil
	}
	sessionID := m.session.ID
	result := m.result
	m.mu.Unlock()

	ctx, span := tracer.Start(ctx, "review assessment", trace.WithAttributes(
		attribute.String("assessment.session_id", sessionID),
	))
	defer span.End()

	detail, err := m.backend.AttemptDetail(ctx, sessionID)
	if err == nil && detail == nil {
		err = errors.New("backend returned no attempt detail")
	}
	if err != nil {
		err = sessions.NewError(sessions.ErrorNetwork, "review", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if detail.Result.AttemptID == "" && result != nil {
		detail.Result = *result
	}

	m.mu.Lock()
	var changed events.Event
	if m.state == StateCompleted {
		changed = m.transitionLocked(StateReviewing)
	}
	if m.detail == nil {
		m.detail = detail
	}
	detail = m.detail
	m.mu.Unlock()

	if changed != nil {
		m.emit(changed)
	}
	return detail, nil
}

// Remaining returns the countdown left for a question and whether the
// question is timed.
func (m *Machine) Remaining(questionID string) (int, bool) {
	if m == nil {
		return 0, false
	}
	return m.countdowns.Remaining(questionID)
}

func (m *Machine) State() State {
	if m == nil {
		return StateNotStarted
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close cancels every timer and the autosave of the session. The machine
// can not be used afterwards.
func (m *Machine) Close() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.clock.Stop()
	m.countdowns.Close()
	if m.draft != nil {
		m.draft.Close()
	}
}
