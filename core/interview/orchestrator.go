package interview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/koscakluka/prep-core/core/events"
	"github.com/koscakluka/prep-core/core/sessions"
	"github.com/koscakluka/prep-core/core/speech"
	"github.com/koscakluka/prep-core/core/timers"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Phase is the step of the turn-taking protocol the current question is in.
type Phase string

const (
	PhaseIdle         Phase = "IDLE"
	PhasePreCountdown Phase = "PRE_COUNTDOWN"
	PhaseThinking     Phase = "THINKING"
	PhaseSpeaking     Phase = "SPEAKING"
	PhaseListening    Phase = "LISTENING_ENABLED"
	PhaseFeedback     Phase = "FEEDBACK"
	PhaseCompleted    Phase = "COMPLETED"
)

var (
	ErrNotStarted       = errors.New("interview not started")
	ErrAlreadyStarted   = errors.New("interview already started")
	ErrCompleted        = errors.New("interview already completed")
	ErrClosed           = errors.New("interview orchestrator closed")
	ErrInputLocked      = errors.New("answer input is locked")
	ErrEmptyAnswer      = errors.New("answer is empty")
	ErrSubmitInProgress = errors.New("submission already in progress")
	ErrAlreadyAnswered  = errors.New("question already answered")
	ErrNotInFeedback    = errors.New("no feedback to continue from")
	ErrNoNextQuestion   = errors.New("no next question")
	ErrNoCapture        = errors.New("voice capture not configured")
)

// Orchestrator runs an interview one question at a time: it presents the
// question, unlocks the answer input, sends the answer for evaluation and
// moves on after the feedback.
type Orchestrator struct {
	backend  sessions.InterviewBackend
	narrator Narrator
	capture  Capture
	emit     events.Handler

	baseContext      context.Context
	strict           bool
	autoMic          bool
	pushToTalk       bool
	autoAdvance      bool
	voiceStyle       speech.VoiceStyle
	preCountdown     time.Duration
	thinkingMin      time.Duration
	thinkingMax      time.Duration
	autoAdvanceDelay time.Duration
	tickInterval     time.Duration

	clock *timers.Clock

	mu            sync.Mutex
	started       bool
	session       *sessions.Session
	current       int
	phase         Phase
	inputUnlocked bool
	submitting    bool
	completing    bool
	answered      int
	evaluation    *sessions.Evaluation
	finished      bool
	completed     bool
	closed        bool
	result        *sessions.InterviewResult
	lastErr       error

	sequenceCtx    context.Context
	sequenceCancel context.CancelFunc
	advanceTimer   *time.Timer
}

func NewOrchestrator(backend sessions.InterviewBackend, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		backend:          backend,
		emit:             events.Noop,
		baseContext:      context.Background(),
		strict:           true,
		autoAdvance:      true,
		voiceStyle:       speech.VoiceDefault,
		preCountdown:     DefaultPreCountdown,
		thinkingMin:      DefaultThinkingMin,
		thinkingMax:      DefaultThinkingMax,
		autoAdvanceDelay: DefaultAutoAdvanceDelay,
		tickInterval:     timers.DefaultInterval,
		phase:            PhaseIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.clock = timers.NewClock(
		timers.WithClockInterval(o.tickInterval),
		timers.WithClockTickCallback(func(elapsed int) {
			o.emit(events.NewElapsedTicked(elapsed))
		}),
	)
	return o
}

// Start opens the interview and begins presenting the first question. On
// failure no session exists and Start may be called again.
func (o *Orchestrator) Start(ctx context.Context, config sessions.InterviewConfig) (err error) {
	if o == nil {
		return ErrNotStarted
	}

	o.mu.Lock()
	switch {
	case o.closed:
		o.mu.Unlock()
		return ErrClosed
	case o.started:
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	o.started = true
	o.mu.Unlock()

	ctx, span := tracer.Start(ctx, "start interview", trace.WithAttributes(
		attribute.String("interview.type", string(config.Type)),
		attribute.String("interview.mode", string(config.Mode)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	session, err := o.backend.StartInterview(ctx, config)
	if err == nil && (session == nil || len(session.Questions) == 0) {
		err = errors.New("interview started without a question")
	}
	if err != nil {
		o.mu.Lock()
		o.started = false
		o.mu.Unlock()
		return sessions.NewError(sessions.ErrorStart, "start interview", err)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.session = session.Clone()
	o.current = 0
	o.clock.Reset(0)
	o.clock.Start()
	next := o.presentLocked(true)
	o.mu.Unlock()

	o.run(next)
	return nil
}

type presentation struct {
	ctx      context.Context
	question sessions.Question
	first    bool
	events   []events.Event
}

// presentLocked prepares the sequence for the current question. The caller
// runs it with run once the lock is released.
func (o *Orchestrator) presentLocked(first bool) presentation {
	o.stopSequenceLocked()

	ctx, cancel := context.WithCancel(o.baseContext)
	o.sequenceCtx, o.sequenceCancel = ctx, cancel
	o.evaluation = nil
	o.phase = PhaseIdle
	o.inputUnlocked = false

	question := o.session.Questions[o.current]
	next := presentation{ctx: ctx, question: question, first: first}
	if !o.strict {
		o.inputUnlocked = true
		next.events = append(next.events, events.NewInputUnlocked(question.ID))
	}
	return next
}

func (o *Orchestrator) run(next presentation) {
	// Whatever the previous question left behind goes before the new one
	// starts.
	if o.narrator != nil {
		o.narrator.Cancel()
	}
	if o.capture != nil {
		o.capture.Cancel()
		o.capture.Reset()
	}
	for _, event := range next.events {
		o.emit(event)
	}

	go func() {
		sequence := panicSafeNamedWorker("question sequence", func(ctx context.Context) error {
			return o.runSequence(ctx, next.question, next.first)
		})
		if err := sequence(next.ctx); err != nil {
			logger.ErrorContext(next.ctx, "question sequence stopped", "question_id", next.question.ID, "error", err)
		}
	}()
}

func (o *Orchestrator) runSequence(ctx context.Context, question sessions.Question, first bool) error {
	if first {
		if !o.enterPhase(ctx, question, PhasePreCountdown) || !sleep(ctx, o.preCountdown) {
			return nil
		}
	}

	if !o.enterPhase(ctx, question, PhaseThinking) || !sleep(ctx, between(o.thinkingMin, o.thinkingMax)) {
		return nil
	}

	if o.narrator != nil {
		if !o.enterPhase(ctx, question, PhaseSpeaking) {
			return nil
		}
		if err := o.narrator.Speak(ctx, question.ID, question.Text, o.voiceStyle).Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// A narration failure does not stop the interview, the question
			// is still on screen.
			logger.WarnContext(ctx, "question narration failed", "question_id", question.ID, "error", err)
		}
	}

	if !o.enterPhase(ctx, question, PhaseListening) {
		return nil
	}
	if o.autoMic && !o.pushToTalk && o.capture != nil && ctx.Err() == nil {
		if err := o.capture.Start(ctx); err != nil {
			logger.WarnContext(ctx, "failed to start capture", "question_id", question.ID, "error", err)
		}
	}
	return nil
}

// enterPhase moves to phase unless the sequence was cancelled in the
// meantime.
func (o *Orchestrator) enterPhase(ctx context.Context, question sessions.Question, phase Phase) bool {
	o.mu.Lock()
	if o.sequenceCtx != ctx || ctx.Err() != nil {
		o.mu.Unlock()
		return false
	}
	o.phase = phase
	pending := []events.Event{events.NewPhaseChanged(question.ID, string(phase))}
	if phase == PhaseListening && !o.inputUnlocked {
		o.inputUnlocked = true
		pending = append(pending, events.NewInputUnlocked(question.ID))
	}
	o.mu.Unlock()

	for _, event := range pending {
		o.emit(event)
	}
	return true
}

// SubmitAnswer sends the answer for evaluation. An empty text uses the
// transcript of the spoken answer, stopping a running capture first.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, text string) (evaluation *sessions.Evaluation, err error) {
	if o == nil {
		return nil, ErrNotStarted
	}

	o.mu.Lock()
	if err := o.checkActiveLocked(); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	switch {
	case o.phase == PhaseFeedback:
		o.mu.Unlock()
		return nil, ErrAlreadyAnswered
	case o.submitting:
		o.mu.Unlock()
		return nil, ErrSubmitInProgress
	case !o.inputUnlocked:
		o.mu.Unlock()
		return nil, ErrInputLocked
	}
	o.submitting = true
	sessionID := o.session.ID
	question := o.session.Questions[o.current]
	sequence := o.sequenceCtx
	o.mu.Unlock()

	answer, err := o.answerText(ctx, text)
	if err != nil {
		o.finishSubmit()
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "submit interview answer", trace.WithAttributes(
		attribute.String("interview.session_id", sessionID),
		attribute.String("interview.question_id", question.ID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	evaluation, err = o.backend.SubmitAnswer(ctx, sessionID, answer)
	if err != nil {
		err = sessions.NewError(sessions.ErrorNetwork, "submit answer", err)
		o.mu.Lock()
		o.submitting = false
		o.lastErr = err
		o.mu.Unlock()
		o.emit(events.NewSessionFailed(sessionID, err))
		return nil, err
	}
	if evaluation == nil {
		evaluation = &sessions.Evaluation{}
	}

	o.mu.Lock()
	o.submitting = false
	if o.sequenceCtx != sequence || o.completed || o.closed {
		o.mu.Unlock()
		return evaluation, nil
	}
	o.stopSequenceLocked()
	o.answered++
	o.evaluation = evaluation
	o.phase = PhaseFeedback
	o.inputUnlocked = false
	o.lastErr = nil
	if evaluation.NextQuestion != nil && !evaluation.IsComplete && o.answered < sessions.MaxInterviewQuestions {
		next := *evaluation.NextQuestion
		if next.Number == 0 {
			next.Number = len(o.session.Questions) + 1
		}
		o.session.Questions = append(o.session.Questions, next)
	} else {
		o.finished = true
	}
	if o.autoAdvance {
		answered := o.answered
		o.advanceTimer = time.AfterFunc(o.autoAdvanceDelay, func() { o.advanceAfterFeedback(answered) })
	}
	o.mu.Unlock()

	if o.narrator != nil {
		o.narrator.Cancel()
	}
	o.emit(events.NewFeedbackReceived(question.ID, evaluation.Score, evaluation.Feedback))
	o.emit(events.NewPhaseChanged(question.ID, string(PhaseFeedback)))
	return evaluation, nil
}

func (o *Orchestrator) answerText(ctx context.Context, text string) (string, error) {
	answer := strings.TrimSpace(text)
	if o.capture == nil {
		if answer == "" {
			return "", ErrEmptyAnswer
		}
		return answer, nil
	}

	if answer != "" {
		// A typed answer wins over whatever is being recorded.
		o.capture.Cancel()
		return answer, nil
	}

	if o.capture.IsRecording() {
		if _, err := o.capture.Stop(ctx); err != nil {
			return "", err
		}
	}
	if answer = strings.TrimSpace(o.capture.Transcript()); answer == "" {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}

func (o *Orchestrator) finishSubmit() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.submitting = false
}

func (o *Orchestrator) advanceAfterFeedback(answered int) {
	o.mu.Lock()
	if o.closed || o.completed || o.phase != PhaseFeedback || o.answered != answered {
		o.mu.Unlock()
		return
	}
	if o.finished {
		o.mu.Unlock()
		if _, err := o.Complete(o.baseContext); err != nil {
			logger.WarnContext(o.baseContext, "failed to complete interview", "error", err)
		}
		return
	}
	o.current++
	next := o.presentLocked(false)
	o.mu.Unlock()

	o.run(next)
}

// Continue moves from the feedback to the next question without waiting
// for the auto-advance delay.
func (o *Orchestrator) Continue() error {
	if o == nil {
		return ErrNotStarted
	}

	o.mu.Lock()
	if err := o.checkActiveLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	if o.phase != PhaseFeedback {
		o.mu.Unlock()
		return ErrNotInFeedback
	}
	if o.finished {
		o.mu.Unlock()
		return ErrNoNextQuestion
	}
	o.current++
	next := o.presentLocked(false)
	o.mu.Unlock()

	o.run(next)
	return nil
}

// Complete ends the interview early or after the last question and returns
// the server's overall result.
func (o *Orchestrator) Complete(ctx context.Context) (result *sessions.InterviewResult, err error) {
	if o == nil {
		return nil, ErrNotStarted
	}

	o.mu.Lock()
	if err := o.checkActiveLocked(); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	if o.completing || o.submitting {
		o.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	o.completing = true
	o.stopSequenceLocked()
	sessionID := o.session.ID
	o.mu.Unlock()

	o.stopMedia()

	ctx, span := tracer.Start(ctx, "complete interview", trace.WithAttributes(
		attribute.String("interview.session_id", sessionID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	result, err = o.backend.CompleteInterview(ctx, sessionID)
	if err != nil {
		err = sessions.NewError(sessions.ErrorNetwork, "complete interview", err)
		o.mu.Lock()
		o.completing = false
		o.lastErr = err
		o.mu.Unlock()
		o.emit(events.NewSessionFailed(sessionID, err))
		return nil, err
	}

	o.mu.Lock()
	o.completing = false
	o.completed = true
	o.result = result
	o.phase = PhaseCompleted
	o.inputUnlocked = false
	o.clock.Stop()
	o.session.Status = sessions.StatusCompleted
	o.session.ElapsedSeconds = o.clock.Elapsed()
	questionID := o.session.Questions[o.current].ID
	answered, total := o.answered, len(o.session.Questions)
	o.mu.Unlock()

	o.emit(events.NewPhaseChanged(questionID, string(PhaseCompleted)))
	o.emit(events.NewSessionCompleted(sessionID, answered, total))
	return result, nil
}

// PressToTalk starts a capture while input is unlocked.
func (o *Orchestrator) PressToTalk(ctx context.Context) error {
	if o == nil {
		return ErrNotStarted
	}

	o.mu.Lock()
	if err := o.checkActiveLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	if !o.inputUnlocked {
		o.mu.Unlock()
		return ErrInputLocked
	}
	o.mu.Unlock()

	if o.capture == nil {
		return ErrNoCapture
	}
	return o.capture.Start(ctx)
}

// ReleaseToTalk stops the capture whatever the interview is doing and
// returns the newly transcribed text.
func (o *Orchestrator) ReleaseToTalk(ctx context.Context) (string, error) {
	if o == nil || o.capture == nil {
		return "", nil
	}
	return o.capture.Stop(ctx)
}

// Elapsed returns the seconds the interview has been running. The clock
// stops when the interview completes.
func (o *Orchestrator) Elapsed() int {
	if o == nil {
		return 0
	}
	return o.clock.Elapsed()
}

// Close stops every timer, narration and capture. The interview cannot be
// used afterwards.
func (o *Orchestrator) Close() {
	if o == nil {
		return
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.stopSequenceLocked()
	o.clock.Stop()
	o.mu.Unlock()

	o.stopMedia()
}

func (o *Orchestrator) stopMedia() {
	if o.narrator != nil {
		o.narrator.Cancel()
	}
	if o.capture != nil {
		o.capture.Cancel()
	}
}

func (o *Orchestrator) stopSequenceLocked() {
	if o.sequenceCancel != nil {
		o.sequenceCancel()
	}
	o.sequenceCtx, o.sequenceCancel = nil, nil
	if o.advanceTimer != nil {
		o.advanceTimer.Stop()
		o.advanceTimer = nil
	}
}

func (o *Orchestrator) checkActiveLocked() error {
	switch {
	case o.closed:
		return ErrClosed
	case o.completed:
		return ErrCompleted
	case o.session == nil:
		return ErrNotStarted
	}
	return nil
}
