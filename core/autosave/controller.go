package autosave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/prep-core/core/events"
	"github.com/koscakluka/prep-core/core/sessions"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultDebounce = 800 * time.Millisecond
	DefaultInterval = 10 * time.Second
)

// SaveFunc persists a snapshot of the answers and returns the server's view
// of the draft. A Draft with nil Answers means the server did not echo them.
type SaveFunc func(ctx context.Context, answers sessions.AnswerMap) (sessions.Draft, error)

// Controller owns the in-progress answers of one session and keeps a server
// side draft of them in sync.
//
// At most one save is in flight at a time; a save requested meanwhile is
// queued and issued once the in-flight one completes. A response is only
// applied if no edit happened after its snapshot was taken.
type Controller struct {
	save     SaveFunc
	debounce time.Duration
	interval time.Duration
	emit     events.Handler

	baseCtx context.Context
	cancel  context.CancelFunc

	mu sync.Mutex
	// editSeq increases on every edit. A response for a snapshot taken at a
	// lower sequence is stale.
	editSeq  uint64
	answers  sessions.AnswerMap
	dirty    bool
	inFlight bool
	queued   bool
	// idle is closed when the controller has nothing in flight or queued.
	idle          chan struct{}
	debounceTimer *time.Timer
	periodicStop  chan struct{}
	running       bool
	closed        bool
	savedAt       time.Time
	failures      int
}

type Option func(*Controller)

func WithDebounce(debounce time.Duration) Option {
	return func(c *Controller) {
		if debounce > 0 {
			c.debounce = debounce
		}
	}
}

// WithInterval sets the periodic fallback interval. The periodic tick only
// saves when there are unsaved edits.
func WithInterval(interval time.Duration) Option {
	return func(c *Controller) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

func WithEventHandler(handler events.Handler) Option {
	return func(c *Controller) {
		if handler != nil {
			c.emit = handler
		}
	}
}

// WithContext sets the parent context of every save request. Close cancels
// the derived context.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}

func New(save SaveFunc, answers sessions.AnswerMap, opts ...Option) *Controller {
	idle := make(chan struct{})
	close(idle)

	c := &Controller{
		save:     save,
		debounce: DefaultDebounce,
		interval: DefaultInterval,
		emit:     events.Noop,
		baseCtx:  context.Background(),
		answers:  answers.Clone(),
		idle:     idle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.answers == nil {
		c.answers = sessions.AnswerMap{}
	}
	c.baseCtx, c.cancel = context.WithCancel(c.baseCtx)
	return c
}

// Start enables debounced and periodic saves.
func (c *Controller) Start() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.running {
		return
	}
	c.running = true

	stop := make(chan struct{})
	c.periodicStop = stop
	go c.runPeriodic(stop)
}

// Stop disables scheduling. A save already in flight completes and is still
// subject to the staleness guard; a queued save is dropped.
func (c *Controller) Stop() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Close stops the controller for good and cancels any in-flight request.
func (c *Controller) Close() {
	if c == nil {
		return
	}

	c.mu.Lock()
	c.stopLocked()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
}

func (c *Controller) stopLocked() {
	c.running = false
	c.queued = false
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
	if c.periodicStop != nil {
		close(c.periodicStop)
		c.periodicStop = nil
	}
}

// Edit applies fn to the live answers and schedules a debounced save. fn
// runs under the controller lock and must not call back into it.
func (c *Controller) Edit(fn func(answers sessions.AnswerMap)) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	fn(c.answers)
	c.editSeq++
	c.dirty = true

	if !c.running {
		return
	}
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
	}
	c.debounceTimer = time.AfterFunc(c.debounce, c.Request)
}

// Replace swaps the answers without marking them dirty. It is used when the
// answers come from the server, e.g. on resume.
func (c *Controller) Replace(answers sessions.AnswerMap) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.answers = answers.Clone()
	if c.answers == nil {
		c.answers = sessions.AnswerMap{}
	}
	c.editSeq++
	c.dirty = false
}

// Request asks for a save now. If one is in flight the request is queued;
// any number of requests during one flight collapse into one follow-up.
func (c *Controller) Request() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	if c.inFlight {
		c.queued = true
		return
	}
	c.issueLocked()
}

// Flush cancels the pending debounce, saves unsaved edits and waits until
// nothing is in flight. It also saves while the controller is stopped.
func (c *Controller) Flush(ctx context.Context) error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
	if !c.closed && c.dirty {
		if c.inFlight {
			c.queued = true
		} else {
			c.issueLocked()
		}
	}
	c.mu.Unlock()

	return c.Wait(ctx)
}

// Wait blocks until no save is in flight or queued.
func (c *Controller) Wait(ctx context.Context) error {
	if c == nil {
		return nil
	}

	for {
		c.mu.Lock()
		idle := c.idle
		done := !c.inFlight && !c.queued
		c.mu.Unlock()
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
		}
	}
}

// Answers returns a copy of the live answers.
func (c *Controller) Answers() sessions.AnswerMap {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answers.Clone()
}

// Dirty reports whether there are edits the server has not acknowledged.
func (c *Controller) Dirty() bool {
	if c == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

func (c *Controller) InFlight() bool {
	if c == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

func (c *Controller) SavedAt() time.Time {
	if c == nil {
		return time.Time{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.savedAt
}

// ConsecutiveFailures counts failed saves since the last successful one.
func (c *Controller) ConsecutiveFailures() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

func (c *Controller) issueLocked() {
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}

	c.inFlight = true
	c.queued = false
	if c.idle == nil || isClosed(c.idle) {
		c.idle = make(chan struct{})
	}

	packet := packet{
		id:      uuid.NewString(),
		seq:     c.editSeq,
		answers: c.answers.Clone(),
	}
	go c.send(packet)
}

type packet struct {
	id      string
	seq     uint64
	answers sessions.AnswerMap
}

func (c *Controller) send(p packet) {
	ctx, span := tracer.Start(c.baseCtx, "autosave draft", trace.WithAttributes(
		attribute.String("autosave.packet_id", p.id),
		attribute.Int("autosave.answered", p.answers.Answered()),
	))
	defer span.End()

	savesIssued.Add(ctx, 1)
	c.emit(events.NewAutosaveStarted(p.id))

	draft, err := c.save(ctx, p.answers)

	var event events.Event
	c.mu.Lock()
	c.inFlight = false
	switch {
	case err != nil:
		c.failures++
		err = fmt.Errorf("failed to save draft: %w", err)
		event = events.NewAutosaveFailed(p.id, err, c.failures)
	case c.editSeq != p.seq:
		c.failures = 0
		event = events.NewAutosaveDiscarded(p.id)
	default:
		c.failures = 0
		if draft.Answers != nil {
			c.answers = draft.Answers.Complete(questionsOf(p.answers))
		}
		c.dirty = false
		c.savedAt = draft.SavedAt
		if c.savedAt.IsZero() {
			c.savedAt = time.Now()
		}
		event = events.NewAutosaveSaved(p.id, c.savedAt)
	}
	failures := c.failures

	if c.queued && !c.closed {
		c.issueLocked()
	} else {
		c.queued = false
		close(c.idle)
	}
	c.mu.Unlock()

	switch event.(type) {
	case events.AutosaveFailed:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		savesFailed.Add(ctx, 1)
		logger.WarnContext(ctx, "autosave failed",
			"packet_id", p.id,
			"consecutive_failures", failures,
			"error", err)
	case events.AutosaveDiscarded:
		span.AddEvent("stale response discarded")
		savesDiscarded.Add(ctx, 1)
	}
	c.emit(event)
}

func (c *Controller) runPeriodic(stop <-chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if c.Dirty() {
				c.Request()
			}
		}
	}
}

// questionsOf lets an echoed draft be completed against the keys that were
// sent, so a server that omits unanswered questions does not drop entries.
func questionsOf(answers sessions.AnswerMap) []sessions.Question {
	questions := make([]sessions.Question, 0, len(answers))
	for id := range answers {
		questions = append(questions, sessions.Question{ID: id})
	}
	return questions
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
