package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/koscakluka/prep-core/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrNoBackend = errors.New("no speech backend for platform")

// Backend synthesizes and plays text. Speak blocks until playback has
// finished, failed, or ctx is cancelled.
type Backend interface {
	Speak(ctx context.Context, text string, style VoiceStyle) error
}

type Platform string

const (
	// PlatformDevice synthesizes on the host and plays through its speakers.
	PlatformDevice Platform = "device"
	// PlatformBrowser asks a connected browser page to speak.
	PlatformBrowser Platform = "browser"
)

// SelectBackend picks the backend for platform once, at construction time.
func SelectBackend(platform Platform, device, browser Backend) (Backend, error) {
	var backend Backend
	switch platform {
	case PlatformDevice:
		backend = device
	case PlatformBrowser:
		backend = browser
	default:
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
	if backend == nil {
		return nil, fmt.Errorf("%w %q", ErrNoBackend, platform)
	}
	return backend, nil
}

// Adapter narrates questions through one backend. A new playback cancels
// the previous one, so narrations never overlap.
type Adapter struct {
	backend Backend
	emit    events.Handler

	mu      sync.Mutex
	current *Playback
}

type AdapterOption func(*Adapter)

func WithEventHandler(handler events.Handler) AdapterOption {
	return func(a *Adapter) {
		if handler != nil {
			a.emit = handler
		}
	}
}

func NewAdapter(backend Backend, opts ...AdapterOption) *Adapter {
	a := &Adapter{backend: backend, emit: events.Noop}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Speak starts narrating text and returns immediately. The returned
// playback resolves exactly once.
func (a *Adapter) Speak(ctx context.Context, questionID, text string, style VoiceStyle) *Playback {
	playCtx, cancel := context.WithCancel(ctx)
	playback := newPlayback(cancel)
	if a == nil || a.backend == nil {
		playback.resolve(ErrNoBackend)
		return playback
	}

	a.mu.Lock()
	previous := a.current
	a.current = playback
	a.mu.Unlock()
	previous.Cancel()

	a.emit(events.NewSpeechStarted(questionID, text))
	go func() {
		playCtx, span := tracer.Start(playCtx, "speak question", trace.WithAttributes(
			attribute.String("speech.question_id", questionID),
			attribute.String("speech.voice_style", string(style)),
		))
		defer span.End()

		err := a.backend.Speak(playCtx, text, style)
		if err != nil && !errors.Is(err, context.Canceled) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.WarnContext(playCtx, "speech playback failed", "question_id", questionID, "error", err)
		}
		playback.resolve(err)
	}()

	go func() {
		<-playback.Done()
		a.emit(events.NewSpeechEnded(questionID, playback.Err()))

		a.mu.Lock()
		if a.current == playback {
			a.current = nil
		}
		a.mu.Unlock()
	}()

	return playback
}

// Cancel stops the current narration, if any.
func (a *Adapter) Cancel() {
	if a == nil {
		return
	}

	a.mu.Lock()
	current := a.current
	a.current = nil
	a.mu.Unlock()
	current.Cancel()
}

// Playback is one narration. It resolves once, when the backend finishes,
// fails, or the playback is cancelled, whichever happens first.
type Playback struct {
	done   chan struct{}
	once   sync.Once
	err    error
	cancel context.CancelFunc
}

func newPlayback(cancel context.CancelFunc) *Playback {
	return &Playback{done: make(chan struct{}), cancel: cancel}
}

func (p *Playback) resolve(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
		p.cancel()
	})
}

func (p *Playback) Done() <-chan struct{} {
	return p.done
}

// Err is valid once Done is closed.
func (p *Playback) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the playback resolves or ctx is done.
func (p *Playback) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Playback) Cancel() {
	if p == nil {
		return
	}
	p.resolve(context.Canceled)
}
