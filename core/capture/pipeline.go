package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/koscakluka/prep-core/core/audio"
	"github.com/koscakluka/prep-core/core/events"
	"github.com/koscakluka/prep-core/core/sessions"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrCaptureDisabled = errors.New("voice capture is disabled")
	ErrNoRecorder      = errors.New("no recorder configured")
)

// Recorder buffers microphone audio between Start and Stop.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() ([]byte, error)
	EncodingInfo() audio.EncodingInfo
}

type Transcriber interface {
	Transcribe(ctx context.Context, samples []byte, info audio.EncodingInfo) (string, error)
}

// Pipeline turns microphone captures into a running transcript. Only one
// capture runs at a time.
type Pipeline struct {
	recorder    Recorder
	transcriber Transcriber
	emit        events.Handler

	recording atomic.Bool
	// disabled is set once the microphone was denied and stays set.
	disabled    atomic.Bool
	deniedErr   atomic.Pointer[error]
	transcribes sync.Mutex

	transcript transcript
}

type PipelineOption func(*Pipeline)

func WithEventHandler(handler events.Handler) PipelineOption {
	return func(p *Pipeline) {
		if handler != nil {
			p.emit = handler
		}
	}
}

func NewPipeline(recorder Recorder, transcriber Transcriber, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		recorder:    recorder,
		transcriber: transcriber,
		emit:        events.Noop,
	}
	for _, opt := range opts {
		opt(p)
	}
	if recorder == nil {
		p.disable(ErrNoRecorder)
	}
	return p
}

func (p *Pipeline) IsRecording() bool { return p != nil && p.recording.Load() }
func (p *Pipeline) IsDisabled() bool  { return p == nil || p.disabled.Load() }

// Start begins a capture. A start while already recording is ignored. A
// permission error disables capture for the rest of the session.
func (p *Pipeline) Start(ctx context.Context) error {
	if p == nil {
		return nil
	}
	if p.disabled.Load() {
		return p.disabledErr()
	}
	if !p.recording.CompareAndSwap(false, true) {
		return nil
	}

	if err := p.recorder.Start(ctx); err != nil {
		p.recording.Store(false)
		if sessions.IsKind(err, sessions.ErrorPermission) {
			p.disable(err)
			p.emit(events.NewMicrophoneDenied(err))
			return err
		}
		return fmt.Errorf("failed to start capture: %w", err)
	}

	p.emit(events.NewCaptureStarted())
	return nil
}

// Stop ends the capture right away, then transcribes it and appends the
// text to the transcript. An empty capture is not sent for transcription.
// It returns the new segment, which is empty when nothing was appended.
func (p *Pipeline) Stop(ctx context.Context) (string, error) {
	if p == nil || !p.recording.CompareAndSwap(true, false) {
		return "", nil
	}

	samples, err := p.recorder.Stop()
	p.emit(events.NewCaptureStopped(len(samples)))
	if err != nil {
		logger.WarnContext(ctx, "capture did not stop cleanly", "error", err)
	}
	if len(samples) == 0 {
		return "", nil
	}

	return p.transcribe(ctx, samples)
}

// Press and Release are the push-to-talk controls. Releasing stops the
// capture regardless of what the pipeline is doing.
func (p *Pipeline) Press(ctx context.Context) error {
	return p.Start(ctx)
}

func (p *Pipeline) Release(ctx context.Context) (string, error) {
	return p.Stop(ctx)
}

func (p *Pipeline) transcribe(ctx context.Context, samples []byte) (string, error) {
	// Serialized so segments are appended in capture order.
	p.transcribes.Lock()
	defer p.transcribes.Unlock()

	ctx, span := tracer.Start(ctx, "transcribe capture", trace.WithAttributes(
		attribute.Int("capture.bytes", len(samples)),
	))
	defer span.End()

	if p.transcriber == nil {
		err := sessions.NewError(sessions.ErrorTranscription, "transcribe", errors.New("no transcriber configured"))
		p.emit(events.NewTranscriptionFailed(err))
		return "", err
	}

	text, err := p.transcriber.Transcribe(ctx, samples, p.recorder.EncodingInfo())
	if err != nil {
		err = sessions.NewError(sessions.ErrorTranscription, "transcribe", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.emit(events.NewTranscriptionFailed(err))
		return "", err
	}

	segment := strings.TrimSpace(text)
	if segment == "" {
		return "", nil
	}
	full := p.transcript.Append(segment)
	p.emit(events.NewTranscriptAppended(segment, full))
	return segment, nil
}

// Transcript returns every transcribed segment joined by spaces.
func (p *Pipeline) Transcript() string {
	if p == nil {
		return ""
	}
	return p.transcript.String()
}

func (p *Pipeline) Segments() []string {
	if p == nil {
		return nil
	}
	return p.transcript.Segments()
}

// Reset clears the transcript, e.g. when moving to the next question.
func (p *Pipeline) Reset() {
	if p == nil {
		return
	}
	p.transcript.Clear()
}

// Cancel drops the current capture without transcribing it.
func (p *Pipeline) Cancel() {
	if p == nil || !p.recording.CompareAndSwap(true, false) {
		return
	}

	samples, _ := p.recorder.Stop()
	p.emit(events.NewCaptureStopped(len(samples)))
}

func (p *Pipeline) disable(err error) {
	p.deniedErr.Store(&err)
	p.disabled.Store(true)
}

func (p *Pipeline) disabledErr() error {
	if cause := p.deniedErr.Load(); cause != nil {
		return fmt.Errorf("%w: %w", ErrCaptureDisabled, *cause)
	}
	return ErrCaptureDisabled
}
