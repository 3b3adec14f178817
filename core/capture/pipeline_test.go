package capture

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/koscakluka/prep-core/core/audio"
	"github.com/koscakluka/prep-core/core/events"
	"github.com/koscakluka/prep-core/core/sessions"
)

type fakeRecorder struct {
	startErr error
	samples  []byte
	starts   atomic.Int32
	stops    atomic.Int32
}

func (r *fakeRecorder) Start(context.Context) error {
	r.starts.Add(1)
	return r.startErr
}

func (r *fakeRecorder) Stop() ([]byte, error) {
	r.stops.Add(1)
	return r.samples, nil
}

func (r *fakeRecorder) EncodingInfo() audio.EncodingInfo {
	return audio.DefaultEncodingInfo()
}

type fakeTranscriber struct {
	texts []string
	err   error
	calls atomic.Int32
}

func (t *fakeTranscriber) Transcribe(ctx context.Context, samples []byte, info audio.EncodingInfo) (string, error) {
	call := t.calls.Add(1)
	if t.err != nil {
		return "", t.err
	}
	return t.texts[int(call-1)%len(t.texts)], nil
}

func TestStartWhileRecordingIsIgnored(t *testing.T) {
	recorder := &fakeRecorder{samples: []byte{1, 2}}
	pipeline := NewPipeline(recorder, &fakeTranscriber{texts: []string{"hello"}})

	for range 3 {
		if err := pipeline.Start(context.Background()); err != nil {
			t.Fatalf("unexpected start error: %v", err)
		}
	}
	if got := recorder.starts.Load(); got != 1 {
		t.Fatalf("expected a single recorder start, got %d", got)
	}
	if !pipeline.IsRecording() {
		t.Fatalf("expected pipeline to be recording")
	}
}

func TestCyclesAppendToTranscript(t *testing.T) {
	recorder := &fakeRecorder{samples: []byte{1, 2, 3, 4}}
	transcriber := &fakeTranscriber{texts: []string{"I used a hash map", " to dedupe entries "}}
	var appended atomic.Int32
	pipeline := NewPipeline(recorder, transcriber, WithEventHandler(func(event events.Event) {
		if event.Kind() == events.KindTranscriptAppended {
			appended.Add(1)
		}
	}))

	for range 2 {
		_ = pipeline.Press(context.Background())
		if _, err := pipeline.Release(context.Background()); err != nil {
			t.Fatalf("unexpected release error: %v", err)
		}
	}

	if got, want := pipeline.Transcript(), "I used a hash map to dedupe entries"; got != want {
		t.Fatalf("expected transcript %q, got %q", want, got)
	}
	if got := appended.Load(); got != 2 {
		t.Fatalf("expected 2 appended events, got %d", got)
	}
}

func TestEmptyCaptureSkipsTranscription(t *testing.T) {
	recorder := &fakeRecorder{}
	transcriber := &fakeTranscriber{texts: []string{"never"}}
	pipeline := NewPipeline(recorder, transcriber)

	_ = pipeline.Start(context.Background())
	segment, err := pipeline.Stop(context.Background())
	if err != nil || segment != "" {
		t.Fatalf("expected empty result, got %q, %v", segment, err)
	}
	if got := transcriber.calls.Load(); got != 0 {
		t.Fatalf("expected no transcription call, got %d", got)
	}
}

func TestTranscriptionFailureKeepsTranscript(t *testing.T) {
	recorder := &fakeRecorder{samples: []byte{1, 2}}
	transcriber := &fakeTranscriber{texts: []string{"first answer"}}
	pipeline := NewPipeline(recorder, transcriber)

	_ = pipeline.Start(context.Background())
	_, _ = pipeline.Stop(context.Background())

	transcriber.err = errors.New("upstream 502")
	_ = pipeline.Start(context.Background())
	_, err := pipeline.Stop(context.Background())
	if !sessions.IsKind(err, sessions.ErrorTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
	if got := pipeline.Transcript(); got != "first answer" {
		t.Fatalf("expected transcript to be preserved, got %q", got)
	}

	transcriber.err = nil
	if err := pipeline.Start(context.Background()); err != nil {
		t.Fatalf("expected capture to be retryable, got %v", err)
	}
}

func TestPermissionDenialDisablesCapture(t *testing.T) {
	denied := sessions.NewError(sessions.ErrorPermission, "start capture", errors.New("NotAllowedError"))
	recorder := &fakeRecorder{startErr: denied}
	var deniedEvents atomic.Int32
	pipeline := NewPipeline(recorder, &fakeTranscriber{texts: []string{""}}, WithEventHandler(func(event events.Event) {
		if event.Kind() == events.KindMicrophoneDenied {
			deniedEvents.Add(1)
		}
	}))

	if err := pipeline.Start(context.Background()); !sessions.IsKind(err, sessions.ErrorPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	err := pipeline.Start(context.Background())
	if !errors.Is(err, ErrCaptureDisabled) || !sessions.IsKind(err, sessions.ErrorPermission) {
		t.Fatalf("expected disabled capture error wrapping the denial, got %v", err)
	}
	if got := recorder.starts.Load(); got != 1 {
		t.Fatalf("expected recorder not to be retried, got %d starts", got)
	}
	if got := deniedEvents.Load(); got != 1 {
		t.Fatalf("expected one denial event, got %d", got)
	}
}

func TestReleaseWithoutPressIsNoop(t *testing.T) {
	recorder := &fakeRecorder{samples: []byte{1}}
	pipeline := NewPipeline(recorder, &fakeTranscriber{texts: []string{"x"}})

	if _, err := pipeline.Release(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := recorder.stops.Load(); got != 0 {
		t.Fatalf("expected recorder not to be stopped, got %d", got)
	}
}

func TestCancelDropsCapture(t *testing.T) {
	recorder := &fakeRecorder{samples: []byte{1, 2}}
	transcriber := &fakeTranscriber{texts: []string{"dropped"}}
	pipeline := NewPipeline(recorder, transcriber)

	_ = pipeline.Start(context.Background())
	pipeline.Cancel()

	if pipeline.IsRecording() {
		t.Fatalf("expected capture to stop")
	}
	if transcriber.calls.Load() != 0 || pipeline.Transcript() != "" {
		t.Fatalf("expected cancelled capture not to be transcribed")
	}
}
