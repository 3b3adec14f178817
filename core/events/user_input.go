package events

const (
	// KindCaptureStarted identifies the start of microphone capture.
	KindCaptureStarted Kind = "capture.started"
	// KindCaptureStopped identifies the end of microphone capture.
	KindCaptureStopped Kind = "capture.stopped"
	// KindTranscriptAppended identifies an appended transcript segment.
	KindTranscriptAppended Kind = "capture.transcript_appended"
	// KindTranscriptionFailed identifies a failed transcription.
	KindTranscriptionFailed Kind = "capture.transcription_failed"
	// KindMicrophoneDenied identifies denied microphone access.
	KindMicrophoneDenied Kind = "capture.permission_denied"
)

// CaptureStarted marks the start of microphone capture.
type CaptureStarted struct{ Base }

// NewCaptureStarted creates a capture started event.
func NewCaptureStarted() CaptureStarted {
	return CaptureStarted{Base: NewBase(KindCaptureStarted)}
}

// CaptureStopped carries the size of the finished capture.
type CaptureStopped struct {
	Base
	Bytes int
}

// NewCaptureStopped creates a capture stopped event.
func NewCaptureStopped(bytes int) CaptureStopped {
	return CaptureStopped{Base: NewBase(KindCaptureStopped), Bytes: bytes}
}

// TranscriptAppended carries the appended segment and the running transcript.
type TranscriptAppended struct {
	Base
	Segment    string
	Transcript string
}

// NewTranscriptAppended creates a transcript appended event.
func NewTranscriptAppended(segment, transcript string) TranscriptAppended {
	return TranscriptAppended{Base: NewBase(KindTranscriptAppended), Segment: segment, Transcript: transcript}
}

// TranscriptionFailed carries a transcription error.
type TranscriptionFailed struct {
	Base
	Err error
}

// NewTranscriptionFailed creates a transcription failed event.
func NewTranscriptionFailed(err error) TranscriptionFailed {
	return TranscriptionFailed{Base: NewBase(KindTranscriptionFailed), Err: err}
}

// MicrophoneDenied carries the permission error.
type MicrophoneDenied struct {
	Base
	Err error
}

// NewMicrophoneDenied creates a microphone denied event.
func NewMicrophoneDenied(err error) MicrophoneDenied {
	return MicrophoneDenied{Base: NewBase(KindMicrophoneDenied), Err: err}
}
