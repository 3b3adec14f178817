package events

const (
	// KindSpeechStarted identifies the start of question narration.
	KindSpeechStarted Kind = "speech.started"
	// KindSpeechEnded identifies the end of question narration.
	KindSpeechEnded Kind = "speech.ended"
)

// SpeechStarted carries the narrated text.
type SpeechStarted struct {
	Base
	QuestionID string
	Text       string
}

// NewSpeechStarted creates a speech started event.
func NewSpeechStarted(questionID, text string) SpeechStarted {
	return SpeechStarted{Base: NewBase(KindSpeechStarted), QuestionID: questionID, Text: text}
}

// SpeechEnded marks the end of narration. Err is set when playback failed or
// was cancelled.
type SpeechEnded struct {
	Base
	QuestionID string
	Err        error
}

// NewSpeechEnded creates a speech ended event.
func NewSpeechEnded(questionID string, err error) SpeechEnded {
	return SpeechEnded{Base: NewBase(KindSpeechEnded), QuestionID: questionID, Err: err}
}
