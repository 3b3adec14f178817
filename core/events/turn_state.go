package events

const (
	// KindPhaseChanged identifies an interview phase transition.
	KindPhaseChanged Kind = "turn.phase_changed"
	// KindInputUnlocked identifies the point where answers are accepted.
	KindInputUnlocked Kind = "turn.input_unlocked"
	// KindFeedbackReceived identifies server feedback for an answer.
	KindFeedbackReceived Kind = "turn.feedback_received"
)

// PhaseChanged carries the new phase of the current question.
type PhaseChanged struct {
	Base
	QuestionID string
	Phase      string
}

// NewPhaseChanged creates a phase changed event.
func NewPhaseChanged(questionID, phase string) PhaseChanged {
	return PhaseChanged{Base: NewBase(KindPhaseChanged), QuestionID: questionID, Phase: phase}
}

// InputUnlocked marks the candidate's turn.
type InputUnlocked struct {
	Base
	QuestionID string
}

// NewInputUnlocked creates an input unlocked event.
func NewInputUnlocked(questionID string) InputUnlocked {
	return InputUnlocked{Base: NewBase(KindInputUnlocked), QuestionID: questionID}
}

// FeedbackReceived carries the evaluation of an answer.
type FeedbackReceived struct {
	Base
	QuestionID string
	Score      float64
	Feedback   string
}

// NewFeedbackReceived creates a feedback received event.
func NewFeedbackReceived(questionID string, score float64, feedback string) FeedbackReceived {
	return FeedbackReceived{Base: NewBase(KindFeedbackReceived), QuestionID: questionID, Score: score, Feedback: feedback}
}
