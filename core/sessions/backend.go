package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	MinQuestionCount = 5
	MaxQuestionCount = 50
	// MaxInterviewQuestions caps the number of questions per interview.
	MaxInterviewQuestions = 10
)

// StartConfig requests a new assessment. For hybrid modes
// ResumeQuestionCount questions are derived from the user's resume and the
// rest come from the question bank.
type StartConfig struct {
	Category            *Category
	Difficulty          *Difficulty
	Count               int
	Mode                Mode
	ResumeQuestionCount int
}

func (c StartConfig) Validate() error {
	if c.Count < MinQuestionCount || c.Count > MaxQuestionCount {
		return fmt.Errorf("question count must be between %d and %d, got %d", MinQuestionCount, MaxQuestionCount, c.Count)
	}
	switch c.Mode {
	case ModePractice, ModeTest, ModeResumeOnly:
	case "":
		return errors.New("mode must be set")
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.ResumeQuestionCount < 0 || c.ResumeQuestionCount > c.Count {
		return fmt.Errorf("resume question count must be between 0 and %d, got %d", c.Count, c.ResumeQuestionCount)
	}
	return nil
}

// BankQuestionCount is the number of questions sourced from the bank.
func (c StartConfig) BankQuestionCount() int {
	if c.Mode == ModeResumeOnly {
		return 0
	}
	return c.Count - c.ResumeQuestionCount
}

// AssessmentBackend is the server side of a multiple-choice session.
type AssessmentBackend interface {
	Start(ctx context.Context, config StartConfig) (*Session, error)
	// Active returns ErrNoActiveSession when there is nothing to resume and
	// ErrSessionExpired when the abandoned session ran out of time.
	Active(ctx context.Context) (*ActiveSession, error)
	Autosave(ctx context.Context, sessionID string, answers AnswerMap) (Draft, error)
	Submit(ctx context.Context, sessionID string, answers AnswerMap, elapsedSeconds int) (*Result, error)
	Discard(ctx context.Context, sessionID string) error
	// AttemptDetail returns the graded answers of a completed session.
	AttemptDetail(ctx context.Context, sessionID string) (*AttemptDetail, error)
}

type InterviewType string

const (
	InterviewTechnical  InterviewType = "TECHNICAL"
	InterviewHR         InterviewType = "HR"
	InterviewBehavioral InterviewType = "BEHAVIORAL"
	InterviewCaseStudy  InterviewType = "CASE_STUDY"
)

type InterviewMode string

const (
	InterviewModeText  InterviewMode = "TEXT"
	InterviewModeVoice InterviewMode = "VOICE"
)

type InterviewConfig struct {
	Type          InterviewType
	Mode          InterviewMode
	Difficulty    Difficulty
	TargetRole    string
	TargetCompany string
}

// Evaluation is the server feedback for one answer, plus the next question
// unless the interview is complete.
type Evaluation struct {
	Score              float64
	Feedback           string
	Strengths          []string
	Improvements       []string
	NextQuestion       *Question
	IsComplete         bool
	QuestionsRemaining int
}

type InterviewResult struct {
	SessionID          string
	Status             Status
	OverallScore       float64
	TechnicalScore     *float64
	CommunicationScore *float64
	ConfidenceScore    *float64
	FeedbackSummary    string
	ImprovementAreas   []string
	EndedAt            *time.Time
}

// InterviewBackend is the server side of a conversational session. The
// returned session carries the first question only; later questions arrive
// with each evaluation.
type InterviewBackend interface {
	StartInterview(ctx context.Context, config InterviewConfig) (*Session, error)
	SubmitAnswer(ctx context.Context, sessionID string, answer string) (*Evaluation, error)
	CompleteInterview(ctx context.Context, sessionID string) (*InterviewResult, error)
}
