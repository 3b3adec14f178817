package sessions

import (
	"slices"
	"time"
)

type Kind string

const (
	KindAptitude  Kind = "APTITUDE"
	KindInterview Kind = "INTERVIEW"
)

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusAbandoned  Status = "ABANDONED"
	StatusDiscarded  Status = "DISCARDED"
)

// Mode selects how questions are sourced and whether they are timed.
type Mode string

const (
	ModePractice   Mode = "PRACTICE"
	ModeTest       Mode = "TEST"
	ModeResumeOnly Mode = "RESUME_ONLY"
)

// IsTimed reports whether sessions in this mode run per-question countdowns
// and forbid backward navigation.
func (m Mode) IsTimed() bool {
	return m == ModeTest || m == ModeResumeOnly
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

type Category string

const (
	CategoryQuantitative       Category = "QUANTITATIVE"
	CategoryLogical            Category = "LOGICAL"
	CategoryVerbal             Category = "VERBAL"
	CategoryTechnical          Category = "TECHNICAL"
	CategoryDataInterpretation Category = "DATA_INTERPRETATION"
)

// DefaultQuestionTimeLimit applies to questions of timed sessions that do not
// carry a limit of their own.
const DefaultQuestionTimeLimit = 60

type Option struct {
	Key  string
	Text string
}

// Question is immutable once fetched from the backend.
type Question struct {
	ID               string
	Number           int
	Text             string
	Category         Category
	Options          []Option
	TimeLimitSeconds *int
}

// HasOption reports whether key is one of the question's option keys. A
// question without options (free-text) accepts any key.
func (q Question) HasOption(key string) bool {
	if len(q.Options) == 0 {
		return true
	}
	for _, option := range q.Options {
		if option.Key == key {
			return true
		}
	}
	return false
}

type Session struct {
	ID                   string
	Kind                 Kind
	Mode                 Mode
	Status               Status
	StartedAt            time.Time
	Questions            []Question
	TimeLimitPerQuestion *int
	ElapsedSeconds       int
}

func (s *Session) IsTimed() bool {
	return s != nil && s.Mode.IsTimed()
}

// TimeLimit returns the effective countdown for the question at idx, or 0
// when the question is untimed.
func (s *Session) TimeLimit(idx int) int {
	if s == nil || idx < 0 || idx >= len(s.Questions) {
		return 0
	}

	if limit := s.Questions[idx].TimeLimitSeconds; limit != nil && *limit > 0 {
		return *limit
	}
	if s.TimeLimitPerQuestion != nil && *s.TimeLimitPerQuestion > 0 {
		return *s.TimeLimitPerQuestion
	}
	if s.IsTimed() {
		return DefaultQuestionTimeLimit
	}
	return 0
}

// Deadlines returns, per question, the elapsed second at which the question
// closes. Limits accumulate from the session start in question order. An
// untimed question has no deadline (0) and does not move later ones.
func (s *Session) Deadlines() []int {
	if s == nil {
		return nil
	}

	deadlines := make([]int, len(s.Questions))
	total := 0
	for i := range s.Questions {
		limit := s.TimeLimit(i)
		if limit <= 0 {
			continue
		}
		total += limit
		deadlines[i] = total
	}
	return deadlines
}

func (s *Session) QuestionIndex(id string) int {
	if s == nil {
		return -1
	}
	for i, q := range s.Questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy that can be handed out of the owning runner.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	clone := *s
	clone.TimeLimitPerQuestion = clonePtr(s.TimeLimitPerQuestion)
	clone.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = slices.Clone(q.Options)
		q.TimeLimitSeconds = clonePtr(q.TimeLimitSeconds)
		clone.Questions[i] = q
	}
	return &clone
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// ActiveSession is an abandoned, still in-progress session returned by the
// resume query together with its last persisted draft.
type ActiveSession struct {
	Session *Session
	Answers AnswerMap
}

type Draft struct {
	Answers AnswerMap
	SavedAt time.Time
}

// Result is the graded outcome returned by the backend. Scoring is opaque to
// the engine.
type Result struct {
	AttemptID        string
	Score            float64
	TotalQuestions   int
	Correct          int
	Wrong            int
	Skipped          int
	TimeTakenSeconds int
	CompletedAt      *time.Time
}

// ReviewedAnswer is one graded question of a completed attempt.
type ReviewedAnswer struct {
	QuestionID     string
	Text           string
	Category       Category
	Options        []Option
	CorrectOption  string
	SelectedOption *string
	IsCorrect      bool
	Explanation    string
}

// AttemptDetail is the per-question breakdown shown while reviewing a
// completed attempt.
type AttemptDetail struct {
	Result  Result
	Answers []ReviewedAnswer
}
