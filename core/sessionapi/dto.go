package sessionapi

import (
	"fmt"
	"sort"
	"time"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/prep-core/core/sessions"
)

type startRequest struct {
	Category            *sessions.Category   `json:"category,omitempty"`
	Difficulty          *sessions.Difficulty `json:"difficulty,omitempty"`
	Count               int                  `json:"count"`
	Mode                sessions.Mode        `json:"mode"`
	ResumeQuestionCount int                  `json:"resume_question_count"`
}

type questionDTO struct {
	ID               string            `json:"id"`
	QuestionText     string            `json:"question_text"`
	Options          map[string]string `json:"options" copier:"-"`
	Category         sessions.Category `json:"category"`
	Difficulty       string            `json:"difficulty,omitempty"`
	TimeLimitSeconds *int              `json:"time_limit_seconds,omitempty"`
}

type attemptDTO struct {
	AttemptID      string             `json:"attempt_id"`
	Questions      []questionDTO      `json:"questions"`
	TotalQuestions int                `json:"total_questions"`
	StartedAt      time.Time          `json:"started_at"`
	Mode           sessions.Mode      `json:"mode"`
	Category       *string            `json:"category"`
	Difficulty     *string            `json:"difficulty"`
	UserAnswers    map[string]*string `json:"user_answers,omitempty"`
}

type answersRequest struct {
	UserAnswers sessions.AnswerMap `json:"user_answers"`
}

type submitRequest struct {
	UserAnswers      sessions.AnswerMap `json:"user_answers"`
	TimeTakenSeconds int                `json:"time_taken_seconds"`
}

type attemptResultDTO struct {
	ID               string     `json:"id"`
	TotalQuestions   int        `json:"total_questions"`
	Score            float64    `json:"score"`
	CorrectAnswers   int        `json:"correct_answers"`
	WrongAnswers     int        `json:"wrong_answers"`
	Skipped          int        `json:"skipped"`
	TimeTakenSeconds int        `json:"time_taken_seconds"`
	CompletedAt      *time.Time `json:"completed_at"`
	StartedAt        time.Time  `json:"started_at"`
}

type detailedAnswerDTO struct {
	ID             string            `json:"id"`
	QuestionText   string            `json:"question_text"`
	Options        map[string]string `json:"options" copier:"-"`
	CorrectOption  string            `json:"correct_option"`
	SelectedOption *string           `json:"selected_option"`
	IsCorrect      bool              `json:"is_correct"`
	Explanation    *string           `json:"explanation" copier:"-"`
	Category       sessions.Category `json:"category"`
}

type attemptDetailDTO struct {
	attemptResultDTO
	DetailedAnswers []detailedAnswerDTO `json:"detailed_answers"`
}

type interviewStartRequest struct {
	InterviewType sessions.InterviewType `json:"interview_type"`
	Mode          sessions.InterviewMode `json:"mode,omitempty"`
	Difficulty    sessions.Difficulty    `json:"difficulty,omitempty"`
	TargetRole    string                 `json:"target_role,omitempty"`
	TargetCompany string                 `json:"target_company,omitempty"`
}

type interviewQuestionDTO struct {
	SessionID          string `json:"session_id"`
	QuestionNumber     int    `json:"question_number"`
	QuestionText       string `json:"question_text"`
	IsLastQuestion     bool   `json:"is_last_question"`
	QuestionsRemaining int    `json:"questions_remaining"`
}

type answerRequest struct {
	AnswerText string `json:"answer_text"`
}

type evaluationDTO struct {
	Evaluation struct {
		OverallScore float64  `json:"overall_score"`
		Feedback     string   `json:"feedback"`
		Strengths    []string `json:"strengths"`
		Improvements []string `json:"improvements"`
	} `json:"evaluation"`
	NextQuestion       *string `json:"next_question"`
	QuestionNumber     *int    `json:"question_number"`
	IsComplete         bool    `json:"is_complete"`
	QuestionsRemaining int     `json:"questions_remaining"`
}

type interviewSessionDTO struct {
	ID                 string          `json:"id"`
	Status             sessions.Status `json:"status"`
	OverallScore       float64         `json:"overall_score"`
	TechnicalScore     *float64        `json:"technical_score"`
	CommunicationScore *float64        `json:"communication_score"`
	ConfidenceScore    *float64        `json:"confidence_score"`
	FeedbackSummary    *string         `json:"feedback_summary" copier:"-"`
	ImprovementAreas   []string        `json:"improvement_areas"`
	EndedAt            *time.Time      `json:"ended_at"`
}

type transcriptionDTO struct {
	Text    string `json:"text"`
	Success bool   `json:"success"`
}

// sortedOptions orders a key→text map by key so A comes before B.
func sortedOptions(byKey map[string]string) []sessions.Option {
	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	options := make([]sessions.Option, 0, len(keys))
	for _, key := range keys {
		options = append(options, sessions.Option{Key: key, Text: byKey[key]})
	}
	return options
}

func (q questionDTO) options() []sessions.Option {
	return sortedOptions(q.Options)
}

func (a attemptDTO) session() (*sessions.Session, error) {
	if a.AttemptID == "" {
		return nil, fmt.Errorf("attempt without id")
	}

	session := &sessions.Session{
		ID:        a.AttemptID,
		Kind:      sessions.KindAptitude,
		Mode:      a.Mode,
		Status:    sessions.StatusInProgress,
		StartedAt: a.StartedAt,
	}
	if session.Mode == "" {
		session.Mode = sessions.ModePractice
	}

	session.Questions = make([]sessions.Question, 0, len(a.Questions))
	for i, dto := range a.Questions {
		var question sessions.Question
		if err := copier.Copy(&question, &dto); err != nil {
			return nil, fmt.Errorf("failed to convert question %s: %w", dto.ID, err)
		}
		question.Number = i + 1
		question.Text = dto.QuestionText
		question.Options = dto.options()
		session.Questions = append(session.Questions, question)
	}
	return session, nil
}

func (r attemptResultDTO) result() (*sessions.Result, error) {
	result := &sessions.Result{}
	if err := copier.Copy(result, &r); err != nil {
		return nil, fmt.Errorf("failed to convert attempt result: %w", err)
	}
	result.AttemptID = r.ID
	result.Correct = r.CorrectAnswers
	result.Wrong = r.WrongAnswers
	return result, nil
}

func (d attemptDetailDTO) detail() (*sessions.AttemptDetail, error) {
	result, err := d.result()
	if err != nil {
		return nil, err
	}

	detail := &sessions.AttemptDetail{
		Result:  *result,
		Answers: make([]sessions.ReviewedAnswer, 0, len(d.DetailedAnswers)),
	}
	for _, dto := range d.DetailedAnswers {
		var answer sessions.ReviewedAnswer
		if err := copier.Copy(&answer, &dto); err != nil {
			return nil, fmt.Errorf("failed to convert reviewed answer %s: %w", dto.ID, err)
		}
		answer.QuestionID = dto.ID
		answer.Text = dto.QuestionText
		answer.Options = sortedOptions(dto.Options)
		if dto.Explanation != nil {
			answer.Explanation = *dto.Explanation
		}
		detail.Answers = append(detail.Answers, answer)
	}
	return detail, nil
}

func (e evaluationDTO) evaluation(sessionID string) *sessions.Evaluation {
	evaluation := &sessions.Evaluation{
		Score:              e.Evaluation.OverallScore,
		Feedback:           e.Evaluation.Feedback,
		Strengths:          e.Evaluation.Strengths,
		Improvements:       e.Evaluation.Improvements,
		IsComplete:         e.IsComplete,
		QuestionsRemaining: e.QuestionsRemaining,
	}
	if e.NextQuestion != nil && !e.IsComplete {
		number := 0
		if e.QuestionNumber != nil {
			number = *e.QuestionNumber
		}
		evaluation.NextQuestion = &sessions.Question{
			ID:     interviewQuestionID(sessionID, number),
			Number: number,
			Text:   *e.NextQuestion,
		}
	}
	return evaluation
}

func (s interviewSessionDTO) result() (*sessions.InterviewResult, error) {
	result := &sessions.InterviewResult{}
	if err := copier.Copy(result, &s); err != nil {
		return nil, fmt.Errorf("failed to convert interview result: %w", err)
	}
	result.SessionID = s.ID
	if s.FeedbackSummary != nil {
		result.FeedbackSummary = *s.FeedbackSummary
	}
	return result, nil
}

// interviewQuestionID names interview questions, which have no id of their
// own on the server.
func interviewQuestionID(sessionID string, number int) string {
	return fmt.Sprintf("%s/%d", sessionID, number)
}
