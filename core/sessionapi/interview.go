package sessionapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/koscakluka/prep-core/core/sessions"
)

var _ sessions.InterviewBackend = (*Client)(nil)

// StartInterview opens an interview session. The session carries only the
// first question; the rest arrive with each evaluation.
func (c *Client) StartInterview(ctx context.Context, config sessions.InterviewConfig) (*sessions.Session, error) {
	var resp interviewQuestionDTO
	if err := c.doJSON(ctx, http.MethodPost, "interview/start", interviewStartRequest{
		InterviewType: config.Type,
		Mode:          config.Mode,
		Difficulty:    config.Difficulty,
		TargetRole:    config.TargetRole,
		TargetCompany: config.TargetCompany,
	}, &resp); err != nil {
		return nil, fmt.Errorf("failed to start interview: %w", err)
	}
	if resp.SessionID == "" {
		return nil, fmt.Errorf("failed to start interview: response without session id")
	}

	number := max(resp.QuestionNumber, 1)
	return &sessions.Session{
		ID:        resp.SessionID,
		Kind:      sessions.KindInterview,
		Status:    sessions.StatusInProgress,
		StartedAt: c.now(),
		Questions: []sessions.Question{{
			ID:     interviewQuestionID(resp.SessionID, number),
			Number: number,
			Text:   resp.QuestionText,
		}},
	}, nil
}

func (c *Client) SubmitAnswer(ctx context.Context, sessionID string, answer string) (*sessions.Evaluation, error) {
	var resp evaluationDTO
	if err := c.doJSON(ctx, http.MethodPost, "interview/"+sessionID+"/answer",
		answerRequest{AnswerText: answer}, &resp); err != nil {
		return nil, fmt.Errorf("failed to submit interview answer: %w", err)
	}
	return resp.evaluation(sessionID), nil
}

func (c *Client) CompleteInterview(ctx context.Context, sessionID string) (*sessions.InterviewResult, error) {
	var resp interviewSessionDTO
	if err := c.doJSON(ctx, http.MethodPost, "interview/"+sessionID+"/complete", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to complete interview: %w", err)
	}

	result, err := resp.result()
	if err != nil {
		return nil, err
	}
	if result.EndedAt == nil {
		endedAt := c.now().UTC().Truncate(time.Second)
		result.EndedAt = &endedAt
	}
	return result, nil
}
