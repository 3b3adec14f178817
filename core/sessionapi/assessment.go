package sessionapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/koscakluka/prep-core/core/sessions"
)

var _ sessions.AssessmentBackend = (*Client)(nil)

func (c *Client) Start(ctx context.Context, config sessions.StartConfig) (*sessions.Session, error) {
	var resp attemptDTO
	err := c.doJSON(ctx, http.MethodPost, "student/aptitude/start", startRequest{
		Category:            config.Category,
		Difficulty:          config.Difficulty,
		Count:               config.Count,
		Mode:                config.Mode,
		ResumeQuestionCount: config.ResumeQuestionCount,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to start assessment: %w", err)
	}
	return resp.session()
}

// Active returns the unfinished attempt. The elapsed time is taken from the
// server's start time, since the attempt kept running while the client was
// away.
func (c *Client) Active(ctx context.Context) (*sessions.ActiveSession, error) {
	var resp attemptDTO
	if err := c.doJSON(ctx, http.MethodGet, "student/aptitude/active", nil, &resp); err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) {
			switch statusErr.StatusCode {
			case http.StatusNotFound:
				return nil, sessions.ErrNoActiveSession
			case http.StatusGone:
				return nil, fmt.Errorf("%w: %s", sessions.ErrSessionExpired, statusErr.Body)
			}
		}
		return nil, fmt.Errorf("failed to load active assessment: %w", err)
	}

	session, err := resp.session()
	if err != nil {
		return nil, err
	}
	if !session.StartedAt.IsZero() {
		session.ElapsedSeconds = max(int(c.now().Sub(session.StartedAt).Seconds()), 0)
	}

	answers := sessions.AnswerMap(resp.UserAnswers)
	if answers == nil {
		answers = sessions.NewAnswerMap(session.Questions)
	}
	return &sessions.ActiveSession{Session: session, Answers: answers}, nil
}

// Autosave stores a draft. The server only acknowledges the save, so the
// returned draft is the snapshot that was sent.
func (c *Client) Autosave(ctx context.Context, sessionID string, answers sessions.AnswerMap) (sessions.Draft, error) {
	var resp struct {
		Success     bool               `json:"success"`
		UserAnswers sessions.AnswerMap `json:"user_answers"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "student/aptitude/autosave/"+sessionID,
		answersRequest{UserAnswers: answers}, &resp); err != nil {
		return sessions.Draft{}, fmt.Errorf("failed to autosave answers: %w", err)
	}

	saved := resp.UserAnswers
	if saved == nil {
		saved = answers.Clone()
	}
	return sessions.Draft{Answers: saved, SavedAt: c.now()}, nil
}

func (c *Client) Submit(ctx context.Context, sessionID string, answers sessions.AnswerMap, elapsedSeconds int) (*sessions.Result, error) {
	var resp attemptResultDTO
	if err := c.doJSON(ctx, http.MethodPost, "student/aptitude/submit/"+sessionID, submitRequest{
		UserAnswers:      answers,
		TimeTakenSeconds: max(elapsedSeconds, 0),
	}, &resp); err != nil {
		return nil, fmt.Errorf("failed to submit assessment: %w", err)
	}

	result, err := resp.result()
	if err != nil {
		return nil, err
	}
	if result.TimeTakenSeconds == 0 {
		result.TimeTakenSeconds = elapsedSeconds
	}
	if result.Correct+result.Wrong+result.Skipped == 0 {
		result.Skipped = len(answers) - answers.Answered()
	}
	return result, nil
}

func (c *Client) Discard(ctx context.Context, sessionID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "student/aptitude/attempts/"+sessionID, nil, nil); err != nil {
		return fmt.Errorf("failed to discard assessment: %w", err)
	}
	return nil
}

// AttemptDetail loads the graded breakdown of a completed attempt.
func (c *Client) AttemptDetail(ctx context.Context, sessionID string) (*sessions.AttemptDetail, error) {
	var resp attemptDetailDTO
	if err := c.doJSON(ctx, http.MethodGet, "student/aptitude/attempts/"+sessionID, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to load attempt detail: %w", err)
	}
	return resp.detail()
}
