package sessionapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/koscakluka/prep-core/core/audio"
	"github.com/koscakluka/prep-core/core/sessions"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, WithToken("token-1"), withClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

const attemptBody = `{
	"attempt_id": "att-1",
	"questions": [
		{"id": "q1", "question_text": "2 + 2?", "options": {"B": "4", "A": "3", "D": "22", "C": "5"}, "category": "QUANTITATIVE"},
		{"id": "q2", "question_text": "Odd one out?", "options": {"A": "x", "B": "y"}, "category": "LOGICAL", "time_limit_seconds": 30}
	],
	"total_questions": 2,
	"started_at": "2026-03-01T09:58:00Z",
	"mode": "TEST"
}`

func TestStartSendsConfigAndConvertsQuestions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/student/aptitude/start" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("expected bearer token, got %q", got)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["count"] != float64(10) || req["mode"] != "TEST" || req["resume_question_count"] != float64(3) {
			t.Errorf("unexpected start request %v", req)
		}
		writeJSON(w, http.StatusOK, attemptBody)
	})

	session, err := client.Start(context.Background(), sessions.StartConfig{
		Count: 10, Mode: sessions.ModeTest, ResumeQuestionCount: 3,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.ID != "att-1" || session.Mode != sessions.ModeTest || len(session.Questions) != 2 {
		t.Fatalf("unexpected session %+v", session)
	}

	q1 := session.Questions[0]
	keys := ""
	for _, option := range q1.Options {
		keys += option.Key
	}
	if keys != "ABCD" {
		t.Fatalf("expected options sorted by key, got %s", keys)
	}
	if q1.Number != 1 || q1.Text != "2 + 2?" || q1.Category != sessions.CategoryQuantitative {
		t.Fatalf("unexpected first question %+v", q1)
	}
	if limit := session.Questions[1].TimeLimitSeconds; limit == nil || *limit != 30 {
		t.Fatalf("expected time limit 30, got %v", limit)
	}
}

func TestActiveMapsStatusCodes(t *testing.T) {
	for _, tc := range []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, sessions.ErrNoActiveSession},
		{http.StatusGone, sessions.ErrSessionExpired},
	} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, tc.status, `{"detail":"nothing here"}`)
		})
		if _, err := client.Active(context.Background()); !errors.Is(err, tc.want) {
			t.Fatalf("expected %v for %d, got %v", tc.want, tc.status, err)
		}
	}
}

func TestActiveSeedsElapsedAndAnswers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := strings.Replace(attemptBody, `"mode": "TEST"`, `"mode": "TEST", "user_answers": {"q1": "B", "q2": null}`, 1)
		writeJSON(w, http.StatusOK, body)
	})

	active, err := client.Active(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if active.Session.ElapsedSeconds != 120 {
		t.Fatalf("expected 120 elapsed seconds, got %d", active.Session.ElapsedSeconds)
	}
	if selected := active.Answers["q1"]; selected == nil || *selected != "B" {
		t.Fatalf("expected q1 answered B, got %v", selected)
	}
	if selected, ok := active.Answers["q2"]; !ok || selected != nil {
		t.Fatalf("expected q2 explicitly unanswered")
	}
}

func TestAutosaveReturnsSentSnapshot(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/student/aptitude/autosave/att-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, `{"success": true}`)
	})

	b := "B"
	draft, err := client.Autosave(context.Background(), "att-1", sessions.AnswerMap{"q1": &b, "q2": nil})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !draft.SavedAt.Equal(testNow) {
		t.Fatalf("expected save time stamped with now, got %v", draft.SavedAt)
	}
	if selected := draft.Answers["q1"]; selected == nil || *selected != "B" {
		t.Fatalf("expected echoed answers, got %v", draft.Answers)
	}
}

func TestAutosaveFailureCarriesStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"detail":"attempt already submitted"}`)
	})

	_, err := client.Autosave(context.Background(), "att-1", sessions.AnswerMap{})
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest || statusErr.Body != "attempt already submitted" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
}

func TestSubmitConvertsResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.TimeTakenSeconds != 95 || len(req.UserAnswers) != 2 {
			t.Errorf("unexpected submit request %+v", req)
		}
		writeJSON(w, http.StatusOK, `{"id":"att-1","total_questions":2,"score":50,"completed_at":"2026-03-01T10:00:00Z","started_at":"2026-03-01T09:58:00Z"}`)
	})

	b := "B"
	result, err := client.Submit(context.Background(), "att-1", sessions.AnswerMap{"q1": &b, "q2": nil}, 95)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.AttemptID != "att-1" || result.Score != 50 || result.TotalQuestions != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.TimeTakenSeconds != 95 || result.Skipped != 1 {
		t.Fatalf("expected local time and skipped count, got %+v", result)
	}
	if result.CompletedAt == nil || !result.CompletedAt.Equal(testNow) {
		t.Fatalf("expected completion time, got %v", result.CompletedAt)
	}
}

func TestDiscard(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = r.Method == http.MethodDelete && r.URL.Path == "/api/v1/student/aptitude/attempts/att-1"
		writeJSON(w, http.StatusOK, `{"success": true}`)
	})
	if err := client.Discard(context.Background(), "att-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatalf("expected delete request")
	}
}

func TestAttemptDetailConvertsReviewedAnswers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/student/aptitude/attempts/att-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeJSON(w, http.StatusOK, `{
			"id": "att-1", "user_id": "u-1", "category": null,
			"total_questions": 2, "correct_answers": 1, "wrong_answers": 0, "skipped": 1,
			"score": 50, "time_taken_seconds": 80,
			"started_at": "2026-03-01T09:58:00Z", "completed_at": "2026-03-01T10:00:00Z",
			"detailed_answers": [
				{"id": "q1", "question_text": "2 + 2?", "options": {"B": "4", "A": "3"}, "correct_option": "B",
				 "selected_option": "B", "is_correct": true, "explanation": "basic sum", "category": "QUANTITATIVE"},
				{"id": "q2", "question_text": "Odd one out?", "options": {"A": "x", "B": "y"}, "correct_option": "A",
				 "selected_option": null, "is_correct": false, "explanation": null, "category": "LOGICAL"}
			]
		}`)
	})

	detail, err := client.AttemptDetail(context.Background(), "att-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if detail.Result.AttemptID != "att-1" || detail.Result.Correct != 1 || detail.Result.Skipped != 1 {
		t.Fatalf("unexpected result %+v", detail.Result)
	}
	if len(detail.Answers) != 2 {
		t.Fatalf("expected 2 reviewed answers, got %d", len(detail.Answers))
	}

	first := detail.Answers[0]
	if first.QuestionID != "q1" || first.Text != "2 + 2?" || !first.IsCorrect || first.Explanation != "basic sum" {
		t.Fatalf("unexpected first answer %+v", first)
	}
	if first.SelectedOption == nil || *first.SelectedOption != "B" || first.CorrectOption != "B" {
		t.Fatalf("expected B selected and correct, got %+v", first)
	}
	if len(first.Options) != 2 || first.Options[0].Key != "A" || first.Options[1].Text != "4" {
		t.Fatalf("expected options ordered by key, got %+v", first.Options)
	}

	second := detail.Answers[1]
	if second.SelectedOption != nil || second.Explanation != "" || second.Category != sessions.CategoryLogical {
		t.Fatalf("unexpected skipped answer %+v", second)
	}
}

func TestAttemptDetailFailureCarriesStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"detail": "Attempt not found"}`)
	})

	_, err := client.AttemptDetail(context.Background(), "att-9")
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found status error, got %v", err)
	}
}

func TestInterviewRoundTrip(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/interview/start":
			writeJSON(w, http.StatusOK, `{"session_id":"iv-1","question_number":1,"question_text":"Tell me about yourself.","questions_remaining":9}`)
		case "/api/v1/interview/iv-1/answer":
			var req answerRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.AnswerText != "I build things." {
				t.Errorf("unexpected answer %q", req.AnswerText)
			}
			writeJSON(w, http.StatusOK, `{"evaluation":{"overall_score":7,"feedback":"Good","strengths":["clear"],"improvements":["depth"]},"next_question":"Why us?","question_number":2,"is_complete":false,"questions_remaining":8}`)
		case "/api/v1/interview/iv-1/complete":
			writeJSON(w, http.StatusOK, `{"id":"iv-1","status":"COMPLETED","overall_score":7.5,"feedback_summary":"Solid","improvement_areas":["depth"],"ended_at":"2026-03-01T10:00:00Z"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	session, err := client.StartInterview(context.Background(), sessions.InterviewConfig{Type: sessions.InterviewHR})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.Kind != sessions.KindInterview || len(session.Questions) != 1 || session.Questions[0].Text != "Tell me about yourself." {
		t.Fatalf("unexpected interview session %+v", session)
	}

	evaluation, err := client.SubmitAnswer(context.Background(), "iv-1", "I build things.")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if evaluation.Score != 7 || evaluation.NextQuestion == nil || evaluation.NextQuestion.Number != 2 {
		t.Fatalf("unexpected evaluation %+v", evaluation)
	}
	if evaluation.NextQuestion.ID == session.Questions[0].ID {
		t.Fatalf("expected distinct question ids")
	}

	result, err := client.CompleteInterview(context.Background(), "iv-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.SessionID != "iv-1" || result.Status != sessions.StatusCompleted || result.FeedbackSummary != "Solid" || result.OverallScore != 7.5 {
		t.Fatalf("unexpected interview result %+v", result)
	}
}

func TestTranscribeUploadsWAV(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("expected uploaded file, got %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "answer.wav" || !strings.HasPrefix(string(data), "RIFF") {
			t.Errorf("expected a wav upload, got %s", header.Filename)
		}
		writeJSON(w, http.StatusOK, `{"text":"  hello there ","success":true}`)
	})

	text, err := client.Transcribe(context.Background(), make([]byte, 320), audio.DefaultEncodingInfo())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if text != "hello there" {
		t.Fatalf("expected trimmed transcript, got %q", text)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("not a url"); err == nil {
		t.Fatalf("expected an error for a relative url")
	}
}
