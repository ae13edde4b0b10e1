package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cbt_backend/internal/config"
	"cbt_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func essayQuestion() *model.Question {
	q := &model.Question{
		Type:        model.QuestionEssay,
		Points:      10,
		Text:        "Explain the role of mitochondria in a cell.",
		Rubric:      "Full credit for function, structure and at least one example.",
		ModelAnswer: "Mitochondria generate ATP through cellular respiration.",
	}
	q.ID = 201
	return q
}

func graderResponse(content string) string {
	raw, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(raw)
}

func TestScoreEssayRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req graderChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "grader-1", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "mitochondria")

		w.Write([]byte(graderResponse(`{"score": 8.5, "feedback": "Good coverage of function.", "confidence": 0.9, "suggestions": ["Mention the inner membrane."]}`)))
	}))
	defer server.Close()

	svc := NewGraderService(config.GraderConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "grader-1",
	}, nil, nil)

	eval := svc.ScoreEssay(essayQuestion(), "Mitochondria produce ATP...", 10)
	assert.Equal(t, 8.5, eval.Score)
	assert.Equal(t, 0.9, eval.Confidence)
	assert.Equal(t, "Good coverage of function.", eval.Feedback)
	assert.Len(t, eval.Suggestions, 1)
}

func TestScoreEssayRemoteClampsScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(graderResponse(`{"score": 42, "feedback": "", "confidence": 1}`)))
	}))
	defer server.Close()

	svc := NewGraderService(config.GraderConfig{BaseURL: server.URL}, nil, nil)
	eval := svc.ScoreEssay(essayQuestion(), "answer", 10)
	assert.Equal(t, 10.0, eval.Score)
}

func TestScoreEssayRemoteToleratesProse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(graderResponse("Here is my verdict:\n```json\n{\"score\": 6, \"feedback\": \"ok\", \"confidence\": 0.7}\n```")))
	}))
	defer server.Close()

	svc := NewGraderService(config.GraderConfig{BaseURL: server.URL}, nil, nil)
	eval := svc.ScoreEssay(essayQuestion(), "answer", 10)
	assert.Equal(t, 6.0, eval.Score)
}

func TestScoreEssayFallsBackOnRemoteFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := NewGraderService(config.GraderConfig{BaseURL: server.URL}, nil, nil)
	eval := svc.ScoreEssay(essayQuestion(), "Mitochondria produce energy because they run respiration. Therefore the cell depends on them.", 10)
	assert.Greater(t, eval.Score, 0.0)
	assert.LessOrEqual(t, eval.Score, 10.0)
	assert.Equal(t, 0.3, eval.Confidence, "heuristic verdicts carry low confidence")
}

func TestHeuristicEssayScore(t *testing.T) {
	t.Run("empty answer scores zero", func(t *testing.T) {
		eval := heuristicEssayScore("", 10)
		assert.Zero(t, eval.Score)
		assert.NotEmpty(t, eval.Suggestions)
	})

	t.Run("longer structured answers score higher", func(t *testing.T) {
		short := heuristicEssayScore("Mitochondria make energy.", 10)

		long := "First, mitochondria generate ATP because they run cellular respiration. "
		for i := 0; i < 30; i++ {
			long += "They convert nutrients into usable chemical energy for the cell. "
		}
		long += "Therefore, in conclusion, the cell depends on them for power."
		structured := heuristicEssayScore(long, 10)

		assert.Greater(t, structured.Score, short.Score)
		assert.LessOrEqual(t, structured.Score, 10.0)
	})
}

func TestGradeSessionEssays(t *testing.T) {
	store := newFakeSessionStore()
	essay := essayQuestion()
	test := sampleTest(1)
	test.Questions = append(test.Questions, *essay)
	tests := &fakeTestStore{tests: map[uint]*model.Test{1: test}}
	clock := &fixedClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	sessions := NewSessionService(store, tests, clock)

	session, err := sessions.StartSession(7, 1, "", "")
	require.NoError(t, err)
	_, err = sessions.SaveAnswer(session.ID, 7, 101, model.AnswerValue{Choices: []string{"A"}}, 10, false)
	require.NoError(t, err)
	_, err = sessions.SaveAnswer(session.ID, 7, essay.ID, model.AnswerValue{Text: "Mitochondria produce ATP because of respiration."}, 60, false)
	require.NoError(t, err)

	grader := NewGraderService(config.GraderConfig{}, store, tests)

	_, err = grader.GradeSessionEssays(session.ID)
	require.Error(t, err, "session still in progress")

	_, err = sessions.Submit(session.ID, 7)
	require.NoError(t, err)

	graded, err := grader.GradeSessionEssays(session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, graded, "only the essay needs external grading")

	answers, err := store.AnswersBySession(session.ID)
	require.NoError(t, err)
	for _, a := range answers {
		if a.QuestionID == essay.ID {
			require.NotNil(t, a.Score)
			assert.NotEmpty(t, a.Feedback)
		}
	}

	graded, err = grader.GradeSessionEssays(session.ID)
	require.NoError(t, err)
	assert.Zero(t, graded, "already-scored answers are left alone")
}
