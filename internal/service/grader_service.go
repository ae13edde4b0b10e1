package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cbt_backend/internal/config"
	"cbt_backend/internal/model"
	"cbt_backend/internal/util"
	"cbt_backend/pkg/logger"

	"go.uber.org/zap"
)

// EssayEvaluation is the grader verdict for one free-text answer.
type EssayEvaluation struct {
	Score       float64  `json:"score"`
	Feedback    string   `json:"feedback"`
	Confidence  float64  `json:"confidence"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// GraderService scores essay and image-recognition answers. It prefers a
// remote LLM endpoint and falls back to a local heuristic when the remote
// call is unavailable or returns garbage, so grading always produces a
// usable score.
type GraderService struct {
	config   config.GraderConfig
	client   *http.Client
	sessions ResultSessionStore
	tests    TestReader
}

func NewGraderService(cfg config.GraderConfig, sessions ResultSessionStore, tests TestReader) *GraderService {
	return &GraderService{
		config:   cfg,
		client:   &http.Client{Timeout: 30 * time.Second},
		sessions: sessions,
		tests:    tests,
	}
}

type graderChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type graderChatRequest struct {
	Model    string              `json:"model"`
	Messages []graderChatMessage `json:"messages"`
}

type graderChatResponse struct {
	Choices []struct {
		Message graderChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ScoreEssay grades one free-text answer against the question's rubric and
// model answer. The returned score is clamped to [0, maxScore].
func (s *GraderService) ScoreEssay(question *model.Question, answerText string, maxScore float64) *EssayEvaluation {
	if s.config.BaseURL != "" {
		if eval, err := s.scoreRemote(question, answerText, maxScore); err == nil {
			return eval
		} else {
			logger.Log.Warn("remote essay grading failed, using heuristic",
				zap.Uint("questionId", question.ID), zap.Error(err))
		}
	}
	return heuristicEssayScore(answerText, maxScore)
}

func (s *GraderService) scoreRemote(question *model.Question, answerText string, maxScore float64) (*EssayEvaluation, error) {
	prompt := fmt.Sprintf("Grade the following student answer on a scale of 0 to %.1f.\n\nQuestion: %s\n", maxScore, question.Text)
	if question.Rubric != "" {
		prompt += fmt.Sprintf("\nRubric:\n%s\n", question.Rubric)
	}
	if question.ModelAnswer != "" {
		prompt += fmt.Sprintf("\nModel answer:\n%s\n", question.ModelAnswer)
	}
	prompt += fmt.Sprintf("\nStudent answer:\n%s\n", answerText)
	prompt += "\nRespond with a single JSON object: {\"score\": number, \"feedback\": string, \"confidence\": number between 0 and 1, \"suggestions\": [string]}."

	reqBody := graderChatRequest{
		Model: s.config.Model,
		Messages: []graderChatMessage{
			{Role: "system", Content: "You are a strict but fair exam grader. Always answer with the requested JSON and nothing else."},
			{Role: "user", Content: prompt},
		},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("grader API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result graderChatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	if result.Error != nil {
		return nil, fmt.Errorf("grader API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("grader returned no choices")
	}

	eval, err := parseEvaluation(result.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	eval.Score = clampScore(eval.Score, maxScore)
	return eval, nil
}

// parseEvaluation extracts the JSON verdict, tolerating prose or code fences
// around it.
func parseEvaluation(content string) (*EssayEvaluation, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in grader response")
	}
	var eval EssayEvaluation
	if err := json.Unmarshal([]byte(content[start:end+1]), &eval); err != nil {
		return nil, err
	}
	return &eval, nil
}

var essayStructureMarkers = []string{
	"first", "second", "finally", "however", "therefore",
	"because", "for example", "in conclusion", "on the other hand",
}

// heuristicEssayScore is the offline fallback: length plus the presence of
// structural connectives. It is deliberately coarse and flagged with low
// confidence so instructors review it.
func heuristicEssayScore(answerText string, maxScore float64) *EssayEvaluation {
	words := strings.Fields(answerText)
	wordCount := len(words)

	// Up to 60% of credit for substance by length, saturating at 200 words.
	lengthRatio := float64(wordCount) / 200
	if lengthRatio > 1 {
		lengthRatio = 1
	}
	score := maxScore * 0.6 * lengthRatio

	// Up to 40% for structure, 10% per distinct marker found.
	lower := strings.ToLower(answerText)
	structure := 0
	for _, marker := range essayStructureMarkers {
		if strings.Contains(lower, marker) {
			structure++
			if structure == 4 {
				break
			}
		}
	}
	score += maxScore * 0.1 * float64(structure)

	feedback := "Automatically graded by the offline heuristic. An instructor should review this score."
	var suggestions []string
	if wordCount < 50 {
		suggestions = append(suggestions, "Develop the answer further; it is very short.")
	}
	if structure < 2 {
		suggestions = append(suggestions, "Structure the argument with connectives and a conclusion.")
	}

	return &EssayEvaluation{
		Score:       clampScore(score, maxScore),
		Feedback:    feedback,
		Confidence:  0.3,
		Suggestions: suggestions,
	}
}

func clampScore(score, maxScore float64) float64 {
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// GradeSessionEssays scores every ungraded essay or image-recognition answer
// in a terminal session and persists the scores, so result calculation can
// pick them up. Returns the number of answers graded.
func (s *GraderService) GradeSessionEssays(sessionID uint) (int, error) {
	session, err := s.sessions.FindByID(sessionID)
	if err != nil {
		return 0, err
	}
	if !session.Status.Terminal() {
		return 0, &util.InvalidStateError{Op: "grade essays", State: string(session.Status)}
	}

	test := session.Test
	if test == nil {
		if test, err = s.tests.FindByID(session.TestID); err != nil {
			return 0, err
		}
	}
	byID := make(map[uint]*model.Question, len(test.Questions))
	for i := range test.Questions {
		byID[test.Questions[i].ID] = &test.Questions[i]
	}

	answers, err := s.sessions.AnswersBySession(sessionID)
	if err != nil {
		return 0, err
	}

	graded := 0
	for i := range answers {
		q, ok := byID[answers[i].QuestionID]
		if !ok || q.AutoGradable() || answers[i].Score != nil {
			continue
		}
		eval := s.ScoreEssay(q, answers[i].Value().Text, q.Points)
		answers[i].Score = &eval.Score
		answers[i].Feedback = eval.Feedback
		correct := q.Points > 0 && eval.Score >= q.Points
		answers[i].IsCorrect = &correct
		if err := s.sessions.UpdateAnswer(&answers[i]); err != nil {
			return graded, err
		}
		graded++
	}
	return graded, nil
}
