package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"cbt_backend/internal/model"
	"cbt_backend/internal/scoring"
	"cbt_backend/internal/util"
	"cbt_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ResultStore is the persistence surface for finalized outcomes.
type ResultStore interface {
	Create(result *model.TestResult) error
	FindByID(id uint) (*model.TestResult, error)
	FindBySession(sessionID uint) (*model.TestResult, error)
	Update(result *model.TestResult) error
	ListByTest(testID uint, page, limit int) ([]model.TestResult, int64, error)
	ListAllByTest(testID uint) ([]model.TestResult, error)
	ListByStudent(studentID uint, page, limit int) ([]model.TestResult, int64, error)
	ListAllByStudent(studentID uint) ([]model.TestResult, error)
	PercentagesByTest(testID uint) ([]int, error)
}

// ResultSessionStore is the slice of session persistence result finalization
// touches.
type ResultSessionStore interface {
	FindByID(id uint) (*model.TestSession, error)
	Update(session *model.TestSession) error
	AnswersBySession(sessionID uint) ([]model.StudentAnswer, error)
	UpdateAnswer(answer *model.StudentAnswer) error
}

// UserReader loads users for notification and display.
type UserReader interface {
	FindByID(id uint) (*model.User, error)
}

// Notifier delivers outcome and invitation mail. Failures are logged and
// never block the calling transition.
type Notifier interface {
	SendResultEmail(student *model.User, test *model.Test, result *model.TestResult) error
	SendInvitationEmail(student *model.User, test *model.Test) error
}

// ResultComparison places one result against the rest of the class.
type ResultComparison struct {
	Percentile   int     `json:"percentile"`
	ClassAverage float64 `json:"classAverage"`
	ClassHigh    int     `json:"classHigh"`
	ClassLow     int     `json:"classLow"`
	Participants int     `json:"participants"`
}

// StudentPerformance summarizes one student's history across all tests,
// including the score trend over successive attempts.
type StudentPerformance struct {
	TotalTests       int     `json:"totalTests"`
	Passed           int     `json:"passed"`
	Failed           int     `json:"failed"`
	Average          float64 `json:"average"`
	Best             int     `json:"best"`
	Worst            int     `json:"worst"`
	ImprovementTrend float64 `json:"improvementTrend"`
}

// TestStatistics summarizes every finalized result for one test.
type TestStatistics struct {
	Participants int            `json:"participants"`
	Average      float64        `json:"average"`
	High         int            `json:"high"`
	Low          int            `json:"low"`
	PassRate     float64        `json:"passRate"`
	Grades       map[string]int `json:"grades"`
}

// ResultService finalizes terminal sessions into results and serves the
// comparative reporting built on top of them.
type ResultService struct {
	results  ResultStore
	sessions ResultSessionStore
	tests    TestReader
	users    UserReader
	notifier Notifier
	cache    Cache
	clock    Clock
}

func NewResultService(results ResultStore, sessions ResultSessionStore, tests TestReader, users UserReader, notifier Notifier, cache Cache, clock Clock) *ResultService {
	return &ResultService{
		results:  results,
		sessions: sessions,
		tests:    tests,
		users:    users,
		notifier: notifier,
		cache:    cache,
		clock:    clock,
	}
}

func percentagesCacheKey(testID uint) string {
	return fmt.Sprintf("cbt:results:test:%d:percentages", testID)
}

// CalculateResult finalizes a terminal session into its unique result. The
// call is idempotent: recalculating a session returns the result already on
// record instead of creating a second one.
func (s *ResultService) CalculateResult(sessionID uint) (*model.TestResult, error) {
	session, err := s.sessions.FindByID(sessionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &util.NotFoundError{Entity: "session", ID: sessionID}
		}
		return nil, err
	}
	if !session.Status.Terminal() {
		return nil, &util.InvalidStateError{Op: "calculate result", State: string(session.Status)}
	}

	if existing, err := s.results.FindBySession(sessionID); err == nil {
		return existing, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	test := session.Test
	if test == nil {
		if test, err = s.tests.FindByID(session.TestID); err != nil {
			return nil, err
		}
	}

	answers, err := s.sessions.AnswersBySession(sessionID)
	if err != nil {
		return nil, err
	}

	s.gradeAnswers(test, answers)
	summary := scoring.Aggregate(test.Questions, answers, test.PassingScore)

	result := &model.TestResult{
		SessionID:     session.ID,
		TestID:        test.ID,
		StudentID:     session.StudentID,
		TotalScore:    summary.TotalScore,
		TotalPossible: summary.TotalPossible,
		Percentage:    summary.Percentage,
		Grade:         summary.Grade,
		Status:        summary.Status,
	}
	if err := s.results.Create(result); err != nil {
		return nil, err
	}

	session.ResultID = &result.ID
	if err := s.sessions.Update(session); err != nil {
		return nil, err
	}

	s.cache.Delete(context.Background(), percentagesCacheKey(test.ID))

	if student, err := s.users.FindByID(session.StudentID); err == nil {
		if err := s.notifier.SendResultEmail(student, test, result); err != nil {
			logger.Log.Warn("result email failed",
				zap.Uint("resultId", result.ID), zap.Error(err))
		}
	}

	logger.Log.Info("test result calculated",
		zap.Uint("sessionId", session.ID),
		zap.Uint("resultId", result.ID),
		zap.Int("percentage", result.Percentage),
		zap.String("grade", result.Grade))
	return result, nil
}

// gradeAnswers writes per-answer score and correctness back onto the stored
// answers so review views can show a breakdown. Externally scored answers
// keep their supplied score.
func (s *ResultService) gradeAnswers(test *model.Test, answers []model.StudentAnswer) {
	byID := make(map[uint]*model.Question, len(test.Questions))
	for i := range test.Questions {
		byID[test.Questions[i].ID] = &test.Questions[i]
	}

	for i := range answers {
		q, ok := byID[answers[i].QuestionID]
		if !ok {
			continue
		}
		points := scoring.AnswerPoints(q, &answers[i])
		correct := q.Points > 0 && points >= q.Points
		answers[i].Score = &points
		answers[i].IsCorrect = &correct
		if err := s.sessions.UpdateAnswer(&answers[i]); err != nil {
			logger.Log.Warn("answer grade write failed",
				zap.Uint("answerId", answers[i].ID), zap.Error(err))
		}
	}
}

func (s *ResultService) GetResult(id uint) (*model.TestResult, error) {
	result, err := s.results.FindByID(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &util.NotFoundError{Entity: "result", ID: id}
		}
		return nil, err
	}
	return result, nil
}

func (s *ResultService) GetResultBySession(sessionID uint) (*model.TestResult, error) {
	result, err := s.results.FindBySession(sessionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &util.NotFoundError{Entity: "result"}
		}
		return nil, err
	}
	return result, nil
}

func (s *ResultService) ListByTest(testID uint, page, limit int) ([]model.TestResult, int64, error) {
	return s.results.ListByTest(testID, page, limit)
}

func (s *ResultService) ListByStudent(studentID uint, page, limit int) ([]model.TestResult, int64, error) {
	return s.results.ListByStudent(studentID, page, limit)
}

// Comparison computes the percentile and class envelope for one result over
// every result recorded for the same test. A tied score does not count
// against the percentile.
func (s *ResultService) Comparison(resultID uint) (*ResultComparison, error) {
	result, err := s.GetResult(resultID)
	if err != nil {
		return nil, err
	}

	percentages, err := s.testPercentages(result.TestID)
	if err != nil {
		return nil, err
	}
	if len(percentages) == 0 {
		return nil, &util.NotFoundError{Entity: "results for test", ID: result.TestID}
	}

	var sum, above int
	high, low := percentages[0], percentages[0]
	for _, p := range percentages {
		sum += p
		if p > result.Percentage {
			above++
		}
		if p > high {
			high = p
		}
		if p < low {
			low = p
		}
	}

	total := len(percentages)
	percentile := 100 - int(math.Round(float64(above)/float64(total)*100))
	return &ResultComparison{
		Percentile:   percentile,
		ClassAverage: math.Round(float64(sum)/float64(total)*100) / 100,
		ClassHigh:    high,
		ClassLow:     low,
		Participants: total,
	}, nil
}

// Statistics aggregates a test's results for the instructor dashboard.
func (s *ResultService) Statistics(testID uint) (*TestStatistics, error) {
	results, err := s.results.ListAllByTest(testID)
	if err != nil {
		return nil, err
	}

	stats := &TestStatistics{Grades: map[string]int{}}
	if len(results) == 0 {
		return stats, nil
	}

	var sum, passed int
	stats.High, stats.Low = results[0].Percentage, results[0].Percentage
	for _, r := range results {
		sum += r.Percentage
		if r.Percentage > stats.High {
			stats.High = r.Percentage
		}
		if r.Percentage < stats.Low {
			stats.Low = r.Percentage
		}
		if r.Status == model.ResultPass {
			passed++
		}
		stats.Grades[r.Grade]++
	}

	stats.Participants = len(results)
	stats.Average = math.Round(float64(sum)/float64(len(results))*100) / 100
	stats.PassRate = math.Round(float64(passed)/float64(len(results))*10000) / 100
	return stats, nil
}

// Performance summarizes a student's results across all their tests. The
// improvement trend is the least-squares slope of percentage over attempt
// index, in points per attempt; fewer than two results give a zero trend.
func (s *ResultService) Performance(studentID uint) (*StudentPerformance, error) {
	results, err := s.results.ListAllByStudent(studentID)
	if err != nil {
		return nil, err
	}

	perf := &StudentPerformance{}
	if len(results) == 0 {
		return perf, nil
	}

	var sum int
	perf.Best, perf.Worst = results[0].Percentage, results[0].Percentage
	for _, r := range results {
		sum += r.Percentage
		if r.Percentage > perf.Best {
			perf.Best = r.Percentage
		}
		if r.Percentage < perf.Worst {
			perf.Worst = r.Percentage
		}
		if r.Status == model.ResultPass {
			perf.Passed++
		} else {
			perf.Failed++
		}
	}

	perf.TotalTests = len(results)
	perf.Average = math.Round(float64(sum)/float64(len(results))*100) / 100
	perf.ImprovementTrend = improvementTrend(results)
	return perf, nil
}

// improvementTrend fits percentage against attempt index by simple linear
// regression and returns the slope, rounded to two decimals.
func improvementTrend(results []model.TestResult) float64 {
	n := len(results)
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, r := range results {
		x, y := float64(i), float64(r.Percentage)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	slope := (float64(n)*sumXY - sumX*sumY) / (float64(n)*sumX2 - sumX*sumX)
	return math.Round(slope*100) / 100
}

// AddFeedback records instructor review notes on a result.
func (s *ResultService) AddFeedback(resultID, reviewerID uint, feedback string) (*model.TestResult, error) {
	result, err := s.GetResult(resultID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	result.Feedback = feedback
	result.ReviewedByID = &reviewerID
	result.ReviewDate = &now
	if err := s.results.Update(result); err != nil {
		return nil, err
	}
	return result, nil
}

// Publish releases a result to the student.
func (s *ResultService) Publish(resultID uint) (*model.TestResult, error) {
	result, err := s.GetResult(resultID)
	if err != nil {
		return nil, err
	}
	if result.IsPublished {
		return result, nil
	}

	now := s.clock.Now()
	result.IsPublished = true
	result.PublishedAt = &now
	if err := s.results.Update(result); err != nil {
		return nil, err
	}
	return result, nil
}

// ExportCSV renders every result for a test as a CSV document.
func (s *ResultService) ExportCSV(testID uint) ([]byte, error) {
	results, err := s.results.ListAllByTest(testID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"student", "email", "score", "possible", "percentage", "grade", "status"}); err != nil {
		return nil, err
	}
	for _, r := range results {
		name, email := "", ""
		if r.Student != nil {
			name, email = r.Student.Name, r.Student.Email
		}
		record := []string{
			name,
			email,
			strconv.FormatFloat(r.TotalScore, 'f', 2, 64),
			strconv.FormatFloat(r.TotalPossible, 'f', 2, 64),
			strconv.Itoa(r.Percentage),
			r.Grade,
			string(r.Status),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *ResultService) testPercentages(testID uint) ([]int, error) {
	ctx := context.Background()
	key := percentagesCacheKey(testID)

	if cached, ok := s.cache.Get(ctx, key); ok {
		var percentages []int
		if err := json.Unmarshal([]byte(cached), &percentages); err == nil {
			return percentages, nil
		}
	}

	percentages, err := s.results.PercentagesByTest(testID)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(percentages); err == nil {
		s.cache.Set(ctx, key, string(raw), 5*time.Minute)
	}
	return percentages, nil
}
