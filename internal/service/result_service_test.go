package service

import (
	"errors"
	"testing"
	"time"

	"cbt_backend/internal/model"
	"cbt_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeResultStore struct {
	results map[uint]*model.TestResult
	nextID  uint
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{results: make(map[uint]*model.TestResult)}
}

func (f *fakeResultStore) Create(r *model.TestResult) error {
	for _, existing := range f.results {
		if existing.SessionID == r.SessionID {
			return errors.New("duplicate session_id")
		}
	}
	f.nextID++
	r.ID = f.nextID
	f.results[r.ID] = r
	return nil
}

func (f *fakeResultStore) FindByID(id uint) (*model.TestResult, error) {
	r, ok := f.results[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakeResultStore) FindBySession(sessionID uint) (*model.TestResult, error) {
	for _, r := range f.results {
		if r.SessionID == sessionID {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeResultStore) Update(r *model.TestResult) error {
	f.results[r.ID] = r
	return nil
}

func (f *fakeResultStore) ListByTest(testID uint, page, limit int) ([]model.TestResult, int64, error) {
	all, err := f.ListAllByTest(testID)
	return all, int64(len(all)), err
}

func (f *fakeResultStore) ListAllByTest(testID uint) ([]model.TestResult, error) {
	var out []model.TestResult
	for _, r := range f.results {
		if r.TestID == testID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeResultStore) ListByStudent(studentID uint, page, limit int) ([]model.TestResult, int64, error) {
	var out []model.TestResult
	for _, r := range f.results {
		if r.StudentID == studentID {
			out = append(out, *r)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeResultStore) ListAllByStudent(studentID uint) ([]model.TestResult, error) {
	var out []model.TestResult
	for id := uint(1); id <= f.nextID; id++ {
		if r, ok := f.results[id]; ok && r.StudentID == studentID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeResultStore) PercentagesByTest(testID uint) ([]int, error) {
	var out []int
	for _, r := range f.results {
		if r.TestID == testID {
			out = append(out, r.Percentage)
		}
	}
	return out, nil
}

type fakeUserStore struct {
	users map[uint]*model.User
}

func (f *fakeUserStore) FindByID(id uint) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

type fakeNotifier struct {
	resultEmails     int
	invitationEmails int
	fail             bool
}

func (f *fakeNotifier) SendResultEmail(*model.User, *model.Test, *model.TestResult) error {
	f.resultEmails++
	if f.fail {
		return errors.New("smtp unavailable")
	}
	return nil
}

func (f *fakeNotifier) SendInvitationEmail(*model.User, *model.Test) error {
	f.invitationEmails++
	if f.fail {
		return errors.New("smtp unavailable")
	}
	return nil
}

type resultFixture struct {
	svc      *ResultService
	sessions *SessionService
	store    *fakeSessionStore
	results  *fakeResultStore
	notifier *fakeNotifier
	clock    *fixedClock
}

func newResultFixture(t *testing.T) *resultFixture {
	t.Helper()
	store := newFakeSessionStore()
	results := newFakeResultStore()
	tests := &fakeTestStore{tests: map[uint]*model.Test{1: sampleTest(1)}}
	users := &fakeUserStore{users: map[uint]*model.User{
		7: {BaseModel: model.BaseModel{ID: 7}, Name: "Dana", Email: "dana@example.com"},
	}}
	notifier := &fakeNotifier{}
	clock := &fixedClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}

	return &resultFixture{
		svc:      NewResultService(results, store, tests, users, notifier, NewNoopCache(), clock),
		sessions: NewSessionService(store, tests, clock),
		store:    store,
		results:  results,
		notifier: notifier,
		clock:    clock,
	}
}

// finishedSession drives a full attempt: answer, advance the clock, submit.
func (f *resultFixture) finishedSession(t *testing.T, studentID uint, answers map[uint][]string) *model.TestSession {
	t.Helper()
	session, err := f.sessions.StartSession(studentID, 1, "", "")
	require.NoError(t, err)
	for qid, choices := range answers {
		_, err := f.sessions.SaveAnswer(session.ID, studentID, qid, model.AnswerValue{Choices: choices}, 10, false)
		require.NoError(t, err)
	}
	session, err = f.sessions.Submit(session.ID, studentID)
	require.NoError(t, err)
	return session
}

// Two 2-point mcq questions, passing score 70: a perfect attempt is 100/A and
// a half-right attempt is 50/F.
func TestCalculateResult(t *testing.T) {
	t.Run("all correct", func(t *testing.T) {
		f := newResultFixture(t)
		session := f.finishedSession(t, 7, map[uint][]string{101: {"A"}, 102: {"B"}})

		result, err := f.svc.CalculateResult(session.ID)
		require.NoError(t, err)
		assert.Equal(t, 4.0, result.TotalScore)
		assert.Equal(t, 4.0, result.TotalPossible)
		assert.Equal(t, 100, result.Percentage)
		assert.Equal(t, "A", result.Grade)
		assert.Equal(t, model.ResultPass, result.Status)
	})

	t.Run("one correct one wrong", func(t *testing.T) {
		f := newResultFixture(t)
		session := f.finishedSession(t, 7, map[uint][]string{101: {"A"}, 102: {"C"}})

		result, err := f.svc.CalculateResult(session.ID)
		require.NoError(t, err)
		assert.Equal(t, 50, result.Percentage)
		assert.Equal(t, "F", result.Grade)
		assert.Equal(t, model.ResultFail, result.Status)
	})
}

func TestCalculateResultRequiresTerminalSession(t *testing.T) {
	f := newResultFixture(t)
	session, err := f.sessions.StartSession(7, 1, "", "")
	require.NoError(t, err)

	_, err = f.svc.CalculateResult(session.ID)
	var invalidState *util.InvalidStateError
	assert.ErrorAs(t, err, &invalidState)
}

func TestCalculateResultIdempotent(t *testing.T) {
	f := newResultFixture(t)
	session := f.finishedSession(t, 7, map[uint][]string{101: {"A"}})

	first, err := f.svc.CalculateResult(session.ID)
	require.NoError(t, err)
	second, err := f.svc.CalculateResult(session.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "no second result row")
	assert.Len(t, f.results.results, 1)
	assert.Equal(t, 1, f.notifier.resultEmails, "email sent once")
}

func TestCalculateResultLinksSession(t *testing.T) {
	f := newResultFixture(t)
	session := f.finishedSession(t, 7, map[uint][]string{101: {"A"}})

	result, err := f.svc.CalculateResult(session.ID)
	require.NoError(t, err)

	stored := f.store.sessions[session.ID]
	require.NotNil(t, stored.ResultID)
	assert.Equal(t, result.ID, *stored.ResultID)
}

func TestCalculateResultGradesAnswers(t *testing.T) {
	f := newResultFixture(t)
	session := f.finishedSession(t, 7, map[uint][]string{101: {"A"}, 102: {"C"}})

	_, err := f.svc.CalculateResult(session.ID)
	require.NoError(t, err)

	answers, err := f.store.AnswersBySession(session.ID)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	for _, a := range answers {
		require.NotNil(t, a.Score)
		require.NotNil(t, a.IsCorrect)
		if a.QuestionID == 101 {
			assert.Equal(t, 2.0, *a.Score)
			assert.True(t, *a.IsCorrect)
		} else {
			assert.Zero(t, *a.Score)
			assert.False(t, *a.IsCorrect)
		}
	}
}

func TestCalculateResultEmailFailureIsNonFatal(t *testing.T) {
	f := newResultFixture(t)
	f.notifier.fail = true
	session := f.finishedSession(t, 7, map[uint][]string{101: {"A"}})

	result, err := f.svc.CalculateResult(session.ID)
	require.NoError(t, err)
	assert.NotZero(t, result.ID)
}

func TestComparison(t *testing.T) {
	f := newResultFixture(t)

	// Percentages on record: 100, 50, 50, 0.
	students := map[uint]map[uint][]string{
		7:  {101: {"A"}, 102: {"B"}},
		8:  {101: {"A"}, 102: {"C"}},
		9:  {101: {"C"}, 102: {"B"}},
		10: {101: {"C"}, 102: {"A"}},
	}
	resultIDs := make(map[uint]uint)
	for studentID, answers := range students {
		session := f.finishedSession(t, studentID, answers)
		result, err := f.svc.CalculateResult(session.ID)
		require.NoError(t, err)
		resultIDs[studentID] = result.ID
	}

	t.Run("top score", func(t *testing.T) {
		cmp, err := f.svc.Comparison(resultIDs[7])
		require.NoError(t, err)
		assert.Equal(t, 100, cmp.Percentile)
		assert.Equal(t, 50.0, cmp.ClassAverage)
		assert.Equal(t, 100, cmp.ClassHigh)
		assert.Equal(t, 0, cmp.ClassLow)
		assert.Equal(t, 4, cmp.Participants)
	})

	t.Run("tie not counted as above", func(t *testing.T) {
		// One of four scored above 50; the tied 50 is excluded.
		cmp, err := f.svc.Comparison(resultIDs[8])
		require.NoError(t, err)
		assert.Equal(t, 75, cmp.Percentile)
	})

	t.Run("bottom score", func(t *testing.T) {
		cmp, err := f.svc.Comparison(resultIDs[10])
		require.NoError(t, err)
		assert.Equal(t, 25, cmp.Percentile)
	})
}

func TestStatisticsBasic(t *testing.T) {
	f := newResultFixture(t)

	for studentID, answers := range map[uint]map[uint][]string{
		7: {101: {"A"}, 102: {"B"}},
		8: {101: {"A"}, 102: {"C"}},
	} {
		session := f.finishedSession(t, studentID, answers)
		_, err := f.svc.CalculateResult(session.ID)
		require.NoError(t, err)
	}

	stats, err := f.svc.Statistics(1)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Participants)
	assert.Equal(t, 75.0, stats.Average)
	assert.Equal(t, 100, stats.High)
	assert.Equal(t, 50, stats.Low)
	assert.Equal(t, 50.0, stats.PassRate)
	assert.Equal(t, map[string]int{"A": 1, "F": 1}, stats.Grades)
}

func TestStudentPerformance(t *testing.T) {
	seed := func(t *testing.T, f *resultFixture, percentages []int) {
		t.Helper()
		for i, pct := range percentages {
			status := model.ResultFail
			if pct >= 70 {
				status = model.ResultPass
			}
			require.NoError(t, f.results.Create(&model.TestResult{
				SessionID:  uint(i + 1),
				TestID:     1,
				StudentID:  7,
				Percentage: pct,
				Status:     status,
			}))
		}
	}

	tests := []struct {
		name        string
		percentages []int
		want        StudentPerformance
	}{
		{
			name: "no results",
			want: StudentPerformance{},
		},
		{
			name:        "single result has no trend",
			percentages: []int{80},
			want: StudentPerformance{
				TotalTests: 1, Passed: 1,
				Average: 80, Best: 80, Worst: 80,
			},
		},
		{
			name:        "steady improvement",
			percentages: []int{50, 60, 70, 80},
			want: StudentPerformance{
				TotalTests: 4, Passed: 2, Failed: 2,
				Average: 65, Best: 80, Worst: 50,
				ImprovementTrend: 10,
			},
		},
		{
			name:        "flat scores",
			percentages: []int{70, 70, 70},
			want: StudentPerformance{
				TotalTests: 3, Passed: 3,
				Average: 70, Best: 70, Worst: 70,
			},
		},
		{
			name:        "declining scores",
			percentages: []int{90, 70, 50},
			want: StudentPerformance{
				TotalTests: 3, Passed: 2, Failed: 1,
				Average: 70, Best: 90, Worst: 50,
				ImprovementTrend: -20,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResultFixture(t)
			seed(t, f, tt.percentages)

			perf, err := f.svc.Performance(7)
			require.NoError(t, err)
			assert.Equal(t, &tt.want, perf)
		})
	}
}

func TestStatisticsEmptyTest(t *testing.T) {
	f := newResultFixture(t)
	stats, err := f.svc.Statistics(1)
	require.NoError(t, err)
	assert.Zero(t, stats.Participants)
	assert.Zero(t, stats.Average)
}

func TestAddFeedbackAndPublish(t *testing.T) {
	f := newResultFixture(t)
	session := f.finishedSession(t, 7, map[uint][]string{101: {"A"}})
	result, err := f.svc.CalculateResult(session.ID)
	require.NoError(t, err)

	reviewed, err := f.svc.AddFeedback(result.ID, 2, "solid work")
	require.NoError(t, err)
	assert.Equal(t, "solid work", reviewed.Feedback)
	require.NotNil(t, reviewed.ReviewedByID)
	assert.Equal(t, uint(2), *reviewed.ReviewedByID)
	assert.NotNil(t, reviewed.ReviewDate)

	published, err := f.svc.Publish(result.ID)
	require.NoError(t, err)
	assert.True(t, published.IsPublished)
	firstPublish := *published.PublishedAt

	f.clock.Advance(time.Hour)
	again, err := f.svc.Publish(result.ID)
	require.NoError(t, err)
	assert.Equal(t, firstPublish, *again.PublishedAt, "publish is idempotent")
}

func TestExportCSV(t *testing.T) {
	f := newResultFixture(t)
	session := f.finishedSession(t, 7, map[uint][]string{101: {"A"}, 102: {"B"}})
	_, err := f.svc.CalculateResult(session.ID)
	require.NoError(t, err)

	out, err := f.svc.ExportCSV(1)
	require.NoError(t, err)
	assert.Contains(t, string(out), "student,email,score,possible,percentage,grade,status")
	assert.Contains(t, string(out), "100,A,pass")
}
