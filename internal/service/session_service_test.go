package service

import (
	"testing"
	"time"

	"cbt_backend/internal/model"
	"cbt_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeTestStore struct {
	tests map[uint]*model.Test
}

func (f *fakeTestStore) FindByID(id uint) (*model.Test, error) {
	t, ok := f.tests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

type answerKey struct {
	sessionID  uint
	questionID uint
}

type fakeSessionStore struct {
	sessions map[uint]*model.TestSession
	answers  map[answerKey]*model.StudentAnswer
	nextID   uint
	updates  int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[uint]*model.TestSession),
		answers:  make(map[answerKey]*model.StudentAnswer),
	}
}

func (f *fakeSessionStore) Create(s *model.TestSession) error {
	f.nextID++
	s.ID = f.nextID
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionStore) FindByID(id uint) (*model.TestSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (f *fakeSessionStore) Update(s *model.TestSession) error {
	f.sessions[s.ID] = s
	f.updates++
	return nil
}

func (f *fakeSessionStore) FindActive(studentID, testID uint) (*model.TestSession, error) {
	for _, s := range f.sessions {
		if s.StudentID == studentID && s.TestID == testID && s.Status == model.SessionInProgress {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSessionStore) CountByStudentAndTest(studentID, testID uint) (int64, error) {
	var count int64
	for _, s := range f.sessions {
		if s.StudentID == studentID && s.TestID == testID {
			count++
		}
	}
	return count, nil
}

func (f *fakeSessionStore) ListByStudent(studentID uint, page, limit int) ([]model.TestSession, int64, error) {
	var out []model.TestSession
	for _, s := range f.sessions {
		if s.StudentID == studentID {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeSessionStore) ListActiveByTest(testID uint) ([]model.TestSession, error) {
	var out []model.TestSession
	for _, s := range f.sessions {
		if s.TestID == testID && s.Status == model.SessionInProgress {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) AnswersBySession(sessionID uint) ([]model.StudentAnswer, error) {
	var out []model.StudentAnswer
	for k, a := range f.answers {
		if k.sessionID == sessionID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) UpsertAnswer(a *model.StudentAnswer) error {
	key := answerKey{sessionID: a.SessionID, questionID: a.QuestionID}
	if prev, ok := f.answers[key]; ok {
		a.ID = prev.ID
	} else {
		f.nextID++
		a.ID = f.nextID
	}
	f.answers[key] = a
	return nil
}

func (f *fakeSessionStore) UpdateAnswer(a *model.StudentAnswer) error {
	f.answers[answerKey{sessionID: a.SessionID, questionID: a.QuestionID}] = a
	return nil
}

func (f *fakeSessionStore) UpdateCurrentQuestion(sessionID uint, index int) error {
	s, ok := f.sessions[sessionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.CurrentQuestion = index
	return nil
}

func sampleTest(id uint) *model.Test {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	test := &model.Test{
		Title:        "Midterm",
		Subject:      "Biology",
		Duration:     60,
		PassingScore: 70,
		MaxAttempts:  1,
		GracePeriod:  5,
		StartDate:    start,
		EndDate:      start.AddDate(0, 1, 0),
		Status:       model.TestPublished,
		Questions: []model.Question{
			{BaseModel: model.BaseModel{ID: 101}, Type: model.QuestionMCQ, Points: 2,
				Options: `["A","B","C"]`, CorrectAnswer: `"A"`},
			{BaseModel: model.BaseModel{ID: 102}, Type: model.QuestionMCQ, Points: 2,
				Options: `["A","B","C"]`, CorrectAnswer: `"B"`},
		},
	}
	test.ID = id
	return test
}

func newSessionFixture(t *testing.T) (*SessionService, *fakeSessionStore, *fixedClock) {
	t.Helper()
	store := newFakeSessionStore()
	tests := &fakeTestStore{tests: map[uint]*model.Test{1: sampleTest(1)}}
	clock := &fixedClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	return NewSessionService(store, tests, clock), store, clock
}

func TestStartSession(t *testing.T) {
	svc, _, _ := newSessionFixture(t)

	session, err := svc.StartSession(7, 1, "10.0.0.1", "firefox")
	require.NoError(t, err)
	assert.Equal(t, model.SessionInProgress, session.Status)
	assert.Equal(t, 1, session.AttemptNumber)
	assert.Equal(t, uint(7), session.StudentID)
}

func TestStartSessionEligibility(t *testing.T) {
	t.Run("unpublished test", func(t *testing.T) {
		svc, _, _ := newSessionFixture(t)
		svc.tests.(*fakeTestStore).tests[1].Status = model.TestDraft

		_, err := svc.StartSession(7, 1, "", "")
		var eligibility *util.EligibilityError
		assert.ErrorAs(t, err, &eligibility)
	})

	t.Run("outside test window", func(t *testing.T) {
		svc, _, clock := newSessionFixture(t)
		clock.now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

		_, err := svc.StartSession(7, 1, "", "")
		var eligibility *util.EligibilityError
		assert.ErrorAs(t, err, &eligibility)
	})

	t.Run("attempt already in progress", func(t *testing.T) {
		svc, _, _ := newSessionFixture(t)
		_, err := svc.StartSession(7, 1, "", "")
		require.NoError(t, err)

		_, err = svc.StartSession(7, 1, "", "")
		var eligibility *util.EligibilityError
		assert.ErrorAs(t, err, &eligibility)
	})

	t.Run("unknown test", func(t *testing.T) {
		svc, _, _ := newSessionFixture(t)
		_, err := svc.StartSession(7, 99, "", "")
		var notFound *util.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

// maxAttempts=1: after one terminal session the student is done.
func TestSecondAttemptAfterTerminalSession(t *testing.T) {
	svc, _, _ := newSessionFixture(t)

	session, err := svc.StartSession(7, 1, "", "")
	require.NoError(t, err)
	_, err = svc.Submit(session.ID, 7)
	require.NoError(t, err)

	ok, err := svc.CanStudentTakeTest(7, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.StartSession(7, 1, "", "")
	var eligibility *util.EligibilityError
	assert.ErrorAs(t, err, &eligibility)
}

func TestCanStudentTakeTest(t *testing.T) {
	svc, _, _ := newSessionFixture(t)
	svc.tests.(*fakeTestStore).tests[1].MaxAttempts = 2

	ok, err := svc.CanStudentTakeTest(7, 1)
	require.NoError(t, err)
	assert.True(t, ok, "no sessions yet")

	session, err := svc.StartSession(7, 1, "", "")
	require.NoError(t, err)

	ok, err = svc.CanStudentTakeTest(7, 1)
	require.NoError(t, err)
	assert.False(t, ok, "open session blocks regardless of attempt count")

	_, err = svc.Submit(session.ID, 7)
	require.NoError(t, err)

	ok, err = svc.CanStudentTakeTest(7, 1)
	require.NoError(t, err)
	assert.True(t, ok, "one attempt left")

	session, err = svc.StartSession(7, 1, "", "")
	require.NoError(t, err)
	_, err = svc.Submit(session.ID, 7)
	require.NoError(t, err)

	ok, err = svc.CanStudentTakeTest(7, 1)
	require.NoError(t, err)
	assert.False(t, ok, "attempts exhausted")
}

func TestSaveAnswer(t *testing.T) {
	svc, store, _ := newSessionFixture(t)
	session, err := svc.StartSession(7, 1, "", "")
	require.NoError(t, err)

	_, err = svc.SaveAnswer(session.ID, 7, 101, model.AnswerValue{Choices: []string{"A"}}, 30, false)
	require.NoError(t, err)

	answers, err := store.AnswersBySession(session.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, []string{"A"}, answers[0].Value().Choices)
}

func TestSaveAnswerLastWriteWins(t *testing.T) {
	svc, store, _ := newSessionFixture(t)
	session, err := svc.StartSession(7, 1, "", "")
	require.NoError(t, err)

	_, err = svc.SaveAnswer(session.ID, 7, 101, model.AnswerValue{Choices: []string{"A"}}, 30, false)
	require.NoError(t, err)
	_, err = svc.SaveAnswer(session.ID, 7, 101, model.AnswerValue{Choices: []string{"C"}}, 45, true)
	require.NoError(t, err)

	answers, err := store.AnswersBySession(session.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1, "re-answering replaces, never duplicates")
	assert.Equal(t, []string{"C"}, answers[0].Value().Choices)
	assert.True(t, answers[0].MarkedForReview)
}

func TestSaveAnswerValidation(t *testing.T) {
	svc, _, _ := newSessionFixture(t)
	session, err := svc.StartSession(7, 1, "", "")
	require.NoError(t, err)

	var validation *util.ValidationError

	_, err = svc.SaveAnswer(session.ID, 7, 999, model.AnswerValue{Choices: []string{"A"}}, 0, false)
	assert.ErrorAs(t, err, &validation, "question not on test")

	_, err = svc.SaveAnswer(session.ID, 7, 101, model.AnswerValue{Text: "A"}, 0, false)
	assert.ErrorAs(t, err, &validation, "wrong payload shape for mcq")

	_, err = svc.SaveAnswer(session.ID, 7, 101, model.AnswerValue{Choices: []string{"A"}}, -5, false)
	assert.ErrorAs(t, err, &validation, "negative time spent")

	_, err = svc.SaveAnswer(session.ID, 99, 101, model.AnswerValue{Choices: []string{"A"}}, 0, false)
	var notFound *util.NotFoundError
	assert.ErrorAs(t, err, &notFound, "session hidden from non-owner")
}

// duration=60, grace=5: three minutes past the deadline the countdown reports
// expired, answering fails and flips the session to expired, but a fresh
// session submitted in the same window still lands as submitted.
func TestExpiryPastDeadline(t *testing.T) {
	svc, store, clock := newSessionFixture(t)
	session, err := svc.StartSession(7, 1, "", "")
	require.NoError(t, err)

	clock.Advance(63 * time.Minute)

	remaining := svc.Remaining(session, svc.tests.(*fakeTestStore).tests[1])
	assert.True(t, remaining.Expired)

	_, err = svc.SaveAnswer(session.ID, 7, 101, model.AnswerValue{Choices: []string{"A"}}, 0, false)
	var expired *util.SessionExpiredError
	require.ErrorAs(t, err, &expired)
	assert.Equal(t, model.SessionExpired, store.sessions[session.ID].Status)

	// A later answer against the now-expired session keeps failing the same way.
	_, err = svc.SaveAnswer(session.ID, 7, 102, model.AnswerValue{Choices: []string{"B"}}, 0, false)
	assert.ErrorAs(t, err, &expired)
}

func TestSubmitWithinGracePeriod(t *testing.T) {
	svc, _, clock := newSessionFixture(t)
	session, err := svc.StartSession(7, 1, "", "")
	require.NoError(t, err)

	clock.Advance(63 * time.Minute)

	submitted, err := svc.Submit(session.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, model.SessionSubmitted, submitted.Status)
	require.NotNil(t, submitted.EndTime)
	assert.Equal(t, clock.now, *submitted.EndTime)
}

func TestSubmitPastGracePeriod(t *testing.T) {
	svc, _, clock := newSessionFixture(t)
	session, err := svc.StartSession(7, 1, "", "")
	require.NoError(t, err)

	clock.Advance(66 * time.Minute)

	submitted, err := svc.Submit(session.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, model.SessionExpired, submitted.Status)
}

func TestSubmitIdempotent(t *testing.T) {
	svc, store, clock := newSessionFixture(t)
	session, err := svc.StartSession(7, 1, "", "")
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	first, err := svc.Submit(session.ID, 7)
	require.NoError(t, err)
	firstEnd := *first.EndTime
	updatesAfterFirst := store.updates

	clock.Advance(10 * time.Minute)
	second, err := svc.Submit(session.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, model.SessionSubmitted, second.Status)
	assert.Equal(t, firstEnd, *second.EndTime, "terminal state untouched")
	assert.Equal(t, updatesAfterFirst, store.updates, "no second write")
}

func TestComplete(t *testing.T) {
	svc, _, _ := newSessionFixture(t)
	session, err := svc.StartSession(7, 1, "", "")
	require.NoError(t, err)

	completed, err := svc.Complete(session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, completed.Status)

	again, err := svc.Complete(session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, again.Status)
}

func TestExtend(t *testing.T) {
	svc, _, clock := newSessionFixture(t)
	session, err := svc.StartSession(7, 1, "", "")
	require.NoError(t, err)

	_, err = svc.Extend(session.ID, 15)
	require.NoError(t, err)

	// 70 minutes in, within the extended 75-minute deadline.
	clock.Advance(70 * time.Minute)
	_, err = svc.SaveAnswer(session.ID, 7, 101, model.AnswerValue{Choices: []string{"A"}}, 0, false)
	assert.NoError(t, err)

	remaining := svc.Remaining(session, svc.tests.(*fakeTestStore).tests[1])
	assert.False(t, remaining.Expired)
	assert.Equal(t, 5, remaining.Minutes)
}

func TestExtendTerminalSession(t *testing.T) {
	svc, _, _ := newSessionFixture(t)
	session, err := svc.StartSession(7, 1, "", "")
	require.NoError(t, err)
	_, err = svc.Submit(session.ID, 7)
	require.NoError(t, err)

	_, err = svc.Extend(session.ID, 15)
	var invalidState *util.InvalidStateError
	assert.ErrorAs(t, err, &invalidState)
}

func TestRemainingCountdown(t *testing.T) {
	svc, _, clock := newSessionFixture(t)
	session, err := svc.StartSession(7, 1, "", "")
	require.NoError(t, err)
	test := svc.tests.(*fakeTestStore).tests[1]

	clock.Advance(30*time.Minute + 15*time.Second)
	remaining := svc.Remaining(session, test)
	assert.False(t, remaining.Expired)
	assert.Equal(t, 29, remaining.Minutes)
	assert.Equal(t, 45, remaining.Seconds)
}

func TestMarkProgress(t *testing.T) {
	svc, store, _ := newSessionFixture(t)
	session, err := svc.StartSession(7, 1, "", "")
	require.NoError(t, err)

	require.NoError(t, svc.MarkProgress(session.ID, 7, 3))
	assert.Equal(t, 3, store.sessions[session.ID].CurrentQuestion)

	_, err = svc.Submit(session.ID, 7)
	require.NoError(t, err)
	err = svc.MarkProgress(session.ID, 7, 4)
	var invalidState *util.InvalidStateError
	assert.ErrorAs(t, err, &invalidState)
}
