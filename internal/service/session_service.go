package service

import (
	"time"

	"cbt_backend/internal/model"
	"cbt_backend/internal/util"
	"cbt_backend/pkg/logger"
	"cbt_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionStore is the persistence surface the session state machine needs.
// *repository.SessionRepository satisfies it; tests substitute an in-memory
// fake.
type SessionStore interface {
	Create(session *model.TestSession) error
	FindByID(id uint) (*model.TestSession, error)
	Update(session *model.TestSession) error
	FindActive(studentID, testID uint) (*model.TestSession, error)
	CountByStudentAndTest(studentID, testID uint) (int64, error)
	ListByStudent(studentID uint, page, limit int) ([]model.TestSession, int64, error)
	ListActiveByTest(testID uint) ([]model.TestSession, error)
	AnswersBySession(sessionID uint) ([]model.StudentAnswer, error)
	UpsertAnswer(answer *model.StudentAnswer) error
	UpdateCurrentQuestion(sessionID uint, index int) error
}

// TestReader loads test configuration for eligibility and timing checks.
type TestReader interface {
	FindByID(id uint) (*model.Test, error)
}

// TimeRemaining is the client-facing countdown snapshot.
type TimeRemaining struct {
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Expired bool `json:"expired"`
}

// SessionService drives a session through in-progress to one of the terminal
// states. There is no background expiry job; the deadline is re-derived from
// StartTime on every interaction and an overdue session is transitioned the
// next time it is touched.
type SessionService struct {
	sessions SessionStore
	tests    TestReader
	clock    Clock
}

func NewSessionService(sessions SessionStore, tests TestReader, clock Clock) *SessionService {
	return &SessionService{sessions: sessions, tests: tests, clock: clock}
}

// Deadline is the instant answers stop being accepted: start time plus the
// test duration plus any instructor-granted extension. The grace period is
// not part of the deadline; it only covers a final whole-session submit.
func Deadline(session *model.TestSession, test *model.Test) time.Time {
	return session.StartTime.
		Add(time.Duration(test.Duration) * time.Minute).
		Add(time.Duration(session.ExtraTimeMinutes) * time.Minute)
}

func graceEnd(session *model.TestSession, test *model.Test) time.Time {
	return Deadline(session, test).Add(time.Duration(test.GracePeriod) * time.Minute)
}

// CanStudentTakeTest reports re-attempt eligibility: no open session and
// fewer prior attempts than the test allows.
func (s *SessionService) CanStudentTakeTest(studentID, testID uint) (bool, error) {
	test, err := s.tests.FindByID(testID)
	if err != nil {
		return false, err
	}

	if _, err := s.sessions.FindActive(studentID, testID); err == nil {
		return false, nil
	} else if err != gorm.ErrRecordNotFound {
		return false, err
	}

	count, err := s.sessions.CountByStudentAndTest(studentID, testID)
	if err != nil {
		return false, err
	}
	return count < int64(test.MaxAttempts), nil
}

// StartSession opens a new attempt. Eligibility is rechecked here rather than
// trusting an earlier CanStudentTakeTest call.
func (s *SessionService) StartSession(studentID, testID uint, ip, userAgent string) (*model.TestSession, error) {
	test, err := s.tests.FindByID(testID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &util.NotFoundError{Entity: "test", ID: testID}
		}
		return nil, err
	}

	now := s.clock.Now()
	if test.Status != model.TestPublished {
		return nil, &util.EligibilityError{Reason: "test is not open for attempts"}
	}
	if !test.AvailableAt(now) {
		return nil, &util.EligibilityError{Reason: "test is outside its availability window"}
	}

	if _, err := s.sessions.FindActive(studentID, testID); err == nil {
		return nil, &util.EligibilityError{Reason: "an attempt is already in progress"}
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	count, err := s.sessions.CountByStudentAndTest(studentID, testID)
	if err != nil {
		return nil, err
	}
	if count >= int64(test.MaxAttempts) {
		return nil, &util.EligibilityError{Reason: "you have already used your attempts"}
	}

	session := &model.TestSession{
		TestID:        testID,
		StudentID:     studentID,
		StartTime:     now,
		Status:        model.SessionInProgress,
		AttemptNumber: int(count) + 1,
		IPAddress:     ip,
		UserAgent:     userAgent,
	}
	if err := s.sessions.Create(session); err != nil {
		return nil, err
	}

	monitoring.SessionsStarted.Inc()
	logger.Log.Info("test session started",
		zap.Uint("sessionId", session.ID),
		zap.Uint("testId", testID),
		zap.Uint("studentId", studentID),
		zap.Int("attempt", session.AttemptNumber))
	return session, nil
}

// GetSession returns the session with its test and answers, scoped to the
// owning student unless ownerID is zero (instructor access).
func (s *SessionService) GetSession(sessionID, ownerID uint) (*model.TestSession, error) {
	session, err := s.sessions.FindByID(sessionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &util.NotFoundError{Entity: "session", ID: sessionID}
		}
		return nil, err
	}
	if ownerID != 0 && session.StudentID != ownerID {
		return nil, &util.NotFoundError{Entity: "session", ID: sessionID}
	}
	return session, nil
}

// Remaining computes the countdown snapshot. It is a pure read; the session
// is not transitioned even when the deadline has passed.
func (s *SessionService) Remaining(session *model.TestSession, test *model.Test) TimeRemaining {
	now := s.clock.Now()
	deadline := Deadline(session, test)
	if session.Status.Terminal() || !now.Before(deadline) {
		return TimeRemaining{Expired: true}
	}
	left := deadline.Sub(now)
	return TimeRemaining{
		Minutes: int(left / time.Minute),
		Seconds: int(left/time.Second) % 60,
	}
}

// SaveAnswer upserts the student's answer for one question. The previous
// answer for the same question is replaced, last write wins. Past the
// deadline the session is expired as a side effect and the caller gets
// SessionExpiredError.
func (s *SessionService) SaveAnswer(sessionID, studentID, questionID uint, value model.AnswerValue, timeSpent int, markedForReview bool) (*model.StudentAnswer, error) {
	session, err := s.GetSession(sessionID, studentID)
	if err != nil {
		return nil, err
	}

	if session.Status.Terminal() {
		if session.Status == model.SessionExpired {
			return nil, &util.SessionExpiredError{SessionID: session.ID}
		}
		return nil, &util.InvalidStateError{Op: "submit answer", State: string(session.Status)}
	}

	test := session.Test
	if test == nil {
		if test, err = s.tests.FindByID(session.TestID); err != nil {
			return nil, err
		}
	}

	if !s.clock.Now().Before(Deadline(session, test)) {
		if err := s.expire(session); err != nil {
			return nil, err
		}
		return nil, &util.SessionExpiredError{SessionID: session.ID}
	}

	question := questionOnTest(test, questionID)
	if question == nil {
		return nil, util.NewValidationError("questionId", "question is not part of this test")
	}
	if err := value.Validate(question.Type); err != nil {
		return nil, util.NewValidationError("answer", err.Error())
	}
	if timeSpent < 0 {
		return nil, util.NewValidationError("timeSpent", "must not be negative")
	}

	answer := &model.StudentAnswer{
		SessionID:       session.ID,
		QuestionID:      questionID,
		TimeSpent:       timeSpent,
		MarkedForReview: markedForReview,
	}
	if err := answer.SetValue(value); err != nil {
		return nil, err
	}
	if err := s.sessions.UpsertAnswer(answer); err != nil {
		return nil, err
	}
	return answer, nil
}

// MarkProgress records the question index the student is currently on.
func (s *SessionService) MarkProgress(sessionID, studentID uint, index int) error {
	session, err := s.GetSession(sessionID, studentID)
	if err != nil {
		return err
	}
	if session.Status.Terminal() {
		return &util.InvalidStateError{Op: "update progress", State: string(session.Status)}
	}
	if index < 0 {
		return util.NewValidationError("currentQuestion", "must not be negative")
	}
	return s.sessions.UpdateCurrentQuestion(session.ID, index)
}

// Submit is the student-initiated terminal transition. A submit landing
// within the grace period after the deadline still counts as submitted; past
// the grace period the session is recorded as expired instead. Submitting an
// already-terminal session is a no-op returning the existing state.
func (s *SessionService) Submit(sessionID, studentID uint) (*model.TestSession, error) {
	session, err := s.GetSession(sessionID, studentID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return session, nil
	}

	test := session.Test
	if test == nil {
		if test, err = s.tests.FindByID(session.TestID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	status := model.SessionSubmitted
	if !now.Before(graceEnd(session, test)) {
		status = model.SessionExpired
	}
	return s.finish(session, status, now)
}

// Complete is the instructor or system initiated terminal transition.
// Idempotent on terminal sessions.
func (s *SessionService) Complete(sessionID uint) (*model.TestSession, error) {
	session, err := s.GetSession(sessionID, 0)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return session, nil
	}
	return s.finish(session, model.SessionCompleted, s.clock.Now())
}

// Extend grants extra minutes to an open session, pushing the deadline
// forward. Terminal sessions cannot be extended.
func (s *SessionService) Extend(sessionID uint, minutes int) (*model.TestSession, error) {
	session, err := s.GetSession(sessionID, 0)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, &util.InvalidStateError{Op: "extend session", State: string(session.Status)}
	}
	if minutes <= 0 {
		return nil, util.NewValidationError("minutes", "must be positive")
	}

	session.ExtraTimeMinutes += minutes
	if err := s.sessions.Update(session); err != nil {
		return nil, err
	}
	logger.Log.Info("session extended",
		zap.Uint("sessionId", session.ID),
		zap.Int("extraMinutes", minutes))
	return session, nil
}

// ListStudentSessions pages through a student's attempt history.
func (s *SessionService) ListStudentSessions(studentID uint, page, limit int) ([]model.TestSession, int64, error) {
	return s.sessions.ListByStudent(studentID, page, limit)
}

// ActiveSessions lists open sessions for a test, for live monitoring.
func (s *SessionService) ActiveSessions(testID uint) ([]model.TestSession, error) {
	return s.sessions.ListActiveByTest(testID)
}

func (s *SessionService) expire(session *model.TestSession) error {
	_, err := s.finish(session, model.SessionExpired, s.clock.Now())
	return err
}

func (s *SessionService) finish(session *model.TestSession, status model.SessionStatus, now time.Time) (*model.TestSession, error) {
	session.Status = status
	session.EndTime = &now
	if err := s.sessions.Update(session); err != nil {
		return nil, err
	}
	monitoring.SessionsFinished.WithLabelValues(string(status)).Inc()
	logger.Log.Info("test session finished",
		zap.Uint("sessionId", session.ID),
		zap.String("status", string(status)))
	return session, nil
}

func questionOnTest(test *model.Test, questionID uint) *model.Question {
	for i := range test.Questions {
		if test.Questions[i].ID == questionID {
			return &test.Questions[i]
		}
	}
	return nil
}
