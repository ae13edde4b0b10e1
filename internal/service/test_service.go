package service

import (
	"math/rand"

	"cbt_backend/internal/model"
	"cbt_backend/internal/repository"
	"cbt_backend/internal/util"
	"cbt_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TestService owns the authoring workflow: draft tests, question assignment,
// publication and class targeting.
type TestService struct {
	testRepo     *repository.TestRepository
	questionRepo *repository.QuestionRepository
	classRepo    *repository.ClassRepository
	userRepo     *repository.UserRepository
	notifier     Notifier
	clock        Clock
}

func NewTestService(testRepo *repository.TestRepository, questionRepo *repository.QuestionRepository, classRepo *repository.ClassRepository, userRepo *repository.UserRepository, notifier Notifier, clock Clock) *TestService {
	return &TestService{
		testRepo:     testRepo,
		questionRepo: questionRepo,
		classRepo:    classRepo,
		userRepo:     userRepo,
		notifier:     notifier,
		clock:        clock,
	}
}

// ValidateTest checks the authoring invariants shared by create and update.
func ValidateTest(t *model.Test) error {
	var fields []util.FieldError
	add := func(field, msg string) {
		fields = append(fields, util.FieldError{Field: field, Message: msg})
	}

	if t.Title == "" {
		add("title", "is required")
	}
	if t.Subject == "" {
		add("subject", "is required")
	}
	if t.Duration <= 0 {
		add("duration", "must be positive")
	}
	if t.PassingScore <= 0 || t.PassingScore > 100 {
		add("passingScore", "must be in (0, 100]")
	}
	if t.MaxAttempts < 1 {
		add("maxAttempts", "must be at least 1")
	}
	if t.GracePeriod < 0 {
		add("gracePeriod", "must not be negative")
	}
	if t.StartDate.IsZero() || t.EndDate.IsZero() {
		add("startDate", "start and end dates are required")
	} else if !t.StartDate.Before(t.EndDate) {
		add("endDate", "must be after start date")
	}

	if len(fields) > 0 {
		return &util.ValidationError{Fields: fields}
	}
	return nil
}

func (s *TestService) CreateTest(instructorID uint, test *model.Test) (*model.Test, error) {
	test.InstructorID = instructorID
	test.Status = model.TestDraft
	if err := ValidateTest(test); err != nil {
		return nil, err
	}
	if err := s.testRepo.Create(test); err != nil {
		return nil, err
	}
	return test, nil
}

func (s *TestService) GetTest(id uint) (*model.Test, error) {
	test, err := s.testRepo.FindByID(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &util.NotFoundError{Entity: "test", ID: id}
		}
		return nil, err
	}
	return test, nil
}

// UpdateTest edits test configuration. Published tests only accept the
// fields that do not change what students already see.
func (s *TestService) UpdateTest(id uint, updated *model.Test) (*model.Test, error) {
	test, err := s.GetTest(id)
	if err != nil {
		return nil, err
	}
	if test.Status == model.TestArchived {
		return nil, &util.InvalidStateError{Op: "update test", State: string(test.Status)}
	}

	test.Title = updated.Title
	test.Description = updated.Description
	test.Subject = updated.Subject
	test.Duration = updated.Duration
	test.PassingScore = updated.PassingScore
	test.MaxAttempts = updated.MaxAttempts
	test.GracePeriod = updated.GracePeriod
	test.ShuffleQuestions = updated.ShuffleQuestions
	test.AllowReview = updated.AllowReview
	test.NegativeMarking = updated.NegativeMarking
	test.NegativeMarkingValue = updated.NegativeMarkingValue
	test.StartDate = updated.StartDate
	test.EndDate = updated.EndDate

	if err := ValidateTest(test); err != nil {
		return nil, err
	}
	if err := s.testRepo.Update(test); err != nil {
		return nil, err
	}
	return test, nil
}

// SetQuestions replaces the test's question set. Only drafts may change
// their questions.
func (s *TestService) SetQuestions(testID uint, questionIDs []uint) (*model.Test, error) {
	test, err := s.GetTest(testID)
	if err != nil {
		return nil, err
	}
	if test.Status != model.TestDraft {
		return nil, &util.InvalidStateError{Op: "change questions", State: string(test.Status)}
	}

	questions, err := s.questionRepo.FindByIDs(questionIDs)
	if err != nil {
		return nil, err
	}
	if len(questions) != len(questionIDs) {
		return nil, util.NewValidationError("questionIds", "one or more questions do not exist")
	}

	if err := s.testRepo.ReplaceQuestions(test, questions); err != nil {
		return nil, err
	}
	test.Questions = questions
	return test, nil
}

// Publish moves a draft live and invites the assigned classes. Invitation
// failures are logged, never returned.
func (s *TestService) Publish(testID uint) (*model.Test, error) {
	test, err := s.GetTest(testID)
	if err != nil {
		return nil, err
	}
	if test.Status != model.TestDraft {
		return nil, &util.InvalidStateError{Op: "publish test", State: string(test.Status)}
	}
	if len(test.Questions) == 0 {
		return nil, util.NewValidationError("questions", "a test needs at least one question before publishing")
	}
	if err := ValidateTest(test); err != nil {
		return nil, err
	}

	if err := s.testRepo.SetStatus(testID, model.TestPublished); err != nil {
		return nil, err
	}
	test.Status = model.TestPublished

	s.inviteClasses(test)

	logger.Log.Info("test published",
		zap.Uint("testId", test.ID), zap.String("title", test.Title))
	return test, nil
}

func (s *TestService) inviteClasses(test *model.Test) {
	if len(test.Classes) == 0 {
		return
	}
	classIDs := make([]uint, len(test.Classes))
	for i, c := range test.Classes {
		classIDs[i] = c.ID
	}

	studentIDs, err := s.classRepo.StudentIDs(classIDs)
	if err != nil {
		logger.Log.Warn("invitation lookup failed", zap.Uint("testId", test.ID), zap.Error(err))
		return
	}
	for _, id := range studentIDs {
		student, err := s.userRepo.FindByID(id)
		if err != nil {
			continue
		}
		if err := s.notifier.SendInvitationEmail(student, test); err != nil {
			logger.Log.Warn("invitation email failed",
				zap.Uint("testId", test.ID), zap.Uint("studentId", id), zap.Error(err))
		}
	}
}

func (s *TestService) Archive(testID uint) (*model.Test, error) {
	test, err := s.GetTest(testID)
	if err != nil {
		return nil, err
	}
	if test.Status == model.TestArchived {
		return test, nil
	}
	if err := s.testRepo.SetStatus(testID, model.TestArchived); err != nil {
		return nil, err
	}
	test.Status = model.TestArchived
	return test, nil
}

// DeleteTest removes a draft. Published or archived tests keep their history.
func (s *TestService) DeleteTest(testID uint) error {
	test, err := s.GetTest(testID)
	if err != nil {
		return err
	}
	if test.Status != model.TestDraft {
		return &util.InvalidStateError{Op: "delete test", State: string(test.Status)}
	}
	return s.testRepo.Delete(testID)
}

func (s *TestService) ListTests(instructorID uint, status model.TestStatus, subject string, page, limit int) ([]model.Test, int64, error) {
	return s.testRepo.List(instructorID, status, subject, page, limit)
}

// ListAvailableForStudent returns published tests assigned to any class the
// student belongs to.
func (s *TestService) ListAvailableForStudent(studentID uint, page, limit int) ([]model.Test, int64, error) {
	classIDs, err := s.classRepo.ClassIDsForStudent(studentID)
	if err != nil {
		return nil, 0, err
	}
	if len(classIDs) == 0 {
		return nil, 0, nil
	}
	return s.testRepo.ListPublishedForClasses(classIDs, page, limit)
}

func (s *TestService) AssignClass(testID, classID uint) error {
	if _, err := s.GetTest(testID); err != nil {
		return err
	}
	if _, err := s.classRepo.FindByID(classID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return &util.NotFoundError{Entity: "class", ID: classID}
		}
		return err
	}
	return s.testRepo.AssignClass(testID, classID)
}

func (s *TestService) UnassignClass(testID, classID uint) error {
	return s.testRepo.UnassignClass(testID, classID)
}

// TakingOrder returns the question order a student sees, shuffled per
// session when the test asks for it.
func TakingOrder(test *model.Test, seed int64) []model.Question {
	questions := make([]model.Question, len(test.Questions))
	copy(questions, test.Questions)
	if test.ShuffleQuestions {
		r := rand.New(rand.NewSource(seed))
		r.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}
	return questions
}

// StudentQuestionView is a question stripped of correctness data for
// delivery to a test taker. Matching options are presented as two lists with
// the right side shuffled.
type StudentQuestionView struct {
	ID       uint               `json:"id"`
	Text     string             `json:"text"`
	Type     model.QuestionType `json:"type"`
	Points   float64            `json:"points"`
	Options  []string           `json:"options,omitempty"`
	Lefts    []string           `json:"lefts,omitempty"`
	Rights   []string           `json:"rights,omitempty"`
	ImageURL string             `json:"imageUrl,omitempty"`
	Hint     string             `json:"hint,omitempty"`
}

func NewStudentQuestionView(q *model.Question, seed int64) StudentQuestionView {
	view := StudentQuestionView{
		ID:       q.ID,
		Text:     q.Text,
		Type:     q.Type,
		Points:   q.Points,
		Options:  q.OptionList(),
		ImageURL: q.ImageURL,
		Hint:     q.Hint,
	}
	if q.Type == model.QuestionMatching {
		pairs := q.Pairs()
		for _, p := range pairs {
			view.Lefts = append(view.Lefts, p.Left)
		}
		rights := make([]string, len(pairs))
		for i, p := range pairs {
			rights[i] = p.Right
		}
		r := rand.New(rand.NewSource(seed))
		r.Shuffle(len(rights), func(i, j int) {
			rights[i], rights[j] = rights[j], rights[i]
		})
		view.Rights = rights
	}
	return view
}

// SessionSeed derives a stable shuffle seed from the session so refreshes
// keep the same order.
func SessionSeed(session *model.TestSession) int64 {
	return int64(session.ID)*1_000_003 + session.StartTime.Unix()
}
