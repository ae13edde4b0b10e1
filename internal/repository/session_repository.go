package repository

import (
	"cbt_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) Create(session *model.TestSession) error {
	return r.DB.Create(session).Error
}

func (r *SessionRepository) FindByID(id uint) (*model.TestSession, error) {
	var s model.TestSession
	err := r.DB.Preload("Test.Questions").Preload("Answers").First(&s, id).Error
	return &s, err
}

func (r *SessionRepository) Update(session *model.TestSession) error {
	return r.DB.Save(session).Error
}

// FindActive returns the student's open session for the test, if any.
func (r *SessionRepository) FindActive(studentID, testID uint) (*model.TestSession, error) {
	var s model.TestSession
	err := r.DB.Where("student_id = ? AND test_id = ? AND status = ?",
		studentID, testID, model.SessionInProgress).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) CountByStudentAndTest(studentID, testID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.TestSession{}).
		Where("student_id = ? AND test_id = ?", studentID, testID).
		Count(&count).Error
	return count, err
}

func (r *SessionRepository) ListByStudent(studentID uint, page, limit int) ([]model.TestSession, int64, error) {
	var sessions []model.TestSession
	var total int64
	query := r.DB.Model(&model.TestSession{}).Where("student_id = ?", studentID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Preload("Test").Order("start_time desc").Offset(offset).Limit(limit).Find(&sessions).Error
	return sessions, total, err
}

// ListActiveByTest is used for live proctoring views.
func (r *SessionRepository) ListActiveByTest(testID uint) ([]model.TestSession, error) {
	var sessions []model.TestSession
	err := r.DB.Where("test_id = ? AND status = ?", testID, model.SessionInProgress).
		Preload("Student").Order("start_time asc").Find(&sessions).Error
	return sessions, err
}

func (r *SessionRepository) CountActive() (int64, error) {
	var count int64
	err := r.DB.Model(&model.TestSession{}).
		Where("status = ?", model.SessionInProgress).Count(&count).Error
	return count, err
}

func (r *SessionRepository) AnswersBySession(sessionID uint) ([]model.StudentAnswer, error) {
	var answers []model.StudentAnswer
	err := r.DB.Where("session_id = ?", sessionID).Find(&answers).Error
	return answers, err
}

// UpsertAnswer writes the answer for (session, question), replacing any
// previous value in a single statement so concurrent saves cannot produce
// duplicate rows. The unique index on the pair backs the conflict target.
func (r *SessionRepository) UpsertAnswer(answer *model.StudentAnswer) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"answer", "time_spent", "marked_for_review", "updated_at",
		}),
	}).Create(answer).Error
}

func (r *SessionRepository) UpdateAnswer(answer *model.StudentAnswer) error {
	return r.DB.Save(answer).Error
}

func (r *SessionRepository) UpdateCurrentQuestion(sessionID uint, index int) error {
	return r.DB.Model(&model.TestSession{}).Where("id = ?", sessionID).
		Update("current_question", index).Error
}
