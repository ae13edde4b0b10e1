package repository

import (
	"cbt_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(question *model.Question) error {
	return r.DB.Create(question).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.First(&q, id).Error
	return &q, err
}

func (r *QuestionRepository) FindByIDs(ids []uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.Where("id IN ?", ids).Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) Update(question *model.Question) error {
	return r.DB.Save(question).Error
}

func (r *QuestionRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Question{}, id).Error
}

func (r *QuestionRepository) List(qType model.QuestionType, difficulty model.Difficulty, section, search string, page, limit int) ([]model.Question, int64, error) {
	var qs []model.Question
	var total int64
	query := r.DB.Model(&model.Question{})
	if qType != "" {
		query = query.Where("type = ?", qType)
	}
	if difficulty != "" {
		query = query.Where("difficulty = ?", difficulty)
	}
	if section != "" {
		query = query.Where("section = ?", section)
	}
	if search != "" {
		query = query.Where("text LIKE ?", "%"+search+"%")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&qs).Error
	return qs, total, err
}

// IsReferencedByPublishedTest reports whether the question appears on any
// non-draft test. Such questions may not be edited in place.
func (r *QuestionRepository) IsReferencedByPublishedTest(questionID uint) (bool, error) {
	var count int64
	err := r.DB.Table("test_questions").
		Joins("JOIN tests ON tests.id = test_questions.test_id").
		Where("test_questions.question_id = ?", questionID).
		Where("tests.status <> ?", model.TestDraft).
		Where("tests.deleted_at IS NULL").
		Count(&count).Error
	return count > 0, err
}

// Versions returns the revision chain rooted at the given question id.
func (r *QuestionRepository) Versions(rootID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.Where("id = ? OR version_of_id = ?", rootID, rootID).
		Order("created_at asc").Find(&qs).Error
	return qs, err
}
