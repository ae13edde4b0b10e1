package repository

import (
	"cbt_backend/internal/model"

	"gorm.io/gorm"
)

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

func (r *TestRepository) Create(test *model.Test) error {
	return r.DB.Create(test).Error
}

func (r *TestRepository) FindByID(id uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.Preload("Questions").Preload("Classes").First(&test, id).Error
	return &test, err
}

func (r *TestRepository) Update(test *model.Test) error {
	return r.DB.Save(test).Error
}

func (r *TestRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Test{}, id).Error
}

func (r *TestRepository) List(instructorID uint, status model.TestStatus, subject string, page, limit int) ([]model.Test, int64, error) {
	var tests []model.Test
	var total int64
	query := r.DB.Model(&model.Test{})
	if instructorID > 0 {
		query = query.Where("instructor_id = ?", instructorID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if subject != "" {
		query = query.Where("subject = ?", subject)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&tests).Error
	return tests, total, err
}

// ListPublishedForClasses returns published tests assigned to any of the
// given classes, newest first.
func (r *TestRepository) ListPublishedForClasses(classIDs []uint, page, limit int) ([]model.Test, int64, error) {
	var tests []model.Test
	var total int64
	query := r.DB.Model(&model.Test{}).
		Joins("JOIN test_classes ON test_classes.test_id = tests.id").
		Where("test_classes.class_id IN ?", classIDs).
		Where("tests.status = ?", model.TestPublished).
		Distinct("tests.*")
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("tests.start_date desc").Offset(offset).Limit(limit).Find(&tests).Error
	return tests, total, err
}

func (r *TestRepository) SetStatus(id uint, status model.TestStatus) error {
	return r.DB.Model(&model.Test{}).Where("id = ?", id).Update("status", status).Error
}

func (r *TestRepository) ReplaceQuestions(test *model.Test, questions []model.Question) error {
	return r.DB.Model(test).Association("Questions").Replace(questions)
}

func (r *TestRepository) AssignClass(testID, classID uint) error {
	return r.DB.Model(&model.Test{BaseModel: model.BaseModel{ID: testID}}).
		Association("Classes").
		Append(&model.Class{BaseModel: model.BaseModel{ID: classID}})
}

func (r *TestRepository) UnassignClass(testID, classID uint) error {
	return r.DB.Model(&model.Test{BaseModel: model.BaseModel{ID: testID}}).
		Association("Classes").
		Delete(&model.Class{BaseModel: model.BaseModel{ID: classID}})
}
