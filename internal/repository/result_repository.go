package repository

import (
	"cbt_backend/internal/model"

	"gorm.io/gorm"
)

type ResultRepository struct {
	DB *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{DB: db}
}

func (r *ResultRepository) Create(result *model.TestResult) error {
	return r.DB.Create(result).Error
}

func (r *ResultRepository) FindByID(id uint) (*model.TestResult, error) {
	var res model.TestResult
	err := r.DB.Preload("Test").Preload("Student").First(&res, id).Error
	return &res, err
}

// FindBySession returns the unique result for a session, if one exists.
func (r *ResultRepository) FindBySession(sessionID uint) (*model.TestResult, error) {
	var res model.TestResult
	err := r.DB.Where("session_id = ?", sessionID).First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *ResultRepository) Update(result *model.TestResult) error {
	return r.DB.Save(result).Error
}

func (r *ResultRepository) ListByTest(testID uint, page, limit int) ([]model.TestResult, int64, error) {
	var results []model.TestResult
	var total int64
	query := r.DB.Model(&model.TestResult{}).Where("test_id = ?", testID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Preload("Student").Order("percentage desc").Offset(offset).Limit(limit).Find(&results).Error
	return results, total, err
}

func (r *ResultRepository) ListAllByTest(testID uint) ([]model.TestResult, error) {
	var results []model.TestResult
	err := r.DB.Where("test_id = ?", testID).Preload("Student").Find(&results).Error
	return results, err
}

func (r *ResultRepository) ListByStudent(studentID uint, page, limit int) ([]model.TestResult, int64, error) {
	var results []model.TestResult
	var total int64
	query := r.DB.Model(&model.TestResult{}).Where("student_id = ?", studentID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Preload("Test").Order("created_at desc").Offset(offset).Limit(limit).Find(&results).Error
	return results, total, err
}

// ListAllByStudent returns every result for a student in attempt order,
// oldest first, for trend computation.
func (r *ResultRepository) ListAllByStudent(studentID uint) ([]model.TestResult, error) {
	var results []model.TestResult
	err := r.DB.Where("student_id = ?", studentID).
		Order("created_at asc").Find(&results).Error
	return results, err
}

// PercentagesByTest returns every recorded percentage for the test, used for
// percentile and class statistics.
func (r *ResultRepository) PercentagesByTest(testID uint) ([]int, error) {
	var percentages []int
	err := r.DB.Model(&model.TestResult{}).
		Where("test_id = ?", testID).
		Pluck("percentage", &percentages).Error
	return percentages, err
}
