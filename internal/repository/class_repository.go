package repository

import (
	"cbt_backend/internal/model"

	"gorm.io/gorm"
)

type ClassRepository struct {
	DB *gorm.DB
}

func NewClassRepository(db *gorm.DB) *ClassRepository {
	return &ClassRepository{DB: db}
}

func (r *ClassRepository) Create(class *model.Class) error {
	return r.DB.Create(class).Error
}

func (r *ClassRepository) FindByID(id uint) (*model.Class, error) {
	var class model.Class
	err := r.DB.Preload("Students").First(&class, id).Error
	return &class, err
}

func (r *ClassRepository) Update(class *model.Class) error {
	return r.DB.Save(class).Error
}

func (r *ClassRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Class{}, id).Error
}

func (r *ClassRepository) List(instructorID uint, page, limit int) ([]model.Class, int64, error) {
	var classes []model.Class
	var total int64
	query := r.DB.Model(&model.Class{})
	if instructorID > 0 {
		query = query.Where("instructor_id = ?", instructorID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&classes).Error
	return classes, total, err
}

func (r *ClassRepository) AddStudent(classID, studentID uint) error {
	return r.DB.Model(&model.Class{BaseModel: model.BaseModel{ID: classID}}).
		Association("Students").
		Append(&model.User{BaseModel: model.BaseModel{ID: studentID}})
}

func (r *ClassRepository) RemoveStudent(classID, studentID uint) error {
	return r.DB.Model(&model.Class{BaseModel: model.BaseModel{ID: classID}}).
		Association("Students").
		Delete(&model.User{BaseModel: model.BaseModel{ID: studentID}})
}

// StudentIDs returns the ids of every student enrolled in any of the classes.
func (r *ClassRepository) StudentIDs(classIDs []uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Table("class_students").
		Distinct("user_id").
		Where("class_id IN ?", classIDs).
		Pluck("user_id", &ids).Error
	return ids, err
}

// ClassIDsForStudent returns the classes the student is enrolled in.
func (r *ClassRepository) ClassIDsForStudent(studentID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Table("class_students").
		Where("user_id = ?", studentID).
		Pluck("class_id", &ids).Error
	return ids, err
}
