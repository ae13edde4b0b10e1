package repository

import (
	"cbt_backend/internal/model"

	"gorm.io/gorm"
)

type SecurityEventRepository struct {
	DB *gorm.DB
}

func NewSecurityEventRepository(db *gorm.DB) *SecurityEventRepository {
	return &SecurityEventRepository{DB: db}
}

func (r *SecurityEventRepository) Create(event *model.SecurityEvent) error {
	return r.DB.Create(event).Error
}

func (r *SecurityEventRepository) FindByID(id uint) (*model.SecurityEvent, error) {
	var e model.SecurityEvent
	err := r.DB.First(&e, id).Error
	return &e, err
}

func (r *SecurityEventRepository) Update(event *model.SecurityEvent) error {
	return r.DB.Save(event).Error
}

func (r *SecurityEventRepository) ListBySession(sessionID uint) ([]model.SecurityEvent, error) {
	var events []model.SecurityEvent
	err := r.DB.Where("session_id = ?", sessionID).Order("occurred_at asc").Find(&events).Error
	return events, err
}

func (r *SecurityEventRepository) ListByTest(testID uint, unresolvedOnly bool, page, limit int) ([]model.SecurityEvent, int64, error) {
	var events []model.SecurityEvent
	var total int64
	query := r.DB.Model(&model.SecurityEvent{}).
		Joins("JOIN test_sessions ON test_sessions.id = security_events.session_id").
		Where("test_sessions.test_id = ?", testID)
	if unresolvedOnly {
		query = query.Where("security_events.resolved = ?", false)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("security_events.occurred_at desc").Offset(offset).Limit(limit).Find(&events).Error
	return events, total, err
}

func (r *SecurityEventRepository) CountBySession(sessionID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.SecurityEvent{}).
		Where("session_id = ?", sessionID).Count(&count).Error
	return count, err
}
