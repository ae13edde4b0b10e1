package repository

import (
	"cbt_backend/internal/model"

	"gorm.io/gorm"
)

type AuditLogRepository struct {
	DB *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{DB: db}
}

func (r *AuditLogRepository) Create(log *model.AuditLog) error {
	return r.DB.Create(log).Error
}

func (r *AuditLogRepository) List(userID uint, entity string, page, limit int) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64
	query := r.DB.Model(&model.AuditLog{})
	if userID > 0 {
		query = query.Where("user_id = ?", userID)
	}
	if entity != "" {
		query = query.Where("entity = ?", entity)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&logs).Error
	return logs, total, err
}
