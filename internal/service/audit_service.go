package service

import (
	"cbt_backend/internal/model"
	"cbt_backend/internal/repository"
	"cbt_backend/pkg/logger"

	"go.uber.org/zap"
)

// AuditService records administrative actions. Recording is best effort; a
// failed write is logged and never fails the action being audited.
type AuditService struct {
	AuditRepo *repository.AuditLogRepository
}

func NewAuditService(auditRepo *repository.AuditLogRepository) *AuditService {
	return &AuditService{AuditRepo: auditRepo}
}

func (s *AuditService) Record(userID uint, action, entity string, entityID uint, detail, ip string) {
	entry := &model.AuditLog{
		UserID:   userID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Detail:   detail,
		IP:       ip,
	}
	if err := s.AuditRepo.Create(entry); err != nil {
		logger.Log.Warn("audit write failed",
			zap.String("action", action), zap.Error(err))
	}
}

func (s *AuditService) List(userID uint, entity string, page, limit int) ([]model.AuditLog, int64, error) {
	return s.AuditRepo.List(userID, entity, page, limit)
}
