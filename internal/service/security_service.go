package service

import (
	"cbt_backend/internal/model"
	"cbt_backend/internal/repository"
	"cbt_backend/internal/util"
	"cbt_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SecurityService accepts client-reported anti-cheating signals. Events are
// recorded and surfaced to instructors; they never alter session state.
type SecurityService struct {
	EventRepo   *repository.SecurityEventRepository
	SessionRepo *repository.SessionRepository
	clock       Clock
}

func NewSecurityService(eventRepo *repository.SecurityEventRepository, sessionRepo *repository.SessionRepository, clock Clock) *SecurityService {
	return &SecurityService{EventRepo: eventRepo, SessionRepo: sessionRepo, clock: clock}
}

// RecordEvent is fire-and-forget from the caller's perspective: a write
// failure is logged and swallowed.
func (s *SecurityService) RecordEvent(sessionID, studentID uint, eventType model.SecurityEventType, severity model.EventSeverity, detail string) {
	if severity == "" {
		severity = model.SeverityMedium
	}
	event := &model.SecurityEvent{
		SessionID:  sessionID,
		StudentID:  studentID,
		Type:       eventType,
		Severity:   severity,
		Detail:     detail,
		OccurredAt: s.clock.Now(),
	}
	if err := s.EventRepo.Create(event); err != nil {
		logger.Log.Warn("security event write failed",
			zap.Uint("sessionId", sessionID),
			zap.String("type", string(eventType)),
			zap.Error(err))
		return
	}
	logger.Log.Info("security event recorded",
		zap.Uint("sessionId", sessionID),
		zap.String("type", string(eventType)),
		zap.String("severity", string(severity)))
}

func (s *SecurityService) SessionEvents(sessionID uint) ([]model.SecurityEvent, error) {
	return s.EventRepo.ListBySession(sessionID)
}

func (s *SecurityService) TestEvents(testID uint, unresolvedOnly bool, page, limit int) ([]model.SecurityEvent, int64, error) {
	return s.EventRepo.ListByTest(testID, unresolvedOnly, page, limit)
}

// Resolve marks an event as reviewed by an instructor.
func (s *SecurityService) Resolve(eventID, reviewerID uint, notes string) (*model.SecurityEvent, error) {
	event, err := s.EventRepo.FindByID(eventID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &util.NotFoundError{Entity: "security event", ID: eventID}
		}
		return nil, err
	}

	event.Resolved = true
	event.ResolvedByID = &reviewerID
	event.ResolutionNotes = notes
	if err := s.EventRepo.Update(event); err != nil {
		return nil, err
	}
	return event, nil
}
