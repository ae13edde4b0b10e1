package service

import (
	"fmt"
	"net/smtp"
	"strings"

	"cbt_backend/internal/config"
	"cbt_backend/internal/model"
	"cbt_backend/pkg/logger"

	"go.uber.org/zap"
)

// NotificationService delivers mail over SMTP. When mail is disabled in
// configuration it degrades to logging, which keeps every calling transition
// side-effect free in development.
type NotificationService struct {
	cfg config.SMTPConfig
}

func NewNotificationService(cfg config.SMTPConfig) *NotificationService {
	return &NotificationService{cfg: cfg}
}

func (s *NotificationService) SendResultEmail(student *model.User, test *model.Test, result *model.TestResult) error {
	subject := fmt.Sprintf("Your result for %s", test.Title)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour attempt at %q has been graded.\n\nScore: %.1f / %.1f (%d%%)\nGrade: %s\nOutcome: %s\n",
		student.Name, test.Title,
		result.TotalScore, result.TotalPossible, result.Percentage,
		result.Grade, result.Status,
	)
	return s.send(student.Email, subject, body)
}

func (s *NotificationService) SendInvitationEmail(student *model.User, test *model.Test) error {
	subject := fmt.Sprintf("You have been invited to take %s", test.Title)
	body := fmt.Sprintf(
		"Hi %s,\n\nA new test %q is available from %s until %s.\nDuration: %d minutes, attempts allowed: %d.\n",
		student.Name, test.Title,
		test.StartDate.Format("2006-01-02 15:04"), test.EndDate.Format("2006-01-02 15:04"),
		test.Duration, test.MaxAttempts,
	)
	return s.send(student.Email, subject, body)
}

func (s *NotificationService) send(to, subject, body string) error {
	if !s.cfg.Enabled {
		logger.Log.Info("mail disabled, skipping send",
			zap.String("to", to), zap.String("subject", subject))
		return nil
	}

	msg := strings.Join([]string{
		"From: " + s.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg))
}
