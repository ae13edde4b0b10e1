package model

import "time"

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in-progress"
	SessionCompleted  SessionStatus = "completed"
	SessionSubmitted  SessionStatus = "submitted"
	SessionExpired    SessionStatus = "expired"
)

// Terminal reports whether no further transition can occur from the status.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionSubmitted || s == SessionExpired
}

// TestSession tracks a single student's timed attempt at a test. Expiry is
// detected lazily: there is no background timer, every interaction re-derives
// the deadline from StartTime and the test configuration.
type TestSession struct {
	BaseModel
	TestID    uint       `gorm:"index;not null" json:"testId"`
	Test      *Test      `gorm:"foreignKey:TestID" json:"test,omitempty"`
	StudentID uint       `gorm:"index;not null" json:"studentId"`
	Student   *User      `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	StartTime time.Time  `gorm:"not null" json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`

	Status          SessionStatus `gorm:"size:20;default:'in-progress'" json:"status"`
	CurrentQuestion int           `gorm:"default:0" json:"currentQuestion"`
	AttemptNumber   int           `gorm:"default:1" json:"attemptNumber"`

	// ExtraTimeMinutes accumulates instructor-granted extensions.
	ExtraTimeMinutes int `gorm:"default:0" json:"extraTimeMinutes"`

	IPAddress string `gorm:"size:45" json:"ipAddress,omitempty"`
	UserAgent string `gorm:"size:255" json:"userAgent,omitempty"`

	Answers  []StudentAnswer `gorm:"foreignKey:SessionID" json:"answers,omitempty"`
	ResultID *uint           `gorm:"index" json:"resultId,omitempty"`
}

func (TestSession) TableName() string {
	return "test_sessions"
}
