package model

import "time"

type SecurityEventType string

const (
	EventTabSwitch       SecurityEventType = "tab-switch"
	EventCopyPaste       SecurityEventType = "copy-paste"
	EventScreenshot      SecurityEventType = "screenshot"
	EventWindowFocusLoss SecurityEventType = "window-focus-loss"
	EventMultipleTabs    SecurityEventType = "multiple-tabs"
	EventDeveloperTools  SecurityEventType = "developer-tools"
	EventIPChange        SecurityEventType = "ip-change"
)

type EventSeverity string

const (
	SeverityLow      EventSeverity = "low"
	SeverityMedium   EventSeverity = "medium"
	SeverityHigh     EventSeverity = "high"
	SeverityCritical EventSeverity = "critical"
)

// SecurityEvent is a client-reported anti-cheating signal tied to a session.
// Events are recorded and surfaced to instructors; they do not alter session
// state.
type SecurityEvent struct {
	BaseModel
	SessionID uint              `gorm:"index;not null" json:"sessionId"`
	StudentID uint              `gorm:"index;not null" json:"studentId"`
	Type      SecurityEventType `gorm:"size:30;not null" json:"type"`
	Severity  EventSeverity     `gorm:"size:10;default:'medium'" json:"severity"`
	Detail    string            `gorm:"type:text" json:"detail"`
	OccurredAt time.Time        `gorm:"not null" json:"occurredAt"`

	Resolved        bool   `gorm:"default:false" json:"resolved"`
	ResolvedByID    *uint  `json:"resolvedBy,omitempty"`
	ResolutionNotes string `gorm:"type:text" json:"resolutionNotes,omitempty"`
}

func (SecurityEvent) TableName() string {
	return "security_events"
}
