package model

import "time"

type TestStatus string

const (
	TestDraft     TestStatus = "draft"
	TestPublished TestStatus = "published"
	TestArchived  TestStatus = "archived"
)

// Test is an ordered question set plus the configuration that governs
// sessions taken against it.
type Test struct {
	BaseModel
	Title        string     `gorm:"size:200;not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	Subject      string     `gorm:"size:100;not null" json:"subject"`
	InstructorID uint       `gorm:"index" json:"instructorId"`
	Instructor   *User      `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
	Duration     int        `gorm:"not null" json:"duration"`     // minutes
	PassingScore float64    `gorm:"not null" json:"passingScore"` // percentage
	MaxAttempts  int        `gorm:"default:1" json:"maxAttempts"`
	GracePeriod  int        `gorm:"default:0" json:"gracePeriod"` // minutes

	ShuffleQuestions bool `gorm:"default:false" json:"shuffleQuestions"`
	AllowReview      bool `gorm:"default:true" json:"allowReview"`

	// Negative marking is configurable but not applied by the scoring
	// engine; the fields are carried for authoring compatibility.
	NegativeMarking      bool    `gorm:"default:false" json:"negativeMarking"`
	NegativeMarkingValue float64 `gorm:"default:0" json:"negativeMarkingValue"`

	StartDate time.Time  `gorm:"not null" json:"startDate"`
	EndDate   time.Time  `gorm:"not null" json:"endDate"`
	Status    TestStatus `gorm:"size:20;default:'draft'" json:"status"`

	Questions []Question `gorm:"many2many:test_questions" json:"questions,omitempty"`
	Classes   []Class    `gorm:"many2many:test_classes" json:"classes,omitempty"`
}

func (Test) TableName() string {
	return "tests"
}

// AvailableAt reports whether the test window is open at the given instant.
func (t *Test) AvailableAt(now time.Time) bool {
	return !now.Before(t.StartDate) && !now.After(t.EndDate)
}

// TotalPoints sums the points of every question on the test, answered or not.
func (t *Test) TotalPoints() float64 {
	var total float64
	for _, q := range t.Questions {
		total += q.Points
	}
	return total
}
