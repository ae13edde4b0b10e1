package model

import "time"

type ResultStatus string

const (
	ResultPass ResultStatus = "pass"
	ResultFail ResultStatus = "fail"
)

// TestResult is the finalized outcome of one terminal session. Exactly one
// result exists per session; after creation only review/publication metadata
// may change.
type TestResult struct {
	BaseModel
	SessionID uint         `gorm:"uniqueIndex;not null" json:"sessionId"`
	TestID    uint         `gorm:"index;not null" json:"testId"`
	Test      *Test        `gorm:"foreignKey:TestID" json:"test,omitempty"`
	StudentID uint         `gorm:"index;not null" json:"studentId"`
	Student   *User        `gorm:"foreignKey:StudentID" json:"student,omitempty"`

	TotalScore    float64      `gorm:"not null" json:"totalScore"`
	TotalPossible float64      `gorm:"not null" json:"totalPossible"`
	Percentage    int          `gorm:"not null" json:"percentage"`
	Grade         string       `gorm:"size:2" json:"grade"`
	Status        ResultStatus `gorm:"size:10;not null" json:"status"`

	Feedback     string     `gorm:"type:text" json:"feedback,omitempty"`
	ReviewedByID *uint      `gorm:"index" json:"reviewedBy,omitempty"`
	ReviewDate   *time.Time `json:"reviewDate,omitempty"`
	IsPublished  bool       `gorm:"default:false" json:"isPublished"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`
}

func (TestResult) TableName() string {
	return "test_results"
}
