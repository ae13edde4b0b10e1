package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AnswerValue is the typed submission payload, keyed on the question type:
// Text for true-false and fill-blank, Choices for MCQ (one or many), Pairs
// for matching. Exactly the fields the question type needs may be set.
type AnswerValue struct {
	Text    string         `json:"text,omitempty"`
	Choices []string       `json:"choices,omitempty"`
	Pairs   []MatchingPair `json:"pairs,omitempty"`
}

// Validate checks the value against the question type it answers and returns
// a field-level message when the shape does not fit.
func (v AnswerValue) Validate(qt QuestionType) error {
	switch qt {
	case QuestionMCQ:
		if len(v.Choices) == 0 {
			return fmt.Errorf("answer: at least one choice is required for mcq")
		}
		if v.Text != "" || len(v.Pairs) > 0 {
			return fmt.Errorf("answer: mcq accepts choices only")
		}
	case QuestionTrueFalse:
		if t := strings.ToLower(strings.TrimSpace(v.Text)); t != "true" && t != "false" {
			return fmt.Errorf("answer: true-false answer must be \"true\" or \"false\"")
		}
	case QuestionFillBlank, QuestionEssay:
		if strings.TrimSpace(v.Text) == "" {
			return fmt.Errorf("answer: text is required for %s", qt)
		}
	case QuestionMatching:
		if len(v.Pairs) == 0 {
			return fmt.Errorf("answer: at least one pair is required for matching")
		}
	case QuestionImageRecognition:
		if strings.TrimSpace(v.Text) == "" {
			return fmt.Errorf("answer: text is required for image-recognition")
		}
	default:
		return fmt.Errorf("answer: unknown question type %q", qt)
	}
	return nil
}

// IsZero reports whether no payload fields are set at all.
func (v AnswerValue) IsZero() bool {
	return v.Text == "" && len(v.Choices) == 0 && len(v.Pairs) == 0
}

// StudentAnswer is one student's answer to one question within a session.
// There is at most one row per (session, question); re-submission replaces
// the value in place. Rows become immutable once the session is terminal.
type StudentAnswer struct {
	BaseModel
	SessionID  uint         `gorm:"index:idx_session_question,unique;not null" json:"sessionId"`
	QuestionID uint         `gorm:"index:idx_session_question,unique;not null" json:"questionId"`
	Question   *Question    `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
	Answer     string       `gorm:"type:json;not null" json:"-"`

	IsCorrect *bool    `json:"isCorrect,omitempty"`
	Score     *float64 `json:"score,omitempty"`
	Feedback  string   `gorm:"type:text" json:"feedback,omitempty"`

	TimeSpent       int  `gorm:"default:0" json:"timeSpent"` // seconds
	MarkedForReview bool `gorm:"default:false" json:"markedForReview"`
}

func (StudentAnswer) TableName() string {
	return "student_answers"
}

// Value decodes the stored answer payload.
func (a *StudentAnswer) Value() AnswerValue {
	var v AnswerValue
	if a.Answer != "" {
		_ = json.Unmarshal([]byte(a.Answer), &v)
	}
	return v
}

// SetValue encodes the payload for storage.
func (a *StudentAnswer) SetValue(v AnswerValue) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	a.Answer = string(raw)
	return nil
}
