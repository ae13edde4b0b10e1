package model

import "encoding/json"

type QuestionType string

const (
	QuestionMCQ              QuestionType = "mcq"
	QuestionEssay            QuestionType = "essay"
	QuestionMatching         QuestionType = "matching"
	QuestionFillBlank        QuestionType = "fill-blank"
	QuestionTrueFalse        QuestionType = "true-false"
	QuestionImageRecognition QuestionType = "image-recognition"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// MatchingPair is one left/right pair of a matching question.
type MatchingPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Question is the authored question definition including correctness data.
// Once referenced by a published test a question is immutable; edits create a
// new row linked back through VersionOfID.
type Question struct {
	BaseModel
	Text          string       `gorm:"type:text;not null" json:"text"`
	Type          QuestionType `gorm:"size:30;not null" json:"type"`
	Points        float64      `gorm:"not null" json:"points"`
	Difficulty    Difficulty   `gorm:"size:10;default:'medium'" json:"difficulty"`
	Section       string       `gorm:"size:100" json:"section"`
	Hint          string       `gorm:"type:text" json:"hint,omitempty"`
	Explanation   string       `gorm:"type:text" json:"explanation,omitempty"`
	Options       string       `gorm:"type:json" json:"-"`
	CorrectAnswer string       `gorm:"type:json" json:"-"`
	MatchingPairs string       `gorm:"type:json" json:"-"`
	ImageURL      string       `gorm:"size:255" json:"imageUrl,omitempty"`
	Rubric        string       `gorm:"type:text" json:"rubric,omitempty"`
	ModelAnswer   string       `gorm:"type:text" json:"modelAnswer,omitempty"`
	CreatedByID   uint         `gorm:"index" json:"createdBy"`
	VersionOfID   *uint        `gorm:"index" json:"versionOf,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// OptionList decodes the stored options JSON. A decode failure yields nil,
// which validation treats the same as no options.
func (q *Question) OptionList() []string {
	if q.Options == "" {
		return nil
	}
	var opts []string
	if err := json.Unmarshal([]byte(q.Options), &opts); err != nil {
		return nil
	}
	return opts
}

// CorrectAnswers decodes the correct answer, which is stored either as a
// single JSON string or as an array of strings (multi-select MCQ).
func (q *Question) CorrectAnswers() []string {
	if q.CorrectAnswer == "" {
		return nil
	}
	var single string
	if err := json.Unmarshal([]byte(q.CorrectAnswer), &single); err == nil {
		return []string{single}
	}
	var many []string
	if err := json.Unmarshal([]byte(q.CorrectAnswer), &many); err == nil {
		return many
	}
	return nil
}

// IsMultiSelect reports whether the correct answer is stored as an array.
func (q *Question) IsMultiSelect() bool {
	if q.CorrectAnswer == "" {
		return false
	}
	var many []string
	return json.Unmarshal([]byte(q.CorrectAnswer), &many) == nil
}

// Pairs decodes the stored matching pairs JSON.
func (q *Question) Pairs() []MatchingPair {
	if q.MatchingPairs == "" {
		return nil
	}
	var pairs []MatchingPair
	if err := json.Unmarshal([]byte(q.MatchingPairs), &pairs); err != nil {
		return nil
	}
	return pairs
}

// AutoGradable reports whether the scoring engine can grade this type by
// itself. Essay and image-recognition answers are scored externally.
func (q *Question) AutoGradable() bool {
	switch q.Type {
	case QuestionMCQ, QuestionTrueFalse, QuestionFillBlank, QuestionMatching:
		return true
	default:
		return false
	}
}
