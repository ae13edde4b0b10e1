package service

import (
	"strings"

	"cbt_backend/internal/model"
	"cbt_backend/internal/repository"
	"cbt_backend/internal/util"

	"gorm.io/gorm"
)

// QuestionService owns the question bank. Questions referenced by a
// published test are immutable; editing one creates a new revision linked
// back through VersionOfID.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
}

func NewQuestionService(questionRepo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{questionRepo: questionRepo}
}

// ValidateQuestion checks the per-type authoring invariants.
func ValidateQuestion(q *model.Question) error {
	var fields []util.FieldError
	add := func(field, msg string) {
		fields = append(fields, util.FieldError{Field: field, Message: msg})
	}

	if strings.TrimSpace(q.Text) == "" {
		add("text", "is required")
	}
	if q.Points <= 0 {
		add("points", "must be positive")
	}

	switch q.Type {
	case model.QuestionMCQ:
		options := q.OptionList()
		correct := q.CorrectAnswers()
		if len(options) < 2 {
			add("options", "mcq needs at least two options")
		}
		if len(correct) == 0 {
			add("correctAnswer", "is required")
		}
		optionSet := make(map[string]bool, len(options))
		for _, o := range options {
			optionSet[o] = true
		}
		for _, c := range correct {
			if !optionSet[c] {
				add("correctAnswer", "must be one of the options")
				break
			}
		}
	case model.QuestionTrueFalse:
		correct := q.CorrectAnswers()
		if len(correct) != 1 {
			add("correctAnswer", "is required")
		} else if v := strings.ToLower(correct[0]); v != "true" && v != "false" {
			add("correctAnswer", "must be \"true\" or \"false\"")
		}
	case model.QuestionFillBlank:
		if len(q.CorrectAnswers()) == 0 {
			add("correctAnswer", "is required")
		}
	case model.QuestionMatching:
		pairs := q.Pairs()
		if len(pairs) < 2 {
			add("matchingPairs", "matching needs at least two pairs")
		}
		for _, p := range pairs {
			if strings.TrimSpace(p.Left) == "" || strings.TrimSpace(p.Right) == "" {
				add("matchingPairs", "pairs must have both sides")
				break
			}
		}
	case model.QuestionEssay:
		// Rubric and model answer are optional grading aids.
	case model.QuestionImageRecognition:
		if q.ImageURL == "" {
			add("imageUrl", "is required for image-recognition")
		}
	default:
		add("type", "unknown question type")
	}

	if len(fields) > 0 {
		return &util.ValidationError{Fields: fields}
	}
	return nil
}

func (s *QuestionService) CreateQuestion(creatorID uint, q *model.Question) (*model.Question, error) {
	q.CreatedByID = creatorID
	if err := ValidateQuestion(q); err != nil {
		return nil, err
	}
	if err := s.questionRepo.Create(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) GetQuestion(id uint) (*model.Question, error) {
	q, err := s.questionRepo.FindByID(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &util.NotFoundError{Entity: "question", ID: id}
		}
		return nil, err
	}
	return q, nil
}

// UpdateQuestion edits in place while the question is only on drafts. Once a
// published test references it, the edit lands as a new revision and the
// original stays untouched.
func (s *QuestionService) UpdateQuestion(id uint, updated *model.Question) (*model.Question, error) {
	original, err := s.GetQuestion(id)
	if err != nil {
		return nil, err
	}

	referenced, err := s.questionRepo.IsReferencedByPublishedTest(id)
	if err != nil {
		return nil, err
	}

	if referenced {
		revision := *updated
		revision.BaseModel = model.BaseModel{}
		revision.CreatedByID = original.CreatedByID
		rootID := id
		if original.VersionOfID != nil {
			rootID = *original.VersionOfID
		}
		revision.VersionOfID = &rootID
		if err := ValidateQuestion(&revision); err != nil {
			return nil, err
		}
		if err := s.questionRepo.Create(&revision); err != nil {
			return nil, err
		}
		return &revision, nil
	}

	original.Text = updated.Text
	original.Type = updated.Type
	original.Points = updated.Points
	original.Difficulty = updated.Difficulty
	original.Section = updated.Section
	original.Hint = updated.Hint
	original.Explanation = updated.Explanation
	original.Options = updated.Options
	original.CorrectAnswer = updated.CorrectAnswer
	original.MatchingPairs = updated.MatchingPairs
	original.ImageURL = updated.ImageURL
	original.Rubric = updated.Rubric
	original.ModelAnswer = updated.ModelAnswer

	if err := ValidateQuestion(original); err != nil {
		return nil, err
	}
	if err := s.questionRepo.Update(original); err != nil {
		return nil, err
	}
	return original, nil
}

// DeleteQuestion refuses to remove questions that live on a published test.
func (s *QuestionService) DeleteQuestion(id uint) error {
	if _, err := s.GetQuestion(id); err != nil {
		return err
	}
	referenced, err := s.questionRepo.IsReferencedByPublishedTest(id)
	if err != nil {
		return err
	}
	if referenced {
		return &util.InvalidStateError{Op: "delete question", State: "referenced by published test"}
	}
	return s.questionRepo.Delete(id)
}

func (s *QuestionService) ListQuestions(qType model.QuestionType, difficulty model.Difficulty, section, search string, page, limit int) ([]model.Question, int64, error) {
	return s.questionRepo.List(qType, difficulty, section, search, page, limit)
}

func (s *QuestionService) Versions(id uint) ([]model.Question, error) {
	q, err := s.GetQuestion(id)
	if err != nil {
		return nil, err
	}
	rootID := q.ID
	if q.VersionOfID != nil {
		rootID = *q.VersionOfID
	}
	return s.questionRepo.Versions(rootID)
}
