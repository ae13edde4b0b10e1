// Package scoring implements the per-question-type scoring rules and result
// aggregation. Everything here is a pure function over question and answer
// values; persistence and session state live elsewhere.
package scoring

import (
	"math"
	"strings"

	"cbt_backend/internal/model"
)

// Summary is the aggregated outcome over a full question/answer set.
type Summary struct {
	TotalScore    float64
	TotalPossible float64
	Percentage    int
	Grade         string
	Status        model.ResultStatus
}

// Score maps an auto-gradable question and a submitted answer to partial
// credit in [0, q.Points]. Essay and image-recognition questions are scored
// externally and always return 0 here.
func Score(q *model.Question, v model.AnswerValue) float64 {
	switch q.Type {
	case model.QuestionMCQ:
		return scoreMCQ(q, v.Choices)
	case model.QuestionTrueFalse:
		return scoreExact(q, v.Text)
	case model.QuestionFillBlank:
		return scoreExact(q, v.Text)
	case model.QuestionMatching:
		return scoreMatching(q, v.Pairs)
	default:
		return 0
	}
}

// scoreMCQ grades single-answer MCQ by exact match and multi-select MCQ by
// the fraction of correct options matched. Extra wrong selections earn no
// credit but carry no penalty.
func scoreMCQ(q *model.Question, choices []string) float64 {
	correct := q.CorrectAnswers()
	if len(correct) == 0 || len(choices) == 0 {
		return 0
	}

	if len(correct) == 1 && len(choices) == 1 {
		if choices[0] == correct[0] {
			return q.Points
		}
		return 0
	}

	correctSet := make(map[string]bool, len(correct))
	for _, c := range correct {
		correctSet[c] = true
	}
	matched := make(map[string]bool)
	for _, c := range choices {
		if correctSet[c] {
			matched[c] = true
		}
	}

	points := q.Points * float64(len(matched)) / float64(len(correct))
	return math.Min(points, q.Points)
}

// scoreExact grades by case-insensitive comparison, ignoring surrounding
// whitespace. Answer validation accepts padded true-false text, so scoring
// must tolerate the same padding.
func scoreExact(q *model.Question, text string) float64 {
	correct := q.CorrectAnswers()
	if len(correct) == 0 {
		return 0
	}
	if strings.EqualFold(strings.TrimSpace(correct[0]), strings.TrimSpace(text)) {
		return q.Points
	}
	return 0
}

// scoreMatching awards the fraction of correct pairs whose right side was
// matched. Each left key is credited at most once.
func scoreMatching(q *model.Question, pairs []model.MatchingPair) float64 {
	correct := q.Pairs()
	if len(correct) == 0 {
		return 0
	}
	want := make(map[string]string, len(correct))
	for _, p := range correct {
		want[p.Left] = p.Right
	}

	matched := make(map[string]bool)
	for _, p := range pairs {
		if right, ok := want[p.Left]; ok && right == p.Right {
			matched[p.Left] = true
		}
	}

	return q.Points * float64(len(matched)) / float64(len(correct))
}

// AnswerPoints resolves the credit for a stored answer: engine-computed for
// auto-gradable types, the externally supplied score (clamped to the
// question's points) for essay and image-recognition, zero when ungraded.
func AnswerPoints(q *model.Question, a *model.StudentAnswer) float64 {
	if q.AutoGradable() {
		return Score(q, a.Value())
	}
	if a.Score != nil {
		return math.Max(0, math.Min(*a.Score, q.Points))
	}
	return 0
}

// Aggregate scores every answer against the test's question set. Unanswered
// questions contribute zero but still count toward the possible total;
// answers referencing questions absent from the set are ignored.
func Aggregate(questions []model.Question, answers []model.StudentAnswer, passingScore float64) Summary {
	byID := make(map[uint]*model.Question, len(questions))
	var possible float64
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
		possible += questions[i].Points
	}

	var total float64
	for i := range answers {
		q, ok := byID[answers[i].QuestionID]
		if !ok {
			continue
		}
		total += AnswerPoints(q, &answers[i])
	}

	pct := Percentage(total, possible)
	return Summary{
		TotalScore:    total,
		TotalPossible: possible,
		Percentage:    pct,
		Grade:         Grade(pct),
		Status:        PassFail(pct, passingScore),
	}
}

// Percentage rounds score/possible to a whole percent, defined as 0 when
// nothing was possible.
func Percentage(score, possible float64) int {
	if possible <= 0 {
		return 0
	}
	pct := int(math.Round(score / possible * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Grade applies the fixed A-F thresholds. The scale is intentionally not
// configurable per test.
func Grade(percentage int) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}

// PassFail compares the rounded percentage against the test's passing score.
func PassFail(percentage int, passingScore float64) model.ResultStatus {
	if float64(percentage) >= passingScore {
		return model.ResultPass
	}
	return model.ResultFail
}
