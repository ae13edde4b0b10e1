package scoring

import (
	"testing"

	"cbt_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mcqSingle(points float64, correct string) *model.Question {
	return &model.Question{
		Type:          model.QuestionMCQ,
		Points:        points,
		Options:       `["Paris","London","Berlin","Madrid"]`,
		CorrectAnswer: `"` + correct + `"`,
	}
}

func mcqMulti(points float64, correct string) *model.Question {
	return &model.Question{
		Type:          model.QuestionMCQ,
		Points:        points,
		Options:       `["A","B","C","D"]`,
		CorrectAnswer: correct,
	}
}

func TestScoreMCQSingle(t *testing.T) {
	q := mcqSingle(5, "Paris")

	tests := []struct {
		name    string
		choices []string
		want    float64
	}{
		{"correct", []string{"Paris"}, 5},
		{"wrong", []string{"London"}, 0},
		{"case sensitive", []string{"paris"}, 0},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(q, model.AnswerValue{Choices: tt.choices})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScoreMCQMultiSelect(t *testing.T) {
	q := mcqMulti(6, `["A","B","C"]`)

	tests := []struct {
		name    string
		choices []string
		want    float64
	}{
		{"all correct", []string{"A", "B", "C"}, 6},
		{"two of three", []string{"A", "B"}, 4},
		{"one of three", []string{"C"}, 2},
		{"none correct", []string{"D"}, 0},
		{"extra wrong selection keeps earned credit", []string{"A", "B", "D"}, 4},
		{"duplicates counted once", []string{"A", "A", "B"}, 4},
		{"all plus wrong capped at full points", []string{"A", "B", "C", "D"}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(q, model.AnswerValue{Choices: tt.choices})
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

// Selecting an additional correct option never lowers the score.
func TestScoreMCQMultiSelectMonotonic(t *testing.T) {
	q := mcqMulti(9, `["A","B","C"]`)

	prev := 0.0
	choices := []string{"D"}
	for _, add := range []string{"A", "B", "C"} {
		choices = append(choices, add)
		got := Score(q, model.AnswerValue{Choices: choices})
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
	assert.Equal(t, 9.0, prev)
}

func TestScoreTrueFalse(t *testing.T) {
	q := &model.Question{Type: model.QuestionTrueFalse, Points: 2, CorrectAnswer: `"true"`}

	tests := []struct {
		name string
		text string
		want float64
	}{
		{"exact", "true", 2},
		{"case insensitive", "TRUE", 2},
		{"mixed case", "True", 2},
		{"padded", " true ", 2},
		{"padded mixed case", "\tTrue\n", 2},
		{"wrong", "false", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(q, model.AnswerValue{Text: tt.text})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScoreFillBlank(t *testing.T) {
	q := &model.Question{Type: model.QuestionFillBlank, Points: 3, CorrectAnswer: `"Photosynthesis"`}

	tests := []struct {
		name string
		text string
		want float64
	}{
		{"exact", "Photosynthesis", 3},
		{"case insensitive", "photosynthesis", 3},
		{"surrounding whitespace trimmed", "  photosynthesis  ", 3},
		{"wrong", "respiration", 0},
		{"internal whitespace not normalized", "photo synthesis", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(q, model.AnswerValue{Text: tt.text})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScoreMatching(t *testing.T) {
	q := &model.Question{
		Type:          model.QuestionMatching,
		Points:        8,
		MatchingPairs: `[{"left":"H2O","right":"Water"},{"left":"NaCl","right":"Salt"},{"left":"CO2","right":"Carbon dioxide"},{"left":"O2","right":"Oxygen"}]`,
	}

	tests := []struct {
		name  string
		pairs []model.MatchingPair
		want  float64
	}{
		{
			"all matched",
			[]model.MatchingPair{
				{Left: "H2O", Right: "Water"},
				{Left: "NaCl", Right: "Salt"},
				{Left: "CO2", Right: "Carbon dioxide"},
				{Left: "O2", Right: "Oxygen"},
			},
			8,
		},
		{
			"half matched",
			[]model.MatchingPair{
				{Left: "H2O", Right: "Water"},
				{Left: "NaCl", Right: "Oxygen"},
				{Left: "CO2", Right: "Carbon dioxide"},
				{Left: "O2", Right: "Salt"},
			},
			4,
		},
		{
			"unknown left key ignored",
			[]model.MatchingPair{
				{Left: "H2O", Right: "Water"},
				{Left: "CH4", Right: "Methane"},
			},
			2,
		},
		{
			"duplicate left credited once",
			[]model.MatchingPair{
				{Left: "H2O", Right: "Water"},
				{Left: "H2O", Right: "Water"},
			},
			2,
		},
		{"none submitted", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(q, model.AnswerValue{Pairs: tt.pairs})
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestScoreEssayIsZero(t *testing.T) {
	q := &model.Question{Type: model.QuestionEssay, Points: 10}
	assert.Zero(t, Score(q, model.AnswerValue{Text: "long answer"}))
}

func TestAnswerPoints(t *testing.T) {
	essay := &model.Question{Type: model.QuestionEssay, Points: 10}
	score := func(v float64) *float64 { return &v }

	t.Run("essay uses external score", func(t *testing.T) {
		a := &model.StudentAnswer{Score: score(7.5)}
		assert.Equal(t, 7.5, AnswerPoints(essay, a))
	})

	t.Run("ungraded essay counts zero", func(t *testing.T) {
		a := &model.StudentAnswer{}
		assert.Zero(t, AnswerPoints(essay, a))
	})

	t.Run("external score clamped to question points", func(t *testing.T) {
		a := &model.StudentAnswer{Score: score(12)}
		assert.Equal(t, 10.0, AnswerPoints(essay, a))

		a = &model.StudentAnswer{Score: score(-3)}
		assert.Zero(t, AnswerPoints(essay, a))
	})

	t.Run("auto gradable ignores stored score", func(t *testing.T) {
		q := mcqSingle(5, "Paris")
		a := &model.StudentAnswer{Score: score(1)}
		require.NoError(t, a.SetValue(model.AnswerValue{Choices: []string{"Paris"}}))
		assert.Equal(t, 5.0, AnswerPoints(q, a))
	})
}

func TestAggregate(t *testing.T) {
	questions := []model.Question{
		*mcqSingle(5, "Paris"),
		{Type: model.QuestionTrueFalse, Points: 2, CorrectAnswer: `"false"`},
		{Type: model.QuestionEssay, Points: 10},
		{Type: model.QuestionFillBlank, Points: 3, CorrectAnswer: `"mitochondria"`},
	}
	for i := range questions {
		questions[i].ID = uint(i + 1)
	}

	answer := func(qid uint, v model.AnswerValue, external *float64) model.StudentAnswer {
		a := model.StudentAnswer{QuestionID: qid, Score: external}
		if err := a.SetValue(v); err != nil {
			t.Fatal(err)
		}
		return a
	}
	ptr := func(v float64) *float64 { return &v }

	t.Run("mixed answers", func(t *testing.T) {
		answers := []model.StudentAnswer{
			answer(1, model.AnswerValue{Choices: []string{"Paris"}}, nil),
			answer(2, model.AnswerValue{Text: "true"}, nil),
			answer(3, model.AnswerValue{Text: "essay body"}, ptr(8)),
			// question 4 unanswered
		}

		s := Aggregate(questions, answers, 60)
		assert.Equal(t, 13.0, s.TotalScore)
		assert.Equal(t, 20.0, s.TotalPossible)
		assert.Equal(t, 65, s.Percentage)
		assert.Equal(t, "D", s.Grade)
		assert.Equal(t, model.ResultPass, s.Status)
	})

	t.Run("unanswered questions count toward possible", func(t *testing.T) {
		s := Aggregate(questions, nil, 60)
		assert.Zero(t, s.TotalScore)
		assert.Equal(t, 20.0, s.TotalPossible)
		assert.Equal(t, model.ResultFail, s.Status)
	})

	t.Run("answer to unknown question ignored", func(t *testing.T) {
		answers := []model.StudentAnswer{
			answer(99, model.AnswerValue{Choices: []string{"Paris"}}, nil),
		}
		s := Aggregate(questions, answers, 60)
		assert.Zero(t, s.TotalScore)
	})

	t.Run("empty question set", func(t *testing.T) {
		s := Aggregate(nil, nil, 60)
		assert.Zero(t, s.TotalPossible)
		assert.Zero(t, s.Percentage)
		assert.Equal(t, "F", s.Grade)
		assert.Equal(t, model.ResultFail, s.Status)
	})
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name            string
		score, possible float64
		want            int
	}{
		{"full", 20, 20, 100},
		{"rounds half up", 17, 20, 85},
		{"rounds down", 16.4, 100, 16},
		{"rounds up", 16.5, 100, 17},
		{"zero possible", 5, 0, 0},
		{"zero score", 0, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Percentage(tt.score, tt.possible))
		})
	}
}

func TestGradeBoundaries(t *testing.T) {
	tests := []struct {
		percentage int
		want       string
	}{
		{100, "A"}, {90, "A"},
		{89, "B"}, {80, "B"},
		{79, "C"}, {70, "C"},
		{69, "D"}, {60, "D"},
		{59, "F"}, {0, "F"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Grade(tt.percentage), "percentage %d", tt.percentage)
	}
}

func TestPassFail(t *testing.T) {
	assert.Equal(t, model.ResultPass, PassFail(60, 60))
	assert.Equal(t, model.ResultFail, PassFail(59, 60))
	assert.Equal(t, model.ResultPass, PassFail(0, 0))
}
