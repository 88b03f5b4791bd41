package quality

import (
	"math"
	"strings"
	"testing"

	"github.com/skillcheck/backend/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func mcQuestion() *models.CandidateQuestion {
	return &models.CandidateQuestion{
		Stem:          "Which planet is closest to the sun?",
		QuestionType:  models.TypeMultipleChoice,
		Choices:       []string{"Mercury", "Venus", "Earth", "Mars"},
		CorrectAnswer: "Mercury",
		Difficulty:    3,
		Category:      "astronomy",
	}
}

func TestCheckRules_CleanQuestion(t *testing.T) {
	score, issues := CheckRules(mcQuestion(), DefaultConfig())
	if !almostEqual(score, 1.0) {
		t.Errorf("expected score 1.0, got %f", score)
	}
	if len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}

func TestCheckRules_LongStem(t *testing.T) {
	q := mcQuestion()
	q.Stem = strings.Repeat("x", 300)

	score, issues := CheckRules(q, DefaultConfig())
	if score > 0.80 {
		t.Errorf("expected score <= 0.80 with length penalty, got %f", score)
	}
	if len(issues) != 1 {
		t.Errorf("expected 1 issue, got %v", issues)
	}
}

func TestCheckRules_ChoiceCount(t *testing.T) {
	tests := []struct {
		name    string
		choices []string
		want    float64
	}{
		{"three choices", []string{"Mercury", "Venus", "Earth"}, 0.80},
		{"four choices", []string{"Mercury", "Venus", "Earth", "Mars"}, 1.0},
		{"five choices", []string{"Mercury", "Venus", "Earth", "Mars", "Jupiter"}, 1.0},
		{"six choices", []string{"Mercury", "Venus", "Earth", "Mars", "Jupiter", "Saturn"}, 0.80},
	}

	for _, tt := range tests {
		q := mcQuestion()
		q.Choices = tt.choices
		score, _ := CheckRules(q, DefaultConfig())
		if !almostEqual(score, tt.want) {
			t.Errorf("%s: expected score %f, got %f", tt.name, tt.want, score)
		}
	}
}

func TestCheckRules_AnswerNotInChoices(t *testing.T) {
	q := mcQuestion()
	q.CorrectAnswer = "Pluto"

	score, issues := CheckRules(q, DefaultConfig())
	if !almostEqual(score, 0.70) {
		t.Errorf("expected score 0.70, got %f", score)
	}
	if len(issues) != 1 {
		t.Errorf("expected 1 issue, got %v", issues)
	}
}

func TestCheckRules_DuplicateChoices(t *testing.T) {
	q := mcQuestion()
	q.Choices = []string{"Mercury", "Venus", "Venus", "Mars"}

	score, _ := CheckRules(q, DefaultConfig())
	if !almostEqual(score, 0.85) {
		t.Errorf("expected score 0.85, got %f", score)
	}
}

func TestCheckRules_PenaltiesStack(t *testing.T) {
	q := mcQuestion()
	q.Stem = strings.Repeat("x", 300)
	q.Choices = []string{"Venus", "Venus", "Mars"}
	q.CorrectAnswer = "Pluto"

	// 1.0 - 0.20 (length) - 0.20 (count) - 0.30 (membership) - 0.15 (dup)
	score, issues := CheckRules(q, DefaultConfig())
	if !almostEqual(score, 0.15) {
		t.Errorf("expected score 0.15, got %f", score)
	}
	if len(issues) != 4 {
		t.Errorf("expected 4 issues, got %d: %v", len(issues), issues)
	}
}

func TestCheckRules_ClampAtZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxStemLength = 1

	q := mcQuestion()
	q.Stem = strings.Repeat("x", 300)
	q.Choices = []string{"Venus", "Venus"}
	q.CorrectAnswer = "Pluto"

	score, _ := CheckRules(q, cfg)
	if score < 0 {
		t.Errorf("score must be clamped to [0,1], got %f", score)
	}
}

func TestCheckRules_NonMCSkipsChoiceRules(t *testing.T) {
	q := &models.CandidateQuestion{
		Stem:          "The sun is a star.",
		QuestionType:  models.TypeTrueFalse,
		CorrectAnswer: "true",
	}

	score, issues := CheckRules(q, DefaultConfig())
	if !almostEqual(score, 1.0) {
		t.Errorf("true_false with short stem should score 1.0, got %f", score)
	}
	if len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}

	sa := &models.CandidateQuestion{
		Stem:            strings.Repeat("y", 251),
		QuestionType:    models.TypeShortAnswer,
		CorrectKeywords: []string{"fusion"},
	}
	score, _ = CheckRules(sa, DefaultConfig())
	if !almostEqual(score, 0.80) {
		t.Errorf("short_answer only takes the length penalty, got %f", score)
	}
}
