package quality

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/skillcheck/backend/internal/llm"
	"github.com/skillcheck/backend/internal/models"
)

// stubClient returns a fixed response or error for every call.
type stubClient struct {
	content string
	err     error
}

func (s *stubClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (*llm.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Content: s.content}, nil
}

func newTestGate(content string, err error) *Gate {
	cfg := DefaultConfig()
	return NewGate(NewEvaluator(&stubClient{content: content, err: err}, cfg), cfg)
}

func TestValidate_FinalScoreIsMin(t *testing.T) {
	tests := []struct {
		name     string
		semantic string
		want     float64
	}{
		{"semantic below rule", "0.60", 0.60},
		{"semantic above rule", "0.95", 0.80},
	}

	for _, tt := range tests {
		gate := newTestGate(tt.semantic, nil)

		q := mcQuestion()
		q.Stem = strings.Repeat("x", 300) // rule score 0.80

		a, err := gate.Validate(context.Background(), q)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if !almostEqual(a.FinalScore, tt.want) {
			t.Errorf("%s: expected final score %f, got %f", tt.name, tt.want, a.FinalScore)
		}
		if !almostEqual(a.FinalScore, math.Min(a.RuleScore, a.SemanticScore)) {
			t.Errorf("%s: final score must equal min(rule, semantic)", tt.name)
		}
	}
}

func TestValidate_RecommendationThresholds(t *testing.T) {
	tests := []struct {
		semantic string
		want     models.Recommendation
		discard  bool
	}{
		{"0.90", models.RecommendationPass, false},
		{"0.85", models.RecommendationPass, false},
		{"0.84", models.RecommendationRevise, false},
		{"0.70", models.RecommendationRevise, false},
		{"0.69", models.RecommendationReject, true},
		{"0.10", models.RecommendationReject, true},
	}

	for _, tt := range tests {
		gate := newTestGate(tt.semantic, nil)
		a, err := gate.Validate(context.Background(), mcQuestion())
		if err != nil {
			t.Fatalf("semantic %s: unexpected error: %v", tt.semantic, err)
		}
		if a.Recommendation != tt.want {
			t.Errorf("semantic %s: expected %q, got %q", tt.semantic, tt.want, a.Recommendation)
		}
		if a.ShouldDiscard != tt.discard {
			t.Errorf("semantic %s: expected discard=%v, got %v", tt.semantic, tt.discard, a.ShouldDiscard)
		}
	}
}

func TestValidate_EvaluatorFailureUsesDefault(t *testing.T) {
	gate := newTestGate("", errors.New("capability unavailable"))

	a, err := gate.Validate(context.Background(), mcQuestion())
	if err != nil {
		t.Fatalf("capability failure must not propagate: %v", err)
	}
	if !almostEqual(a.SemanticScore, 0.5) {
		t.Errorf("expected default semantic score 0.5, got %f", a.SemanticScore)
	}
	// Rule score 1.0, semantic 0.5 → final 0.5 → reject. Failure biases
	// toward caution, not acceptance.
	if a.Recommendation != models.RecommendationReject {
		t.Errorf("expected reject, got %q", a.Recommendation)
	}
	if !a.ShouldDiscard {
		t.Error("expected discard on evaluator failure")
	}
}

func TestValidate_UnparseableScoreUsesDefault(t *testing.T) {
	gate := newTestGate("the question looks great to me", nil)

	a, err := gate.Validate(context.Background(), mcQuestion())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(a.SemanticScore, 0.5) {
		t.Errorf("expected default semantic score 0.5, got %f", a.SemanticScore)
	}
}

func TestValidate_ScoreClamped(t *testing.T) {
	gate := newTestGate("1.7", nil)

	a, err := gate.Validate(context.Background(), mcQuestion())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(a.SemanticScore, 1.0) {
		t.Errorf("expected clamped score 1.0, got %f", a.SemanticScore)
	}
}

func TestValidate_InputErrors(t *testing.T) {
	gate := newTestGate("0.9", nil)

	tests := []struct {
		name string
		q    *models.CandidateQuestion
	}{
		{"empty stem", &models.CandidateQuestion{QuestionType: models.TypeTrueFalse, CorrectAnswer: "true"}},
		{"bad type", &models.CandidateQuestion{Stem: "x?", QuestionType: "essay", CorrectAnswer: "y"}},
		{"mc without choices", &models.CandidateQuestion{Stem: "x?", QuestionType: models.TypeMultipleChoice, CorrectAnswer: "y"}},
		{"empty answer", &models.CandidateQuestion{Stem: "x?", QuestionType: models.TypeTrueFalse}},
	}

	for _, tt := range tests {
		_, err := gate.Validate(context.Background(), tt.q)
		if err == nil {
			t.Errorf("%s: expected input error", tt.name)
			continue
		}
		if !IsInputError(err) {
			t.Errorf("%s: expected InputError, got %T", tt.name, err)
		}
	}
}

func TestValidateBatch_MalformedElementGetsDefault(t *testing.T) {
	gate := newTestGate("0.9", nil)

	questions := []*models.CandidateQuestion{
		mcQuestion(),
		{QuestionType: models.TypeMultipleChoice}, // empty stem, no choices
		mcQuestion(),
	}

	results := gate.ValidateBatch(context.Background(), questions)
	if len(results) != 3 {
		t.Fatalf("batch must preserve length, got %d", len(results))
	}

	if results[0].ShouldDiscard || results[2].ShouldDiscard {
		t.Error("well-formed elements must not be affected by a malformed neighbor")
	}

	bad := results[1]
	if !bad.ShouldDiscard || bad.Recommendation != models.RecommendationReject || !almostEqual(bad.FinalScore, 0) {
		t.Errorf("malformed element must get the conservative default, got %+v", bad)
	}
}

func TestValidate_FeedbackMentionsIssues(t *testing.T) {
	gate := newTestGate("0.9", nil)

	q := mcQuestion()
	q.CorrectAnswer = "Pluto"

	a, err := gate.Validate(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(a.Feedback, "correct answer not present") {
		t.Errorf("feedback should enumerate issues, got %q", a.Feedback)
	}
}
