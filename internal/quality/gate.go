package quality

import (
	"context"
	"fmt"
	"strings"

	"github.com/skillcheck/backend/internal/models"
)

// InputError marks a malformed question reaching the gate: a programming
// or upstream-data error, not a quality judgment. It is always surfaced
// to the caller, never silently defaulted.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid question input: %s: %s", e.Field, e.Reason)
}

// IsInputError reports whether err is a question input contract violation.
func IsInputError(err error) bool {
	_, ok := err.(*InputError)
	return ok
}

// Gate combines the deterministic rule checks with the semantic
// evaluation into a single accept/revise/discard verdict.
type Gate struct {
	eval *Evaluator
	cfg  Config
}

func NewGate(eval *Evaluator, cfg Config) *Gate {
	return &Gate{eval: eval, cfg: cfg}
}

// Validate assesses one candidate question. The final score is always
// min(rule score, semantic score); the recommendation follows the fixed
// thresholds in the config.
func (g *Gate) Validate(ctx context.Context, q *models.CandidateQuestion) (*models.QualityAssessment, error) {
	if err := checkInput(q); err != nil {
		return nil, err
	}

	ruleScore, issues := CheckRules(q, g.cfg)
	semanticScore := g.eval.Evaluate(ctx, q)

	finalScore := ruleScore
	if semanticScore < finalScore {
		finalScore = semanticScore
	}

	rec := g.recommendationFor(finalScore)

	assessment := &models.QualityAssessment{
		RuleScore:      ruleScore,
		SemanticScore:  semanticScore,
		FinalScore:     finalScore,
		Recommendation: rec,
		Issues:         issues,
		ShouldDiscard:  finalScore < g.cfg.DiscardThreshold || rec == models.RecommendationReject,
	}
	assessment.Feedback = buildFeedback(assessment)

	return assessment, nil
}

// ValidateBatch applies the single-item logic per element. A malformed
// element gets the worst-case default assessment instead of aborting the
// batch; the output always has one entry per input.
func (g *Gate) ValidateBatch(ctx context.Context, questions []*models.CandidateQuestion) []models.QualityAssessment {
	results := make([]models.QualityAssessment, 0, len(questions))

	for _, q := range questions {
		var assessment *models.QualityAssessment
		var err error

		if q == nil {
			err = &InputError{Field: "question", Reason: "missing"}
		} else {
			assessment, err = g.Validate(ctx, q)
		}

		if err != nil {
			a := discardAssessment(err.Error())
			results = append(results, a)
			continue
		}

		results = append(results, *assessment)
	}

	return results
}

// discardAssessment is the maximally conservative default substituted for
// an element that cannot be assessed at all.
func discardAssessment(reason string) models.QualityAssessment {
	a := models.QualityAssessment{
		RuleScore:      0,
		SemanticScore:  0,
		FinalScore:     0,
		Recommendation: models.RecommendationReject,
		Issues:         []string{reason},
		ShouldDiscard:  true,
	}
	a.Feedback = buildFeedback(&a)
	return a
}

func (g *Gate) recommendationFor(finalScore float64) models.Recommendation {
	switch {
	case finalScore >= g.cfg.PassThreshold:
		return models.RecommendationPass
	case finalScore >= g.cfg.DiscardThreshold:
		return models.RecommendationRevise
	default:
		return models.RecommendationReject
	}
}

func checkInput(q *models.CandidateQuestion) error {
	if strings.TrimSpace(q.Stem) == "" {
		return &InputError{Field: "stem", Reason: "must not be empty"}
	}
	if !models.ValidQuestionTypes[q.QuestionType] {
		return &InputError{Field: "question_type", Reason: fmt.Sprintf("unknown type %q", q.QuestionType)}
	}
	if q.QuestionType == models.TypeMultipleChoice && len(q.Choices) == 0 {
		return &InputError{Field: "choices", Reason: "required for multiple_choice"}
	}
	if q.QuestionType == models.TypeShortAnswer {
		if len(q.CorrectKeywords) == 0 && strings.TrimSpace(q.CorrectAnswer) == "" {
			return &InputError{Field: "correct_answer", Reason: "must not be empty"}
		}
	} else if strings.TrimSpace(q.CorrectAnswer) == "" {
		return &InputError{Field: "correct_answer", Reason: "must not be empty"}
	}
	return nil
}

// buildFeedback assembles the human-readable summary attached to an
// assessment. Presentation only; nothing downstream branches on it.
func buildFeedback(a *models.QualityAssessment) string {
	var sb strings.Builder

	switch a.Recommendation {
	case models.RecommendationPass:
		sb.WriteString("Question accepted.")
	case models.RecommendationRevise:
		sb.WriteString("Question needs revision before use.")
	default:
		sb.WriteString("Question rejected.")
	}

	sb.WriteString(fmt.Sprintf(" Rule score %.2f, semantic score %.2f.", a.RuleScore, a.SemanticScore))

	if len(a.Issues) > 0 {
		sb.WriteString(" Issues: ")
		sb.WriteString(strings.Join(a.Issues, "; "))
		sb.WriteString(".")
	}

	return sb.String()
}
