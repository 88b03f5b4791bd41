package quality

import (
	"encoding/json"
	"log"

	"github.com/skillcheck/backend/internal/models"
)

// Reconcile resolves internal contradictions in an assessment that
// round-tripped through storage or another process. It only tightens
// consistency between the discard flag, the score, and the
// recommendation; it never invents a score.
//
// Priority order:
//  1. recommendation "reject" forces discard, regardless of the stated
//     flag or the score.
//  2. recommendation "pass"/"revise" with a stated discard flag that
//     contradicts a final score at or above the discard threshold:
//     the recommendation wins over the stale flag.
//  3. no stated flag at all: derive it from the score and recommendation.
//  4. otherwise the stated flag stands.
func Reconcile(raw models.RawAssessment, cfg Config) models.QualityAssessment {
	finalScore := resolveFinalScore(raw)

	rec := models.Recommendation(raw.Recommendation)
	if !models.ValidRecommendations[rec] {
		// Unknown or missing recommendation: derive one from the score
		// the same way the gate would.
		switch {
		case finalScore >= cfg.PassThreshold:
			rec = models.RecommendationPass
		case finalScore >= cfg.DiscardThreshold:
			rec = models.RecommendationRevise
		default:
			rec = models.RecommendationReject
		}
	}

	var discard bool
	switch {
	case rec == models.RecommendationReject:
		discard = true
	case raw.ShouldDiscard != nil && *raw.ShouldDiscard && finalScore >= cfg.DiscardThreshold:
		// Flag says discard, score and recommendation say keep.
		discard = false
	case raw.ShouldDiscard == nil:
		discard = finalScore < cfg.DiscardThreshold
	default:
		discard = *raw.ShouldDiscard
	}

	a := models.QualityAssessment{
		RuleScore:      valueOr(raw.RuleScore, finalScore),
		SemanticScore:  valueOr(raw.SemanticScore, finalScore),
		FinalScore:     finalScore,
		Recommendation: rec,
		Issues:         raw.Issues,
		ShouldDiscard:  discard,
	}
	a.Feedback = buildFeedback(&a)
	return a
}

// ReconcileBatch parses and reconciles each serialized element
// independently. An element that fails to parse is replaced by the
// maximally conservative default rather than dropped, so the output
// length always matches the input length.
func ReconcileBatch(items []json.RawMessage, cfg Config) []models.QualityAssessment {
	results := make([]models.QualityAssessment, 0, len(items))

	for i, item := range items {
		var raw models.RawAssessment
		if err := json.Unmarshal(item, &raw); err != nil {
			log.Printf("WARN: assessment %d failed to parse: %v — substituting discard default", i, err)
			results = append(results, discardAssessment("unparseable assessment"))
			continue
		}
		results = append(results, Reconcile(raw, cfg))
	}

	return results
}

// resolveFinalScore prefers the stated final score, falls back to the
// min of the stated components, and bottoms out at 0 when nothing is
// stated.
func resolveFinalScore(raw models.RawAssessment) float64 {
	if raw.FinalScore != nil {
		return clamp01(*raw.FinalScore)
	}
	if raw.RuleScore != nil && raw.SemanticScore != nil {
		if *raw.RuleScore < *raw.SemanticScore {
			return clamp01(*raw.RuleScore)
		}
		return clamp01(*raw.SemanticScore)
	}
	if raw.RuleScore != nil {
		return clamp01(*raw.RuleScore)
	}
	if raw.SemanticScore != nil {
		return clamp01(*raw.SemanticScore)
	}
	return 0
}

func valueOr(v *float64, fallback float64) float64 {
	if v != nil {
		return clamp01(*v)
	}
	return fallback
}
