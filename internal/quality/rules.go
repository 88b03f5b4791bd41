package quality

import (
	"fmt"
	"strings"

	"github.com/skillcheck/backend/internal/models"
)

// Fixed penalties for structural rule violations. Each rule is
// independently triggerable and independently reported as an issue.
const (
	penaltyStemLength      = 0.20
	penaltyChoiceCount     = 0.20
	penaltyAnswerMissing   = 0.30
	penaltyDuplicateChoice = 0.15
)

// CheckRules runs the deterministic structural checks on a candidate
// question. It starts at 1.0, subtracts a fixed penalty per violation,
// and clamps the result to [0, 1]. It never fails.
func CheckRules(q *models.CandidateQuestion, cfg Config) (float64, []string) {
	score := 1.0
	var issues []string

	if len(q.Stem) > cfg.MaxStemLength {
		score -= penaltyStemLength
		issues = append(issues, fmt.Sprintf("stem length %d exceeds maximum %d", len(q.Stem), cfg.MaxStemLength))
	}

	if q.QuestionType == models.TypeMultipleChoice {
		if len(q.Choices) < cfg.MinChoices || len(q.Choices) > cfg.MaxChoices {
			score -= penaltyChoiceCount
			issues = append(issues, fmt.Sprintf("choice count %d outside range [%d, %d]", len(q.Choices), cfg.MinChoices, cfg.MaxChoices))
		}

		if !containsChoice(q.Choices, q.CorrectAnswer) {
			score -= penaltyAnswerMissing
			issues = append(issues, "correct answer not present among choices")
		}

		if dup := firstDuplicate(q.Choices); dup != "" {
			score -= penaltyDuplicateChoice
			issues = append(issues, fmt.Sprintf("duplicate choice %q", dup))
		}
	}

	return clamp01(score), issues
}

func containsChoice(choices []string, answer string) bool {
	for _, c := range choices {
		if c == answer {
			return true
		}
	}
	return false
}

func firstDuplicate(choices []string) string {
	seen := make(map[string]bool, len(choices))
	for _, c := range choices {
		key := strings.TrimSpace(c)
		if seen[key] {
			return c
		}
		seen[key] = true
	}
	return ""
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
