package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/skillcheck/backend/internal/llm"
	"github.com/skillcheck/backend/internal/models"
)

// InputError marks a malformed scoring request (missing correct answer,
// unknown question type). Raised to the caller, never defaulted.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid scoring input: %s: %s", e.Field, e.Reason)
}

// Outcome is the scorer's verdict before an explanation is attached.
// TimedOut marks an abandoned short-answer attempt: the caller must not
// make further capability calls for it and attaches the canned
// explanation instead.
type Outcome struct {
	IsCorrect      bool
	Score          int
	KeywordMatches []string
	Feedback       string
	Reasoning      string
	TimedOut       bool
}

// Scorer grades one answer per question type: exact match for
// multiple_choice and true_false, keyword extraction plus an LLM rubric
// score for short_answer. Safe for concurrent use.
type Scorer struct {
	llm llm.Client
	cfg Config
}

func NewScorer(client llm.Client, cfg Config) *Scorer {
	return &Scorer{llm: client, cfg: cfg}
}

// Score dispatches on the question type. External-capability degradation
// is converted to the documented fallback; only contract violations
// return an error.
func (s *Scorer) Score(ctx context.Context, q *models.StoredQuestion, answer string) (*Outcome, error) {
	switch q.QuestionType {
	case models.TypeMultipleChoice, models.TypeTrueFalse:
		return s.scoreExact(q, answer)
	case models.TypeShortAnswer:
		return s.scoreShortAnswer(ctx, q, answer), nil
	default:
		return nil, &InputError{Field: "question_type", Reason: fmt.Sprintf("unknown type %q", q.QuestionType)}
	}
}

// scoreExact never calls the LLM and cannot degrade.
func (s *Scorer) scoreExact(q *models.StoredQuestion, answer string) (*Outcome, error) {
	if strings.TrimSpace(q.CorrectAnswer) == "" {
		return nil, &InputError{Field: "correct_answer", Reason: "missing"}
	}

	correct := strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer))
	score := 0
	if correct {
		score = 100
	}

	return &Outcome{IsCorrect: correct, Score: score}, nil
}

func (s *Scorer) scoreShortAnswer(ctx context.Context, q *models.StoredQuestion, answer string) *Outcome {
	matches := MatchKeywords(answer, q.CorrectKeywords)

	score, reasoning, err := s.gradeWithRubric(ctx, q, answer, matches)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			// A timeout abandons the whole grading attempt, including
			// whatever the substring matching found.
			log.Printf("WARN: short-answer grading timed out for question %d", q.ID)
			return &Outcome{
				IsCorrect:      false,
				Score:          s.cfg.FallbackScore,
				KeywordMatches: []string{},
				Feedback:       degradedFeedback,
				Reasoning:      degradedFeedback,
				TimedOut:       true,
			}
		}
		log.Printf("WARN: short-answer grading degraded for question %d: %v", q.ID, err)
		score = s.cfg.FallbackScore
		reasoning = degradedFeedback
	}

	out := &Outcome{
		IsCorrect:      score >= s.cfg.CorrectThreshold,
		Score:          score,
		KeywordMatches: matches,
		Reasoning:      reasoning,
	}

	// Partial-credit band gets supplementary feedback distinguishing
	// "close" from "not yet".
	if !out.IsCorrect {
		if score >= s.cfg.PartialCreditMin {
			out.Feedback = "Good effort — you covered most of the key points. Review the explanation to close the gap."
		} else {
			out.Feedback = "This topic needs more work. Go through the explanation and the listed references."
		}
	}

	return out
}

// MatchKeywords returns the subset of expected keywords found in the
// answer by case-insensitive substring match, preserving their original
// order.
func MatchKeywords(answer string, keywords []string) []string {
	lower := strings.ToLower(answer)
	matches := []string{}
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			matches = append(matches, kw)
		}
	}
	return matches
}

const degradedFeedback = "Automated grading is temporarily unavailable; a provisional score was assigned."

type rubricResponse struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

func (s *Scorer) gradeWithRubric(ctx context.Context, q *models.StoredQuestion, answer string, matches []string) (int, string, error) {
	if s.llm == nil {
		return 0, "", fmt.Errorf("no grading capability configured")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ScoreTimeout)
	defer cancel()

	resp, err := s.llm.Generate(ctx, gradingSystemPrompt, buildGradingPrompt(q, answer, matches))
	if err != nil {
		return 0, "", fmt.Errorf("grading call failed: %w", err)
	}

	cleaned := llm.StripCodeFences(resp.Content)
	var parsed rubricResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return 0, "", fmt.Errorf("failed to parse grading response: %w", err)
	}

	return clampScore(parsed.Score), parsed.Reasoning, nil
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

const gradingSystemPrompt = `You are a strict but fair teacher grading a free-form quiz answer. Weigh keyword presence at 40%, semantic correctness at 40%, and clarity at 20%. Respond with JSON only.`

func buildGradingPrompt(q *models.StoredQuestion, answer string, matches []string) string {
	var sb strings.Builder

	sb.WriteString("QUESTION:\n")
	sb.WriteString(q.Stem)
	sb.WriteString("\n\nEXPECTED KEYWORDS: ")
	sb.WriteString(strings.Join(q.CorrectKeywords, ", "))
	sb.WriteString("\nKEYWORDS FOUND IN ANSWER: ")
	sb.WriteString(strings.Join(matches, ", "))
	sb.WriteString("\n\nSTUDENT ANSWER:\n")
	sb.WriteString(answer)
	sb.WriteString(`

Grade the answer from 0 to 100. Respond with JSON only:
{
  "score": 85,
  "reasoning": "Why you assigned this score..."
}`)

	return sb.String()
}
