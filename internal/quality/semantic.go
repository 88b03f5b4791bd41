package quality

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/skillcheck/backend/internal/llm"
	"github.com/skillcheck/backend/internal/models"
)

// Evaluator asks the LLM for a 0-1 quality judgment of a candidate
// question. The returned score is a lower-confidence estimate: the gate
// takes min(rule, semantic), so an evaluator failure (which yields the
// default score) can only lower an assessment, never rescue one.
type Evaluator struct {
	llm llm.Client
	cfg Config
}

func NewEvaluator(client llm.Client, cfg Config) *Evaluator {
	return &Evaluator{llm: client, cfg: cfg}
}

// Evaluate returns a quality score clamped to [0, 1]. Any failure to
// invoke the model or to parse a float from its output is converted to
// the configured default score, never an error.
func (e *Evaluator) Evaluate(ctx context.Context, q *models.CandidateQuestion) float64 {
	if e.llm == nil {
		return e.cfg.DefaultSemanticScore
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.EvalTimeout)
	defer cancel()

	resp, err := e.llm.Generate(ctx, evaluationSystemPrompt, buildEvaluationPrompt(q))
	if err != nil {
		log.Printf("WARN: semantic evaluation failed: %v — using default score %.2f", err, e.cfg.DefaultSemanticScore)
		return e.cfg.DefaultSemanticScore
	}

	score, err := parseScore(resp.Content)
	if err != nil {
		log.Printf("WARN: unparseable semantic score %q — using default score %.2f", resp.Content, e.cfg.DefaultSemanticScore)
		return e.cfg.DefaultSemanticScore
	}

	return clamp01(score)
}

// parseScore extracts a single float from the model output. The prompt
// asks for a bare number, but fences and stray prose still happen.
func parseScore(content string) (float64, error) {
	s := llm.StripCodeFences(content)
	if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return v, nil
	}
	for _, field := range strings.Fields(s) {
		if v, err := strconv.ParseFloat(strings.Trim(field, ".,:;"), 64); err == nil {
			return v, nil
		}
	}
	return 0, fmt.Errorf("no float in response")
}

const evaluationSystemPrompt = `You are an experienced educational content reviewer. You rate quiz questions for overall quality. Respond with a single number between 0.0 and 1.0 and nothing else.`

func buildEvaluationPrompt(q *models.CandidateQuestion) string {
	var sb strings.Builder

	sb.WriteString("Rate the overall quality of this quiz question on these criteria:\n")
	sb.WriteString("- clarity: is the question unambiguous?\n")
	sb.WriteString("- appropriateness: does it suit the stated difficulty and category?\n")
	sb.WriteString("- correctness: is the marked answer actually correct?\n")
	sb.WriteString("- bias: is the content free of stereotyping or loaded framing?\n")
	sb.WriteString("- format: is the structure appropriate for the question type?\n\n")

	sb.WriteString("QUESTION TYPE: ")
	sb.WriteString(string(q.QuestionType))
	sb.WriteString("\nQUESTION:\n")
	sb.WriteString(q.Stem)
	sb.WriteString("\n")

	if len(q.Choices) > 0 {
		sb.WriteString("\nCHOICES:\n")
		for i, c := range q.Choices {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, c))
		}
	}

	if q.CorrectAnswer != "" {
		sb.WriteString("\nMARKED CORRECT: ")
		sb.WriteString(q.CorrectAnswer)
		sb.WriteString("\n")
	}

	sb.WriteString("\nRespond with a single number between 0.0 and 1.0.")

	return sb.String()
}
