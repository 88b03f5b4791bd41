package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skillcheck/backend/internal/llm"
	"github.com/skillcheck/backend/internal/models"
)

type generatedBatch struct {
	Questions []generatedQuestion `json:"questions"`
}

type generatedQuestion struct {
	Stem            string   `json:"stem"`
	QuestionType    string   `json:"question_type"`
	Choices         []string `json:"choices,omitempty"`
	CorrectAnswer   string   `json:"correct_answer,omitempty"`
	CorrectKeywords []string `json:"correct_keywords,omitempty"`
	Explanation     string   `json:"explanation"`
	Difficulty      int      `json:"difficulty"`
	Category        string   `json:"category"`
}

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// ParseQuestions converts raw LLM output into candidate questions.
// Structural problems are accumulated per-question rather than failing
// on the first, so the error message names everything wrong at once.
func ParseQuestions(responseBody string) ([]*models.CandidateQuestion, error) {
	cleaned := llm.StripCodeFences(responseBody)

	var batch generatedBatch
	if err := json.Unmarshal([]byte(cleaned), &batch); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if len(batch.Questions) == 0 {
		return nil, &ValidationError{Errors: []string{"no questions in batch"}}
	}

	var errs []string
	candidates := make([]*models.CandidateQuestion, 0, len(batch.Questions))

	for i, q := range batch.Questions {
		qNum := i + 1

		qt := models.QuestionType(q.QuestionType)
		if !models.ValidQuestionTypes[qt] {
			errs = append(errs, fmt.Sprintf("question %d: invalid question_type %q", qNum, q.QuestionType))
			continue
		}

		if strings.TrimSpace(q.Stem) == "" {
			errs = append(errs, fmt.Sprintf("question %d: empty stem", qNum))
			continue
		}

		switch qt {
		case models.TypeMultipleChoice:
			if len(q.Choices) == 0 {
				errs = append(errs, fmt.Sprintf("question %d: multiple_choice without choices", qNum))
				continue
			}
		case models.TypeTrueFalse:
			answer := strings.ToLower(strings.TrimSpace(q.CorrectAnswer))
			if answer != "true" && answer != "false" {
				errs = append(errs, fmt.Sprintf("question %d: true_false answer %q is not true/false", qNum, q.CorrectAnswer))
				continue
			}
		case models.TypeShortAnswer:
			if len(q.CorrectKeywords) == 0 && strings.TrimSpace(q.CorrectAnswer) == "" {
				errs = append(errs, fmt.Sprintf("question %d: short_answer without keywords or answer", qNum))
				continue
			}
		}

		difficulty := q.Difficulty
		if difficulty < 1 || difficulty > 10 {
			difficulty = 5
		}

		candidates = append(candidates, &models.CandidateQuestion{
			Stem:            strings.TrimSpace(q.Stem),
			QuestionType:    qt,
			Choices:         q.Choices,
			CorrectAnswer:   q.CorrectAnswer,
			CorrectKeywords: q.CorrectKeywords,
			Explanation:     q.Explanation,
			Difficulty:      difficulty,
			Category:        q.Category,
		})
	}

	if len(candidates) == 0 {
		return nil, &ValidationError{Errors: errs}
	}
	if len(errs) > 0 {
		return candidates, &ValidationError{Errors: errs}
	}
	return candidates, nil
}
