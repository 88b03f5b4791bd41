package generation

import (
	"fmt"
	"strings"

	"github.com/skillcheck/backend/internal/models"
)

const generationSystemPrompt = `You are an expert assessment author. You write quiz questions that are clear, unambiguous, and appropriate for the requested skill level.

Rules:
- Question stems must be under 250 characters.
- multiple_choice questions have 4 or 5 choices, and the correct answer must be one of them verbatim.
- true_false questions have correct_answer "true" or "false".
- short_answer questions list 2 to 5 correct_keywords a good answer should contain.
- No profanity, no stereotyping, no quoted copyrighted text.

Respond ONLY with JSON in this shape:
{"questions": [{"stem": "...", "question_type": "multiple_choice|true_false|short_answer", "choices": ["..."], "correct_answer": "...", "correct_keywords": ["..."], "explanation": "...", "difficulty": 1, "category": "..."}]}`

func buildGenerationPrompt(req models.GenerateRequest, profile *models.SkillProfile, templates []models.QuestionTemplate, keywords []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write %d %s question(s) for the category %q.\n", req.Count, req.QuestionType, req.Category)
	fmt.Fprintf(&b, "Target difficulty: %d on a 1-10 scale.\n", req.Difficulty)
	fmt.Fprintf(&b, "The learner self-reports as %s.\n", profile.SkillLevel)

	if len(profile.InterestKeywords) > 0 {
		fmt.Fprintf(&b, "Where natural, connect questions to the learner's interests: %s.\n",
			strings.Join(profile.InterestKeywords, ", "))
	}

	if len(keywords) > 0 {
		fmt.Fprintf(&b, "Relevant topic keywords for this category: %s.\n", strings.Join(keywords, ", "))
	}

	if len(templates) > 0 {
		b.WriteString("Use these stem patterns as stylistic guides:\n")
		for _, t := range templates {
			fmt.Fprintf(&b, "- %s\n", t.Pattern)
		}
	}

	return b.String()
}
