package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/skillcheck/backend/internal/llm"
	"github.com/skillcheck/backend/internal/models"
	"github.com/skillcheck/backend/internal/quality"
)

// Config holds the orchestrator's retry and fallback policy. The
// components downstream of it own none of this; retries live here.
type Config struct {
	// ProfileAttempts is how many times the profile lookup is tried
	// before the hardcoded default profile is used.
	ProfileAttempts int
	// RegenAttempts bounds how many times a safety-rejected batch is
	// regenerated.
	RegenAttempts int
	DefaultCount  int
	GenTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		ProfileAttempts: 3,
		RegenAttempts:   2,
		DefaultCount:    5,
		GenTimeout:      60 * time.Second,
	}
}

// QuestionSink persists gated questions and audit records. *Store
// satisfies it.
type QuestionSink interface {
	SaveQuestion(ctx context.Context, q *models.CandidateQuestion, a *models.QualityAssessment) (int64, error)
	GetQuestion(ctx context.Context, questionID int64) (*models.StoredQuestion, error)
	LogValidation(ctx context.Context, questionID *int64, stage, model string, a *models.QualityAssessment) error
	UpdateAssessment(ctx context.Context, questionID int64, a *models.QualityAssessment) error
	ListValidations(ctx context.Context, questionID int64) ([]models.ValidationLog, error)
}

// Service sequences one generation run: profile lookup, template and
// keyword lookups, LLM generation, safety filter, quality gate,
// persistence. Each step has its own failure policy; only generation
// itself can abort the run.
type Service struct {
	client    llm.Client
	model     string
	profiles  ProfileSource
	templates TemplateSource
	keywords  KeywordSource
	safety    *quality.SafetyFilter
	gate      *quality.Gate
	sink      QuestionSink
	cfg       Config
}

func NewService(client llm.Client, model string, profiles ProfileSource, templates TemplateSource, keywords KeywordSource, safety *quality.SafetyFilter, gate *quality.Gate, sink QuestionSink, cfg Config) *Service {
	return &Service{
		client:    client,
		model:     model,
		profiles:  profiles,
		templates: templates,
		keywords:  keywords,
		safety:    safety,
		gate:      gate,
		sink:      sink,
		cfg:       cfg,
	}
}

// defaultProfile stands in when the profile lookup fails every attempt.
func defaultProfile(userID int64) *models.SkillProfile {
	return &models.SkillProfile{
		UserID:     userID,
		SkillLevel: "beginner",
	}
}

// Generate runs the full pipeline and reports what was saved and what
// the gate discarded.
func (s *Service) Generate(ctx context.Context, userID int64, req models.GenerateRequest) (*models.GenerateResponse, error) {
	if !models.ValidQuestionTypes[req.QuestionType] {
		return nil, fmt.Errorf("invalid question_type %q", req.QuestionType)
	}
	if req.Count <= 0 {
		req.Count = s.cfg.DefaultCount
	}
	if req.Difficulty < 1 || req.Difficulty > 10 {
		req.Difficulty = 5
	}

	profile := s.lookupProfile(ctx, userID)
	if req.Category == "" {
		req.Category = profile.Category
	}

	templates := s.lookupTemplates(ctx, req.Category, profile)
	keywords := s.lookupKeywords(ctx, req.Category)

	candidates, err := s.generateSafe(ctx, req, profile, templates, keywords)
	if err != nil {
		return nil, err
	}

	assessments := s.gate.ValidateBatch(ctx, candidates)

	resp := &models.GenerateResponse{QuestionIDs: []int64{}}
	for i, a := range assessments {
		assessment := a
		if assessment.ShouldDiscard {
			resp.QuestionsDiscarded++
			if err := s.sink.LogValidation(ctx, nil, "generation", s.model, &assessment); err != nil {
				log.Printf("WARN: [generation] validation log failed: %v", err)
			}
			continue
		}

		id, err := s.sink.SaveQuestion(ctx, candidates[i], &assessment)
		if err != nil {
			return nil, fmt.Errorf("save question: %w", err)
		}
		resp.QuestionsSaved++
		resp.QuestionIDs = append(resp.QuestionIDs, id)

		if err := s.sink.LogValidation(ctx, &id, "generation", s.model, &assessment); err != nil {
			log.Printf("WARN: [generation] validation log failed for question %d: %v", id, err)
		}
	}

	resp.Message = fmt.Sprintf("Saved %d question(s), discarded %d", resp.QuestionsSaved, resp.QuestionsDiscarded)
	return resp, nil
}

// ImportAssessment reconciles an externally produced assessment and
// applies it to a stored question. The raw payload is untrusted; the
// reconciler resolves contradictions and an unparseable payload gets
// the conservative discard default.
func (s *Service) ImportAssessment(ctx context.Context, questionID int64, payload json.RawMessage) (*models.QualityAssessment, error) {
	reconciled := quality.ReconcileBatch([]json.RawMessage{payload}, quality.DefaultConfig())
	assessment := reconciled[0]

	if err := s.sink.UpdateAssessment(ctx, questionID, &assessment); err != nil {
		return nil, err
	}
	if err := s.sink.LogValidation(ctx, &questionID, "reconcile", "external", &assessment); err != nil {
		log.Printf("WARN: [generation] validation log failed for question %d: %v", questionID, err)
	}
	return &assessment, nil
}

// Revalidate runs a stored question back through the quality gate,
// applies the fresh verdict, and audits it. Useful after the evaluation
// rubric or rule config changes.
func (s *Service) Revalidate(ctx context.Context, questionID int64) (*models.QualityAssessment, error) {
	question, err := s.sink.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	candidate := question.Candidate()
	assessment, err := s.gate.Validate(ctx, &candidate)
	if err != nil {
		return nil, fmt.Errorf("revalidate question %d: %w", questionID, err)
	}

	if err := s.sink.UpdateAssessment(ctx, questionID, assessment); err != nil {
		return nil, err
	}
	if err := s.sink.LogValidation(ctx, &questionID, "revalidate", s.model, assessment); err != nil {
		log.Printf("WARN: [generation] validation log failed for question %d: %v", questionID, err)
	}
	return assessment, nil
}

// Validations returns the audit trail for one question.
func (s *Service) Validations(ctx context.Context, questionID int64) ([]models.ValidationLog, error) {
	return s.sink.ListValidations(ctx, questionID)
}

// lookupProfile tries the profile source up to ProfileAttempts times,
// then falls back to the hardcoded default profile.
func (s *Service) lookupProfile(ctx context.Context, userID int64) *models.SkillProfile {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.ProfileAttempts; attempt++ {
		profile, err := s.profiles.GetProfile(ctx, userID)
		if err == nil {
			return profile
		}
		lastErr = err
	}
	log.Printf("WARN: [generation] profile lookup failed after %d attempts, using default: %v", s.cfg.ProfileAttempts, lastErr)
	return defaultProfile(userID)
}

// lookupTemplates is skipped entirely when the profile has no interest
// keywords; a failed search degrades to no templates.
func (s *Service) lookupTemplates(ctx context.Context, category string, profile *models.SkillProfile) []models.QuestionTemplate {
	if len(profile.InterestKeywords) == 0 {
		return nil
	}
	templates, err := s.templates.FindTemplates(ctx, category, profile.InterestKeywords)
	if err != nil {
		log.Printf("WARN: [generation] template search failed, continuing without templates: %v", err)
		return nil
	}
	return templates
}

func (s *Service) lookupKeywords(ctx context.Context, category string) []string {
	keywords, err := s.keywords.GetKeywords(ctx, category)
	if err != nil {
		log.Printf("WARN: [generation] keyword lookup failed, continuing without keywords: %v", err)
		return nil
	}
	return keywords
}

// generateSafe calls the LLM and re-generates the whole batch when any
// question fails the safety filter, up to RegenAttempts extra rounds.
func (s *Service) generateSafe(ctx context.Context, req models.GenerateRequest, profile *models.SkillProfile, templates []models.QuestionTemplate, keywords []string) ([]*models.CandidateQuestion, error) {
	prompt := buildGenerationPrompt(req, profile, templates, keywords)

	var lastSafe []*models.CandidateQuestion
	var lastViolation error
	for attempt := 0; attempt <= s.cfg.RegenAttempts; attempt++ {
		genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenTimeout)
		resp, err := s.client.Generate(genCtx, generationSystemPrompt, prompt)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("generation call failed: %w", err)
		}

		candidates, err := ParseQuestions(resp.Content)
		if err != nil && len(candidates) == 0 {
			return nil, err
		}
		if err != nil {
			log.Printf("WARN: [generation] partial parse, kept %d question(s): %v", len(candidates), err)
		}

		var safe []*models.CandidateQuestion
		violated := false
		for _, q := range candidates {
			if err := s.safety.ValidateQuestion(q); err != nil {
				lastViolation = err
				violated = true
				log.Printf("WARN: [generation] safety violation, dropping question: %v", err)
				continue
			}
			safe = append(safe, q)
		}

		if !violated {
			if len(safe) == 0 {
				return nil, fmt.Errorf("generation produced no usable questions")
			}
			return safe, nil
		}

		lastSafe = safe
		log.Printf("[generation] safety violation in batch, regenerating (attempt %d of %d)", attempt+1, s.cfg.RegenAttempts+1)
	}

	// Out of attempts. Keep whatever passed in the final round rather
	// than failing the whole run over one bad question.
	if len(lastSafe) > 0 {
		return lastSafe, nil
	}
	return nil, fmt.Errorf("generation exhausted safety retries: %w", lastViolation)
}
