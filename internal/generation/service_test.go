package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/skillcheck/backend/internal/llm"
	"github.com/skillcheck/backend/internal/models"
	"github.com/skillcheck/backend/internal/quality"
)

// scriptedClient returns its responses in order, repeating the last one.
type scriptedClient struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (c *scriptedClient) Generate(_ context.Context, _, _ string) (*llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	i := c.calls - 1
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	return &llm.Response{Content: c.responses[i]}, nil
}

type fakeProfiles struct {
	profile  *models.SkillProfile
	err      error
	failures int
	calls    int
}

func (f *fakeProfiles) GetProfile(_ context.Context, userID int64) (*models.SkillProfile, error) {
	f.calls++
	if f.err != nil && f.calls <= f.failures {
		return nil, f.err
	}
	if f.profile != nil {
		return f.profile, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.SkillProfile{UserID: userID, SkillLevel: "intermediate"}, nil
}

type fakeTemplates struct {
	templates []models.QuestionTemplate
	err       error
	calls     int
}

func (f *fakeTemplates) FindTemplates(_ context.Context, _ string, _ []string) ([]models.QuestionTemplate, error) {
	f.calls++
	return f.templates, f.err
}

type fakeKeywords struct {
	keywords []string
	err      error
}

func (f *fakeKeywords) GetKeywords(_ context.Context, _ string) ([]string, error) {
	return f.keywords, f.err
}

type fakeSink struct {
	mu        sync.Mutex
	saved     []*models.CandidateQuestion
	logged    int
	nextID    int64
	updated   map[int64]models.QualityAssessment
	questions map[int64]*models.StoredQuestion
}

func (f *fakeSink) SaveQuestion(_ context.Context, q *models.CandidateQuestion, _ *models.QualityAssessment) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.saved = append(f.saved, q)
	return f.nextID, nil
}

func (f *fakeSink) LogValidation(_ context.Context, _ *int64, _, _ string, _ *models.QualityAssessment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logged++
	return nil
}

func (f *fakeSink) UpdateAssessment(_ context.Context, questionID int64, a *models.QualityAssessment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updated == nil {
		f.updated = make(map[int64]models.QualityAssessment)
	}
	f.updated[questionID] = *a
	return nil
}

func (f *fakeSink) GetQuestion(_ context.Context, questionID int64) (*models.StoredQuestion, error) {
	q, ok := f.questions[questionID]
	if !ok {
		return nil, fmt.Errorf("question %d not found", questionID)
	}
	return q, nil
}

func (f *fakeSink) ListValidations(_ context.Context, _ int64) ([]models.ValidationLog, error) {
	return nil, nil
}

// evalClient answers the semantic evaluator with a fixed score so the
// gate passes everything structurally sound.
type evalClient struct{}

func (evalClient) Generate(_ context.Context, _, _ string) (*llm.Response, error) {
	return &llm.Response{Content: "0.95"}, nil
}

func newTestService(gen llm.Client, profiles ProfileSource, templates TemplateSource, keywords KeywordSource, sink QuestionSink) *Service {
	qcfg := quality.DefaultConfig()
	gate := quality.NewGate(quality.NewEvaluator(evalClient{}, qcfg), qcfg)
	return NewService(gen, "test-model", profiles, templates, keywords, quality.NewSafetyFilter(), gate, sink, DefaultConfig())
}

func TestGenerateSavesGatedQuestions(t *testing.T) {
	client := &scriptedClient{responses: []string{validBatchJSON(3)}}
	sink := &fakeSink{}
	svc := newTestService(client, &fakeProfiles{}, &fakeTemplates{}, &fakeKeywords{}, sink)

	resp, err := svc.Generate(context.Background(), 1, models.GenerateRequest{
		QuestionType: models.TypeMultipleChoice,
		Category:     "networking",
		Count:        3,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if resp.QuestionsSaved != 3 {
		t.Errorf("saved = %d, want 3", resp.QuestionsSaved)
	}
	if resp.QuestionsDiscarded != 0 {
		t.Errorf("discarded = %d, want 0", resp.QuestionsDiscarded)
	}
	if len(resp.QuestionIDs) != 3 {
		t.Errorf("returned %d ids, want 3", len(resp.QuestionIDs))
	}
	if len(sink.saved) != 3 {
		t.Errorf("sink holds %d questions, want 3", len(sink.saved))
	}
	if sink.logged != 3 {
		t.Errorf("audit logged %d verdicts, want 3", sink.logged)
	}
}

func TestGenerateProfileRetriesThenDefault(t *testing.T) {
	profiles := &fakeProfiles{err: errors.New("connection refused"), failures: 99}
	client := &scriptedClient{responses: []string{validBatchJSON(1)}}
	svc := newTestService(client, profiles, &fakeTemplates{}, &fakeKeywords{}, &fakeSink{})

	_, err := svc.Generate(context.Background(), 1, models.GenerateRequest{
		QuestionType: models.TypeMultipleChoice,
		Category:     "networking",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if profiles.calls != 3 {
		t.Errorf("profile lookup tried %d times, want 3", profiles.calls)
	}
}

func TestGenerateProfileSucceedsOnRetry(t *testing.T) {
	profiles := &fakeProfiles{
		err:      errors.New("transient"),
		failures: 2,
		profile:  &models.SkillProfile{UserID: 1, SkillLevel: "advanced"},
	}
	client := &scriptedClient{responses: []string{validBatchJSON(1)}}
	svc := newTestService(client, profiles, &fakeTemplates{}, &fakeKeywords{}, &fakeSink{})

	_, err := svc.Generate(context.Background(), 1, models.GenerateRequest{
		QuestionType: models.TypeMultipleChoice,
		Category:     "networking",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if profiles.calls != 3 {
		t.Errorf("profile lookup tried %d times, want 3", profiles.calls)
	}
}

func TestGenerateSkipsTemplateSearchWithoutInterests(t *testing.T) {
	templates := &fakeTemplates{}
	profiles := &fakeProfiles{profile: &models.SkillProfile{UserID: 1, SkillLevel: "beginner"}}
	client := &scriptedClient{responses: []string{validBatchJSON(1)}}
	svc := newTestService(client, profiles, templates, &fakeKeywords{}, &fakeSink{})

	if _, err := svc.Generate(context.Background(), 1, models.GenerateRequest{
		QuestionType: models.TypeMultipleChoice,
		Category:     "networking",
	}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if templates.calls != 0 {
		t.Errorf("template search called %d times, want 0 with no interests", templates.calls)
	}
}

func TestGenerateConsultsTemplatesWithInterests(t *testing.T) {
	templates := &fakeTemplates{}
	profiles := &fakeProfiles{profile: &models.SkillProfile{
		UserID:           1,
		SkillLevel:       "beginner",
		InterestKeywords: []string{"routing"},
	}}
	client := &scriptedClient{responses: []string{validBatchJSON(1)}}
	svc := newTestService(client, profiles, templates, &fakeKeywords{}, &fakeSink{})

	if _, err := svc.Generate(context.Background(), 1, models.GenerateRequest{
		QuestionType: models.TypeMultipleChoice,
		Category:     "networking",
	}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if templates.calls != 1 {
		t.Errorf("template search called %d times, want 1", templates.calls)
	}
}

func TestGenerateKeywordFailureDegrades(t *testing.T) {
	client := &scriptedClient{responses: []string{validBatchJSON(1)}}
	keywords := &fakeKeywords{err: errors.New("table missing")}
	svc := newTestService(client, &fakeProfiles{}, &fakeTemplates{}, keywords, &fakeSink{})

	if _, err := svc.Generate(context.Background(), 1, models.GenerateRequest{
		QuestionType: models.TypeMultipleChoice,
		Category:     "networking",
	}); err != nil {
		t.Fatalf("Generate() error = %v, want keyword failure swallowed", err)
	}
}

func TestGenerateRegeneratesOnSafetyViolation(t *testing.T) {
	profane := `{"questions": [
		{"stem": "Why is this framework such bullshit?", "question_type": "short_answer", "correct_keywords": ["opinion"], "difficulty": 3, "category": "networking"}
	]}`
	client := &scriptedClient{responses: []string{profane, validBatchJSON(1)}}
	sink := &fakeSink{}
	svc := newTestService(client, &fakeProfiles{}, &fakeTemplates{}, &fakeKeywords{}, sink)

	resp, err := svc.Generate(context.Background(), 1, models.GenerateRequest{
		QuestionType: models.TypeMultipleChoice,
		Category:     "networking",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if client.calls != 2 {
		t.Errorf("LLM called %d times, want 2 (regeneration after safety failure)", client.calls)
	}
	if resp.QuestionsSaved != 1 {
		t.Errorf("saved = %d, want 1", resp.QuestionsSaved)
	}
}

func TestGenerateSafetyRetriesBounded(t *testing.T) {
	profane := `{"questions": [
		{"stem": "Why is this framework such bullshit?", "question_type": "short_answer", "correct_keywords": ["opinion"], "difficulty": 3, "category": "networking"}
	]}`
	client := &scriptedClient{responses: []string{profane}}
	svc := newTestService(client, &fakeProfiles{}, &fakeTemplates{}, &fakeKeywords{}, &fakeSink{})

	_, err := svc.Generate(context.Background(), 1, models.GenerateRequest{
		QuestionType: models.TypeMultipleChoice,
		Category:     "networking",
	})
	if err == nil {
		t.Fatal("expected error after exhausting safety retries")
	}
	if !strings.Contains(err.Error(), "safety") {
		t.Errorf("error = %v, want safety retry exhaustion", err)
	}

	want := DefaultConfig().RegenAttempts + 1
	if client.calls != want {
		t.Errorf("LLM called %d times, want %d", client.calls, want)
	}
}

func TestImportAssessmentReconcilesAndPersists(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(&scriptedClient{responses: []string{"{}"}}, &fakeProfiles{}, &fakeTemplates{}, &fakeKeywords{}, sink)

	// Contradictory payload: passing score with a stale discard flag.
	payload := []byte(`{"rule_score": 0.9, "semantic_score": 0.88, "final_score": 0.88, "recommendation": "pass", "should_discard": true}`)

	assessment, err := svc.ImportAssessment(context.Background(), 42, payload)
	if err != nil {
		t.Fatalf("ImportAssessment() error = %v", err)
	}
	if assessment.ShouldDiscard {
		t.Error("reconciler kept the stale discard flag over a passing recommendation")
	}

	stored, ok := sink.updated[42]
	if !ok {
		t.Fatal("assessment not persisted")
	}
	if stored.Recommendation != models.RecommendationPass {
		t.Errorf("stored recommendation = %v, want pass", stored.Recommendation)
	}
	if sink.logged != 1 {
		t.Errorf("audit logged %d verdicts, want 1", sink.logged)
	}
}

func TestRevalidateStoredQuestion(t *testing.T) {
	sink := &fakeSink{questions: map[int64]*models.StoredQuestion{
		9: {
			ID:            9,
			Stem:          "Which layer of the network stack does TCP operate at?",
			QuestionType:  models.TypeMultipleChoice,
			Choices:       []string{"Application", "Transport", "Network", "Link"},
			CorrectAnswer: "Transport",
			Difficulty:    4,
			Category:      "networking",
		},
	}}
	svc := newTestService(&scriptedClient{responses: []string{"{}"}}, &fakeProfiles{}, &fakeTemplates{}, &fakeKeywords{}, sink)

	assessment, err := svc.Revalidate(context.Background(), 9)
	if err != nil {
		t.Fatalf("Revalidate() error = %v", err)
	}
	if assessment.Recommendation != models.RecommendationPass {
		t.Errorf("recommendation = %v, want pass for a clean question", assessment.Recommendation)
	}

	stored, ok := sink.updated[9]
	if !ok {
		t.Fatal("fresh assessment not persisted")
	}
	if stored.FinalScore != assessment.FinalScore {
		t.Errorf("persisted score %v differs from returned %v", stored.FinalScore, assessment.FinalScore)
	}
	if sink.logged != 1 {
		t.Errorf("audit logged %d verdicts, want 1", sink.logged)
	}
}

func TestRevalidateUnknownQuestion(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(&scriptedClient{responses: []string{"{}"}}, &fakeProfiles{}, &fakeTemplates{}, &fakeKeywords{}, sink)

	if _, err := svc.Revalidate(context.Background(), 404); err == nil {
		t.Error("expected error for unknown question")
	}
}

func TestImportAssessmentUnparseablePayload(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(&scriptedClient{responses: []string{"{}"}}, &fakeProfiles{}, &fakeTemplates{}, &fakeKeywords{}, sink)

	assessment, err := svc.ImportAssessment(context.Background(), 42, []byte("not json"))
	if err != nil {
		t.Fatalf("ImportAssessment() error = %v", err)
	}
	if !assessment.ShouldDiscard {
		t.Error("unparseable payload did not produce the conservative discard default")
	}
	if assessment.Recommendation != models.RecommendationReject {
		t.Errorf("recommendation = %v, want reject", assessment.Recommendation)
	}
}

func TestGenerateRejectsInvalidType(t *testing.T) {
	svc := newTestService(&scriptedClient{responses: []string{"{}"}}, &fakeProfiles{}, &fakeTemplates{}, &fakeKeywords{}, &fakeSink{})

	if _, err := svc.Generate(context.Background(), 1, models.GenerateRequest{QuestionType: "essay"}); err == nil {
		t.Error("expected error for invalid question_type")
	}
}

func TestGenerateDiscardsGateFailures(t *testing.T) {
	// One clean question and one with a stem past the rule limit whose
	// duplicate choices push the final score below the discard line.
	longStem := strings.Repeat("why ", 80)
	mixed := `{"questions": [
		{"stem": "Which layer of the network stack does TCP operate at?", "question_type": "multiple_choice", "choices": ["Application", "Transport", "Network", "Link"], "correct_answer": "Transport", "difficulty": 4, "category": "networking"},
		{"stem": "` + longStem + `", "question_type": "multiple_choice", "choices": ["A", "A", "B", "C"], "correct_answer": "D", "difficulty": 4, "category": "networking"}
	]}`
	client := &scriptedClient{responses: []string{mixed}}
	sink := &fakeSink{}
	svc := newTestService(client, &fakeProfiles{}, &fakeTemplates{}, &fakeKeywords{}, sink)

	resp, err := svc.Generate(context.Background(), 1, models.GenerateRequest{
		QuestionType: models.TypeMultipleChoice,
		Category:     "networking",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if resp.QuestionsSaved != 1 {
		t.Errorf("saved = %d, want 1", resp.QuestionsSaved)
	}
	if resp.QuestionsDiscarded != 1 {
		t.Errorf("discarded = %d, want 1", resp.QuestionsDiscarded)
	}
	if sink.logged != 2 {
		t.Errorf("audit logged %d verdicts, want 2 (both outcomes recorded)", sink.logged)
	}
}
