package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/skillcheck/backend/internal/llm"
	"github.com/skillcheck/backend/internal/models"
)

type fakeQuestions struct {
	questions map[int64]*models.StoredQuestion
}

func (f *fakeQuestions) GetQuestion(ctx context.Context, id int64) (*models.StoredQuestion, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, fmt.Errorf("question %d not found", id)
	}
	return q, nil
}

type fakeSink struct {
	mu      sync.Mutex
	saved   []*models.ScoringResult
	saveErr error
}

func (f *fakeSink) SaveScoringResult(ctx context.Context, r *models.ScoringResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, r)
	return nil
}

func (f *fakeSink) RecordServed(ctx context.Context, questionID int64, correct bool) error {
	return nil
}

func newTestService(sink *fakeSink) *Service {
	cfg := DefaultConfig()
	client := &stubClient{content: `{"score": 85, "reasoning": "ok"}`}

	questions := &fakeQuestions{questions: map[int64]*models.StoredQuestion{
		1: mcStored(),
		2: shortAnswerStored(),
	}}

	return NewService(questions, sink, NewScorer(client, cfg), NewExplanationGenerator(client, cfg), cfg)
}

func TestScoreAnswer_PersistsResult(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(sink)

	result, err := svc.ScoreAnswer(context.Background(), 7, 1, "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.AttemptID == "" {
		t.Error("attempt id must be set")
	}
	if !result.IsCorrect || result.Score != 100 {
		t.Errorf("expected correct/100, got %v/%d", result.IsCorrect, result.Score)
	}
	if len(sink.saved) != 1 {
		t.Fatalf("expected 1 saved result, got %d", len(sink.saved))
	}

	cfg := DefaultConfig()
	if len(result.Explanation) < cfg.MinExplanationChars {
		t.Errorf("explanation below minimum length: %d", len(result.Explanation))
	}
	if len(result.ReferenceLinks) < cfg.MinReferenceLinks {
		t.Errorf("too few reference links: %d", len(result.ReferenceLinks))
	}
}

// gradingTimeoutClient times out the grading call but would happily
// answer the explanation call with live text.
type gradingTimeoutClient struct{}

func (gradingTimeoutClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (*llm.Response, error) {
	if strings.Contains(systemPrompt, "grading a free-form quiz answer") {
		return nil, context.DeadlineExceeded
	}
	live := strings.Repeat("A live explanation sentence about photosynthesis. ", 12) +
		"\nREFERENCES:\n" + `[{"title": "t1", "url": "u1"}, {"title": "t2", "url": "u2"}, {"title": "t3", "url": "u3"}]`
	return &llm.Response{Content: live}, nil
}

func TestScoreAnswer_GradingTimeoutAbandonsAttempt(t *testing.T) {
	cfg := DefaultConfig()
	sink := &fakeSink{}
	questions := &fakeQuestions{questions: map[int64]*models.StoredQuestion{
		2: shortAnswerStored(),
	}}
	client := gradingTimeoutClient{}
	svc := NewService(questions, sink, NewScorer(client, cfg), NewExplanationGenerator(client, cfg), cfg)

	result, err := svc.ScoreAnswer(context.Background(), 7, 2, "chlorophyll absorbs sunlight to make glucose")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.IsCorrect {
		t.Error("timed-out attempt must not be correct")
	}
	if result.Score != cfg.FallbackScore {
		t.Errorf("score = %d, want fallback %d", result.Score, cfg.FallbackScore)
	}
	if len(result.KeywordMatches) != 0 {
		t.Errorf("keyword matches = %v, want empty after timeout", result.KeywordMatches)
	}

	// The whole attempt is abandoned: no second capability call, so the
	// explanation must be the canned one, not live generated text.
	if strings.Contains(result.Explanation, "A live explanation sentence") {
		t.Error("timed-out attempt carried a live explanation")
	}
	if !strings.Contains(result.Explanation, "could not be generated right now") {
		t.Errorf("explanation is not the canned fallback: %q", result.Explanation[:80])
	}
	if len(result.Explanation) < cfg.MinExplanationChars {
		t.Errorf("canned explanation below minimum length: %d", len(result.Explanation))
	}
	if len(result.ReferenceLinks) < cfg.MinReferenceLinks {
		t.Errorf("too few reference links: %d", len(result.ReferenceLinks))
	}
}

func TestScoreAnswer_SaveFailureSurfaced(t *testing.T) {
	sink := &fakeSink{saveErr: errors.New("disk full")}
	svc := newTestService(sink)

	_, err := svc.ScoreAnswer(context.Background(), 7, 1, "b")
	if err == nil {
		t.Fatal("save failure must be surfaced, not swallowed")
	}
}

func TestScoreBatch_PreservesInputOrder(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(sink)

	answers := []models.BatchAnswer{
		{QuestionID: 1, Answer: "b"},
		{QuestionID: 2, Answer: "chlorophyll uses sunlight"},
		{QuestionID: 99, Answer: "x"}, // unknown question
		{QuestionID: 1, Answer: "a"},
	}

	items := svc.ScoreBatch(context.Background(), 7, answers)
	if len(items) != len(answers) {
		t.Fatalf("expected %d items, got %d", len(answers), len(items))
	}

	if items[0].Err != nil || !items[0].Result.IsCorrect {
		t.Errorf("item 0 should be the correct MC answer, got %+v", items[0])
	}
	if items[1].Err != nil || items[1].Result.QuestionID != 2 {
		t.Errorf("item 1 should be the short answer result, got %+v", items[1])
	}
	if items[2].Err == nil {
		t.Error("item 2 should carry the unknown-question error")
	}
	if items[3].Err != nil || items[3].Result.IsCorrect {
		t.Errorf("item 3 should be the incorrect MC answer, got %+v", items[3])
	}
}

func TestScoreBatch_AttemptIDsUnique(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(sink)

	answers := []models.BatchAnswer{
		{QuestionID: 1, Answer: "b"},
		{QuestionID: 1, Answer: "b"},
		{QuestionID: 1, Answer: "b"},
	}

	items := svc.ScoreBatch(context.Background(), 7, answers)
	seen := make(map[string]bool)
	for _, item := range items {
		if item.Err != nil {
			t.Fatalf("unexpected error: %v", item.Err)
		}
		if seen[item.Result.AttemptID] {
			t.Errorf("duplicate attempt id %s", item.Result.AttemptID)
		}
		seen[item.Result.AttemptID] = true
	}
}
