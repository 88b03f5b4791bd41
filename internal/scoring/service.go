package scoring

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skillcheck/backend/internal/models"
)

// QuestionSource provides the question metadata scoring needs.
type QuestionSource interface {
	GetQuestion(ctx context.Context, questionID int64) (*models.StoredQuestion, error)
}

// ResultSink persists scoring results and serving counters. Save failure
// is surfaced to the caller, not retried here.
type ResultSink interface {
	SaveScoringResult(ctx context.Context, result *models.ScoringResult) error
	RecordServed(ctx context.Context, questionID int64, correct bool) error
}

// Service ties the scorer and the explanation generator together and
// persists the outcome. Each answer is an independent computation; batch
// items run concurrently with results returned in input order.
type Service struct {
	questions QuestionSource
	results   ResultSink
	scorer    *Scorer
	explainer *ExplanationGenerator
	cfg       Config
}

func NewService(questions QuestionSource, results ResultSink, scorer *Scorer, explainer *ExplanationGenerator, cfg Config) *Service {
	return &Service{
		questions: questions,
		results:   results,
		scorer:    scorer,
		explainer: explainer,
		cfg:       cfg,
	}
}

// ScoreAnswer grades one answer, generates its explanation, and persists
// the result.
func (s *Service) ScoreAnswer(ctx context.Context, userID, questionID int64, answer string) (*models.ScoringResult, error) {
	question, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("load question %d: %w", questionID, err)
	}

	result, err := s.scoreOne(ctx, userID, question, answer)
	if err != nil {
		return nil, err
	}

	if err := s.results.SaveScoringResult(ctx, result); err != nil {
		return nil, fmt.Errorf("save scoring result: %w", err)
	}
	if err := s.results.RecordServed(ctx, questionID, result.IsCorrect); err != nil {
		log.Printf("WARN: failed to update serving counters for question %d: %v", questionID, err)
	}

	return result, nil
}

// scoreOne runs the deterministic checks and the grading call, then the
// explanation call. Only input contract violations produce an error;
// capability degradation is already folded into the outcome.
func (s *Service) scoreOne(ctx context.Context, userID int64, question *models.StoredQuestion, answer string) (*models.ScoringResult, error) {
	outcome, err := s.scorer.Score(ctx, question, answer)
	if err != nil {
		return nil, err
	}

	in := ExplanationInput{
		Question:        question,
		UserAnswer:      answer,
		IsCorrect:       outcome.IsCorrect,
		Score:           outcome.Score,
		CorrectKeywords: question.CorrectKeywords,
	}

	// An abandoned grading attempt gets no further capability calls:
	// the canned explanation stands in for the live one.
	var explanation string
	var links []models.ReferenceLink
	if outcome.TimedOut {
		explanation, links = s.explainer.Canned(in)
	} else {
		explanation, links = s.explainer.Generate(ctx, in)
	}

	return &models.ScoringResult{
		AttemptID:      uuid.NewString(),
		UserID:         userID,
		QuestionID:     question.ID,
		UserAnswer:     answer,
		IsCorrect:      outcome.IsCorrect,
		Score:          outcome.Score,
		KeywordMatches: outcome.KeywordMatches,
		Explanation:    explanation,
		ReferenceLinks: links,
		Feedback:       outcome.Feedback,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// BatchItem pairs one result with the error that produced it, if any.
type BatchItem struct {
	Result *models.ScoringResult
	Err    error
}

// ScoreBatch grades every answer concurrently. The returned slice is in
// input order regardless of completion order; one failing item never
// aborts its neighbors.
func (s *Service) ScoreBatch(ctx context.Context, userID int64, answers []models.BatchAnswer) []BatchItem {
	items := make([]BatchItem, len(answers))

	var wg sync.WaitGroup
	for i, ans := range answers {
		wg.Add(1)
		go func(i int, ans models.BatchAnswer) {
			defer wg.Done()
			result, err := s.ScoreAnswer(ctx, userID, ans.QuestionID, ans.Answer)
			items[i] = BatchItem{Result: result, Err: err}
		}(i, ans)
	}
	wg.Wait()

	return items
}
