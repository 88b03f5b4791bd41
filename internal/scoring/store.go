package scoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/skillcheck/backend/internal/models"
)

// Store is the Postgres-backed QuestionSource and ResultSink.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetQuestion(ctx context.Context, questionID int64) (*models.StoredQuestion, error) {
	var q models.StoredQuestion
	var choices, keywords pq.StringArray

	err := s.db.QueryRowContext(ctx,
		`SELECT id, stem, question_type, choices, correct_answer, correct_keywords,
		        explanation, difficulty, category, quality_score, recommendation,
		        times_served, times_correct, created_at
		 FROM questions WHERE id = $1`,
		questionID,
	).Scan(&q.ID, &q.Stem, &q.QuestionType, &choices, &q.CorrectAnswer, &keywords,
		&q.Explanation, &q.Difficulty, &q.Category, &q.QualityScore, &q.Recommendation,
		&q.TimesServed, &q.TimesCorrect, &q.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("question %d not found", questionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}

	q.Choices = choices
	q.CorrectKeywords = keywords
	return &q, nil
}

func (s *Store) SaveScoringResult(ctx context.Context, r *models.ScoringResult) error {
	links, err := json.Marshal(r.ReferenceLinks)
	if err != nil {
		return fmt.Errorf("marshal reference links: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scoring_results
		    (attempt_id, user_id, question_id, user_answer, is_correct, score,
		     keyword_matches, explanation, reference_links, feedback, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.AttemptID, r.UserID, r.QuestionID, r.UserAnswer, r.IsCorrect, r.Score,
		pq.StringArray(r.KeywordMatches), r.Explanation, links, nullString(r.Feedback), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert scoring result: %w", err)
	}
	return nil
}

func (s *Store) RecordServed(ctx context.Context, questionID int64, correct bool) error {
	correctInc := 0
	if correct {
		correctInc = 1
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE questions SET
		    times_served = times_served + 1,
		    times_correct = times_correct + $2
		 WHERE id = $1`,
		questionID, correctInc,
	)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
