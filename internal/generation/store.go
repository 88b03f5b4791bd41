package generation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/skillcheck/backend/internal/models"
)

// Store persists gated questions and the audit trail of gate verdicts.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveQuestion inserts a candidate that cleared the gate and returns
// its id.
func (s *Store) SaveQuestion(ctx context.Context, q *models.CandidateQuestion, a *models.QualityAssessment) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO questions
		    (stem, question_type, choices, correct_answer, correct_keywords,
		     explanation, difficulty, category, quality_score, recommendation, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		q.Stem, q.QuestionType, pq.StringArray(q.Choices), q.CorrectAnswer,
		pq.StringArray(q.CorrectKeywords), q.Explanation, q.Difficulty, q.Category,
		a.FinalScore, a.Recommendation, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	return id, nil
}

// GetQuestion loads a stored question for re-gating.
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

// UpdateAssessment applies a reconciled assessment to a stored
// question.
func (s *Store) UpdateAssessment(ctx context.Context, questionID int64, a *models.QualityAssessment) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET quality_score = $2, recommendation = $3 WHERE id = $1`,
		questionID, a.FinalScore, a.Recommendation,
	)
	if err != nil {
		return fmt.Errorf("update assessment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update assessment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("question %d not found", questionID)
	}
	return nil
}

// ListValidations returns the audit trail for one question, newest
// first.
func (s *Store) ListValidations(ctx context.Context, questionID int64) ([]models.ValidationLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question_id, stage, COALESCE(model_used, ''), rule_score,
		        semantic_score, final_score, recommendation, COALESCE(issues, ''), created_at
		 FROM validation_logs WHERE question_id = $1 ORDER BY created_at DESC`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list validations: %w", err)
	}
	defer rows.Close()

	var logs []models.ValidationLog
	for rows.Next() {
		var l models.ValidationLog
		if err := rows.Scan(&l.ID, &l.QuestionID, &l.Stage, &l.ModelUsed, &l.RuleScore,
			&l.SemanticScore, &l.FinalScore, &l.Recommendation, &l.Issues, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan validation log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// LogValidation records one gate verdict. Best effort from the caller's
// perspective; a failed audit write never blocks question persistence.
func (s *Store) LogValidation(ctx context.Context, questionID *int64, stage, model string, a *models.QualityAssessment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO validation_logs
		    (question_id, stage, model_used, rule_score, semantic_score,
		     final_score, recommendation, issues, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		questionID, stage, model, a.RuleScore, a.SemanticScore,
		a.FinalScore, a.Recommendation, strings.Join(a.Issues, "; "), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert validation log: %w", err)
	}
	return nil
}
