package grading

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/skillcheck/backend/internal/models"
)

// Store is the Postgres-backed persistence for rounds, cohorts, and
// badges.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return exists, nil
}

func (s *Store) RecordRound(ctx context.Context, r *models.TestResult) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO test_results (user_id, round, score, correct_count, total_count, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		r.UserID, r.Round, r.Score, r.CorrectCount, r.TotalCount, r.CompletedAt,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("insert test result: %w", err)
	}
	return nil
}

func (s *Store) GetTestResults(ctx context.Context, userID int64) ([]models.TestResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, round, score, correct_count, total_count, completed_at
		 FROM test_results WHERE user_id = $1 ORDER BY round, completed_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get test results: %w", err)
	}
	defer rows.Close()

	var results []models.TestResult
	for rows.Next() {
		var r models.TestResult
		if err := rows.Scan(&r.ID, &r.UserID, &r.Round, &r.Score, &r.CorrectCount, &r.TotalCount, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan test result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetCohort returns, for every user with at least one round completed
// after the cutoff, that user's average round score.
func (s *Store) GetCohort(ctx context.Context, cutoff time.Time) ([]models.CohortMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, AVG(score)::float8
		 FROM test_results
		 WHERE completed_at > $1
		 GROUP BY user_id`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("get cohort: %w", err)
	}
	defer rows.Close()

	var cohort []models.CohortMember
	for rows.Next() {
		var m models.CohortMember
		if err := rows.Scan(&m.UserID, &m.AverageScore); err != nil {
			return nil, fmt.Errorf("scan cohort member: %w", err)
		}
		cohort = append(cohort, m)
	}
	return cohort, rows.Err()
}

func (s *Store) GetBadges(ctx context.Context, userID int64) ([]models.Badge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, badge_name, badge_type, awarded_at
		 FROM badges WHERE user_id = $1 ORDER BY awarded_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get badges: %w", err)
	}
	defer rows.Close()

	var badges []models.Badge
	for rows.Next() {
		var b models.Badge
		if err := rows.Scan(&b.ID, &b.UserID, &b.BadgeName, &b.BadgeType, &b.AwardedAt); err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// InsertBadge is idempotent per (user, badge type): a concurrent or
// repeated award is a no-op and reports inserted=false.
func (s *Store) InsertBadge(ctx context.Context, b *models.Badge) (bool, error) {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO badges (user_id, badge_name, badge_type, awarded_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, badge_type) DO NOTHING
		 RETURNING id`,
		b.UserID, b.BadgeName, b.BadgeType, b.AwardedAt,
	).Scan(&b.ID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert badge: %w", err)
	}
	return true, nil
}
