package generation

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/skillcheck/backend/internal/models"
)

// ProfileSource looks up a user's skill profile. The orchestrator owns
// the retry policy; implementations return errors as-is.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID int64) (*models.SkillProfile, error)
}

// TemplateSource searches question templates matching a user's
// interests. Only consulted when the profile carries interest keywords.
type TemplateSource interface {
	FindTemplates(ctx context.Context, category string, interests []string) ([]models.QuestionTemplate, error)
}

// KeywordSource returns the topical keywords for a category.
type KeywordSource interface {
	GetKeywords(ctx context.Context, category string) ([]string, error)
}

// SQLLookups implements all three lookup collaborators against
// Postgres.
type SQLLookups struct {
	db *sql.DB
}

func NewSQLLookups(db *sql.DB) *SQLLookups {
	return &SQLLookups{db: db}
}

func (l *SQLLookups) GetProfile(ctx context.Context, userID int64) (*models.SkillProfile, error) {
	var p models.SkillProfile
	var interests pq.StringArray

	err := l.db.QueryRowContext(ctx,
		`SELECT user_id, skill_level, interest_keywords, category
		 FROM skill_profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.SkillLevel, &interests, &p.Category)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no skill profile for user %d", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("get skill profile: %w", err)
	}

	p.InterestKeywords = interests
	return &p, nil
}

func (l *SQLLookups) FindTemplates(ctx context.Context, category string, interests []string) ([]models.QuestionTemplate, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, category, pattern
		 FROM question_templates
		 WHERE category = $1 AND pattern ILIKE ANY($2)
		 LIMIT 5`,
		category, pq.Array(likePatterns(interests)),
	)
	if err != nil {
		return nil, fmt.Errorf("find templates: %w", err)
	}
	defer rows.Close()

	var templates []models.QuestionTemplate
	for rows.Next() {
		var t models.QuestionTemplate
		if err := rows.Scan(&t.ID, &t.Category, &t.Pattern); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (l *SQLLookups) GetKeywords(ctx context.Context, category string) ([]string, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT keyword FROM category_keywords WHERE category = $1 ORDER BY keyword`,
		category,
	)
	if err != nil {
		return nil, fmt.Errorf("get keywords: %w", err)
	}
	defer rows.Close()

	var keywords []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		keywords = append(keywords, k)
	}
	return keywords, rows.Err()
}

func likePatterns(interests []string) []string {
	patterns := make([]string, len(interests))
	for i, s := range interests {
		patterns[i] = "%" + s + "%"
	}
	return patterns
}
