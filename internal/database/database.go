package database

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

func Connect() (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "skillcheck_user")
	password := getEnv("DB_PASSWORD", "skillcheck_password")
	dbname := getEnv("DB_NAME", "skillcheck")
	sslmode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func Migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS questions (
		id               BIGSERIAL PRIMARY KEY,
		stem             TEXT NOT NULL,
		question_type    VARCHAR(20) NOT NULL,
		choices          TEXT[] NOT NULL DEFAULT '{}',
		correct_answer   TEXT NOT NULL,
		correct_keywords TEXT[] NOT NULL DEFAULT '{}',
		explanation      TEXT NOT NULL DEFAULT '',
		difficulty       INT NOT NULL DEFAULT 5,
		category         VARCHAR(100) NOT NULL DEFAULT '',
		quality_score    DECIMAL(3,2),
		recommendation   VARCHAR(20) NOT NULL DEFAULT 'revise',
		times_served     INT NOT NULL DEFAULT 0,
		times_correct    INT NOT NULL DEFAULT 0,
		created_at       TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_questions_category ON questions(category, question_type);
	CREATE INDEX IF NOT EXISTS idx_questions_serving ON questions(category, question_type, times_served);
	CREATE INDEX IF NOT EXISTS idx_questions_quality ON questions(quality_score) WHERE quality_score IS NOT NULL;

	CREATE TABLE IF NOT EXISTS scoring_results (
		id              BIGSERIAL PRIMARY KEY,
		attempt_id      VARCHAR(36) UNIQUE NOT NULL,
		user_id         BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		question_id     BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		user_answer     TEXT NOT NULL,
		is_correct      BOOLEAN NOT NULL,
		score           INT NOT NULL,
		keyword_matches TEXT[] NOT NULL DEFAULT '{}',
		explanation     TEXT NOT NULL,
		reference_links JSONB,
		feedback        TEXT,
		created_at      TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_scoring_user ON scoring_results(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_scoring_question ON scoring_results(question_id);

	CREATE TABLE IF NOT EXISTS test_results (
		id            BIGSERIAL PRIMARY KEY,
		user_id       BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		round         INT NOT NULL,
		score         INT NOT NULL,
		correct_count INT NOT NULL DEFAULT 0,
		total_count   INT NOT NULL DEFAULT 0,
		completed_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_results_user ON test_results(user_id, round);
	CREATE INDEX IF NOT EXISTS idx_results_window ON test_results(completed_at);

	CREATE TABLE IF NOT EXISTS badges (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		badge_name VARCHAR(100) NOT NULL,
		badge_type VARCHAR(20) NOT NULL,
		awarded_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(user_id, badge_type)
	);

	CREATE INDEX IF NOT EXISTS idx_badges_user ON badges(user_id);

	CREATE TABLE IF NOT EXISTS validation_logs (
		id             BIGSERIAL PRIMARY KEY,
		question_id    BIGINT REFERENCES questions(id),
		stage          VARCHAR(20) NOT NULL,
		model_used     VARCHAR(100),
		rule_score     DECIMAL(3,2) NOT NULL,
		semantic_score DECIMAL(3,2) NOT NULL,
		final_score    DECIMAL(3,2) NOT NULL,
		recommendation VARCHAR(20) NOT NULL,
		issues         TEXT,
		created_at     TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_validation_question ON validation_logs(question_id);
	CREATE INDEX IF NOT EXISTS idx_validation_stage ON validation_logs(stage, created_at DESC);

	CREATE TABLE IF NOT EXISTS skill_profiles (
		user_id           BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		skill_level       VARCHAR(20) NOT NULL DEFAULT 'beginner',
		interest_keywords TEXT[] NOT NULL DEFAULT '{}',
		category          VARCHAR(100) NOT NULL DEFAULT '',
		updated_at        TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS question_templates (
		id       BIGSERIAL PRIMARY KEY,
		category VARCHAR(100) NOT NULL,
		pattern  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_templates_category ON question_templates(category);

	CREATE TABLE IF NOT EXISTS category_keywords (
		id       BIGSERIAL PRIMARY KEY,
		category VARCHAR(100) NOT NULL,
		keyword  VARCHAR(100) NOT NULL,
		UNIQUE(category, keyword)
	);

	CREATE INDEX IF NOT EXISTS idx_keywords_category ON category_keywords(category);
	`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
