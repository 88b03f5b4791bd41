package models

import "time"

// Grade is one of five ordered proficiency tiers.
type Grade string

const (
	GradeElite                Grade = "elite"
	GradeAdvanced             Grade = "advanced"
	GradeIntermediateAdvanced Grade = "intermediate_advanced"
	GradeIntermediate         Grade = "intermediate"
	GradeBeginner             Grade = "beginner"
)

type BadgeType string

const (
	BadgeTypeGrade      BadgeType = "grade"
	BadgeTypeSpecialist BadgeType = "specialist"
)

type ConfidenceLevel string

const (
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// TestResult is one completed assessment round for a user. Immutable.
type TestResult struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Round        int       `json:"round"`
	Score        int       `json:"score"`
	CorrectCount int       `json:"correct_count"`
	TotalCount   int       `json:"total_count"`
	CompletedAt  time.Time `json:"completed_at"`
}

// GradeResult is the cohort-relative grade for one user. It is recomputed
// on demand from the current TestResults and never stored as the source
// of truth.
type GradeResult struct {
	Grade                Grade           `json:"grade"`
	Score                float64         `json:"score"`
	Rank                 int             `json:"rank"`
	TotalCohortSize      int             `json:"total_cohort_size"`
	Percentile           float64         `json:"percentile"`
	PercentileConfidence ConfidenceLevel `json:"percentile_confidence"`
}

type Badge struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	BadgeName string    `json:"badge_name"`
	BadgeType BadgeType `json:"badge_type"`
	AwardedAt time.Time `json:"awarded_at"`
}

// CohortMember is one user's average round score inside the ranking window.
type CohortMember struct {
	UserID       int64   `json:"user_id"`
	AverageScore float64 `json:"average_score"`
}

// ── Request/Response Types ────────────────────────────

type RecordRoundRequest struct {
	Round        int `json:"round"`
	Score        int `json:"score"`
	CorrectCount int `json:"correct_count"`
	TotalCount   int `json:"total_count"`
}

type GradeResponse struct {
	Grade        *GradeResult `json:"grade,omitempty"`
	BadgesEarned []Badge      `json:"badges_earned"`
	Message      string       `json:"message,omitempty"`
}

type LeaderboardEntry struct {
	Rank          int     `json:"rank"`
	UserID        int64   `json:"user_id"`
	Score         float64 `json:"score"`
	IsCurrentUser bool    `json:"is_current_user,omitempty"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
	// CurrentRank is the requester's own rank, even when they fall
	// outside the returned entries. Zero when the requester has no
	// ranked rounds yet.
	CurrentRank int `json:"current_rank,omitempty"`
}
