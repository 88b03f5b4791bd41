package models

import "time"

// ReferenceLink is one further-reading pointer attached to an explanation.
type ReferenceLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ScoringResult is the outcome of grading a single answer attempt.
// Created once per scoring call and never mutated afterwards.
type ScoringResult struct {
	AttemptID      string          `json:"attempt_id"`
	UserID         int64           `json:"user_id"`
	QuestionID     int64           `json:"question_id"`
	UserAnswer     string          `json:"user_answer"`
	IsCorrect      bool            `json:"is_correct"`
	Score          int             `json:"score"`
	KeywordMatches []string        `json:"keyword_matches,omitempty"`
	Explanation    string          `json:"explanation"`
	ReferenceLinks []ReferenceLink `json:"reference_links"`
	Feedback       string          `json:"feedback,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ── Request/Response Types ────────────────────────────

type SubmitAnswerRequest struct {
	Answer string `json:"answer"`
}

type SubmitAnswerResponse struct {
	AttemptID      string          `json:"attempt_id"`
	Correct        bool            `json:"correct"`
	Score          int             `json:"score"`
	KeywordMatches []string        `json:"keyword_matches,omitempty"`
	Explanation    string          `json:"explanation"`
	ReferenceLinks []ReferenceLink `json:"reference_links"`
	Feedback       string          `json:"feedback,omitempty"`
}

type BatchAnswer struct {
	QuestionID int64  `json:"question_id"`
	Answer     string `json:"answer"`
}

type SubmitBatchRequest struct {
	Answers []BatchAnswer `json:"answers"`
}

type SubmitBatchResponse struct {
	Results []SubmitAnswerResponse `json:"results"`
}
