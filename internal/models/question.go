package models

import "time"

type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeShortAnswer    QuestionType = "short_answer"
)

var ValidQuestionTypes = map[QuestionType]bool{
	TypeMultipleChoice: true,
	TypeTrueFalse:      true,
	TypeShortAnswer:    true,
}

type Recommendation string

const (
	RecommendationPass   Recommendation = "pass"
	RecommendationRevise Recommendation = "revise"
	RecommendationReject Recommendation = "reject"
)

var ValidRecommendations = map[Recommendation]bool{
	RecommendationPass:   true,
	RecommendationRevise: true,
	RecommendationReject: true,
}

// ── Core Structs ───────────────────────────────────────

// CandidateQuestion is an in-flight question produced by a generation step.
// It is not persisted until it clears the safety filter and the quality gate.
type CandidateQuestion struct {
	Stem            string       `json:"stem"`
	QuestionType    QuestionType `json:"question_type"`
	Choices         []string     `json:"choices,omitempty"`
	CorrectAnswer   string       `json:"correct_answer,omitempty"`
	CorrectKeywords []string     `json:"correct_keywords,omitempty"`
	Explanation     string       `json:"explanation,omitempty"`
	Difficulty      int          `json:"difficulty"`
	Category        string       `json:"category"`
}

type StoredQuestion struct {
	ID              int64          `json:"id"`
	Stem            string         `json:"stem"`
	QuestionType    QuestionType   `json:"question_type"`
	Choices         []string       `json:"choices,omitempty"`
	CorrectAnswer   string         `json:"correct_answer,omitempty"`
	CorrectKeywords []string       `json:"correct_keywords,omitempty"`
	Explanation     string         `json:"explanation,omitempty"`
	Difficulty      int            `json:"difficulty"`
	Category        string         `json:"category"`
	QualityScore    *float64       `json:"quality_score,omitempty"`
	Recommendation  Recommendation `json:"recommendation,omitempty"`
	TimesServed     int            `json:"times_served"`
	TimesCorrect    int            `json:"times_correct"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (q *StoredQuestion) Candidate() CandidateQuestion {
	return CandidateQuestion{
		Stem:            q.Stem,
		QuestionType:    q.QuestionType,
		Choices:         q.Choices,
		CorrectAnswer:   q.CorrectAnswer,
		CorrectKeywords: q.CorrectKeywords,
		Explanation:     q.Explanation,
		Difficulty:      q.Difficulty,
		Category:        q.Category,
	}
}

// QualityAssessment is the quality gate's verdict on one candidate question.
// Immutable once produced.
type QualityAssessment struct {
	RuleScore      float64        `json:"rule_score"`
	SemanticScore  float64        `json:"semantic_score"`
	FinalScore     float64        `json:"final_score"`
	Recommendation Recommendation `json:"recommendation"`
	Issues         []string       `json:"issues"`
	ShouldDiscard  bool           `json:"should_discard"`
	Feedback       string         `json:"feedback,omitempty"`
}

// RawAssessment is a QualityAssessment as it arrives from an untrusted or
// serialized channel. Pointer fields distinguish "absent" from zero values;
// the reconciler resolves any internal contradictions before use.
type RawAssessment struct {
	RuleScore      *float64 `json:"rule_score,omitempty"`
	SemanticScore  *float64 `json:"semantic_score,omitempty"`
	FinalScore     *float64 `json:"final_score,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	Issues         []string `json:"issues,omitempty"`
	ShouldDiscard  *bool    `json:"should_discard,omitempty"`
}

type ValidationLog struct {
	ID             int64     `json:"id"`
	QuestionID     *int64    `json:"question_id,omitempty"`
	Stage          string    `json:"stage"`
	ModelUsed      string    `json:"model_used,omitempty"`
	RuleScore      float64   `json:"rule_score"`
	SemanticScore  float64   `json:"semantic_score"`
	FinalScore     float64   `json:"final_score"`
	Recommendation string    `json:"recommendation"`
	Issues         string    `json:"issues,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ── Generation Collaborator Data ───────────────────────

// SkillProfile is a user's self-reported skill survey, used to steer
// generation difficulty and topic selection.
type SkillProfile struct {
	UserID           int64    `json:"user_id"`
	SkillLevel       string   `json:"skill_level"`
	InterestKeywords []string `json:"interest_keywords,omitempty"`
	Category         string   `json:"category,omitempty"`
}

type QuestionTemplate struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Pattern  string `json:"pattern"`
}

// ── Request Types ─────────────────────────────────────

type GenerateRequest struct {
	QuestionType QuestionType `json:"question_type"`
	Category     string       `json:"category,omitempty"`
	Difficulty   int          `json:"difficulty,omitempty"`
	Count        int          `json:"count,omitempty"`
}

// ── Response Types ────────────────────────────────────

type GenerateResponse struct {
	QuestionsSaved     int     `json:"questions_saved"`
	QuestionsDiscarded int     `json:"questions_discarded"`
	QuestionIDs        []int64 `json:"question_ids"`
	Message            string  `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
