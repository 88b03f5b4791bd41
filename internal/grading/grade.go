package grading

import (
	"time"

	"github.com/skillcheck/backend/internal/models"
)

// Config holds the aggregation constants. Immutable, injected at
// construction.
type Config struct {
	// CohortWindow is the trailing window a round must fall into for its
	// user to count as a cohort member.
	CohortWindow time.Duration
	// WeightedRound gets RoundWeight instead of weight 1.
	WeightedRound int
	RoundWeight   float64
	// AccuracyBonusMax caps the correctness-ratio bonus added to each
	// round score.
	AccuracyBonusMax float64
	// SmallCohortSize is the size below which percentile confidence is
	// only "medium".
	SmallCohortSize int
}

func DefaultConfig() Config {
	return Config{
		CohortWindow:     90 * 24 * time.Hour,
		WeightedRound:    2,
		RoundWeight:      2.0,
		AccuracyBonusMax: 5.0,
		SmallCohortSize:  100,
	}
}

// AdjustedScore adds the correctness-ratio bonus to a round's base
// score, capped at 100.
func AdjustedScore(r models.TestResult, cfg Config) float64 {
	adjusted := float64(r.Score)
	if r.TotalCount > 0 {
		adjusted += float64(r.CorrectCount) / float64(r.TotalCount) * cfg.AccuracyBonusMax
	}
	if adjusted > 100 {
		adjusted = 100
	}
	return adjusted
}

// CompositeScore combines the adjusted round scores into one weighted
// average. The weighted round counts double by default.
func CompositeScore(results []models.TestResult, cfg Config) float64 {
	if len(results) == 0 {
		return 0
	}

	var weightedSum, totalWeight float64
	for _, r := range results {
		weight := 1.0
		if r.Round == cfg.WeightedRound {
			weight = cfg.RoundWeight
		}
		weightedSum += AdjustedScore(r, cfg) * weight
		totalWeight += weight
	}

	return weightedSum / totalWeight
}

// GradeForScore maps a composite score to its tier. Cutoffs are
// inclusive lower bounds, checked from highest to lowest.
func GradeForScore(score float64) models.Grade {
	switch {
	case score >= 90:
		return models.GradeElite
	case score >= 75:
		return models.GradeAdvanced
	case score >= 60:
		return models.GradeIntermediateAdvanced
	case score >= 40:
		return models.GradeIntermediate
	default:
		return models.GradeBeginner
	}
}

// RankAmong returns the 1-indexed rank of composite within the cohort:
// one plus the number of members whose average strictly exceeds it.
// Ties share the same rank.
func RankAmong(composite float64, cohort []models.CohortMember) int {
	rank := 1
	for _, m := range cohort {
		if m.AverageScore > composite {
			rank++
		}
	}
	return rank
}

// Percentile converts a rank to a percentile where rank 1 is the 100th.
func Percentile(rank, cohortSize int) float64 {
	if cohortSize == 0 {
		return 0
	}
	return float64(cohortSize-rank+1) / float64(cohortSize) * 100
}

// ConfidenceFor reflects how much a percentile means in a small cohort.
func ConfidenceFor(cohortSize int, cfg Config) models.ConfidenceLevel {
	if cohortSize < cfg.SmallCohortSize {
		return models.ConfidenceMedium
	}
	return models.ConfidenceHigh
}
