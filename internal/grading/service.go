package grading

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/skillcheck/backend/internal/models"
)

// ErrUnknownUser marks a grade request for a user that does not exist.
// Distinct from "user exists but has no rounds yet", which is not an
// error and yields a nil result.
var ErrUnknownUser = errors.New("unknown user")

// ResultStore is the persistence the service needs. *Store satisfies it.
type ResultStore interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
	RecordRound(ctx context.Context, r *models.TestResult) error
	GetTestResults(ctx context.Context, userID int64) ([]models.TestResult, error)
	GetCohort(ctx context.Context, cutoff time.Time) ([]models.CohortMember, error)
	GetBadges(ctx context.Context, userID int64) ([]models.Badge, error)
	InsertBadge(ctx context.Context, b *models.Badge) (bool, error)
}

type Service struct {
	store       ResultStore
	leaderboard *LeaderboardCache
	cfg         Config
}

func NewService(store ResultStore, leaderboard *LeaderboardCache, cfg Config) *Service {
	return &Service{store: store, leaderboard: leaderboard, cfg: cfg}
}

// RecordRound persists one completed round for a user.
func (s *Service) RecordRound(ctx context.Context, userID int64, req models.RecordRoundRequest) (*models.TestResult, error) {
	exists, err := s.store.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUnknownUser
	}

	result := &models.TestResult{
		UserID:       userID,
		Round:        req.Round,
		Score:        req.Score,
		CorrectCount: req.CorrectCount,
		TotalCount:   req.TotalCount,
		CompletedAt:  time.Now().UTC(),
	}
	if err := s.store.RecordRound(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// CalculateFinalGrade computes the cohort-relative grade for a user.
// Returns (nil, nil) when the user exists but has no completed rounds.
// The cohort is read as a snapshot; a rank computed while a neighbor's
// round is being written may be off by one until the next call.
func (s *Service) CalculateFinalGrade(ctx context.Context, userID int64) (*models.GradeResult, error) {
	exists, err := s.store.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", ErrUnknownUser, userID)
	}

	results, err := s.store.GetTestResults(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	composite := CompositeScore(results, s.cfg)

	cutoff := time.Now().UTC().Add(-s.cfg.CohortWindow)
	cohort, err := s.store.GetCohort(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	rank := RankAmong(composite, cohort)
	size := len(cohort)

	if err := s.leaderboard.UpdateScore(ctx, userID, composite); err != nil {
		log.Printf("WARN: leaderboard cache update failed for user %d: %v", userID, err)
	}

	return &models.GradeResult{
		Grade:                GradeForScore(composite),
		Score:                composite,
		Rank:                 rank,
		TotalCohortSize:      size,
		Percentile:           Percentile(rank, size),
		PercentileConfidence: ConfidenceFor(size, s.cfg),
	}, nil
}

// AssignBadges awards the badges implied by a grade, idempotently, and
// returns only the badges newly created by this call.
func (s *Service) AssignBadges(ctx context.Context, userID int64, grade models.Grade) ([]models.Badge, error) {
	exists, err := s.store.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", ErrUnknownUser, userID)
	}

	existing, err := s.store.GetBadges(ctx, userID)
	if err != nil {
		return nil, err
	}

	created := []models.Badge{}
	for _, b := range NewBadges(existing, userID, grade, time.Now().UTC()) {
		badge := b
		inserted, err := s.store.InsertBadge(ctx, &badge)
		if err != nil {
			return nil, err
		}
		if inserted {
			created = append(created, badge)
		}
	}
	return created, nil
}

// Leaderboard returns the top entries from the cache, falling back to a
// cohort aggregation when the cache is disabled or empty.
func (s *Service) Leaderboard(ctx context.Context, currentUserID int64, limit int) (*models.LeaderboardResponse, error) {
	if limit <= 0 {
		limit = 20
	}

	if entries, err := s.cachedLeaderboard(ctx, currentUserID, limit); err == nil && len(entries) > 0 {
		resp := &models.LeaderboardResponse{Entries: entries}
		if rank, err := s.leaderboard.Rank(ctx, currentUserID); err == nil && rank > 0 {
			resp.CurrentRank = int(rank)
		}
		return resp, nil
	} else if err != nil {
		log.Printf("WARN: leaderboard cache read failed: %v — falling back to store", err)
	}

	cutoff := time.Now().UTC().Add(-s.cfg.CohortWindow)
	cohort, err := s.store.GetCohort(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	resp := &models.LeaderboardResponse{Entries: rankCohort(cohort, currentUserID, limit)}
	for _, m := range cohort {
		if m.UserID == currentUserID {
			resp.CurrentRank = RankAmong(m.AverageScore, cohort)
			break
		}
	}
	return resp, nil
}

func (s *Service) cachedLeaderboard(ctx context.Context, currentUserID int64, limit int) ([]models.LeaderboardEntry, error) {
	zs, err := s.leaderboard.Top(ctx, limit)
	if err != nil || len(zs) == 0 {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(zs))
	for i, z := range zs {
		id, err := strconv.ParseInt(fmt.Sprint(z.Member), 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, models.LeaderboardEntry{
			Rank:          i + 1,
			UserID:        id,
			Score:         z.Score,
			IsCurrentUser: id == currentUserID,
		})
	}
	return entries, nil
}

func rankCohort(cohort []models.CohortMember, currentUserID int64, limit int) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, 0, len(cohort))
	for _, m := range cohort {
		entries = append(entries, models.LeaderboardEntry{
			UserID:        m.UserID,
			Score:         m.AverageScore,
			IsCurrentUser: m.UserID == currentUserID,
		})
	}

	// Highest first; ties share a rank.
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].Score > entries[i].Score {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}
	for i := range entries {
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
