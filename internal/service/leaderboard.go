// Package service provides the leaderboard store and the score intake
// pipeline, delegating persistence to a repository.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Otar989/bugman-bot/internal/models"
)

const (
	// DefaultTopLimit is used when the caller does not ask for a size.
	DefaultTopLimit = 100
	// MaxTopLimit caps the number of entries returned by Top.
	MaxTopLimit = 200
)

var (
	// ErrInvalidScore is returned for negative scores or scores above the configured maximum.
	ErrInvalidScore = errors.New("invalid score")
	// ErrStorageUnavailable wraps every failure of the persistence backend.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// LeaderboardRepository defines the persistence operations required by the
// leaderboard. Implementations must apply UpsertBest atomically per identity.
type LeaderboardRepository interface {
	// UpsertBest creates the entry or raises its score, returning the stored
	// score and whether it changed.
	UpsertBest(ctx context.Context, e models.LeaderboardEntry) (int64, bool, error)
	// TopN returns up to n entries, best score first, earliest update first on ties.
	TopN(ctx context.Context, n int) ([]models.LeaderboardEntry, error)
}

// LeaderboardService is the leaderboard store: it enforces score bounds and
// classifies backend failures.
type LeaderboardService struct {
	repo     LeaderboardRepository
	maxScore int64
	now      func() time.Time
}

// LeaderboardOption configures a LeaderboardService.
type LeaderboardOption func(*LeaderboardService)

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) LeaderboardOption {
	return func(s *LeaderboardService) { s.now = now }
}

// NewLeaderboardService constructs a LeaderboardService accepting scores in [0, maxScore].
func NewLeaderboardService(repo LeaderboardRepository, maxScore int64, opts ...LeaderboardOption) *LeaderboardService {
	s := &LeaderboardService{
		repo:     repo,
		maxScore: maxScore,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpsertBest records score for identity and returns the stored best score
// together with whether this submission raised it. A lower score is not an
// error: the previous best is returned with false.
func (s *LeaderboardService) UpsertBest(ctx context.Context, identity string, score int64, displayName, username string) (int64, bool, error) {
	if score < 0 || score > s.maxScore {
		return 0, false, fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidScore, score, s.maxScore)
	}

	stored, changed, err := s.repo.UpsertBest(ctx, models.LeaderboardEntry{
		Identity:    identity,
		Score:       score,
		UpdatedAt:   s.now().UTC(),
		DisplayName: displayName,
		Username:    username,
	})
	if err != nil {
		return 0, false, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return stored, changed, nil
}

// Top returns the leaderboard head. A non-positive limit means
// DefaultTopLimit; larger limits are capped at MaxTopLimit.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultTopLimit
	case limit > MaxTopLimit:
		limit = MaxTopLimit
	}

	entries, err := s.repo.TopN(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return entries, nil
}
