// Package repository provides persistence backends for the leaderboard:
// in-memory, PostgreSQL and Redis. Every backend applies best-score upserts
// atomically per identity.
package repository

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Otar989/bugman-bot/internal/models"
)

type slot struct {
	mu    sync.Mutex
	entry atomic.Pointer[models.LeaderboardEntry]
}

// MemoryLeaderboardRepository keeps entries in process memory.
//
// Writers lock only the slot of their identity. Entries are immutable once
// published, so TopN reads them without locks and never sees a partial entry.
type MemoryLeaderboardRepository struct {
	slots sync.Map // identity -> *slot
}

// NewMemoryLeaderboardRepository returns an empty repository.
func NewMemoryLeaderboardRepository() *MemoryLeaderboardRepository {
	return &MemoryLeaderboardRepository{}
}

// UpsertBest stores e unless the identity already has an equal or higher
// score. Display fields are refreshed either way; UpdatedAt only moves when
// the score changes. It returns the stored score and whether it changed.
func (r *MemoryLeaderboardRepository) UpsertBest(_ context.Context, e models.LeaderboardEntry) (int64, bool, error) {
	v, _ := r.slots.LoadOrStore(e.Identity, &slot{})
	s := v.(*slot)

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.entry.Load()
	if cur == nil {
		created := e
		s.entry.Store(&created)
		return created.Score, true, nil
	}

	next := *cur
	next.DisplayName = e.DisplayName
	next.Username = e.Username

	changed := e.Score > cur.Score
	if changed {
		next.Score = e.Score
		next.UpdatedAt = e.UpdatedAt
	}
	s.entry.Store(&next)

	return next.Score, changed, nil
}

// TopN returns up to n entries ordered by score descending, then by
// earliest UpdatedAt.
func (r *MemoryLeaderboardRepository) TopN(_ context.Context, n int) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	r.slots.Range(func(_, v any) bool {
		if e := v.(*slot).entry.Load(); e != nil {
			entries = append(entries, *e)
		}
		return true
	})

	SortEntries(entries)
	if n < len(entries) {
		entries = entries[:n]
	}
	return entries, nil
}

// SortEntries orders entries by score descending; ties go to the earliest
// UpdatedAt, then to the lower identity so the order is total.
func SortEntries(entries []models.LeaderboardEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
		return a.Identity < b.Identity
	})
}
