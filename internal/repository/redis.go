package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Otar989/bugman-bot/internal/models"
	"github.com/go-redis/redis/v8"
)

const (
	// ScoresKey is the sorted set of identity -> best score.
	ScoresKey = "leaderboard:scores"
	// PlayerKeyPattern is the hash holding one player's entry.
	PlayerKeyPattern = "leaderboard:player:%s"
)

// upsertBestScript raises the stored score atomically.
// KEYS: scores zset, player hash. ARGV: identity, score, updated_at (unix ms),
// display name, username. Returns {stored score, 1 if changed else 0}.
const upsertBestScript = `
local current = redis.call('ZSCORE', KEYS[1], ARGV[1])
if current and tonumber(current) >= tonumber(ARGV[2]) then
	redis.call('HSET', KEYS[2], 'display_name', ARGV[4], 'username', ARGV[5])
	return {tonumber(current), 0}
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[1])
redis.call('HSET', KEYS[2], 'score', ARGV[2], 'updated_at', ARGV[3], 'display_name', ARGV[4], 'username', ARGV[5])
return {tonumber(ARGV[2]), 1}
`

// RedisLeaderboardRepository keeps scores in a sorted set and entry details in hashes.
type RedisLeaderboardRepository struct {
	redis *redis.Client
}

// NewRedisLeaderboardRepository creates a repository over client.
func NewRedisLeaderboardRepository(client *redis.Client) *RedisLeaderboardRepository {
	return &RedisLeaderboardRepository{redis: client}
}

// PlayerKey returns the hash key for identity.
func PlayerKey(identity string) string {
	return fmt.Sprintf(PlayerKeyPattern, identity)
}

// UpsertBest implements the best-score upsert with a Lua script so the
// compare and the write happen atomically on the server.
func (r *RedisLeaderboardRepository) UpsertBest(ctx context.Context, e models.LeaderboardEntry) (int64, bool, error) {
	res, err := r.redis.Eval(ctx, upsertBestScript,
		[]string{ScoresKey, PlayerKey(e.Identity)},
		e.Identity, e.Score, e.UpdatedAt.UnixMilli(), e.DisplayName, e.Username,
	).Result()
	if err != nil {
		return 0, false, fmt.Errorf("upsert best score: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return 0, false, fmt.Errorf("upsert best score: unexpected reply %v", res)
	}
	stored, ok1 := vals[0].(int64)
	changed, ok2 := vals[1].(int64)
	if !ok1 || !ok2 {
		return 0, false, fmt.Errorf("upsert best score: unexpected reply %v", res)
	}
	return stored, changed == 1, nil
}

// TopN reads the n highest scores. Members tied with the n-th score are
// fetched as well so the earliest-updated tie-break can be applied before
// truncating.
func (r *RedisLeaderboardRepository) TopN(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	top, err := r.redis.ZRevRangeWithScores(ctx, ScoresKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("TopN: %w", err)
	}
	if len(top) == 0 {
		return []models.LeaderboardEntry{}, nil
	}

	members := make([]string, 0, len(top))
	seen := make(map[string]struct{}, len(top))
	for _, z := range top {
		id := z.Member.(string)
		members = append(members, id)
		seen[id] = struct{}{}
	}

	if len(top) == n {
		boundary := strconv.FormatInt(int64(top[len(top)-1].Score), 10)
		tied, err := r.redis.ZRangeByScore(ctx, ScoresKey, &redis.ZRangeBy{Min: boundary, Max: boundary}).Result()
		if err != nil {
			return nil, fmt.Errorf("TopN ties: %w", err)
		}
		for _, id := range tied {
			if _, ok := seen[id]; !ok {
				members = append(members, id)
				seen[id] = struct{}{}
			}
		}
	}

	cmds := make([]*redis.StringStringMapCmd, len(members))
	_, err = r.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range members {
			cmds[i] = pipe.HGetAll(ctx, PlayerKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("TopN details: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(members))
	for i, id := range members {
		e, err := entryFromHash(id, cmds[i].Val())
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	SortEntries(entries)
	if n < len(entries) {
		entries = entries[:n]
	}
	return entries, nil
}

func entryFromHash(identity string, h map[string]string) (models.LeaderboardEntry, error) {
	score, err := strconv.ParseInt(h["score"], 10, 64)
	if err != nil {
		return models.LeaderboardEntry{}, fmt.Errorf("player %s: bad score %q: %w", identity, h["score"], err)
	}
	ms, err := strconv.ParseInt(h["updated_at"], 10, 64)
	if err != nil {
		return models.LeaderboardEntry{}, fmt.Errorf("player %s: bad updated_at %q: %w", identity, h["updated_at"], err)
	}
	return models.LeaderboardEntry{
		Identity:    identity,
		Score:       score,
		UpdatedAt:   time.UnixMilli(ms).UTC(),
		DisplayName: h["display_name"],
		Username:    h["username"],
	}, nil
}
