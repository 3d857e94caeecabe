package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Otar989/bugman-bot/internal/models"
)

// PostgresLeaderboardRepository stores entries in the players table.
type PostgresLeaderboardRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresLeaderboardRepository creates a repository over db.
// db must be a valid *sql.DB connected to a PostgreSQL instance with the players schema.
func NewPostgresLeaderboardRepository(db *sql.DB) *PostgresLeaderboardRepository {
	return &PostgresLeaderboardRepository{DB: db}
}

// UpsertBest inserts the entry or raises the stored best score in a single
// statement, so concurrent submissions for one player are serialised by the
// row lock. updated_at only changes together with best_score; the second
// returned column reports whether it did.
func (r *PostgresLeaderboardRepository) UpsertBest(ctx context.Context, e models.LeaderboardEntry) (int64, bool, error) {
	var (
		stored  int64
		changed bool
	)
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO players (id, username, display_name, best_score, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			best_score = GREATEST(players.best_score, EXCLUDED.best_score),
			updated_at = CASE
				WHEN EXCLUDED.best_score > players.best_score THEN EXCLUDED.updated_at
				ELSE players.updated_at
			END
		RETURNING best_score, updated_at = $5
	`, e.Identity, e.Username, e.DisplayName, e.Score, e.UpdatedAt).Scan(&stored, &changed)
	if err != nil {
		return 0, false, fmt.Errorf("upsert best score: %w", err)
	}
	return stored, changed, nil
}

// TopN returns up to n players ordered by best score, earliest achiever first on ties.
func (r *PostgresLeaderboardRepository) TopN(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, COALESCE(username, ''), COALESCE(display_name, ''), best_score, updated_at
		FROM players
		ORDER BY best_score DESC, updated_at ASC, id ASC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, fmt.Errorf("TopN: %w", err)
	}
	defer rows.Close()

	entries := make([]models.LeaderboardEntry, 0, n)
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.Identity, &e.Username, &e.DisplayName, &e.Score, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return entries, nil
}
