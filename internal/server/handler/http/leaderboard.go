package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Otar989/bugman-bot/internal/metrics"
	"github.com/Otar989/bugman-bot/internal/models"
	"github.com/Otar989/bugman-bot/internal/service"
	"go.uber.org/zap"
)

// LeaderboardReader returns the head of the leaderboard.
type LeaderboardReader interface {
	Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// LeaderboardHandler handles GET /leaderboard.
type LeaderboardHandler struct {
	LeaderboardService LeaderboardReader
	Metrics            *metrics.Metrics
	Logger             *zap.Logger
}

// LeaderboardItem is one ranked row. ID is the public player id, not the
// Telegram user id.
type LeaderboardItem struct {
	Rank        int    `json:"rank"`
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Score       int64  `json:"score"`
}

// LeaderboardResponse is the body of a successful read.
type LeaderboardResponse struct {
	OK    bool              `json:"ok"`
	Items []LeaderboardItem `json:"items"`
}

// Top serves the leaderboard. The optional "limit" query parameter must be
// an integer; the service applies the default and the cap.
func (h *LeaderboardHandler) Top(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, service.CodeBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.LeaderboardService.Top(r.Context(), limit)
	if err != nil {
		h.Logger.Error("leaderboard read failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, service.CodeStorageUnavailable, "")
		return
	}
	h.Metrics.LeaderboardReads.Inc()

	items := make([]LeaderboardItem, 0, len(entries))
	for i, e := range entries {
		items = append(items, LeaderboardItem{
			Rank:        i + 1,
			ID:          e.PublicID(),
			DisplayName: e.DisplayName,
			Score:       e.Score,
		})
	}
	writeJSON(w, http.StatusOK, LeaderboardResponse{OK: true, Items: items})
}
