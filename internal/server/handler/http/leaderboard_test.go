package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Otar989/bugman-bot/internal/metrics"
	"github.com/Otar989/bugman-bot/internal/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

// fakeReader implements LeaderboardReader for testing.
type fakeReader struct {
	entries  []models.LeaderboardEntry
	err      error
	gotLimit int
}

func (f *fakeReader) Top(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	f.gotLimit = limit
	return f.entries, f.err
}

func TestLeaderboardHandler_Top(t *testing.T) {
	now := time.Now()
	entries := []models.LeaderboardEntry{
		{Identity: "3", Score: 90, UpdatedAt: now, DisplayName: "carol"},
		{Identity: "2", Score: 90, UpdatedAt: now.Add(time.Second), DisplayName: "bob"},
		{Identity: "1", Score: 50, UpdatedAt: now, DisplayName: "alice"},
	}
	reader := &fakeReader{entries: entries}
	m := metrics.New()
	h := &LeaderboardHandler{LeaderboardService: reader, Metrics: m, Logger: zap.NewNop()}

	rec := httptest.NewRecorder()
	h.Top(rec, httptest.NewRequest(http.MethodGet, "/leaderboard?limit=3", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if reader.gotLimit != 3 {
		t.Errorf("expected limit 3, got %d", reader.gotLimit)
	}

	var resp LeaderboardResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || len(resp.Items) != 3 {
		t.Fatalf("unexpected response %+v", resp)
	}
	for i, item := range resp.Items {
		if item.Rank != i+1 {
			t.Errorf("item %d has rank %d", i, item.Rank)
		}
		if item.ID != entries[i].PublicID() {
			t.Errorf("item %d has id %q; want public id", i, item.ID)
		}
		if item.DisplayName != entries[i].DisplayName || item.Score != entries[i].Score {
			t.Errorf("item %d = %+v", i, item)
		}
	}
	if got := testutil.ToFloat64(m.LeaderboardReads); got != 1 {
		t.Errorf("expected one read counted, got %v", got)
	}
}

func TestLeaderboardHandler_EmptyIsArray(t *testing.T) {
	h := &LeaderboardHandler{LeaderboardService: &fakeReader{}, Metrics: metrics.New(), Logger: zap.NewNop()}
	rec := httptest.NewRecorder()
	h.Top(rec, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))

	if got := rec.Body.String(); got != "{\"ok\":true,\"items\":[]}\n" {
		t.Errorf("unexpected body %q", got)
	}
}

func TestLeaderboardHandler_Errors(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		reader       *fakeReader
		expectedCode int
		expectedErr  string
	}{
		{"non-integer limit", "/leaderboard?limit=ten", &fakeReader{}, http.StatusBadRequest, "bad_request"},
		{"storage failure", "/leaderboard", &fakeReader{err: errors.New("down")}, http.StatusServiceUnavailable, "storage_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &LeaderboardHandler{LeaderboardService: tt.reader, Metrics: metrics.New(), Logger: zap.NewNop()}
			rec := httptest.NewRecorder()
			h.Top(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if rec.Code != tt.expectedCode {
				t.Fatalf("expected %d, got %d", tt.expectedCode, rec.Code)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.OK || resp.Error != tt.expectedErr {
				t.Errorf("unexpected response %+v", resp)
			}
		})
	}
}
