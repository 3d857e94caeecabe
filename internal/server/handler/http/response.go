// Package http exposes the leaderboard service over HTTP: score intake,
// leaderboard reads, the diagnostic verify route, health and metrics.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/Otar989/bugman-bot/internal/service"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code service.Code, reason string) {
	writeJSON(w, status, ErrorResponse{Error: string(code), Reason: reason})
}
