package http

import "net/http"

const serviceName = "bugman-leaderboard"

// HealthHandler reports that the process is serving.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}
