package middleware

import (
	"net/http"

	"golang.org/x/time/rate"
)

const throttledBody = `{"ok":false,"error":"too_many_requests"}` + "\n"

// Throttle rejects requests with 429 once the process-wide token bucket is
// empty. onReject, when non-nil, is called for every rejected request.
func Throttle(limiter *rate.Limiter, onReject func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				if onReject != nil {
					onReject()
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(throttledBody))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
