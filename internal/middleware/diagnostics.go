package middleware

import "net/http"

// RequireDiagnostics hides the wrapped routes behind a 404 unless diagnostic
// mode is enabled.
func RequireDiagnostics(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
