// ABOUTME: CORS middleware for API cross-origin requests
// ABOUTME: Echoes allow-listed origins with credentials and answers preflight requests

package middleware

import (
	"net/http"
	"slices"
)

// CORS returns middleware that adds CORS headers for allow-listed origins.
// Credentials are allowed so the browser sends the session cookie. An empty
// allow-list blocks every cross-origin request. OPTIONS preflights are
// answered with 204 without calling the wrapped handler.
func CORS(allowedOrigins []string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && slices.Contains(allowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next(w, r)
		}
	}
}
