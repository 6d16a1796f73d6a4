// ABOUTME: Panic recovery middleware
// ABOUTME: Converts handler panics into a logged 500 JSON envelope

package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recover returns a 500 JSON error instead of dropping the connection
// when the wrapped handler panics.
func Recover(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Error("Handler panic",
				"path", sanitizePath(r.URL.Path),
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		}()
		next(w, r)
	}
}
