package middleware

import (
	"log/slog"
	"net/http"
)

// queryTooLongJSON is a pre-marshaled error response for 414 URI Too Long.
const queryTooLongJSON = `{"error":{"code":"QUERY_TOO_LONG","message":"query string exceeds size limit"}}`

// MaxQueryBytes rejects requests whose raw query string is longer than
// maxBytes. Filters travel in the query string, so this caps the size of the
// filter a client can hand to the backend.
//
// Returns 414 URI Too Long with the standard error format if the limit is exceeded.
func MaxQueryBytes(maxBytes int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(r.URL.RawQuery) <= maxBytes {
				next.ServeHTTP(w, r)
				return
			}

			slog.WarnContext(r.Context(), "Request query size limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"query_length", len(r.URL.RawQuery),
				"limit", maxBytes)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusRequestURITooLong)
			if _, err := w.Write([]byte(queryTooLongJSON)); err != nil {
				slog.ErrorContext(r.Context(), "Failed to write query too long response", "error", err)
			}
		})
	}
}
