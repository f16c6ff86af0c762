// ABOUTME: HTTP middleware rejecting requests that reuse an X-Request-ID
// ABOUTME: IDs are scoped by API key prefix so clients cannot block each other

package dedupe

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// HeaderRequestID is the header clients stamp on every request.
const HeaderRequestID = "X-Request-ID"

// Middleware answers 409 Conflict when a request repeats an X-Request-ID seen
// within the cache TTL. Requests without the header pass through. scope
// returns the namespace for a request, typically the caller's key prefix.
func Middleware(cache *Cache, scope func(*http.Request) string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := id
			if scope != nil {
				key = scope(r) + "|" + id
			}

			if !cache.Claim(key) {
				logger.Warn("replayed request rejected", "request_id", id, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Duplicate request ID"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
