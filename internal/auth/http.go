// ABOUTME: HTTP middleware for API key and admin token authentication
// ABOUTME: Reads X-API-Key or a bearer token and adds the identity to the request context

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// HeaderAPIKey carries the client API key.
const HeaderAPIKey = "X-API-Key"

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// WriteError writes a {"detail": msg} JSON body with the given status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}

// APIKeyMiddleware authenticates the X-API-Key header.
// A present but invalid key is always rejected. A missing key is rejected only
// when required is true; otherwise the request continues anonymously.
func APIKeyMiddleware(authn *Authenticator, required bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(HeaderAPIKey)
			if raw == "" {
				if required {
					WriteError(w, http.StatusUnauthorized, "API key required")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ac, err := authn.Authenticate(r.Context(), raw)
			switch {
			case errors.Is(err, ErrInvalidAPIKey), errors.Is(err, ErrInactiveAPIKey):
				WriteError(w, http.StatusUnauthorized, err.Error())
				return
			case err != nil:
				logger.Error("api key check failed", "error", err)
				WriteError(w, http.StatusInternalServerError, "internal error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), ac)))
		})
	}
}

// RequireAPIKey rejects requests that did not pass APIKeyMiddleware with a key.
func RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).HasAPIKey() {
			WriteError(w, http.StatusUnauthorized, "API key required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminMiddleware requires a valid admin bearer token.
func AdminMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				WriteError(w, http.StatusUnauthorized, errMsg)
				return
			}

			subject, err := verifier.Verify(token)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, ErrExpiredToken) {
					msg = "token expired"
				}
				WriteError(w, http.StatusUnauthorized, msg)
				return
			}

			ctx := WithAuth(r.Context(), &AuthContext{AdminSubject: subject})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
