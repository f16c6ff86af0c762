// ABOUTME: Tests for the API key and admin token HTTP middleware
// ABOUTME: Exercises optional and required keys, context propagation, and JSON errors

package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoIdentity writes the key prefix and admin subject seen by the handler.
func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac := FromContext(r.Context())
		out := map[string]string{}
		if ac != nil {
			out["prefix"] = ac.KeyPrefix
			out["admin"] = ac.AdminSubject
		}
		_ = json.NewEncoder(w).Encode(out)
	})
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["detail"]
}

func TestAPIKeyMiddleware(t *testing.T) {
	s := newKeyStore(t)
	secret := issueKey(t, s, "ci", "")
	authn := NewAuthenticator(s, nil)

	tests := []struct {
		name       string
		required   bool
		key        string
		wantStatus int
		wantDetail string
		wantPrefix string
	}{
		{"optional without key", false, "", http.StatusOK, "", ""},
		{"required without key", true, "", http.StatusUnauthorized, "API key required", ""},
		{"valid key", true, secret, http.StatusOK, "", PrefixOf(secret)},
		{"invalid key when optional", false, "orbit_bogusbogusbogus", http.StatusUnauthorized, "invalid API key", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := APIKeyMiddleware(authn, tt.required, slog.Default())(echoIdentity())
			req := httptest.NewRequest(http.MethodGet, "/v1/chat", nil)
			if tt.key != "" {
				req.Header.Set(HeaderAPIKey, tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantDetail != "" {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
				assert.Equal(t, tt.wantDetail, decodeDetail(t, rec))
				return
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantPrefix, body["prefix"])
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	s := newKeyStore(t)
	secret := issueKey(t, s, "ci", "")
	authn := NewAuthenticator(s, nil)
	h := APIKeyMiddleware(authn, false, slog.Default())(RequireAPIKey(echoIdentity()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/chat-history/s", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/admin/chat-history/s", nil)
	req.Header.Set(HeaderAPIKey, secret)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminMiddleware(t *testing.T) {
	v := newTestVerifier(t)
	h := AdminMiddleware(v)(echoIdentity())

	valid, err := v.Generate("owner", time.Hour)
	require.NoError(t, err)
	expired, err := v.Generate("owner", -time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantDetail string
	}{
		{"missing", "", http.StatusUnauthorized, "missing authorization header"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "invalid authorization header format"},
		{"garbage", "Bearer garbage", http.StatusUnauthorized, "invalid token"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "token expired"},
		{"valid", "Bearer " + valid, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/api-keys", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, decodeDetail(t, rec))
				return
			}
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "owner", body["admin"])
		})
	}
}
