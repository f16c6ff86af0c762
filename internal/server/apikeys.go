// ABOUTME: Admin endpoints for issuing, listing, and deactivating API keys
// ABOUTME: Guarded by an admin JWT; the key secret is returned once at creation

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/schmitech/orbit-chat/internal/auth"
	"github.com/schmitech/orbit-chat/internal/store"
)

type createAPIKeyRequest struct {
	Name        string `json:"name"`
	AdapterName string `json:"adapter_name"`
}

type apiKeyResponse struct {
	Prefix      string  `json:"prefix"`
	Name        string  `json:"name"`
	AdapterName string  `json:"adapter_name,omitempty"`
	Active      bool    `json:"active"`
	CreatedAt   string  `json:"created_at"`
	LastUsedAt  *string `json:"last_used_at"`
	APIKey      string  `json:"api_key,omitempty"` // only on creation
}

func toAPIKeyResponse(k *store.APIKey) apiKeyResponse {
	resp := apiKeyResponse{
		Prefix:      k.Prefix,
		Name:        k.Name,
		AdapterName: k.AdapterName,
		Active:      k.Active,
		CreatedAt:   formatTimestamp(k.CreatedAt),
	}
	if k.LastUsedAt != nil {
		ts := formatTimestamp(*k.LastUsedAt)
		resp.LastUsedAt = &ts
	}
	return resp
}

// IssueAPIKey creates and stores a new key, returning the stored row and the
// secret. Used by the admin endpoint and by bootstrap.
func IssueAPIKey(ctx context.Context, st store.Store, name, adapter string, now time.Time) (*store.APIKey, string, error) {
	gen, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}
	key := &store.APIKey{
		Prefix:      gen.Prefix,
		Hash:        gen.Hash,
		Name:        name,
		AdapterName: adapter,
		Active:      true,
		CreatedAt:   now,
	}
	if err := st.CreateAPIKey(ctx, key); err != nil {
		return nil, "", err
	}
	return key, gen.Secret, nil
}

// handleCreateAPIKey handles POST /admin/api-keys.
func (s *Server) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req createAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		sendError(w, http.StatusBadRequest, "name is required")
		return
	}

	key, secret, err := IssueAPIKey(r.Context(), s.store, req.Name, req.AdapterName, s.now())
	if err != nil {
		s.logger.Error("failed to create api key", "error", err)
		sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.logger.Info("api key created",
		"prefix", key.Prefix,
		"name", key.Name,
		"by", auth.FromContext(r.Context()).AdminSubject,
	)

	resp := toAPIKeyResponse(key)
	resp.APIKey = secret
	writeJSON(w, http.StatusCreated, resp)
}

// handleListAPIKeys handles GET /admin/api-keys.
func (s *Server) handleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.ListAPIKeys(r.Context())
	if err != nil {
		s.logger.Error("failed to list api keys", "error", err)
		sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]apiKeyResponse, 0, len(keys))
	for _, k := range keys {
		resp = append(resp, toAPIKeyResponse(k))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeactivateAPIKey handles DELETE /admin/api-keys/{prefix}.
func (s *Server) handleDeactivateAPIKey(w http.ResponseWriter, r *http.Request) {
	prefix := r.PathValue("prefix")

	err := s.store.DeactivateAPIKey(r.Context(), prefix)
	if errors.Is(err, store.ErrNotFound) {
		sendError(w, http.StatusNotFound, "API key not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to deactivate api key", "prefix", prefix, "error", err)
		sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "prefix": prefix})
}
