// ABOUTME: Chat history endpoints under /admin/chat-history/{session_id}
// ABOUTME: GET returns recent turns, DELETE clears a session and needs an API key

package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/schmitech/orbit-chat/internal/auth"
)

type historyMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type historyResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []historyMessage `json:"messages"`
	Count     int              `json:"count"`
}

type clearHistoryResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	SessionID    string `json:"session_id"`
	DeletedCount int    `json:"deleted_count"`
	Timestamp    string `json:"timestamp"`
}

// handleGetHistory handles GET /admin/chat-history/{session_id}?limit=N.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")

	limit := s.config.History.MaxMessages
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			sendError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	msgs, err := s.store.GetSessionMessages(r.Context(), sessionID, limit)
	if err != nil {
		s.logger.Error("failed to load history", "session_id", sessionID, "error", err)
		sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := historyResponse{
		SessionID: sessionID,
		Messages:  make([]historyMessage, 0, len(msgs)),
		Count:     len(msgs),
	}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, historyMessage{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: formatTimestamp(m.CreatedAt),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleClearHistory handles DELETE /admin/chat-history/{session_id}.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")

	if header := r.Header.Get(headerSessionID); header != "" && header != sessionID {
		sendError(w, http.StatusBadRequest, "Session ID in header does not match URL parameter")
		return
	}

	n, err := s.store.ClearSession(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("failed to clear history", "session_id", sessionID, "error", err)
		sendError(w, http.StatusInternalServerError, "Failed to clear conversation history: "+err.Error())
		return
	}

	s.logger.Info("cleared conversation history",
		"session_id", sessionID,
		"deleted_count", n,
		"key_prefix", auth.KeyPrefixFromContext(r.Context()),
	)

	writeJSON(w, http.StatusOK, clearHistoryResponse{
		Status:       "success",
		Message:      fmt.Sprintf("Cleared %d messages from session %s", n, sessionID),
		SessionID:    sessionID,
		DeletedCount: n,
		Timestamp:    formatTimestamp(s.now()),
	})
}
