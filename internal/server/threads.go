// ABOUTME: Conversation thread endpoints under /api/threads
// ABOUTME: A thread branches from a stored message into its own session and expires after a TTL

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/schmitech/orbit-chat/internal/store"
)

type createThreadRequest struct {
	MessageID string `json:"message_id"`
	SessionID string `json:"session_id"`
}

type threadResponse struct {
	ThreadID        string `json:"thread_id"`
	ThreadSessionID string `json:"thread_session_id"`
	ParentMessageID string `json:"parent_message_id"`
	ParentSessionID string `json:"parent_session_id"`
	AdapterName     string `json:"adapter_name"`
	CreatedAt       string `json:"created_at"`
	ExpiresAt       string `json:"expires_at"`
}

type deleteThreadResponse struct {
	Status   string `json:"status"`
	ThreadID string `json:"thread_id"`
}

func toThreadResponse(t *store.Thread) threadResponse {
	return threadResponse{
		ThreadID:        t.ID,
		ThreadSessionID: t.SessionID,
		ParentMessageID: t.ParentMessageID,
		ParentSessionID: t.ParentSessionID,
		AdapterName:     t.AdapterName,
		CreatedAt:       formatTimestamp(t.CreatedAt),
		ExpiresAt:       formatTimestamp(t.ExpiresAt),
	}
}

// handleCreateThread handles POST /api/threads.
func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var req createThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.MessageID == "" || req.SessionID == "" {
		sendError(w, http.StatusBadRequest, "message_id and session_id are required")
		return
	}

	parent, err := s.store.GetMessage(r.Context(), req.MessageID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && parent.SessionID != req.SessionID) {
		sendError(w, http.StatusNotFound, "Message not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get parent message", "message_id", req.MessageID, "error", err)
		sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	now := s.now()
	t := &store.Thread{
		ID:              uuid.New().String(),
		SessionID:       uuid.New().String(),
		ParentMessageID: parent.ID,
		ParentSessionID: parent.SessionID,
		AdapterName:     r.Header.Get(headerAdapterName),
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.config.Threads.TTL),
	}
	if err := s.store.CreateThread(r.Context(), t); err != nil {
		s.logger.Error("failed to create thread", "error", err)
		sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.logger.Info("thread created", "thread_id", t.ID, "parent_session_id", t.ParentSessionID)
	writeJSON(w, http.StatusOK, toThreadResponse(t))
}

// liveThread loads a thread that has not expired, writing 404 otherwise.
func (s *Server) liveThread(w http.ResponseWriter, r *http.Request) (*store.Thread, bool) {
	t, err := s.store.GetThread(r.Context(), r.PathValue("thread_id"))
	if errors.Is(err, store.ErrNotFound) || (err == nil && t.Expired(s.now())) {
		sendError(w, http.StatusNotFound, "Thread not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("failed to get thread", "error", err)
		sendError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	return t, true
}

// handleGetThread handles GET /api/threads/{thread_id}.
func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	t, ok := s.liveThread(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toThreadResponse(t))
}

// handleDeleteThread handles DELETE /api/threads/{thread_id}.
func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	t, ok := s.liveThread(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteThread(r.Context(), t.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("failed to delete thread", "thread_id", t.ID, "error", err)
		sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, deleteThreadResponse{Status: "success", ThreadID: t.ID})
}
