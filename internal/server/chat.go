// ABOUTME: POST /v1/chat handler streaming assistant replies as SSE records
// ABOUTME: Persists both sides of each turn and answers plain JSON when stream is false

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/schmitech/orbit-chat/internal/auth"
	"github.com/schmitech/orbit-chat/internal/sse"
	"github.com/schmitech/orbit-chat/internal/store"
)

// Request headers read by the chat endpoint.
const (
	headerSessionID   = "X-Session-ID"
	headerAdapterName = "X-Adapter-Name"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the JSON body of POST /v1/chat.
type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Stream      *bool         `json:"stream"`
	SessionID   string        `json:"session_id"`
	FileIDs     []string      `json:"file_ids"`
	AudioInput  string        `json:"audio_input"`
	AudioFormat string        `json:"audio_format"`
	Language    string        `json:"language"`
	ReturnAudio *bool         `json:"return_audio"`
	TTSVoice    string        `json:"tts_voice"`
}

// chatRecord is one streamed record, or the whole non-streaming body.
type chatRecord struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// maxChatBody bounds the request body, audio input included.
const maxChatBody = 16 << 20

func parseChatRequest(r *http.Request, w http.ResponseWriter) (*chatRequest, error) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		return nil, errors.New("Invalid request body")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages must not be empty")
	}
	return &req, nil
}

// lastUserMessage returns the content of the final user message.
func (req *chatRequest) lastUserMessage() string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == store.RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}

func (req *chatRequest) streaming() bool {
	return req.Stream == nil || *req.Stream
}

// handleChat handles POST /v1/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, err := parseChatRequest(r, w)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessionID := r.Header.Get(headerSessionID)
	if sessionID == "" {
		sessionID = req.SessionID
	}
	if sessionID == "" {
		sendError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	message := req.lastUserMessage()
	if strings.TrimSpace(message) == "" {
		if req.AudioInput == "" {
			sendError(w, http.StatusBadRequest, "A user message or audio input is required")
			return
		}
		message = fmt.Sprintf("[audio input, format %s]", orDefault(req.AudioFormat, "unknown"))
	}

	ac := auth.FromContext(r.Context())
	keyPrefix := auth.KeyPrefixFromContext(r.Context())

	adapter := r.Header.Get(headerAdapterName)
	if adapter == "" && ac != nil {
		adapter = ac.AdapterName
	}

	files, ok := s.loadChatFiles(w, r, req.FileIDs, keyPrefix)
	if !ok {
		return
	}

	history, err := s.store.GetSessionMessages(r.Context(), sessionID, s.config.History.MaxMessages)
	if err != nil {
		s.logger.Error("failed to load history", "session_id", sessionID, "error", err)
		sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := s.saveMessage(r.Context(), sessionID, store.RoleUser, message, keyPrefix); err != nil {
		s.logger.Error("failed to save user message", "session_id", sessionID, "error", err)
		sendError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if req.ReturnAudio != nil && *req.ReturnAudio {
		s.logger.Debug("audio output requested but not produced", "session_id", sessionID, "tts_voice", req.TTSVoice)
	}

	prompt := &Prompt{
		SessionID:   sessionID,
		AdapterName: adapter,
		Message:     message,
		Language:    req.Language,
		Files:       files,
		History:     history,
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var reply string
	if req.streaming() {
		reply = s.streamReply(ctx, cancel, w, prompt)
	} else {
		reply = s.jsonReply(ctx, w, prompt)
	}

	if reply == "" {
		return
	}
	// the client may be gone, the turn is still recorded
	if err := s.saveMessage(context.WithoutCancel(r.Context()), sessionID, store.RoleAssistant, reply, keyPrefix); err != nil {
		s.logger.Error("failed to save assistant message", "session_id", sessionID, "error", err)
	}
}

// streamReply writes reply chunks as SSE records and returns the text sent.
func (s *Server) streamReply(ctx context.Context, cancel context.CancelFunc, w http.ResponseWriter, p *Prompt) string {
	sw, err := sse.NewWriter(w)
	if err != nil {
		s.logger.Error("streaming not supported", "error", err)
		sendError(w, http.StatusInternalServerError, "streaming not supported")
		return ""
	}

	var full strings.Builder
	chunks := s.responder.Respond(ctx, p)
	for chunk := range chunks {
		if err := sw.WriteJSON(chatRecord{Response: chunk}); err != nil {
			s.logger.Debug("client went away mid-stream", "session_id", p.SessionID, "error", err)
			cancel()
			for range chunks {
			}
			return full.String()
		}
		full.WriteString(chunk)
	}

	if ctx.Err() != nil {
		s.logger.Debug("stream canceled", "session_id", p.SessionID)
		return full.String()
	}

	if err := sw.WriteJSON(chatRecord{Done: true}); err != nil {
		return full.String()
	}
	_ = sw.WriteDone()
	return full.String()
}

// jsonReply collects the whole reply into one {"response": ...} body.
func (s *Server) jsonReply(ctx context.Context, w http.ResponseWriter, p *Prompt) string {
	var full strings.Builder
	for chunk := range s.responder.Respond(ctx, p) {
		full.WriteString(chunk)
	}
	if ctx.Err() != nil {
		return full.String()
	}
	writeJSON(w, http.StatusOK, chatRecord{Response: full.String(), Done: true})
	return full.String()
}

// loadChatFiles resolves file_ids the caller owns. It writes the error
// response itself and returns false when a file is missing.
func (s *Server) loadChatFiles(w http.ResponseWriter, r *http.Request, ids []string, keyPrefix string) ([]*store.File, bool) {
	files := make([]*store.File, 0, len(ids))
	for _, id := range ids {
		f, err := s.store.GetFileContent(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) || (err == nil && f.APIKey != keyPrefix) {
			sendError(w, http.StatusNotFound, "File not found: "+id)
			return nil, false
		}
		if err != nil {
			s.logger.Error("failed to load file", "file_id", id, "error", err)
			sendError(w, http.StatusInternalServerError, "internal server error")
			return nil, false
		}
		files = append(files, f)
	}
	return files, true
}

func (s *Server) saveMessage(ctx context.Context, sessionID, role, content, keyPrefix string) error {
	return s.store.SaveMessage(ctx, &store.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		APIKey:    keyPrefix,
		CreatedAt: s.now(),
	})
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
