// ABOUTME: Request construction for the chat wire protocol
// ABOUTME: Builds JSON bodies, endpoint URLs, and the per-request header set

package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// Header names used on every request.
const (
	HeaderAPIKey      = "X-API-Key"
	HeaderSessionID   = "X-Session-ID"
	HeaderRequestID   = "X-Request-ID"
	HeaderAdapterName = "X-Adapter-Name"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	SessionID   string    `json:"session_id,omitempty"`
	FileIDs     []string  `json:"file_ids,omitempty"`
	AudioInput  string    `json:"audio_input,omitempty"`
	AudioFormat string    `json:"audio_format,omitempty"`
	Language    string    `json:"language,omitempty"`
	ReturnAudio *bool     `json:"return_audio,omitempty"`
	TTSVoice    string    `json:"tts_voice,omitempty"`
}

// ChatOption adjusts a single chat call.
type ChatOption func(*ChatRequest)

// WithStream selects streaming (the default) or a single JSON response.
func WithStream(stream bool) ChatOption {
	return func(r *ChatRequest) { r.Stream = stream }
}

// WithFileIDs attaches previously uploaded files to the message.
func WithFileIDs(ids ...string) ChatOption {
	return func(r *ChatRequest) { r.FileIDs = append(r.FileIDs, ids...) }
}

// WithAudioInput sends base64 audio alongside the message.
func WithAudioInput(data, format string) ChatOption {
	return func(r *ChatRequest) {
		r.AudioInput = data
		r.AudioFormat = format
	}
}

// WithLanguage sets the speech language hint.
func WithLanguage(lang string) ChatOption {
	return func(r *ChatRequest) { r.Language = lang }
}

// WithReturnAudio asks the server to include synthesized audio.
func WithReturnAudio(v bool) ChatOption {
	return func(r *ChatRequest) { r.ReturnAudio = &v }
}

// WithTTSVoice picks the synthesized voice.
func WithTTSVoice(voice string) ChatOption {
	return func(r *ChatRequest) { r.TTSVoice = voice }
}

// newChatRequest builds a fresh request body for one call.
func newChatRequest(message, sessionID string, opts []ChatOption) ChatRequest {
	req := ChatRequest{
		Messages:  []Message{{Role: "user", Content: message}},
		Stream:    true,
		SessionID: sessionID,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// endpoint joins the base URL and path without normalising slashes, so a
// base URL ending in "/" yields a doubled slash.
func (c *Client) endpoint(path string) string {
	return c.apiURL + path
}

func (c *Client) chatURL() string {
	return c.endpoint("/v1/chat")
}

func (c *Client) historyURL(sessionID string) string {
	return c.endpoint("/admin/chat-history/" + url.PathEscape(sessionID))
}

func (c *Client) filesURL(fileID string) string {
	if fileID == "" {
		return c.endpoint("/api/files")
	}
	return c.endpoint("/api/files/" + url.PathEscape(fileID))
}

func (c *Client) threadsURL(threadID string) string {
	if threadID == "" {
		return c.endpoint("/api/threads")
	}
	return c.endpoint("/api/threads/" + url.PathEscape(threadID))
}

// headers returns the header set for one request. Optional headers are
// omitted entirely when their value is absent.
func (c *Client) headers(sessionID string) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "text/event-stream")
	h.Set(HeaderRequestID, uuid.NewString())
	if c.apiKey != "" {
		h.Set(HeaderAPIKey, c.apiKey)
	}
	if sessionID != "" {
		h.Set(HeaderSessionID, sessionID)
	}
	if c.adapter != "" {
		h.Set(HeaderAdapterName, c.adapter)
	}
	return h
}

// newRequest creates an HTTP request with the standard header set. A nil
// body sends no payload.
func (c *Client) newRequest(ctx context.Context, method, target, sessionID string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.headers(sessionID)
	return req, nil
}
