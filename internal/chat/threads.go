// ABOUTME: Optional conversation-thread operations
// ABOUTME: Threads branch a follow-up conversation off a stored assistant message

package chat

import (
	"context"
	"net/http"
)

// ThreadInfo describes a conversation thread.
type ThreadInfo struct {
	ThreadID        string `json:"thread_id"`
	ThreadSessionID string `json:"thread_session_id"`
	ParentMessageID string `json:"parent_message_id"`
	ParentSessionID string `json:"parent_session_id"`
	AdapterName     string `json:"adapter_name"`
	CreatedAt       string `json:"created_at"`
	ExpiresAt       string `json:"expires_at"`
}

// DeleteThreadResult is the server's reply to a thread delete.
type DeleteThreadResult struct {
	Status   string `json:"status"`
	ThreadID string `json:"thread_id"`
}

type createThreadRequest struct {
	MessageID string `json:"message_id"`
	SessionID string `json:"session_id"`
}

// CreateThread starts a thread from messageID in the given session, or the
// client's session when sessionOverride is empty.
func (c *Client) CreateThread(ctx context.Context, messageID, sessionOverride string) (*ThreadInfo, error) {
	if err := c.require(CapabilityThreads); err != nil {
		return nil, err
	}
	if messageID == "" {
		return nil, ErrEmptyID
	}
	sessionID := c.resolveSession(sessionOverride)
	if sessionID == "" {
		return nil, ErrNoSession
	}

	body := createThreadRequest{MessageID: messageID, SessionID: sessionID}
	var info ThreadInfo
	if err := c.doJSON(ctx, http.MethodPost, c.threadsURL(""), sessionID, body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetThreadInfo returns a thread's metadata.
func (c *Client) GetThreadInfo(ctx context.Context, threadID string) (*ThreadInfo, error) {
	if err := c.require(CapabilityThreads); err != nil {
		return nil, err
	}
	if threadID == "" {
		return nil, ErrEmptyID
	}
	var info ThreadInfo
	if err := c.doJSON(ctx, http.MethodGet, c.threadsURL(threadID), c.SessionID(), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DeleteThread removes a thread and its messages.
func (c *Client) DeleteThread(ctx context.Context, threadID string) (*DeleteThreadResult, error) {
	if err := c.require(CapabilityThreads); err != nil {
		return nil, err
	}
	if threadID == "" {
		return nil, ErrEmptyID
	}
	var result DeleteThreadResult
	if err := c.doJSON(ctx, http.MethodDelete, c.threadsURL(threadID), c.SessionID(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
