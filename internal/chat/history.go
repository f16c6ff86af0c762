// ABOUTME: Administrative conversation-history operations
// ABOUTME: Clears or fetches a session's stored messages through the admin API

package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// ClearHistoryResult is the server's reply to a history clear, kept verbatim.
type ClearHistoryResult struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	SessionID    string `json:"session_id"`
	DeletedCount int    `json:"deleted_count"`
	Timestamp    string `json:"timestamp"`
}

// HistoryMessage is one stored chat turn.
type HistoryMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// History is a session's stored messages, oldest first.
type History struct {
	SessionID string           `json:"session_id"`
	Messages  []HistoryMessage `json:"messages"`
	Count     int              `json:"count"`
}

// ClearConversationHistory deletes the stored messages of a session. The
// override wins over the client's session when non-empty.
func (c *Client) ClearConversationHistory(ctx context.Context, sessionOverride string) (*ClearHistoryResult, error) {
	sessionID := c.resolveSession(sessionOverride)
	if sessionID == "" {
		return nil, ErrNoSession
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	var result ClearHistoryResult
	if err := c.doJSON(ctx, http.MethodDelete, c.historyURL(sessionID), sessionID, nil, &result); err != nil {
		return nil, err
	}

	c.logger.Debug("cleared conversation history",
		"session_id", sessionID,
		"deleted_count", result.DeletedCount,
	)
	return &result, nil
}

// GetConversationHistory returns up to limit stored messages of a session.
// A limit of zero or less leaves the server default in place.
func (c *Client) GetConversationHistory(ctx context.Context, sessionOverride string, limit int) (*History, error) {
	if err := c.require(CapabilityHistory); err != nil {
		return nil, err
	}
	sessionID := c.resolveSession(sessionOverride)
	if sessionID == "" {
		return nil, ErrNoSession
	}

	target := c.historyURL(sessionID)
	if limit > 0 {
		target += "?limit=" + strconv.Itoa(limit)
	}

	var history History
	if err := c.doJSON(ctx, http.MethodGet, target, sessionID, nil, &history); err != nil {
		return nil, err
	}
	return &history, nil
}

// doJSON performs one bounded administrative exchange and decodes the JSON
// reply into out.
func (c *Client) doJSON(ctx context.Context, method, target, sessionID string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, method, target, sessionID, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

// do sends req and decodes a successful JSON reply into out, which may be nil.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return err
	}
	if out == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransport(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ProtocolError{
			Status: resp.StatusCode,
			Detail: fmt.Sprintf("Invalid response body: %v", err),
		}
	}
	return nil
}
