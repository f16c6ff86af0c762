// ABOUTME: Chat history persistence for SQLiteStore
// ABOUTME: Saves, reads, and clears the messages of a session

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveMessage saves a chat message
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, session_id, role, content, api_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.SessionID,
		msg.Role,
		msg.Content,
		nullString(msg.APIKey),
		formatTime(msg.CreatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting message: %w", err)
	}

	s.logger.Debug("saved message", "id", msg.ID, "session_id", msg.SessionID, "role", msg.Role)
	return nil
}

// GetMessage retrieves a message by ID.
// Returns ErrNotFound if the message doesn't exist.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*ChatMessage, error) {
	query := `
		SELECT id, session_id, role, content, api_key, created_at
		FROM chat_messages
		WHERE id = ?
	`

	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying message: %w", err)
	}
	return msg, nil
}

// GetSessionMessages retrieves messages for a session, limited to the most recent `limit` messages.
// Messages are returned in chronological order (oldest first).
// If limit is 0 or negative, all messages are returned.
func (s *SQLiteStore) GetSessionMessages(ctx context.Context, sessionID string, limit int) ([]*ChatMessage, error) {
	var query string
	var args []any

	if limit > 0 {
		// newest N, returned oldest first
		query = `
			SELECT id, session_id, role, content, api_key, created_at
			FROM (
				SELECT id, session_id, role, content, api_key, created_at, rowid AS seq
				FROM chat_messages
				WHERE session_id = ?
				ORDER BY created_at DESC, seq DESC
				LIMIT ?
			)
			ORDER BY created_at ASC, seq ASC
		`
		args = []any{sessionID, limit}
	} else {
		query = `
			SELECT id, session_id, role, content, api_key, created_at
			FROM chat_messages
			WHERE session_id = ?
			ORDER BY created_at ASC, rowid ASC
		`
		args = []any{sessionID}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}

// ClearSession deletes every message of a session and returns how many were removed.
// Clearing an unknown session is not an error.
func (s *SQLiteStore) ClearSession(ctx context.Context, sessionID string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("deleting messages: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	s.logger.Debug("cleared session", "session_id", sessionID, "deleted", n)
	return int(n), nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*ChatMessage, error) {
	var msg ChatMessage
	var apiKey *string
	var createdAtStr string

	if err := row.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &apiKey, &createdAtStr); err != nil {
		return nil, err
	}

	createdAt, err := parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	msg.CreatedAt = createdAt
	msg.APIKey = derefString(apiKey)

	return &msg, nil
}
