// ABOUTME: Conversation thread persistence for SQLiteStore
// ABOUTME: Deleting a thread also removes the messages of its session

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateThread creates a new thread.
// Returns ErrDuplicate if the thread or its session id already exists.
func (s *SQLiteStore) CreateThread(ctx context.Context, t *Thread) error {
	query := `
		INSERT INTO threads (id, session_id, parent_message_id, parent_session_id, adapter_name, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.SessionID,
		t.ParentMessageID,
		t.ParentSessionID,
		nullString(t.AdapterName),
		formatTime(t.CreatedAt),
		formatTime(t.ExpiresAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting thread: %w", err)
	}

	s.logger.Debug("created thread", "id", t.ID, "parent_session_id", t.ParentSessionID)
	return nil
}

// GetThread retrieves a thread by ID.
// Returns ErrNotFound if the thread doesn't exist. Expiry is left to the caller.
func (s *SQLiteStore) GetThread(ctx context.Context, id string) (*Thread, error) {
	query := `
		SELECT id, session_id, parent_message_id, parent_session_id, adapter_name, created_at, expires_at
		FROM threads
		WHERE id = ?
	`

	var t Thread
	var adapter *string
	var createdAtStr, expiresAtStr string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.SessionID,
		&t.ParentMessageID,
		&t.ParentSessionID,
		&adapter,
		&createdAtStr,
		&expiresAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying thread: %w", err)
	}

	t.AdapterName = derefString(adapter)

	t.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	t.ExpiresAt, err = parseTime(expiresAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}

	return &t, nil
}

// DeleteThread removes a thread and the messages stored under its session.
// Returns ErrNotFound if the thread doesn't exist.
func (s *SQLiteStore) DeleteThread(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var sessionID string
	err = tx.QueryRowContext(ctx, `SELECT session_id FROM threads WHERE id = ?`, id).Scan(&sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("querying thread: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting thread messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting thread: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("deleted thread", "id", id)
	return nil
}

// DeleteExpiredThreads removes threads whose expiry is at or before now,
// along with their messages. Returns the number of threads removed.
func (s *SQLiteStore) DeleteExpiredThreads(ctx context.Context, now time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	cutoff := formatTime(now)

	_, err = tx.ExecContext(ctx, `
		DELETE FROM chat_messages
		WHERE session_id IN (SELECT session_id FROM threads WHERE expires_at <= ?)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired thread messages: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM threads WHERE expires_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired threads: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	if n > 0 {
		s.logger.Info("deleted expired threads", "count", n)
	}
	return int(n), nil
}
