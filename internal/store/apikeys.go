// ABOUTME: API key persistence for SQLiteStore
// ABOUTME: Keys are stored as bcrypt hashes and looked up by their public prefix

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateAPIKey stores a new key.
// Returns ErrDuplicate if the prefix is already in use.
func (s *SQLiteStore) CreateAPIKey(ctx context.Context, key *APIKey) error {
	query := `
		INSERT INTO api_keys (prefix, hash, name, adapter_name, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		key.Prefix,
		key.Hash,
		key.Name,
		nullString(key.AdapterName),
		key.Active,
		formatTime(key.CreatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting api key: %w", err)
	}

	s.logger.Debug("created api key", "prefix", key.Prefix, "name", key.Name)
	return nil
}

const apiKeyColumns = `prefix, hash, name, adapter_name, active, created_at, last_used_at`

// GetAPIKey retrieves a key by prefix, active or not.
// Returns ErrNotFound if no key has the prefix.
func (s *SQLiteStore) GetAPIKey(ctx context.Context, prefix string) (*APIKey, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE prefix = ?`, prefix)
	key, err := scanAPIKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying api key: %w", err)
	}
	return key, nil
}

// ListAPIKeys returns all keys, oldest first
func (s *SQLiteStore) ListAPIKeys(ctx context.Context) ([]*APIKey, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying api keys: %w", err)
	}
	defer rows.Close()

	var keys []*APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning api key row: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating api key rows: %w", err)
	}

	return keys, nil
}

// DeactivateAPIKey marks a key inactive. Deactivated keys stay listed.
// Returns ErrNotFound if no key has the prefix.
func (s *SQLiteStore) DeactivateAPIKey(ctx context.Context, prefix string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE api_keys SET active = 0 WHERE prefix = ?`, prefix)
	if err != nil {
		return fmt.Errorf("deactivating api key: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.Info("deactivated api key", "prefix", prefix)
	return nil
}

// TouchAPIKey records the last time a key was used
func (s *SQLiteStore) TouchAPIKey(ctx context.Context, prefix string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = ? WHERE prefix = ?`, formatTime(at), prefix)
	if err != nil {
		return fmt.Errorf("updating api key usage: %w", err)
	}
	return nil
}

// CountAPIKeys returns the number of stored keys, active or not
func (s *SQLiteStore) CountAPIKeys(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_keys`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting api keys: %w", err)
	}
	return n, nil
}

func scanAPIKey(row rowScanner) (*APIKey, error) {
	var key APIKey
	var adapter, lastUsedStr *string
	var createdAtStr string

	if err := row.Scan(&key.Prefix, &key.Hash, &key.Name, &adapter, &key.Active, &createdAtStr, &lastUsedStr); err != nil {
		return nil, err
	}

	createdAt, err := parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	key.CreatedAt = createdAt
	key.AdapterName = derefString(adapter)

	if lastUsedStr != nil {
		lastUsed, err := parseTime(*lastUsedStr)
		if err != nil {
			return nil, fmt.Errorf("parsing last_used_at: %w", err)
		}
		key.LastUsedAt = &lastUsed
	}

	return &key, nil
}
