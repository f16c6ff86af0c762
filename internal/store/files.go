// ABOUTME: Uploaded file persistence for SQLiteStore
// ABOUTME: Stores file bytes alongside metadata, scoped by the owning API key

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateFile stores a file and its content
func (s *SQLiteStore) CreateFile(ctx context.Context, f *File) error {
	query := `
		INSERT INTO files (id, api_key, filename, mime_type, size, status, chunk_count, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		f.ID,
		nullString(f.APIKey),
		f.Filename,
		f.MimeType,
		f.Size,
		f.Status,
		f.ChunkCount,
		f.Content,
		formatTime(f.CreatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting file: %w", err)
	}

	s.logger.Debug("stored file", "id", f.ID, "filename", f.Filename, "size", f.Size)
	return nil
}

const fileColumns = `id, api_key, filename, mime_type, size, status, chunk_count, created_at`

// GetFile retrieves file metadata without content.
// Returns ErrNotFound if the file doesn't exist.
func (s *SQLiteStore) GetFile(ctx context.Context, id string) (*File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying file: %w", err)
	}
	return f, nil
}

// GetFileContent retrieves a file including its content.
// Returns ErrNotFound if the file doesn't exist.
func (s *SQLiteStore) GetFileContent(ctx context.Context, id string) (*File, error) {
	f, err := s.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `SELECT content FROM files WHERE id = ?`, id).Scan(&f.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying file content: %w", err)
	}
	return f, nil
}

// ListFiles returns the files owned by apiKey, newest first. An empty
// apiKey lists files uploaded without a key.
func (s *SQLiteStore) ListFiles(ctx context.Context, apiKey string) ([]*File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE api_key IS ? ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, nullString(apiKey))
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning file row: %w", err)
		}
		files = append(files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating file rows: %w", err)
	}

	return files, nil
}

// DeleteFile removes a file.
// Returns ErrNotFound if the file doesn't exist.
func (s *SQLiteStore) DeleteFile(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted file", "id", id)
	return nil
}

func scanFile(row rowScanner) (*File, error) {
	var f File
	var apiKey *string
	var createdAtStr string

	if err := row.Scan(&f.ID, &apiKey, &f.Filename, &f.MimeType, &f.Size, &f.Status, &f.ChunkCount, &createdAtStr); err != nil {
		return nil, err
	}

	createdAt, err := parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	f.CreatedAt = createdAt
	f.APIKey = derefString(apiKey)

	return &f, nil
}
