// ABOUTME: Store interface and data types for orbit-server persistence
// ABOUTME: Defines chat messages, files, threads, and API keys plus the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with an existing row
var ErrDuplicate = errors.New("already exists")

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one stored turn of a session's conversation
type ChatMessage struct {
	ID        string
	SessionID string
	Role      string // "user" or "assistant"
	Content   string
	APIKey    string // prefix of the key that sent it, empty when unauthenticated
	CreatedAt time.Time
}

// File processing states
const (
	FileStatusCompleted = "completed"
	FileStatusFailed    = "failed"
)

// File is an uploaded document. Content is only populated by GetFileContent.
type File struct {
	ID         string
	APIKey     string // owning key prefix, empty when unauthenticated
	Filename   string
	MimeType   string
	Size       int64
	Status     string
	ChunkCount int
	Content    []byte
	CreatedAt  time.Time
}

// Thread is a follow-up conversation branched from a stored message. It has
// its own session id so its history is separate from the parent's.
type Thread struct {
	ID              string
	SessionID       string
	ParentMessageID string
	ParentSessionID string
	AdapterName     string
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

// Expired reports whether the thread is past its expiry at now.
func (t *Thread) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// APIKey is a stored credential. The secret itself is never stored, only its
// bcrypt hash; Prefix identifies the key for lookup.
type APIKey struct {
	Prefix      string
	Hash        string
	Name        string
	AdapterName string
	Active      bool
	CreatedAt   time.Time
	LastUsedAt  *time.Time
}

// Store defines the persistence operations used by the server
type Store interface {
	// Chat history
	SaveMessage(ctx context.Context, msg *ChatMessage) error
	GetMessage(ctx context.Context, id string) (*ChatMessage, error)
	GetSessionMessages(ctx context.Context, sessionID string, limit int) ([]*ChatMessage, error)
	ClearSession(ctx context.Context, sessionID string) (int, error)

	// Files
	CreateFile(ctx context.Context, f *File) error
	GetFile(ctx context.Context, id string) (*File, error)
	GetFileContent(ctx context.Context, id string) (*File, error)
	ListFiles(ctx context.Context, apiKey string) ([]*File, error)
	DeleteFile(ctx context.Context, id string) error

	// Threads
	CreateThread(ctx context.Context, t *Thread) error
	GetThread(ctx context.Context, id string) (*Thread, error)
	DeleteThread(ctx context.Context, id string) error
	DeleteExpiredThreads(ctx context.Context, now time.Time) (int, error)

	// API keys
	CreateAPIKey(ctx context.Context, key *APIKey) error
	GetAPIKey(ctx context.Context, prefix string) (*APIKey, error)
	ListAPIKeys(ctx context.Context) ([]*APIKey, error)
	DeactivateAPIKey(ctx context.Context, prefix string) error
	TouchAPIKey(ctx context.Context, prefix string, at time.Time) error
	CountAPIKeys(ctx context.Context) (int, error)

	Ping(ctx context.Context) error
	Close() error
}
