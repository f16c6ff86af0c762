// Package store provides persistent storage for orbit-server using SQLite.
//
// # Architecture
//
// Store is the single interface the server depends on. SQLiteStore
// implements it on modernc.org/sqlite, a pure-Go driver, so the server builds
// without cgo.
//
// # Data Models
//
//   - ChatMessage: one turn of a session's conversation
//   - File: an uploaded document with its bytes and processing status
//   - Thread: a follow-up conversation with its own session, branched from a
//     stored message and expiring after a TTL
//   - APIKey: a bcrypt-hashed credential identified by its public prefix
//
// # Timestamps
//
// Times are stored as fixed-width UTC strings with nanosecond precision so
// that lexical order matches chronological order.
//
// # Errors
//
// Lookups of missing rows return ErrNotFound and conflicting inserts return
// ErrDuplicate. All other failures are wrapped with context.
//
// # Migrations
//
// The schema is created on open and column additions are applied by
// runMigrations, which checks pragma_table_info before each ALTER TABLE.
package store
