// ABOUTME: Tests for file, thread, and API key persistence
// ABOUTME: Covers ownership scoping, cascading thread deletes, expiry, and key lifecycle

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f := &File{
		ID:         "file-1",
		APIKey:     "orbit_aaa",
		Filename:   "notes.txt",
		MimeType:   "text/plain",
		Size:       5,
		Status:     FileStatusCompleted,
		ChunkCount: 1,
		Content:    []byte("hello"),
		CreatedAt:  time.Now(),
	}
	require.NoError(t, s.CreateFile(ctx, f))
	assert.ErrorIs(t, s.CreateFile(ctx, f), ErrDuplicate)

	meta, err := s.GetFile(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", meta.Filename)
	assert.Nil(t, meta.Content, "GetFile must not load content")

	full, err := s.GetFileContent(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), full.Content)

	require.NoError(t, s.DeleteFile(ctx, "file-1"))
	assert.ErrorIs(t, s.DeleteFile(ctx, "file-1"), ErrNotFound)
	_, err = s.GetFile(ctx, "file-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFiles_ScopedByKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	files := []*File{
		{ID: "a1", APIKey: "orbit_aaa", Filename: "a1", MimeType: "text/plain", Status: FileStatusCompleted, CreatedAt: base},
		{ID: "a2", APIKey: "orbit_aaa", Filename: "a2", MimeType: "text/plain", Status: FileStatusCompleted, CreatedAt: base.Add(time.Second)},
		{ID: "b1", APIKey: "orbit_bbb", Filename: "b1", MimeType: "text/plain", Status: FileStatusCompleted, CreatedAt: base},
		{ID: "anon", Filename: "anon", MimeType: "text/plain", Status: FileStatusCompleted, CreatedAt: base},
	}
	for _, f := range files {
		require.NoError(t, s.CreateFile(ctx, f))
	}

	owned, err := s.ListFiles(ctx, "orbit_aaa")
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "a2", owned[0].ID, "newest first")

	anon, err := s.ListFiles(ctx, "")
	require.NoError(t, err)
	require.Len(t, anon, 1)
	assert.Equal(t, "anon", anon[0].ID)
}

func TestThreads_CreateGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	thread := &Thread{
		ID:              "t-1",
		SessionID:       "thread-session",
		ParentMessageID: "m-1",
		ParentSessionID: "parent",
		AdapterName:     "qa-sql",
		CreatedAt:       now,
		ExpiresAt:       now.Add(time.Hour),
	}
	require.NoError(t, s.CreateThread(ctx, thread))
	assert.ErrorIs(t, s.CreateThread(ctx, thread), ErrDuplicate)

	got, err := s.GetThread(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "thread-session", got.SessionID)
	assert.Equal(t, "qa-sql", got.AdapterName)
	assert.True(t, got.ExpiresAt.Equal(thread.ExpiresAt))
	assert.False(t, got.Expired(now))
	assert.True(t, got.Expired(now.Add(2*time.Hour)))

	require.NoError(t, s.SaveMessage(ctx, &ChatMessage{ID: "tm", SessionID: "thread-session", Role: RoleUser, Content: "x", CreatedAt: now}))
	require.NoError(t, s.SaveMessage(ctx, &ChatMessage{ID: "pm", SessionID: "parent", Role: RoleUser, Content: "x", CreatedAt: now}))

	require.NoError(t, s.DeleteThread(ctx, "t-1"))
	assert.ErrorIs(t, s.DeleteThread(ctx, "t-1"), ErrNotFound)

	_, err = s.GetMessage(ctx, "tm")
	assert.ErrorIs(t, err, ErrNotFound, "thread messages are removed with the thread")
	_, err = s.GetMessage(ctx, "pm")
	assert.NoError(t, err, "parent session messages are kept")
}

func TestDeleteExpiredThreads(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateThread(ctx, &Thread{ID: "old", SessionID: "old-s", ParentMessageID: "m", ParentSessionID: "p", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, s.CreateThread(ctx, &Thread{ID: "new", SessionID: "new-s", ParentMessageID: "m", ParentSessionID: "p", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.SaveMessage(ctx, &ChatMessage{ID: "om", SessionID: "old-s", Role: RoleUser, Content: "x", CreatedAt: now}))

	n, err := s.DeleteExpiredThreads(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetThread(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetThread(ctx, "new")
	assert.NoError(t, err)
	_, err = s.GetMessage(ctx, "om")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAPIKeys_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	count, err := s.CountAPIKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	key := &APIKey{
		Prefix:      "orbit_abcd1234",
		Hash:        "$2a$10$hash",
		Name:        "ci",
		AdapterName: "qa-sql",
		Active:      true,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, s.CreateAPIKey(ctx, key))
	assert.ErrorIs(t, s.CreateAPIKey(ctx, key), ErrDuplicate)

	got, err := s.GetAPIKey(ctx, "orbit_abcd1234")
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Equal(t, "qa-sql", got.AdapterName)
	assert.Nil(t, got.LastUsedAt)

	used := time.Date(2026, 5, 5, 5, 5, 5, 0, time.UTC)
	require.NoError(t, s.TouchAPIKey(ctx, "orbit_abcd1234", used))
	got, err = s.GetAPIKey(ctx, "orbit_abcd1234")
	require.NoError(t, err)
	require.NotNil(t, got.LastUsedAt)
	assert.True(t, got.LastUsedAt.Equal(used))

	require.NoError(t, s.DeactivateAPIKey(ctx, "orbit_abcd1234"))
	got, err = s.GetAPIKey(ctx, "orbit_abcd1234")
	require.NoError(t, err)
	assert.False(t, got.Active)

	assert.ErrorIs(t, s.DeactivateAPIKey(ctx, "orbit_missing"), ErrNotFound)
	_, err = s.GetAPIKey(ctx, "orbit_missing")
	assert.ErrorIs(t, err, ErrNotFound)

	keys, err := s.ListAPIKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	count, err = s.CountAPIKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
