// ABOUTME: End-to-end tests driving orbit-server with the chat client package
// ABOUTME: Covers streaming, early termination, history, files, and threads over real HTTP

package server

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schmitech/orbit-chat/internal/chat"
	"github.com/schmitech/orbit-chat/internal/config"
	"github.com/schmitech/orbit-chat/internal/store"
)

func newChatClient(t *testing.T, env *testEnv, key, session string) *chat.Client {
	t.Helper()
	c, err := chat.New(chat.Config{
		APIURL:    env.ts.URL,
		APIKey:    key,
		SessionID: session,
		Timeout:   5 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func TestE2E_StreamChat(t *testing.T) {
	env := newTestEnv(t, nil)
	c := newChatClient(t, env, env.issueKey(t, "e2e"), "e2e-session")

	var texts []string
	var doneCount int
	for resp, err := range c.StreamChat(context.Background(), "the quick brown fox") {
		require.NoError(t, err)
		texts = append(texts, resp.Text)
		if resp.Done {
			doneCount++
		}
	}

	assert.Equal(t, "You said: the quick brown fox", strings.Join(texts, ""))
	assert.Equal(t, 1, doneCount, "exactly one terminal response")
	assert.True(t, len(texts) > 2, "reply arrives in several chunks")
}

func TestE2E_NonStreaming(t *testing.T) {
	env := newTestEnv(t, nil)
	c := newChatClient(t, env, "", "s")

	text, err := chat.CollectText(c.StreamChat(context.Background(), "hi", chat.WithStream(false)))
	require.NoError(t, err)
	assert.Equal(t, "You said: hi", text)
}

func TestE2E_BreakStopsServer(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Responder.ChunkDelay = 20 * time.Millisecond
	})
	c := newChatClient(t, env, "", "early")

	message := strings.Repeat("word ", 50)
	for resp, err := range c.StreamChat(context.Background(), message) {
		require.NoError(t, err)
		require.NotEmpty(t, resp.Text)
		break
	}

	// the partial reply is stored once the server notices the disconnect
	require.Eventually(t, func() bool {
		msgs, err := env.store.GetSessionMessages(context.Background(), "early", 0)
		return err == nil && len(msgs) == 2
	}, 5*time.Second, 20*time.Millisecond)

	msgs, err := env.store.GetSessionMessages(context.Background(), "early", 0)
	require.NoError(t, err)
	assert.Equal(t, store.RoleAssistant, msgs[1].Role)
	assert.Less(t, len(msgs[1].Content), len("You said: "+message), "reply was cut short")
}

func TestE2E_HistoryRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	c := newChatClient(t, env, env.issueKey(t, "e2e"), "hist")
	ctx := context.Background()

	_, err := chat.CollectText(c.StreamChat(ctx, "first"))
	require.NoError(t, err)

	hist, err := c.GetConversationHistory(ctx, "", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, hist.Count)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, "first", hist.Messages[0].Content)

	cleared, err := c.ClearConversationHistory(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "success", cleared.Status)
	assert.Equal(t, 2, cleared.DeletedCount)
	assert.Equal(t, "hist", cleared.SessionID)

	hist, err = c.GetConversationHistory(ctx, "", 10)
	require.NoError(t, err)
	assert.Zero(t, hist.Count)
}

func TestE2E_ClearHistoryRejectedWithoutServerKey(t *testing.T) {
	env := newTestEnv(t, nil)
	c := newChatClient(t, env, "orbit_notarealkeyatall", "s")

	_, err := c.ClearConversationHistory(context.Background(), "")
	var perr *chat.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 401, perr.Status)
}

func TestE2E_FilesAndThreads(t *testing.T) {
	env := newTestEnv(t, nil)
	c := newChatClient(t, env, env.issueKey(t, "e2e"), "files")
	ctx := context.Background()

	up, err := c.UploadFile(ctx, "notes.txt", "text/plain", strings.NewReader("some notes"))
	require.NoError(t, err)
	assert.Equal(t, "completed", up.Status)
	assert.Equal(t, int64(10), up.FileSize)

	files, err := c.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, up.FileID, files[0].FileID)

	text, err := chat.CollectText(c.StreamChat(ctx, "read it", chat.WithFileIDs(up.FileID)))
	require.NoError(t, err)
	assert.Contains(t, text, "notes.txt (10 bytes)")

	msgs, err := env.store.GetSessionMessages(ctx, "files", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	thread, err := c.CreateThread(ctx, msgs[1].ID, "")
	require.NoError(t, err)
	assert.Equal(t, "files", thread.ParentSessionID)

	info, err := c.GetThreadInfo(ctx, thread.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, thread.ThreadSessionID, info.ThreadSessionID)

	deleted, err := c.DeleteThread(ctx, thread.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, "success", deleted.Status)

	_, err = c.DeleteFile(ctx, up.FileID)
	require.NoError(t, err)

	_, err = c.GetFileInfo(ctx, up.FileID)
	var perr *chat.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 404, perr.Status)
}
