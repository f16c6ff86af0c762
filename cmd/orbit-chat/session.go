// ABOUTME: Interactive session state and slash commands for orbit-chat
// ABOUTME: Sends chat turns through the shared chat client and renders replies

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/schmitech/orbit-chat/internal/chat"
)

const defaultHistoryLimit = 20

type session struct {
	client   *chat.Client
	out      io.Writer
	stream   bool
	debug    bool
	attached []string // file ids sent with the next message
}

type command struct {
	name  string
	usage string
	help  string
	run   func(s *session, ctx context.Context, args string) (quit bool, err error)
}

var commands []command

func init() {
	commands = []command{
		{"/help", "/help", "Show this help", (*session).cmdHelp},
		{"/status", "/status", "Show connection and session settings", (*session).cmdStatus},
		{"/session", "/session [id]", "Show or switch the session ID", (*session).cmdSession},
		{"/reset-session", "/reset-session", "Start a new session with a fresh ID", (*session).cmdResetSession},
		{"/history", "/history [n]", "Show the last n stored messages", (*session).cmdHistory},
		{"/clear-history", "/clear-history", "Delete this session's stored messages", (*session).cmdClearHistory},
		{"/files", "/files", "List uploaded files", (*session).cmdFiles},
		{"/upload", "/upload <path>", "Upload a file and attach it to the next message", (*session).cmdUpload},
		{"/file", "/file <id>", "Show a file's details", (*session).cmdFile},
		{"/rm", "/rm <id>", "Delete an uploaded file", (*session).cmdRemove},
		{"/attach", "/attach [id...]", "Attach files to the next message, or list attachments", (*session).cmdAttach},
		{"/thread", "/thread <message-id>", "Branch a thread from a message and switch to it", (*session).cmdThread},
		{"/stream", "/stream", "Toggle streamed replies", (*session).cmdStream},
		{"/debug", "/debug", "Toggle debug output", (*session).cmdDebug},
		{"/quit", "/quit", "Exit", (*session).cmdQuit},
	}
}

// handle runs a slash command or sends input as a chat message.
func (s *session) handle(ctx context.Context, input string) (bool, error) {
	if !strings.HasPrefix(input, "/") {
		return false, s.send(ctx, input)
	}

	name, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)
	if name == "/exit" || name == "/q" {
		name = "/quit"
	}
	for _, c := range commands {
		if c.name == name {
			return c.run(s, ctx, args)
		}
	}
	return false, fmt.Errorf("unknown command %s (try /help)", name)
}

// send streams one reply to out. A canceled ctx ends the reply quietly.
func (s *session) send(ctx context.Context, message string) error {
	opts := []chat.ChatOption{chat.WithStream(s.stream)}
	if len(s.attached) > 0 {
		opts = append(opts, chat.WithFileIDs(s.attached...))
	}

	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	wrote := false
	for resp, err := range chat.StreamChat(ctx, message, opts...) {
		if err != nil {
			if wrote {
				fmt.Fprintln(s.out)
			}
			return err
		}
		if resp.Text != "" {
			green.Fprint(s.out, resp.Text)
			wrote = true
		}
		if resp.Audio != "" {
			gray.Fprintf(s.out, "\n[audio %s, %d base64 chars]", orUnknown(resp.AudioFormat), len(resp.Audio))
			wrote = true
		}
		if resp.Done && s.debug {
			gray.Fprint(s.out, "\n[done]")
		}
	}
	if wrote {
		fmt.Fprintln(s.out)
	}
	if ctx.Err() != nil {
		color.New(color.FgYellow).Fprintln(s.out, "[stopped]")
	}

	s.attached = nil
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown format"
	}
	return s
}

func (s *session) cmdHelp(_ context.Context, _ string) (bool, error) {
	fmt.Fprintln(s.out, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(s.out, "  %-22s %s\n", c.usage, c.help)
	}
	return false, nil
}

func (s *session) cmdStatus(_ context.Context, _ string) (bool, error) {
	auth := "none"
	if s.client.HasAPIKey() {
		auth = "API key configured"
	}
	fmt.Fprintf(s.out, "Server:       %s\n", s.client.APIURL())
	fmt.Fprintf(s.out, "Session:      %s\n", s.client.SessionID())
	fmt.Fprintf(s.out, "Adapter:      %s\n", orNone(s.client.AdapterName()))
	fmt.Fprintf(s.out, "Auth:         %s\n", auth)
	fmt.Fprintf(s.out, "Streaming:    %t\n", s.stream)
	fmt.Fprintf(s.out, "Capabilities: %s\n", s.client.Capabilities())
	if len(s.attached) > 0 {
		fmt.Fprintf(s.out, "Attached:     %s\n", strings.Join(s.attached, ", "))
	}
	return false, nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func (s *session) cmdSession(_ context.Context, args string) (bool, error) {
	if args == "" {
		fmt.Fprintln(s.out, s.client.SessionID())
		return false, nil
	}
	if err := s.client.SetSessionID(args); err != nil {
		return false, err
	}
	fmt.Fprintf(s.out, "Now using session %s\n", args)
	return false, nil
}

func (s *session) cmdResetSession(_ context.Context, _ string) (bool, error) {
	id := uuid.New().String()
	if err := s.client.SetSessionID(id); err != nil {
		return false, err
	}
	s.attached = nil
	fmt.Fprintf(s.out, "New session %s\n", id)
	return false, nil
}

func (s *session) cmdHistory(ctx context.Context, args string) (bool, error) {
	limit := defaultHistoryLimit
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n < 1 {
			return false, fmt.Errorf("history limit must be a positive integer")
		}
		limit = n
	}

	hist, err := s.client.GetConversationHistory(ctx, "", limit)
	if err != nil {
		return false, err
	}
	if len(hist.Messages) == 0 {
		fmt.Fprintln(s.out, "No conversation history")
		return false, nil
	}

	gray := color.New(color.FgHiBlack)
	blue := color.New(color.FgBlue)
	green := color.New(color.FgGreen)

	fmt.Fprintf(s.out, "History for %s (%d messages):\n", hist.SessionID, hist.Count)
	fmt.Fprintln(s.out, strings.Repeat("-", 60))
	for _, m := range hist.Messages {
		arrow := green.Sprint("←")
		if m.Role == "user" {
			arrow = blue.Sprint("→")
		}
		fmt.Fprintf(s.out, "%s %s %s\n", arrow, truncate(m.Content, 200), gray.Sprintf("(%s)", m.ID))
	}
	fmt.Fprintln(s.out, strings.Repeat("-", 60))
	return false, nil
}

func (s *session) cmdClearHistory(ctx context.Context, _ string) (bool, error) {
	res, err := s.client.ClearConversationHistory(ctx, "")
	if err != nil {
		return false, err
	}
	fmt.Fprintln(s.out, res.Message)
	return false, nil
}

func (s *session) cmdFiles(ctx context.Context, _ string) (bool, error) {
	files, err := s.client.ListFiles(ctx)
	if err != nil {
		return false, err
	}
	if len(files) == 0 {
		fmt.Fprintln(s.out, "No files")
		return false, nil
	}
	for _, f := range files {
		fmt.Fprintf(s.out, "  %s  %s (%d bytes, %s)\n", f.FileID, f.Filename, f.FileSize, f.MimeType)
	}
	return false, nil
}

func (s *session) cmdUpload(ctx context.Context, args string) (bool, error) {
	if args == "" {
		return false, errors.New("usage: /upload <path>")
	}

	f, err := os.Open(args)
	if err != nil {
		return false, err
	}
	defer f.Close()

	name := filepath.Base(args)
	res, err := s.client.UploadFile(ctx, name, mime.TypeByExtension(filepath.Ext(name)), f)
	if err != nil {
		return false, err
	}

	s.attached = append(s.attached, res.FileID)
	color.New(color.FgGreen).Fprint(s.out, "✓ ")
	fmt.Fprintf(s.out, "Uploaded %s as %s (attached to next message)\n", res.Filename, res.FileID)
	return false, nil
}

func (s *session) cmdFile(ctx context.Context, args string) (bool, error) {
	if args == "" {
		return false, errors.New("usage: /file <id>")
	}
	info, err := s.client.GetFileInfo(ctx, args)
	if err != nil {
		return false, err
	}
	fmt.Fprintf(s.out, "File:     %s\n", info.FileID)
	fmt.Fprintf(s.out, "Name:     %s\n", info.Filename)
	fmt.Fprintf(s.out, "Type:     %s\n", info.MimeType)
	fmt.Fprintf(s.out, "Size:     %d bytes (%d chunks)\n", info.FileSize, info.ChunkCount)
	fmt.Fprintf(s.out, "Status:   %s\n", info.ProcessingStatus)
	fmt.Fprintf(s.out, "Uploaded: %s\n", info.UploadTimestamp)
	return false, nil
}

func (s *session) cmdRemove(ctx context.Context, args string) (bool, error) {
	if args == "" {
		return false, errors.New("usage: /rm <id>")
	}
	res, err := s.client.DeleteFile(ctx, args)
	if err != nil {
		return false, err
	}
	s.attached = removeID(s.attached, args)
	fmt.Fprintln(s.out, res.Message)
	return false, nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (s *session) cmdAttach(_ context.Context, args string) (bool, error) {
	if args != "" {
		s.attached = append(s.attached, strings.Fields(args)...)
	}
	if len(s.attached) == 0 {
		fmt.Fprintln(s.out, "No attachments")
		return false, nil
	}
	fmt.Fprintf(s.out, "Attached to next message: %s\n", strings.Join(s.attached, ", "))
	return false, nil
}

func (s *session) cmdThread(ctx context.Context, args string) (bool, error) {
	if args == "" {
		return false, errors.New("usage: /thread <message-id>")
	}
	info, err := s.client.CreateThread(ctx, args, "")
	if err != nil {
		return false, err
	}
	if err := s.client.SetSessionID(info.ThreadSessionID); err != nil {
		return false, err
	}
	fmt.Fprintf(s.out, "Thread %s created, now using session %s (expires %s)\n",
		info.ThreadID, info.ThreadSessionID, info.ExpiresAt)
	return false, nil
}

func (s *session) cmdStream(_ context.Context, _ string) (bool, error) {
	s.stream = !s.stream
	fmt.Fprintf(s.out, "Streaming %s\n", onOff(s.stream))
	return false, nil
}

// cmdDebug toggles reply markers. Protocol logging is fixed at startup by --debug.
func (s *session) cmdDebug(_ context.Context, _ string) (bool, error) {
	s.debug = !s.debug
	fmt.Fprintf(s.out, "Debug %s\n", onOff(s.debug))
	return false, nil
}

func (s *session) cmdQuit(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
