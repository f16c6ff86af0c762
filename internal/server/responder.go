// ABOUTME: Responder produces assistant replies as a stream of text chunks
// ABOUTME: EchoResponder is the built-in implementation used for development and tests

package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/schmitech/orbit-chat/internal/store"
)

// Prompt is everything a Responder gets for one turn.
type Prompt struct {
	SessionID   string
	AdapterName string
	Message     string
	Language    string
	Files       []*store.File
	History     []*store.ChatMessage // earlier turns, oldest first
}

// Responder generates a reply. The returned channel yields chunks in order
// and is closed when the reply is complete or ctx is done.
type Responder interface {
	Respond(ctx context.Context, p *Prompt) <-chan string
}

// EchoResponder repeats the user's message back, ChunkWords words at a time,
// pausing ChunkDelay between chunks.
type EchoResponder struct {
	ChunkWords int
	ChunkDelay time.Duration
}

// Reply returns the full text EchoResponder streams for p.
func (e *EchoResponder) Reply(p *Prompt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You said: %s", p.Message)

	if len(p.Files) > 0 {
		names := make([]string, len(p.Files))
		for i, f := range p.Files {
			names[i] = fmt.Sprintf("%s (%d bytes)", f.Filename, f.Size)
		}
		fmt.Fprintf(&b, "\n\nAttached files: %s", strings.Join(names, ", "))
	}

	return b.String()
}

func (e *EchoResponder) Respond(ctx context.Context, p *Prompt) <-chan string {
	chunks := splitChunks(e.Reply(p), e.ChunkWords)
	out := make(chan string)

	go func() {
		defer close(out)
		for i, chunk := range chunks {
			if i > 0 && e.ChunkDelay > 0 {
				select {
				case <-time.After(e.ChunkDelay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// splitChunks cuts text after every n-th space. Concatenating the chunks
// gives back text exactly.
func splitChunks(text string, n int) []string {
	if n < 1 {
		n = 1
	}
	words := strings.SplitAfter(text, " ")

	var chunks []string
	for i := 0; i < len(words); i += n {
		end := min(i+n, len(words))
		chunk := strings.Join(words[i:end], "")
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
