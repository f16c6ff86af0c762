// ABOUTME: StreamChat, the pull-based streaming chat operation
// ABOUTME: Drives the SSE decoder over the response body and yields normalised units to the caller

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/schmitech/orbit-chat/internal/sse"
)

// streamChunkSize is the size of each body read.
const streamChunkSize = 4 * 1024

// StreamChat sends message and returns the reply as a lazy sequence. Nothing
// is sent until the caller starts ranging. Breaking out of the loop closes
// the response body and ends the call without an error. A failure is
// yielded once as the error half of the pair and ends the sequence.
//
// For every stream that ends naturally the last unit has Done set, and it is
// the only one that does.
func (c *Client) StreamChat(ctx context.Context, message string, opts ...ChatOption) iter.Seq2[StreamResponse, error] {
	return func(yield func(StreamResponse, error) bool) {
		sessionID := c.SessionID()
		body := newChatRequest(message, sessionID, opts)

		req, err := c.newRequest(ctx, http.MethodPost, c.chatURL(), sessionID, body)
		if err != nil {
			yield(StreamResponse{}, err)
			return
		}

		c.logger.Debug("sending chat request",
			"request_id", req.Header.Get(HeaderRequestID),
			"stream", body.Stream,
			"has_session", sessionID != "",
		)

		resp, err := c.http.Do(req)
		if err != nil {
			if isCancel(ctx, err) {
				return
			}
			yield(StreamResponse{}, classifyTransport(err))
			return
		}
		defer resp.Body.Close()

		if err := classifyStatus(resp); err != nil {
			yield(StreamResponse{}, err)
			return
		}
		if stop, err := c.checkContext(ctx); stop {
			if err != nil {
				yield(StreamResponse{}, err)
			}
			return
		}

		if !body.Stream {
			c.readSingle(ctx, resp, yield)
			return
		}
		c.readStream(ctx, resp.Body, yield)
	}
}

// readSingle handles stream=false: the whole body is one JSON object.
func (c *Client) readSingle(ctx context.Context, resp *http.Response, yield func(StreamResponse, error) bool) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if isCancel(ctx, err) {
			return
		}
		yield(StreamResponse{}, classifyTransport(err))
		return
	}

	parsed := gjson.ParseBytes(data)
	if !gjson.ValidBytes(data) || !parsed.IsObject() {
		yield(StreamResponse{}, &ProtocolError{
			Status: resp.StatusCode,
			Detail: fmt.Sprintf("Invalid response body: %q", truncate(string(data), 200)),
		})
		return
	}
	yield(dispatchFinal(data), nil)
}

// readStream feeds body chunks through a decoder owned by this call.
func (c *Client) readStream(ctx context.Context, body io.Reader, yield func(StreamResponse, error) bool) {
	dec := sse.NewDecoder()
	chunk := make([]byte, streamChunkSize)

	for {
		n, readErr := body.Read(chunk)
		if n > 0 {
			dropped := dec.Dropped()
			dec.Write(chunk[:n])

			for {
				rec, ok := dec.Next()
				if !ok {
					break
				}
				if rec.Done {
					// sentinel without a preceding done:true record
					yield(StreamResponse{Done: true}, nil)
					return
				}

				out := dispatch(rec.Data)
				if !yield(out, nil) {
					c.logger.Debug("stream abandoned by caller")
					return
				}
				if out.Done {
					return
				}
			}

			if d := dec.Dropped() - dropped; d > 0 {
				c.logger.Debug("dropped malformed records", "count", d)
			}
		}

		if stop, err := c.checkContext(ctx); stop {
			if err != nil {
				yield(StreamResponse{}, err)
			}
			return
		}

		if errors.Is(readErr, io.EOF) {
			if rem := dec.Remainder(); rem > 0 {
				c.logger.Debug("discarding unterminated record at end of stream", "bytes", rem)
			}
			yield(StreamResponse{Done: true}, nil)
			return
		}
		if readErr != nil {
			if isCancel(ctx, readErr) {
				return
			}
			yield(StreamResponse{}, classifyTransport(readErr))
			return
		}
	}
}

// checkContext reports whether the call must stop. Cancellation by the
// caller stops silently; a deadline is a transport failure.
func (c *Client) checkContext(ctx context.Context) (bool, error) {
	err := ctx.Err()
	if err == nil {
		return false, nil
	}
	if errors.Is(err, context.Canceled) {
		c.logger.Debug("chat request cancelled")
		return true, nil
	}
	return true, &TransportError{Err: err}
}

// CollectText drains seq and returns the concatenated text. It stops at the
// first error and returns the text gathered so far.
func CollectText(seq iter.Seq2[StreamResponse, error]) (string, error) {
	var sb strings.Builder
	for resp, err := range seq {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(resp.Text)
	}
	return sb.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
