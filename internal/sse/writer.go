// ABOUTME: Server-side Server-Sent Events writer for data-only JSON records
// ABOUTME: Sets stream headers, flushes after every record, and terminates with the [DONE] sentinel

package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrStreamingUnsupported is returned when the ResponseWriter cannot flush.
var ErrStreamingUnsupported = errors.New("streaming not supported")

// Writer writes data-only SSE records to an HTTP response.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares w for event streaming. It fails fast if w does not
// support flushing, before any header is written.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Writer{w: w, flusher: flusher}, nil
}

// WriteJSON marshals v and writes it as a single record.
func (s *Writer) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling SSE data: %w", err)
	}
	return s.write(data)
}

// WriteDone writes the terminating sentinel record.
func (s *Writer) WriteDone() error {
	return s.write([]byte(Sentinel))
}

func (s *Writer) write(data []byte) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("writing SSE record: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// FormatRecord formats a payload the way Writer puts it on the wire.
func FormatRecord(payload string) string {
	return fmt.Sprintf("data: %s\n\n", payload)
}
