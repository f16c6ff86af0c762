// ABOUTME: Incremental Server-Sent Events decoder that reassembles records across chunk boundaries
// ABOUTME: Owns a single-writer buffer, yields complete records, and drops malformed JSON payloads

package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
)

// Sentinel is the payload that marks the end of a stream.
const Sentinel = "[DONE]"

// readChunkSize is the size of each read from the underlying body.
const readChunkSize = 4 * 1024

// Record is one decoded unit from the wire. Either Done is set (the
// sentinel was seen) or Data holds a JSON object payload.
type Record struct {
	Data json.RawMessage
	Done bool
}

// separator is a blank line once line endings are normalised to LF.
var separator = []byte("\n\n")

// Decoder turns an incremental byte stream into Records. It is not safe for
// concurrent use; each in-flight stream owns exactly one Decoder.
type Decoder struct {
	buf      bytes.Buffer
	finished bool
	dropped  int
	// pendingCR is set when the last byte written was CR, so an LF opening
	// the next chunk completes a CRLF instead of starting a new line.
	pendingCR bool
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Write appends a chunk to the buffer. CRLF and lone CR line endings are
// stored as LF, so any mix of terminators forms a blank line. Chunks written
// after the sentinel are discarded.
func (d *Decoder) Write(chunk []byte) {
	if d.finished {
		return
	}
	d.buf.Grow(len(chunk))
	for _, b := range chunk {
		if d.pendingCR {
			d.pendingCR = false
			if b == '\n' {
				continue
			}
		}
		if b == '\r' {
			d.pendingCR = true
			b = '\n'
		}
		d.buf.WriteByte(b)
	}
}

// Next returns the next complete record. It returns false when no complete
// record is buffered yet, or when the decoder is finished. A trailing
// fragment without its blank-line terminator stays buffered.
func (d *Decoder) Next() (Record, bool) {
	for !d.finished {
		raw, ok := d.cut()
		if !ok {
			return Record{}, false
		}

		payload, ok := dataPayload(raw)
		if !ok {
			// comment, keep-alive, or a record without data lines
			continue
		}

		if string(payload) == Sentinel {
			d.finished = true
			d.buf.Reset()
			return Record{Done: true}, true
		}

		if !isJSONObject(payload) {
			d.dropped++
			continue
		}

		return Record{Data: json.RawMessage(payload)}, true
	}
	return Record{}, false
}

// Finished reports whether the sentinel has been decoded.
func (d *Decoder) Finished() bool {
	return d.finished
}

// Dropped returns the number of records discarded because their payload was
// not a JSON object.
func (d *Decoder) Dropped() int {
	return d.dropped
}

// Remainder returns the number of buffered bytes that do not yet form a
// complete record.
func (d *Decoder) Remainder() int {
	return d.buf.Len()
}

// cut removes the earliest complete record from the buffer.
func (d *Decoder) cut() ([]byte, bool) {
	data := d.buf.Bytes()

	idx := bytes.Index(data, separator)
	if idx < 0 {
		return nil, false
	}

	raw := make([]byte, idx)
	copy(raw, data[:idx])
	d.buf.Next(idx + len(separator))
	return raw, true
}

// dataPayload joins the data lines of a raw record. It returns false if the
// record carries no data field at all.
func dataPayload(raw []byte) ([]byte, bool) {
	var lines [][]byte
	for _, line := range bytes.Split(raw, []byte("\n")) {
		if !bytes.HasPrefix(line, []byte("data:")) {
			// event:, id:, retry: and ":" comments are not used by this protocol
			continue
		}
		value := line[len("data:"):]
		value = bytes.TrimPrefix(value, []byte(" "))
		lines = append(lines, value)
	}
	if len(lines) == 0 {
		return nil, false
	}
	return bytes.TrimSpace(bytes.Join(lines, []byte("\n"))), true
}

func isJSONObject(payload []byte) bool {
	if len(payload) == 0 || payload[0] != '{' {
		return false
	}
	return json.Valid(payload)
}

// Records decodes r until the sentinel, EOF, or a read error. A read error
// other than io.EOF is yielded once and ends the sequence. Breaking out of
// the loop stops reading immediately.
func Records(r io.Reader) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		dec := NewDecoder()
		chunk := make([]byte, readChunkSize)
		for {
			n, err := r.Read(chunk)
			if n > 0 {
				dec.Write(chunk[:n])
				for {
					rec, ok := dec.Next()
					if !ok {
						break
					}
					if !yield(rec, nil) {
						return
					}
					if rec.Done {
						return
					}
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Record{}, err)
				return
			}
		}
	}
}
