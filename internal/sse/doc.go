// Package sse implements both directions of the data-only Server-Sent Events
// framing used by the chat endpoint.
//
// # Wire Format
//
// Every record is one or more "data:" lines followed by a blank line:
//
//	data: {"response":"Hello","done":false}
//
//	data: [DONE]
//
// The [DONE] sentinel ends the stream. Other SSE fields (event:, id:,
// retry:) and comment lines are ignored.
//
// # Decoding
//
// Decoder is a buffering state machine. Network chunks are appended with
// Write and complete records are taken with Next; a record is never emitted
// until its terminating blank line has arrived, so records split across any
// number of chunks decode identically to records received whole. Lines may
// end in LF, CRLF, or a lone CR, mixed freely within one stream.
//
// A record whose payload is not a JSON object is dropped and counted, and
// decoding continues with the next record. Long-lived chat streams see
// fragmented or corrupted records under normal network conditions and a
// single bad record must not end the session.
//
//	dec := sse.NewDecoder()
//	dec.Write([]byte(`data: {"resp`))
//	dec.Write([]byte(`onse":"X"}` + "\n\n"))
//	rec, ok := dec.Next() // ok == true, rec.Data == {"response":"X"}
//
// # Encoding
//
// Writer sets the event-stream headers, writes JSON records, and flushes
// after each one so clients see partial output immediately.
package sse
