// ABOUTME: Tests for the incremental SSE decoder
// ABOUTME: Covers reassembly across chunk boundaries, malformed record tolerance, and sentinel handling

package sse

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain collects every record currently available from the decoder.
func drain(d *Decoder) []Record {
	var out []Record
	for {
		rec, ok := d.Next()
		if !ok {
			return out
		}
		out = append(out, rec)
	}
}

func TestDecoder_SingleRecord(t *testing.T) {
	d := NewDecoder()
	d.Write([]byte("data: {\"response\":\"Hello\",\"done\":false}\n\n"))

	recs := drain(d)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Done)
	assert.JSONEq(t, `{"response":"Hello","done":false}`, string(recs[0].Data))
	assert.Equal(t, 0, d.Remainder())
}

func TestDecoder_RecordSplitAcrossChunks(t *testing.T) {
	d := NewDecoder()

	d.Write([]byte(`data: {"resp`))
	assert.Empty(t, drain(d), "incomplete record must not be emitted")

	d.Write([]byte(`onse":"X","done":false}` + "\n"))
	assert.Empty(t, drain(d), "record without blank-line terminator must not be emitted")

	d.Write([]byte("\n"))
	recs := drain(d)
	require.Len(t, recs, 1)
	assert.JSONEq(t, `{"response":"X","done":false}`, string(recs[0].Data))
}

func TestDecoder_ByteAtATimeMatchesWhole(t *testing.T) {
	stream := "data: {\"response\":\"a\"}\n\n" +
		"data: {\"response\":\"b\",\"done\":true}\n\n" +
		"data: [DONE]\n\n"

	whole := NewDecoder()
	whole.Write([]byte(stream))
	want := drain(whole)

	split := NewDecoder()
	var got []Record
	for i := 0; i < len(stream); i++ {
		split.Write([]byte{stream[i]})
		got = append(got, drain(split)...)
	}

	assert.Equal(t, want, got)
	require.Len(t, got, 3)
	assert.True(t, got[2].Done)
}

func TestDecoder_MultipleRecordsInOneChunk(t *testing.T) {
	d := NewDecoder()
	d.Write([]byte("data: {\"response\":\"1\"}\n\ndata: {\"response\":\"2\"}\n\ndata: {\"resp"))

	recs := drain(d)
	require.Len(t, recs, 2)
	assert.JSONEq(t, `{"response":"1"}`, string(recs[0].Data))
	assert.JSONEq(t, `{"response":"2"}`, string(recs[1].Data))
	assert.Equal(t, len(`data: {"resp`), d.Remainder())
}

func TestDecoder_MalformedRecordDropped(t *testing.T) {
	d := NewDecoder()
	d.Write([]byte("data: {\"response\":\"before\"}\n\n" +
		"data: {\"response\":\"bro\n\n" +
		"data: {\"response\":\"after\"}\n\n"))

	recs := drain(d)
	require.Len(t, recs, 2)
	assert.JSONEq(t, `{"response":"before"}`, string(recs[0].Data))
	assert.JSONEq(t, `{"response":"after"}`, string(recs[1].Data))
	assert.Equal(t, 1, d.Dropped())
}

func TestDecoder_NonObjectPayloadDropped(t *testing.T) {
	d := NewDecoder()
	d.Write([]byte("data: 42\n\ndata: \"text\"\n\ndata: [1,2]\n\ndata: {\"response\":\"ok\"}\n\n"))

	recs := drain(d)
	require.Len(t, recs, 1)
	assert.Equal(t, 3, d.Dropped())
}

func TestDecoder_SentinelStopsDecoding(t *testing.T) {
	d := NewDecoder()
	d.Write([]byte("data: [DONE]\n\ndata: {\"response\":\"late\"}\n\n"))

	recs := drain(d)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Done)
	assert.True(t, d.Finished())

	d.Write([]byte("data: {\"response\":\"later\"}\n\n"))
	assert.Empty(t, drain(d))
	assert.Equal(t, 0, d.Remainder())
}

func TestDecoder_CRLFSeparators(t *testing.T) {
	d := NewDecoder()
	d.Write([]byte("data: {\"response\":\"win\"}\r\n\r\ndata: [DONE]\r\n\r\n"))

	recs := drain(d)
	require.Len(t, recs, 2)
	assert.JSONEq(t, `{"response":"win"}`, string(recs[0].Data))
	assert.True(t, recs[1].Done)
}

func TestDecoder_MixedLineTerminators(t *testing.T) {
	tests := []struct {
		name string
		sep  string
	}{
		{"lf then crlf", "\n\r\n"},
		{"crlf then lf", "\r\n\n"},
		{"bare cr", "\r\r"},
		{"cr then lf pair", "\r\n\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			d.Write([]byte(`data: {"response":"a"}` + tt.sep + `data: {"response":"b"}` + tt.sep))

			recs := drain(d)
			require.Len(t, recs, 2)
			assert.JSONEq(t, `{"response":"a"}`, string(recs[0].Data))
			assert.JSONEq(t, `{"response":"b"}`, string(recs[1].Data))
			assert.Zero(t, d.Dropped())
			assert.Zero(t, d.Remainder())
		})
	}
}

func TestDecoder_CRLFSplitAcrossChunks(t *testing.T) {
	d := NewDecoder()
	d.Write([]byte("data: {\"response\":\"a\"}\r"))
	assert.Empty(t, drain(d))

	// the LF completes the CRLF rather than forming a blank line
	d.Write([]byte("\n"))
	assert.Empty(t, drain(d))

	d.Write([]byte("\r"))
	d.Write([]byte("\ndata: [DONE]\r\r"))

	recs := drain(d)
	require.Len(t, recs, 2)
	assert.JSONEq(t, `{"response":"a"}`, string(recs[0].Data))
	assert.True(t, recs[1].Done)
}

func TestDecoder_IgnoresCommentsAndOtherFields(t *testing.T) {
	d := NewDecoder()
	d.Write([]byte(": keep-alive\n\n" +
		"event: message\nid: 7\ndata: {\"response\":\"x\"}\n\n"))

	recs := drain(d)
	require.Len(t, recs, 1)
	assert.JSONEq(t, `{"response":"x"}`, string(recs[0].Data))
	assert.Equal(t, 0, d.Dropped())
}

func TestDecoder_MultiLineData(t *testing.T) {
	d := NewDecoder()
	d.Write([]byte("data: {\"response\":\ndata: \"joined\"}\n\n"))

	recs := drain(d)
	require.Len(t, recs, 1)
	assert.JSONEq(t, `{"response":"joined"}`, string(recs[0].Data))
}

func TestDecoder_DataWithoutSpace(t *testing.T) {
	d := NewDecoder()
	d.Write([]byte("data:{\"response\":\"tight\"}\n\ndata:[DONE]\n\n"))

	recs := drain(d)
	require.Len(t, recs, 2)
	assert.True(t, recs[1].Done)
}

func TestRecords_StopsAtSentinel(t *testing.T) {
	body := strings.NewReader("data: {\"response\":\"a\"}\n\ndata: [DONE]\n\ndata: {\"response\":\"ignored\"}\n\n")

	var got []Record
	for rec, err := range Records(iotest.OneByteReader(body)) {
		require.NoError(t, err)
		got = append(got, rec)
	}

	require.Len(t, got, 2)
	assert.True(t, got[1].Done)
}

func TestRecords_EOFWithUnterminatedRemainder(t *testing.T) {
	body := strings.NewReader("data: {\"response\":\"a\"}\n\ndata: {\"response\":\"cut")

	var got []Record
	for rec, err := range Records(body) {
		require.NoError(t, err)
		got = append(got, rec)
	}

	require.Len(t, got, 1)
	assert.JSONEq(t, `{"response":"a"}`, string(got[0].Data))
}

func TestRecords_ReadErrorYielded(t *testing.T) {
	boom := errors.New("connection reset")
	body := io.MultiReader(
		strings.NewReader("data: {\"response\":\"a\"}\n\n"),
		iotest.ErrReader(boom),
	)

	var got []Record
	var gotErr error
	for rec, err := range Records(body) {
		if err != nil {
			gotErr = err
			continue
		}
		got = append(got, rec)
	}

	require.Len(t, got, 1)
	assert.ErrorIs(t, gotErr, boom)
}

// countingReader counts Read calls so tests can assert reads stop.
type countingReader struct {
	r     io.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	return c.r.Read(p)
}

func TestRecords_BreakStopsReading(t *testing.T) {
	stream := strings.Repeat("data: {\"response\":\"x\"}\n\n", 50)
	cr := &countingReader{r: iotest.OneByteReader(strings.NewReader(stream))}

	for range Records(cr) {
		break
	}
	readsAtBreak := cr.reads

	assert.Equal(t, len("data: {\"response\":\"x\"}\n\n"), readsAtBreak)
}
