// ABOUTME: Normalises decoded server payloads into StreamResponse values
// ABOUTME: Missing or mistyped fields fall back to zero values instead of failing

package chat

import (
	"github.com/tidwall/gjson"
)

// StreamResponse is one unit of a chat reply.
type StreamResponse struct {
	Text        string `json:"text"`
	Done        bool   `json:"done"`
	Audio       string `json:"audio,omitempty"`
	AudioFormat string `json:"audioFormat,omitempty"`
}

// dispatch maps a JSON object payload onto a StreamResponse.
func dispatch(payload []byte) StreamResponse {
	fields := gjson.GetManyBytes(payload, "response", "done", "audio", "audio_format")

	var out StreamResponse
	if fields[0].Type == gjson.String {
		out.Text = fields[0].String()
	}
	if fields[1].IsBool() {
		out.Done = fields[1].Bool()
	}
	if fields[2].Type == gjson.String {
		out.Audio = fields[2].String()
	}
	if fields[3].Type == gjson.String {
		out.AudioFormat = fields[3].String()
	}
	return out
}

// dispatchFinal maps a complete non-streaming body; the result is always
// terminal.
func dispatchFinal(payload []byte) StreamResponse {
	out := dispatch(payload)
	out.Done = true
	return out
}
