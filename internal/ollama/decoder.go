// ABOUTME: Line decoder for the backend's newline-delimited streaming responses
// ABOUTME: Turns each raw line into a tagged event, keeping aggregation separate from transport

package ollama

import "encoding/json"

// EventType tags one decoded stream line.
type EventType int

const (
	// EventSkip is a blank line, keep-alive marker, or record with no text.
	EventSkip EventType = iota
	// EventToken carries extracted token text.
	EventToken
	// EventDone terminates the stream. It may carry trailing token text.
	EventDone
	// EventParseError is a malformed record; recovered by the caller, never fatal.
	EventParseError
)

// Event is one decoded unit of the incrementally-delivered response.
// Consumed immediately by the stream loop.
type Event struct {
	Type EventType
	Text string
	Err  error
}

// streamRecord covers both backend response shapes: the flat single-turn
// completion shape ("response") and the chat shape ("message.content").
type streamRecord struct {
	Response string `json:"response"`
	Message  *struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// DecodeLine parses one raw line from the stream into a tagged event.
//
// Blank lines, bare "data: " markers, and ":" keep-alives decode to
// EventSkip. An optional "data: " prefix is stripped before parsing, so a
// server-sent-events framing is tolerated. Records in neither recognized
// shape contribute no text but do not abort the stream.
func DecodeLine(line string) Event {
	if line == "" || line == "data: " || line == ":" {
		return Event{Type: EventSkip}
	}

	data := line
	if len(data) > 6 && data[:6] == "data: " {
		data = data[6:]
	}

	var rec streamRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return Event{Type: EventParseError, Err: err}
	}

	text := rec.Response
	if text == "" && rec.Message != nil {
		text = rec.Message.Content
	}

	if rec.Done {
		return Event{Type: EventDone, Text: text}
	}
	if text == "" {
		return Event{Type: EventSkip}
	}
	return Event{Type: EventToken, Text: text}
}
