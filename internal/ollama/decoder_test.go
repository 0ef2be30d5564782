// ABOUTME: Tests for the stream line decoder
// ABOUTME: Verifies tagged event decoding for both record shapes, keep-alives, and malformed lines

package ollama

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Event
	}{
		{
			name: "blank line",
			line: "",
			want: Event{Type: EventSkip},
		},
		{
			name: "bare data marker",
			line: "data: ",
			want: Event{Type: EventSkip},
		},
		{
			name: "keep-alive colon",
			line: ":",
			want: Event{Type: EventSkip},
		},
		{
			name: "chat shape",
			line: `{"message":{"content":"Hello"},"done":false}`,
			want: Event{Type: EventToken, Text: "Hello"},
		},
		{
			name: "completion shape",
			line: `{"response":"World","done":false}`,
			want: Event{Type: EventToken, Text: "World"},
		},
		{
			name: "sse framed record",
			line: `data: {"message":{"content":"framed"}}`,
			want: Event{Type: EventToken, Text: "framed"},
		},
		{
			name: "done record",
			line: `{"done":true}`,
			want: Event{Type: EventDone},
		},
		{
			name: "done with trailing text",
			line: `{"message":{"content":"bye"},"done":true}`,
			want: Event{Type: EventDone, Text: "bye"},
		},
		{
			name: "unrecognized shape",
			line: `{"something":"else"}`,
			want: Event{Type: EventSkip},
		},
		{
			name: "empty content",
			line: `{"message":{"content":""},"done":false}`,
			want: Event{Type: EventSkip},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeLine(tt.line)
			assert.Equal(t, tt.want.Type, got.Type)
			assert.Equal(t, tt.want.Text, got.Text)
		})
	}
}

func TestDecodeLine_Malformed(t *testing.T) {
	got := DecodeLine(`{"message": not json`)
	assert.Equal(t, EventParseError, got.Type)
	require.Error(t, got.Err)
}
