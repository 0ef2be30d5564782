// ABOUTME: Tests for reply cleaning, truncation, chunking, and HTML rendering
// ABOUTME: Covers the two-sentence brevity policy and role-echo stripping

package reply

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "truncates after second period",
			in:   "Hello. World. Extra stuff.",
			want: "Hello. World.",
		},
		{
			name: "no periods unchanged",
			in:   "No periods here",
			want: "No periods here",
		},
		{
			name: "single period unchanged",
			in:   "Just one sentence.",
			want: "Just one sentence.",
		},
		{
			name: "strips leading user label",
			in:   "User: hi there.",
			want: "hi there.",
		},
		{
			name: "strips assistant label mid-text lines",
			in:   "First line\nAssistant: second line",
			want: "First line\nsecond line",
		},
		{
			name: "trims whitespace",
			in:   "   padded   ",
			want: "padded",
		},
		{
			name: "label without space",
			in:   "Assistant:hello there",
			want: "hello there",
		},
		{
			name: "lowercase label kept",
			in:   "user: hi",
			want: "user: hi",
		},
		{
			name: "period in decimal counts",
			in:   "Pi is 3.14 you know. More text here",
			want: "Pi is 3.14 you know.",
		},
		{
			name: "reduces to empty",
			in:   "  User:   ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestChunk(t *testing.T) {
	t.Run("short text single chunk", func(t *testing.T) {
		assert.Equal(t, []string{"hello"}, Chunk("hello", 2000))
	})

	t.Run("exact boundary", func(t *testing.T) {
		text := strings.Repeat("a", 10)
		assert.Equal(t, []string{text}, Chunk(text, 10))
	})

	t.Run("splits contiguously", func(t *testing.T) {
		text := strings.Repeat("a", 10) + strings.Repeat("b", 10) + "ccc"
		chunks := Chunk(text, 10)
		require.Len(t, chunks, 3)
		assert.Equal(t, strings.Repeat("a", 10), chunks[0])
		assert.Equal(t, strings.Repeat("b", 10), chunks[1])
		assert.Equal(t, "ccc", chunks[2])
		assert.Equal(t, text, strings.Join(chunks, ""))
	})

	t.Run("empty text yields no chunks", func(t *testing.T) {
		assert.Empty(t, Chunk("", 2000))
		assert.Empty(t, Chunk("", 0))
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		text := strings.Repeat("é", 7)
		chunks := Chunk(text, 5)
		require.Len(t, chunks, 2)
		assert.Equal(t, strings.Repeat("é", 5), chunks[0])
		assert.Equal(t, strings.Repeat("é", 2), chunks[1])
	})
}

func TestRenderHTML(t *testing.T) {
	html := RenderHTML("some **bold** text")
	assert.Contains(t, html, "<strong>bold</strong>")

	assert.Equal(t, "", RenderHTML(""))
}
