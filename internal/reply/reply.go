// ABOUTME: Post-processing for model replies: cleaning, brevity truncation, chunking
// ABOUTME: Also renders markdown replies to HTML for formatted chat messages

package reply

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
)

// roleEcho matches a "User:" or "Assistant:" label the model mistakenly
// echoed at the start of a line.
var roleEcho = regexp.MustCompile(`(?m)^(User|Assistant): ?`)

// Clean trims the raw reply, strips echoed role labels, and truncates to at
// most two sentences. The truncation is a deliberate brevity policy, not a
// sentence splitter: any period counts, abbreviations included. Replies
// with fewer than two periods pass through whole.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = roleEcho.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	first := strings.IndexByte(s, '.')
	if first == -1 {
		return s
	}
	second := strings.IndexByte(s[first+1:], '.')
	if second == -1 {
		return s
	}
	return s[:first+1+second+1]
}

// Chunk splits text into contiguous pieces of at most limit runes, for
// platforms with a message-size cap. Empty input yields no chunks, so a
// caller iterating the result never sends an empty message.
func Chunk(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if limit <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	chunks := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// RenderHTML converts a markdown reply to HTML for frontends that support
// formatted message bodies. On render failure the plain text is returned
// with an empty HTML body so the caller falls back to plain messages.
func RenderHTML(text string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}
