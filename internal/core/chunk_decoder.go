// ABOUTME: Tolerant decoder for chunk lists produced by a generative model
// ABOUTME: Recovers the outermost JSON array and repairs raw control characters inside strings
package core

import (
	"encoding/json"
	"strings"

	"github.com/websiTester/ba-agent-sub000/internal/models"
)

// DecodeChunkList extracts and parses a [{section, content}] list from raw
// model output. Prose around the list is ignored. Any failure is a chunking error.
func DecodeChunkList(raw string) ([]models.ChunkDraft, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, models.NewError(models.KindChunking, "splitter output contains no list")
	}

	candidate := repairStrings(stripControl(raw[start : end+1]))

	var drafts []models.ChunkDraft
	if err := json.Unmarshal([]byte(candidate), &drafts); err != nil {
		return nil, models.ChunkingError(err, "splitter output is not a valid chunk list")
	}
	return drafts, nil
}

// stripControl drops control characters other than newline, carriage return and tab
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// repairStrings escapes literal newline, carriage return and tab characters
// that appear inside JSON string literals
func repairStrings(s string) string {
	var (
		b        strings.Builder
		inString bool
		escaped  bool
	)
	b.Grow(len(s))
	for _, r := range s {
		if !inString {
			if r == '"' {
				inString = true
			}
			b.WriteRune(r)
			continue
		}
		switch {
		case escaped:
			escaped = false
			b.WriteRune(r)
		case r == '\\':
			escaped = true
			b.WriteRune(r)
		case r == '"':
			inString = false
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
