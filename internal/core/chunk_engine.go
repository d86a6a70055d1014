// ABOUTME: ChunkEngine splits extracted document text into header-addressed chunks
// ABOUTME: Splits only at the most senior heading level present; backends are model or heading based
package core

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/websiTester/ba-agent-sub000/internal/llm"
	"github.com/websiTester/ba-agent-sub000/internal/models"
)

// Splitter turns non-blank document text into ordered chunk drafts
type Splitter interface {
	Split(ctx context.Context, fileName, text string) ([]models.ChunkDraft, error)
}

// ChunkEngine handles semantic chunking of whole documents
type ChunkEngine struct {
	splitter Splitter
	logger   *log.Logger
}

// NewChunkEngine creates a ChunkEngine; a nil splitter uses HeadingSplitter
func NewChunkEngine(splitter Splitter) *ChunkEngine {
	if splitter == nil {
		splitter = HeadingSplitter{}
	}
	return &ChunkEngine{
		splitter: splitter,
		logger:   log.New(log.Writer(), "[Chunker] ", log.LstdFlags),
	}
}

// Chunk splits text into drafts. Blank text yields an empty list without
// calling the splitter. Every failure is a chunking error.
func (ce *ChunkEngine) Chunk(ctx context.Context, fileName, text string) ([]models.ChunkDraft, error) {
	if strings.TrimSpace(text) == "" {
		return []models.ChunkDraft{}, nil
	}

	drafts, err := ce.splitter.Split(ctx, fileName, text)
	if err != nil {
		if models.IsKind(err, models.KindChunking) {
			return nil, err
		}
		return nil, models.ChunkingError(err, "failed to split document")
	}
	if len(drafts) == 0 {
		return nil, models.NewError(models.KindChunking, "splitter returned no chunks for non-empty text")
	}

	out := make([]models.ChunkDraft, 0, len(drafts))
	for _, d := range drafts {
		d.Section = strings.TrimSpace(d.Section)
		d.Content = strings.TrimSpace(d.Content)
		if d.Section == "" {
			d.Section = defaultSection(fileName)
		}
		out = append(out, d)
	}

	ce.logger.Printf("split %q into %d chunks", fileName, len(out))
	return out, nil
}

func defaultSection(fileName string) string {
	if name := strings.TrimSpace(fileName); name != "" {
		return name
	}
	return models.DefaultSection
}

// HeadingSplitter is the deterministic local splitter for markdown-style headings
type HeadingSplitter struct{}

var atxHeading = regexp.MustCompile(`^ {0,3}(#{1,6})(?:[ \t]+(.*?))?(?:[ \t]+#+)?[ \t]*$`)

type headingLine struct {
	line  int
	level int
	title string
}

// Split implements Splitter
func (HeadingSplitter) Split(_ context.Context, fileName, text string) ([]models.ChunkDraft, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return []models.ChunkDraft{}, nil
	}

	lines := strings.Split(text, "\n")
	headings := findHeadings(lines)
	if len(headings) == 0 {
		return []models.ChunkDraft{{Section: defaultSection(fileName), Content: strings.TrimSpace(text)}}, nil
	}

	top := headings[0].level
	for _, h := range headings[1:] {
		if h.level < top {
			top = h.level
		}
	}

	var splits []headingLine
	for _, h := range headings {
		if h.level == top {
			splits = append(splits, h)
		}
	}

	preamble := strings.TrimSpace(strings.Join(lines[:splits[0].line], "\n"))
	drafts := make([]models.ChunkDraft, 0, len(splits))
	for i, h := range splits {
		end := len(lines)
		if i+1 < len(splits) {
			end = splits[i+1].line
		}
		content := strings.TrimSpace(strings.Join(lines[h.line+1:end], "\n"))
		if i == 0 && preamble != "" {
			content = strings.TrimSpace(preamble + "\n\n" + content)
		}
		drafts = append(drafts, models.ChunkDraft{Section: h.title, Content: content})
	}
	return drafts, nil
}

// findHeadings returns ATX headings outside fenced code blocks
func findHeadings(lines []string) []headingLine {
	var (
		headings []headingLine
		fence    string
	)
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if len(line)-len(trimmed) <= 3 {
			if marker := fenceMarker(trimmed); marker != "" {
				switch {
				case fence == "":
					fence = marker
				case strings.HasPrefix(marker, fence) && strings.TrimSpace(strings.TrimLeft(trimmed, marker[:1])) == "":
					fence = ""
				}
				continue
			}
		}
		if fence != "" {
			continue
		}
		m := atxHeading.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		headings = append(headings, headingLine{line: i, level: len(m[1]), title: strings.TrimSpace(m[2])})
	}
	return headings
}

// fenceMarker returns the run of backticks or tildes opening a code fence, or ""
func fenceMarker(s string) string {
	if len(s) < 3 || (s[0] != '`' && s[0] != '~') {
		return ""
	}
	n := 0
	for n < len(s) && s[n] == s[0] {
		n++
	}
	if n < 3 {
		return ""
	}
	return s[:n]
}

// Completer is the chat model used by ModelSplitter
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (string, error)
}

const splitterInstructions = `You split documents into sections for a retrieval index.

Rules:
1. Find the highest heading level that actually occurs in the document (for markdown, the fewest leading # characters).
2. Split the document only where a heading of exactly that level starts. Never split at lower level headings.
3. Everything after a split heading, including lower level headings and their text, stays verbatim in that chunk's content.
4. Text before the first split heading belongs to the first chunk's content.
5. If there are no headings, return one chunk whose section is the file name.
6. Do not summarize, rewrite or drop any text.

Reply with only a JSON array of objects with the keys "section" (the heading text without # characters) and "content".`

// ModelSplitter asks the chat model to split a document and decodes its reply
// with DecodeChunkList
type ModelSplitter struct {
	model Completer
}

// NewModelSplitter creates a ModelSplitter backed by model
func NewModelSplitter(model Completer) *ModelSplitter {
	return &ModelSplitter{model: model}
}

// Split implements Splitter
func (s *ModelSplitter) Split(ctx context.Context, fileName, text string) ([]models.ChunkDraft, error) {
	name := fileName
	if strings.TrimSpace(name) == "" {
		name = models.DefaultSection
	}
	raw, err := s.model.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: splitterInstructions},
		{Role: llm.RoleUser, Content: fmt.Sprintf("File name: %s\n\n%s", name, text)},
	}, llm.CompletionOptions{Temperature: 0})
	if err != nil {
		return nil, err
	}
	return DecodeChunkList(raw)
}
