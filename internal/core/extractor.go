// ABOUTME: Extractor converts uploaded files into plain text for chunking
// ABOUTME: Handles plain text, markdown and HTML; other formats are extraction errors
package core

import (
	"bytes"
	"mime"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"

	"github.com/websiTester/ba-agent-sub000/internal/models"
)

// Extraction is the text recovered from one file
type Extraction struct {
	Text     string
	MimeType string
	Title    string
}

// Extractor turns raw upload bytes into text
type Extractor struct{}

// NewExtractor creates an Extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

var textExtensions = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".json":     "application/json",
	".yaml":     "application/yaml",
	".yml":      "application/yaml",
	".html":     "text/html",
	".htm":      "text/html",
}

// DetectMimeType picks a mime type from the file extension, falling back to
// the declared content type
func DetectMimeType(fileName, declared string) string {
	if mt, ok := textExtensions[strings.ToLower(filepath.Ext(fileName))]; ok {
		return mt
	}
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			return mt
		}
	}
	return "application/octet-stream"
}

// Extract returns the text of data. Empty input is not an error.
func (e *Extractor) Extract(fileName, declaredType string, data []byte) (*Extraction, error) {
	mimeType := DetectMimeType(fileName, declaredType)
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	switch {
	case mimeType == "text/html" || mimeType == "application/xhtml+xml":
		return e.extractHTML(fileName, data)
	case strings.HasPrefix(mimeType, "text/"), mimeType == "application/json", mimeType == "application/yaml":
		if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
			return nil, models.NewError(models.KindExtraction, "%s is not valid UTF-8 text", fileName)
		}
		return &Extraction{Text: string(data), MimeType: mimeType}, nil
	default:
		return nil, models.NewError(models.KindExtraction, "unsupported file type %s for %s", mimeType, fileName)
	}
}

func (e *Extractor) extractHTML(fileName string, data []byte) (*Extraction, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Extraction{MimeType: "text/html"}, nil
	}
	pageURL := &url.URL{Scheme: "file", Path: "/" + filepath.Base(fileName)}
	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return nil, models.Wrap(models.KindExtraction, err, "failed to read HTML from "+fileName)
	}
	text := strings.TrimSpace(article.TextContent)
	if article.Title != "" && !strings.HasPrefix(text, article.Title) {
		text = "# " + article.Title + "\n\n" + text
	}
	return &Extraction{Text: text, MimeType: "text/html", Title: article.Title}, nil
}
