// Package extract turns uploaded document files into raw text.
//
// Each format has its own extractor; Multi dispatches on file extension.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/clausewise/internal/core/domain"
	"github.com/custodia-labs/clausewise/internal/core/ports/driven"
)

// Ensure Multi implements the interface.
var _ driven.TextExtractor = (*Multi)(nil)

// Multi tries each extractor in order and uses the first that supports the path.
type Multi struct {
	extractors []driven.TextExtractor
}

// New returns an extractor for PDF, DOCX, HTML, Markdown and plain text files.
func New() *Multi {
	return NewMulti(NewPDF(), NewDOCX(), NewHTML(), NewMarkdown(), NewPlainText())
}

// NewMulti creates a dispatcher over the given extractors.
func NewMulti(extractors ...driven.TextExtractor) *Multi {
	return &Multi{extractors: extractors}
}

// Supports returns true if any extractor handles the path.
func (m *Multi) Supports(path string) bool {
	for _, e := range m.extractors {
		if e.Supports(path) {
			return true
		}
	}
	return false
}

// Extract returns the text of the file using the first matching extractor.
func (m *Multi) Extract(ctx context.Context, path string) (string, error) {
	for _, e := range m.extractors {
		if e.Supports(path) {
			return e.Extract(ctx, path)
		}
	}
	return "", fmt.Errorf("unsupported file type %q: %w", filepath.Ext(path), domain.ErrInvalidInput)
}

func hasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// nonEmpty trims text and rejects files with nothing to index.
func nonEmpty(text, path string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("no extractable text in %s: %w", filepath.Base(path), domain.ErrInvalidInput)
	}
	return text, nil
}
