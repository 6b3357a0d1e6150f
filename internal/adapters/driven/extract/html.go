package extract

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/clausewise/internal/core/ports/driven"
)

var _ driven.TextExtractor = (*HTML)(nil)

// HTML extracts readable text from saved web pages, such as statutes
// downloaded from a government portal.
type HTML struct{}

// NewHTML creates an HTML extractor.
func NewHTML() *HTML {
	return &HTML{}
}

// Supports returns true for .html and .htm files.
func (h *HTML) Supports(path string) bool {
	return hasExt(path, ".html", ".htm", ".xhtml")
}

// Extract returns the page text with markup removed and block elements on
// their own lines.
func (h *HTML) Extract(ctx context.Context, path string) (string, error) {
	text, err := readUTF8(ctx, path)
	if err != nil {
		return "", err
	}
	return nonEmpty(stripHTML(text), path)
}

var (
	htmlInvisible  = regexp.MustCompile(`(?is)<(script|style|noscript|head|svg)[^>]*>.*?</(script|style|noscript|head|svg)>`)
	htmlComment    = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlBlockBreak = regexp.MustCompile(`(?i)</?(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>|<(br|hr)\s*/?>`)
	htmlTag        = regexp.MustCompile(`<[^>]+>`)
	htmlSpaces     = regexp.MustCompile(`[ \t]+`)
)

func stripHTML(content string) string {
	content = htmlInvisible.ReplaceAllString(content, "")
	content = htmlComment.ReplaceAllString(content, "")
	content = htmlBlockBreak.ReplaceAllString(content, "\n")
	content = htmlTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = htmlSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
