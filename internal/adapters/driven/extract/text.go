package extract

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/clausewise/internal/core/domain"
	"github.com/custodia-labs/clausewise/internal/core/ports/driven"
)

var (
	_ driven.TextExtractor = (*PlainText)(nil)
	_ driven.TextExtractor = (*Markdown)(nil)
)

// PlainText reads UTF-8 text files as-is.
type PlainText struct{}

// NewPlainText creates a plain text extractor.
func NewPlainText() *PlainText {
	return &PlainText{}
}

// Supports returns true for .txt and .text files.
func (p *PlainText) Supports(path string) bool {
	return hasExt(path, ".txt", ".text")
}

// Extract returns the file contents.
func (p *PlainText) Extract(ctx context.Context, path string) (string, error) {
	text, err := readUTF8(ctx, path)
	if err != nil {
		return "", err
	}
	return nonEmpty(text, path)
}

// Markdown reads markdown files and strips inline formatting.
// Numbered list markers are kept since they usually carry clause numbers.
type Markdown struct{}

// NewMarkdown creates a markdown extractor.
func NewMarkdown() *Markdown {
	return &Markdown{}
}

// Supports returns true for .md and .markdown files.
func (m *Markdown) Supports(path string) bool {
	return hasExt(path, ".md", ".markdown")
}

// Extract returns the file contents with markdown syntax removed.
func (m *Markdown) Extract(ctx context.Context, path string) (string, error) {
	text, err := readUTF8(ctx, path)
	if err != nil {
		return "", err
	}
	return nonEmpty(stripMarkdown(text), path)
}

func readUTF8(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8 text: %w", path, domain.ErrInvalidInput)
	}
	return string(data), nil
}

var (
	mdCodeFence  = regexp.MustCompile("(?s)```.*?```")
	mdInlineCode = regexp.MustCompile("`([^`]+)`")
	mdImage      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBlockquote = regexp.MustCompile(`(?m)^>\s*`)
	mdRule       = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	mdBullet     = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	mdEmphasis   = regexp.MustCompile(`(\*\*|__|\*)`)
	mdBlankRuns  = regexp.MustCompile(`\n{3,}`)
)

func stripMarkdown(content string) string {
	content = mdCodeFence.ReplaceAllString(content, "")
	content = mdInlineCode.ReplaceAllString(content, "$1")
	content = mdImage.ReplaceAllString(content, "")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdHeading.ReplaceAllString(content, "")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdRule.ReplaceAllString(content, "")
	content = mdBullet.ReplaceAllString(content, "")
	content = mdEmphasis.ReplaceAllString(content, "")
	content = mdBlankRuns.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
