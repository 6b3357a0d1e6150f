package extract

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/clausewise/internal/core/domain"
	"github.com/custodia-labs/clausewise/internal/core/ports/driven"
)

// Ensure PDF implements the interface.
var _ driven.TextExtractor = (*PDF)(nil)

// PDF extracts the plain text layer of a PDF. Scanned PDFs without a text
// layer yield domain.ErrInvalidInput.
type PDF struct{}

// NewPDF creates a PDF extractor.
func NewPDF() *PDF {
	return &PDF{}
}

// Supports returns true for .pdf files.
func (p *PDF) Supports(path string) bool {
	return hasExt(path, ".pdf")
}

// Extract returns the document's plain text.
func (p *PDF) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %v: %w", err, domain.ErrInvalidInput)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %v: %w", err, domain.ErrInvalidInput)
	}

	var buf strings.Builder
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	return nonEmpty(buf.String(), path)
}
