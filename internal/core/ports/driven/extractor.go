package driven

import "context"

// TextExtractor turns a document file into raw text.
type TextExtractor interface {
	// Supports returns true if the extractor handles the file at path.
	Supports(path string) bool

	// Extract returns the raw text of the file at path.
	Extract(ctx context.Context, path string) (string, error)
}
