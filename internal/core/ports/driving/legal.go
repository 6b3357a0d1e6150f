package driving

import (
	"context"

	"github.com/custodia-labs/clausewise/internal/core/domain"
)

// LegalService answers questions about an uploaded legal document.
type LegalService interface {
	// Upload chunks and indexes document text, replacing any previous upload.
	// name is a display name and may be empty.
	Upload(ctx context.Context, name, text string) (*domain.UploadResult, error)

	// UploadFile extracts text from the file at path and uploads it.
	UploadFile(ctx context.Context, path string) (*domain.UploadResult, error)

	// Ask resolves a question through the tiered pipeline.
	// Returns domain.ErrGenerationUnavailable when no model could phrase the answer.
	Ask(ctx context.Context, question string) (*domain.ResolvedAnswer, error)

	// AnalyzeAll classifies every uploaded chunk.
	// Returns domain.ErrNoDocumentLoaded before the first upload.
	AnalyzeAll(ctx context.Context) (*domain.AnalysisReport, error)

	// Summarize summarises the whole uploaded document.
	// Returns domain.ErrNoDocumentLoaded before the first upload.
	Summarize(ctx context.Context) (string, error)
}

// IndexService manages the vector index and the curated knowledge base.
type IndexService interface {
	// Status reports index contents.
	Status(ctx context.Context) (*domain.IndexStatus, error)

	// LoadKnowledgeBase rebuilds the curated portion of the index from a
	// JSON or YAML file of question/context pairs.
	LoadKnowledgeBase(ctx context.Context, path string) (int, error)

	// Rebuild re-embeds every indexed chunk and persists the result.
	Rebuild(ctx context.Context) error
}
