package driven

import (
	"context"

	"github.com/custodia-labs/clausewise/internal/core/domain"
)

// DocumentStore persists uploaded documents for whole-document operations.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// LatestDocument returns the most recently uploaded document.
	// Returns domain.ErrNotFound when nothing has been uploaded.
	LatestDocument(ctx context.Context) (*domain.Document, error)

	// DeleteDocument removes a document.
	DeleteDocument(ctx context.Context, id string) error
}

// AnswerCache persists curated and previously answered questions for
// fuzzy matching.
type AnswerCache interface {
	// SaveAnswer stores an entry, replacing any entry with the same question.
	SaveAnswer(ctx context.Context, entry *domain.CachedAnswer) error

	// ListAnswers returns every entry.
	ListAnswers(ctx context.Context) ([]domain.CachedAnswer, error)

	// PurgeAnswered removes every non-curated entry.
	PurgeAnswered(ctx context.Context) (int, error)

	// PurgeCurated removes every curated entry.
	PurgeCurated(ctx context.Context) (int, error)
}
