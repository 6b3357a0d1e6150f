package driven

import "context"

// Reranker re-scores candidate texts against a query with a finer-grained model.
// This is an optional service - when nil or failing, blended ordering stands.
type Reranker interface {
	// Rerank returns one score per text, aligned with texts. Higher is more relevant.
	Rerank(ctx context.Context, query string, texts []string) ([]float64, error)

	// Close releases resources.
	Close() error
}
