package driven

import (
	"context"

	"github.com/custodia-labs/clausewise/internal/core/domain"
)

// VectorIndex holds chunk embeddings and supports exhaustive nearest-neighbour
// search. Searches run against consistent snapshots and may proceed while a
// write is in progress.
type VectorIndex interface {
	// Build wipes the index and stores every chunk with the given source.
	Build(ctx context.Context, chunks []domain.Chunk, source domain.ChunkSource) error

	// Add appends chunks whose normalised text is not already indexed.
	// Empty chunks are skipped. Returns the number actually inserted.
	Add(ctx context.Context, chunks []domain.Chunk, source domain.ChunkSource) (int, error)

	// Replace drops every chunk of the given source and inserts the new
	// chunks in one atomic swap. Remaining chunks keep their embeddings and
	// are renumbered in order. On error the index is unchanged.
	Replace(ctx context.Context, chunks []domain.Chunk, source domain.ChunkSource) (int, error)

	// Search returns up to k candidates ordered by ascending distance.
	// An empty index yields an empty slice, never an error.
	Search(ctx context.Context, query string, k int) ([]domain.Candidate, error)

	// Chunks returns every indexed chunk in index order.
	Chunks() []domain.Chunk

	// Len returns the number of indexed chunks.
	Len() int

	// Persist writes the index and its sidecar to durable storage.
	Persist(ctx context.Context) error

	// Load restores the index from durable storage.
	// A missing store is a no-op that leaves the index empty.
	Load(ctx context.Context) error

	// Close releases resources.
	Close() error
}
