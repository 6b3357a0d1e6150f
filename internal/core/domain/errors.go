package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input, such as an empty
	// question or an empty or oversized document. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIndexUnavailable indicates the persisted index could not be loaded
	// and could not be rebuilt from its chunk texts.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrGenerationUnavailable indicates both local and remote generation failed.
	// Callers must surface this distinctly from a low-confidence answer.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrNoDocumentLoaded indicates an operation needs an uploaded document
	// and none has been uploaded.
	ErrNoDocumentLoaded = errors.New("no document loaded")

	// ErrLLMUnavailable indicates the LLM service is not configured or unreachable.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or unreachable. The index cannot be built or searched without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrDimensionMismatch indicates an embedding does not match the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrRerankerUnavailable indicates the optional reranker could not score candidates.
	// Not fatal: ordering from the blended score stands.
	ErrRerankerUnavailable = errors.New("reranker unavailable")
)
