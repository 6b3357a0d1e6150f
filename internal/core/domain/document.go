package domain

import "time"

// Word-count bounds for a chunk. The final chunk of a document may fall
// under MinChunkWords.
const (
	MinChunkWords = 50
	MaxChunkWords = 1000
)

// ChunkSource records where a chunk came from.
type ChunkSource string

// Available chunk sources.
const (
	// ChunkSourceCurated is a chunk from the bootstrap knowledge base.
	ChunkSourceCurated ChunkSource = "curated"

	// ChunkSourceUploaded is a chunk from a user-uploaded document.
	ChunkSourceUploaded ChunkSource = "uploaded"
)

// IsValid returns true if the chunk source is recognised.
func (s ChunkSource) IsValid() bool {
	return s == ChunkSourceCurated || s == ChunkSourceUploaded
}

// String returns the string representation.
func (s ChunkSource) String() string {
	return string(s)
}

// Chunk represents an atomic retrieval unit of legal text.
// Chunks are immutable once indexed.
type Chunk struct {
	// ID is the index-assigned identifier, stable for the session.
	ID int

	// Text is the chunk content with whitespace normalised.
	Text string

	// Source labels the chunk as curated or uploaded.
	Source ChunkSource

	// Position is the ordinal position within the originating document.
	Position int
}

// Document is an uploaded legal document kept for whole-document operations
// such as summarisation.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Name is a display name, usually the file name.
	Name string

	// Content is the full extracted text.
	Content string

	// ChunkCount is the number of chunks produced at upload time.
	ChunkCount int

	// CreatedAt is when the document was uploaded.
	CreatedAt time.Time
}
