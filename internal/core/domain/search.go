package domain

// Candidate is a scored search hit. It lives only for the duration of one query.
type Candidate struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Distance is the squared Euclidean distance between query and chunk embeddings.
	Distance float64

	// RawConfidence is 1 / (1 + Distance).
	RawConfidence float64

	// CombinedScore blends RawConfidence with keyword and source signals.
	CombinedScore float64

	// MatchedKeywords are distinct query terms found verbatim in the chunk.
	MatchedKeywords []string

	// MatchedPhrases are distinct multi-word query phrases found verbatim in the chunk.
	MatchedPhrases []string

	// RerankScore is set when a reranker scored this candidate.
	RerankScore *float64
}

// ChunkID returns the ID of the matched chunk.
func (c Candidate) ChunkID() int {
	return c.Chunk.ID
}
