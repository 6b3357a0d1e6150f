package domain

import "time"

// AnswerSource records which resolution tier produced an answer.
type AnswerSource string

// Available answer sources, in tier order.
const (
	AnswerSourceDirectReference    AnswerSource = "direct_reference"
	AnswerSourceCachedMatch        AnswerSource = "cached_match"
	AnswerSourceSemanticRetrieval  AnswerSource = "semantic_retrieval"
	AnswerSourceReranked           AnswerSource = "reranked"
	AnswerSourceGenerativeFallback AnswerSource = "generative_fallback"
)

// String returns the string representation.
func (s AnswerSource) String() string {
	return string(s)
}

// Description returns a human-readable description of the source.
func (s AnswerSource) Description() string {
	switch s {
	case AnswerSourceDirectReference:
		return "Direct legal reference"
	case AnswerSourceCachedMatch:
		return "Matched a known question"
	case AnswerSourceSemanticRetrieval:
		return "Semantic retrieval"
	case AnswerSourceReranked:
		return "Semantic retrieval (reranked)"
	case AnswerSourceGenerativeFallback:
		return "General knowledge (not from document)"
	default:
		return unknownDescription
	}
}

// ResolvedAnswer is the terminal output of answering a question.
type ResolvedAnswer struct {
	Question        string       `json:"question"`
	Answer          string       `json:"answer"`
	AnswerSource    AnswerSource `json:"answer_source"`
	ClauseReference string       `json:"clause_reference,omitempty"`
	Clause          string       `json:"clause,omitempty"`
	Confidence      float64      `json:"confidence"`
	Risk            RiskTag      `json:"risk"`
}

// HasClauseReference returns true if a clause reference was resolved.
func (a *ResolvedAnswer) HasClauseReference() bool {
	return a.ClauseReference != ""
}

// QAPair is one curated knowledge-base entry.
type QAPair struct {
	Question string `json:"question" yaml:"question"`
	Context  string `json:"context" yaml:"context"`
}

// CachedAnswer is a previously answered or curated question kept for
// fuzzy matching.
type CachedAnswer struct {
	// ID is the unique identifier for the entry.
	ID string

	// Question is the original question text.
	Question string

	// Answer is the stored answer text. Empty for curated entries, which
	// are phrased from Clause at match time.
	Answer string

	// Clause is the clause text the answer was grounded on.
	Clause string

	// ClauseReference is the extracted clause reference, if any.
	ClauseReference string

	// Confidence is the confidence recorded when the answer was stored.
	Confidence float64

	// Curated marks entries that came from the knowledge base.
	Curated bool

	// CreatedAt is when the entry was stored.
	CreatedAt time.Time
}
