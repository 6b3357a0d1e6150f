// Package domain defines the core business entities for clausewise.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A bounded span of legal text treated as one retrieval unit
//   - Candidate: An ephemeral, scored search hit for a single query
//   - RiskTag: A rule-derived classification of a clause's downside
//   - ResolvedAnswer: The structured result of answering a question
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
