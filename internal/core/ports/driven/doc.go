// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - VectorIndex: Chunk embeddings and nearest-neighbour search
//   - EmbeddingService: Generates vector embeddings for the index
//   - AnswerCache: Curated and previously answered questions
//   - DocumentStore: Uploaded document persistence
//   - ConfigStore: Application configuration
//   - PromptStore: Prompt templates
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Reranker: Without it, blended-score ordering stands.
//   - LLMService (local or remote): The router uses whichever is present;
//     with neither, generation fails with ErrGenerationUnavailable.
//   - TextExtractor: Without it, only plain-text uploads are accepted.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
