package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderBuiltin is the offline hashing embedder shipped in the binary.
	AIProviderBuiltin AIProvider = "builtin"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderGemini is Google Gemini via its OpenAI-compatible endpoint.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderBuiltin, AIProviderOllama, AIProviderOpenAI, AIProviderGemini, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderGemini || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderBuiltin
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderBuiltin:
		return "Built-in (offline hashing)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Gemini/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderBuiltin {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RerankSettings configures the optional cross-encoder reranker.
type RerankSettings struct {
	// BaseURL is the reranker endpoint. Empty disables reranking.
	BaseURL string

	// MinScore is the minimum reranker score for the top candidate to be accepted.
	MinScore float64
}

// IsConfigured returns true if a reranker endpoint is set.
func (r RerankSettings) IsConfigured() bool {
	return r.BaseURL != ""
}

// RetrievalSettings tunes the semantic search tier.
type RetrievalSettings struct {
	// TopK is the number of candidates fetched from the index.
	TopK int

	// MinConfidence is the combined-score floor for accepting a candidate.
	MinConfidence float64

	// FuzzyThreshold is the similarity ratio required for a cached match.
	FuzzyThreshold float64

	// RerankSlice is how many top candidates the reranker may re-score.
	RerankSlice int
}

// GenerationSettings tunes the generation router.
type GenerationSettings struct {
	// LocalTimeout is the hard deadline for the local model.
	LocalTimeout time.Duration

	// LocalForFallback makes context-free questions try the local model first.
	LocalForFallback bool

	// RemoteRPS limits remote calls per second. Zero disables limiting.
	RemoteRPS float64

	// RemoteBurst is the limiter burst size.
	RemoteBurst int
}

// LimitSettings bounds request sizes and concurrency.
type LimitSettings struct {
	// MaxConcurrentQueries bounds the number of in-flight questions.
	MaxConcurrentQueries int

	// MaxUploadBytes bounds the size of an uploaded document's text.
	MaxUploadBytes int
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LocalLLM is the fast local generation model.
	LocalLLM LLMSettings

	// RemoteLLM is the fallback remote generation model.
	RemoteLLM LLMSettings

	// Rerank holds reranker settings.
	Rerank RerankSettings

	// Retrieval holds search tier settings.
	Retrieval RetrievalSettings

	// Generation holds router settings.
	Generation GenerationSettings

	// Limits holds size and concurrency limits.
	Limits LimitSettings

	// KnowledgeBasePath points at a curated Q&A file (JSON or YAML).
	KnowledgeBasePath string
}

// Default tuning values.
const (
	DefaultTopK                 = 50
	DefaultMinConfidence        = 0.30
	DefaultFuzzyThreshold       = 0.85
	DefaultRerankSlice          = 8
	DefaultRerankMinScore       = 0.5
	DefaultLocalTimeout         = 4 * time.Second
	DefaultMaxConcurrentQueries = 8
	DefaultMaxUploadBytes       = 20 << 20
	EmbeddingDimension          = 384
)

// DefaultAppSettings returns settings with sensible defaults.
// Embeddings work offline out of the box; the remote LLM is left unconfigured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderBuiltin,
			Model:    DefaultEmbeddingModels()[AIProviderBuiltin],
		},
		LocalLLM: LLMSettings{
			Provider: AIProviderOllama,
			Model:    DefaultLLMModels()[AIProviderOllama],
			BaseURL:  "http://localhost:11434",
		},
		RemoteLLM: LLMSettings{},
		Rerank: RerankSettings{
			MinScore: DefaultRerankMinScore,
		},
		Retrieval: RetrievalSettings{
			TopK:           DefaultTopK,
			MinConfidence:  DefaultMinConfidence,
			FuzzyThreshold: DefaultFuzzyThreshold,
			RerankSlice:    DefaultRerankSlice,
		},
		Generation: GenerationSettings{
			LocalTimeout: DefaultLocalTimeout,
			RemoteRPS:    2,
			RemoteBurst:  4,
		},
		Limits: LimitSettings{
			MaxConcurrentQueries: DefaultMaxConcurrentQueries,
			MaxUploadBytes:       DefaultMaxUploadBytes,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderBuiltin,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGemini,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
// Every model is used at EmbeddingDimension.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderBuiltin: "hashing-384",
		AIProviderOllama:  "all-minilm",
		AIProviderOpenAI:  "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderGemini:    "gemini-2.0-flash",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
	}
}

// LLMRole selects which of the two generation models a setting applies to.
type LLMRole string

// Available LLM roles.
const (
	LLMRoleLocal  LLMRole = "local"
	LLMRoleRemote LLMRole = "remote"
)

// IsValid returns true if the role is recognised.
func (r LLMRole) IsValid() bool {
	return r == LLMRoleLocal || r == LLMRoleRemote
}

// LLM returns the settings for the given role.
func (s *AppSettings) LLM(role LLMRole) *LLMSettings {
	if role == LLMRoleRemote {
		return &s.RemoteLLM
	}
	return &s.LocalLLM
}
