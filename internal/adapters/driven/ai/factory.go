// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	hashingembed "github.com/custodia-labs/clausewise/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/clausewise/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/clausewise/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/clausewise/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/clausewise/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/clausewise/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/clausewise/internal/adapters/driven/config/file"
	"github.com/custodia-labs/clausewise/internal/adapters/driven/rerank/tei"
	"github.com/custodia-labs/clausewise/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/clausewise/internal/core/domain"
	"github.com/custodia-labs/clausewise/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

const fixHint = "Run 'clausewise settings show' and 'clausewise settings set' to fix"

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LocalLLM         driven.LLMService
	RemoteLLM        driven.LLMService
	Reranker         driven.Reranker
	VectorIndex      driven.VectorIndex
	PromptStore      driven.PromptStore
	Warnings         []string // Non-fatal issues that disabled an optional service.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
	if r.LocalLLM != nil {
		r.LocalLLM.Close()
	}
	if r.RemoteLLM != nil {
		r.RemoteLLM.Close()
	}
	if r.Reranker != nil {
		r.Reranker.Close()
	}
}

// Initialise creates the AI services, prompt store and vector index for
// settings, storing prompts and the index under dataDir. The embedding
// service is required. An unreachable model or reranker is left nil and
// reported in Warnings.
func Initialise(settings *domain.AppSettings, dataDir string) (*InitResult, error) {
	embedder, err := CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured. %s", domain.ErrEmbeddingUnavailable, fixHint)
	}

	prompts, err := file.NewPromptStore(filepath.Join(dataDir, "prompts"))
	if err != nil {
		embedder.Close()
		return nil, fmt.Errorf("create prompt store: %w", err)
	}

	result := &InitResult{
		EmbeddingService: embedder,
		PromptStore:      prompts,
		VectorIndex:      flat.New(embedder, flat.Config{Dir: filepath.Join(dataDir, "index")}),
	}

	if result.LocalLLM, err = CreateAndValidateLLMService(&settings.LocalLLM); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("local model disabled: %v", err))
	}
	if result.RemoteLLM, err = CreateAndValidateLLMService(&settings.RemoteLLM); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("remote model disabled: %v", err))
	}
	if result.LocalLLM == nil && result.RemoteLLM == nil {
		result.Warnings = append(result.Warnings, "no generation model available, questions will fail")
	}
	if result.Reranker, err = CreateAndValidateReranker(&settings.Rerank); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("reranker disabled: %v", err))
	}

	return result, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// The built-in provider needs no validation and never fails.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	if svc.Dimensions() != domain.EmbeddingDimension {
		svc.Close()
		return nil, fmt.Errorf("%w: %s produces %d dimensions, want %d",
			domain.ErrDimensionMismatch, svc.ModelName(), svc.Dimensions(), domain.EmbeddingDimension)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns nil without error when the settings are not configured.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrLLMUnavailable, err, fixHint)
	}

	return svc, nil
}

// CreateAndValidateReranker creates the reranker and checks its health endpoint.
// Returns nil without error when no reranker is configured.
func CreateAndValidateReranker(settings *domain.RerankSettings) (driven.Reranker, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	r, err := tei.NewReranker(tei.Config{BaseURL: settings.BaseURL})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRerankerUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := r.Ping(ctx); err != nil {
		r.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrRerankerUnavailable, err)
	}
	return r, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderBuiltin:
		return hashingembed.NewEmbeddingService(hashingembed.Config{
			Dimensions: domain.EmbeddingDimension,
		}), nil

	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: domain.EmbeddingDimension,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: domain.EmbeddingDimension,
		})

	case domain.AIProviderAnthropic, domain.AIProviderGemini:
		return nil, fmt.Errorf("%s embeddings are not supported, use builtin, ollama or openai", settings.Provider)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderGemini:
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = openaillm.GeminiBaseURL
		}
		model := settings.Model
		if model == "" {
			model = domain.DefaultLLMModels()[domain.AIProviderGemini]
		}
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: baseURL,
			Model:   model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
