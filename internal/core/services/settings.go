package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/clausewise/internal/core/domain"
	"github.com/custodia-labs/clausewise/internal/core/ports/driven"
	"github.com/custodia-labs/clausewise/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyLocalProvider     = "llm.local.provider"
	keyLocalModel        = "llm.local.model"
	keyLocalBaseURL      = "llm.local.base_url"
	keyRemoteProvider    = "llm.remote.provider"
	keyRemoteModel       = "llm.remote.model"
	keyRemoteBaseURL     = "llm.remote.base_url"
	keyRemoteAPIKey      = "llm.remote.api_key"
	keyRerankBaseURL     = "rerank.base_url"
	keyRerankMinScore    = "rerank.min_score"
	keyTopK              = "retrieval.top_k"
	keyMinConfidence     = "retrieval.min_confidence"
	keyFuzzyThreshold    = "retrieval.fuzzy_threshold"
	keyRerankSlice       = "retrieval.rerank_slice"
	keyLocalTimeoutMS    = "generation.local_timeout_ms"
	keyLocalForFallback  = "generation.local_for_fallback"
	keyRemoteRPS         = "generation.remote_rps"
	keyRemoteBurst       = "generation.remote_burst"
	keyMaxConcurrent     = "query.max_concurrent"
	keyMaxUploadBytes    = "upload.max_bytes"
	keyKnowledgeBasePath = "knowledge_base.path"
)

// Environment variables consulted when an API key is not in the config file.
const (
	EnvRemoteAPIKey    = "CLAUSEWISE_REMOTE_API_KEY"
	EnvEmbeddingAPIKey = "CLAUSEWISE_EMBEDDING_API_KEY"
)

type valueKind int

const (
	kindString valueKind = iota
	kindProvider
	kindInt
	kindFloat
	kindBool
	kindUnit // float in [0,1]
)

var settingKinds = map[string]valueKind{
	keyEmbedProvider:     kindProvider,
	keyEmbedModel:        kindString,
	keyEmbedBaseURL:      kindString,
	keyEmbedAPIKey:       kindString,
	keyLocalProvider:     kindProvider,
	keyLocalModel:        kindString,
	keyLocalBaseURL:      kindString,
	keyRemoteProvider:    kindProvider,
	keyRemoteModel:       kindString,
	keyRemoteBaseURL:     kindString,
	keyRemoteAPIKey:      kindString,
	keyRerankBaseURL:     kindString,
	keyRerankMinScore:    kindFloat,
	keyTopK:              kindInt,
	keyMinConfidence:     kindUnit,
	keyFuzzyThreshold:    kindUnit,
	keyRerankSlice:       kindInt,
	keyLocalTimeoutMS:    kindInt,
	keyLocalForFallback:  kindBool,
	keyRemoteRPS:         kindFloat,
	keyRemoteBurst:       kindInt,
	keyMaxConcurrent:     kindInt,
	keyMaxUploadBytes:    kindInt,
	keyKnowledgeBasePath: kindString,
}

// providerEnvKeys are the vendor environment variables for API keys.
var providerEnvKeys = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderGemini:    "GEMINI_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL),
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LocalLLM: domain.LLMSettings{
			Provider: s.getProvider(keyLocalProvider, defaults.LocalLLM.Provider),
			BaseURL:  s.getString(keyLocalBaseURL, defaults.LocalLLM.BaseURL),
		},
		RemoteLLM: domain.LLMSettings{
			Provider: s.getProvider(keyRemoteProvider, defaults.RemoteLLM.Provider),
			BaseURL:  s.configStore.GetString(keyRemoteBaseURL),
			APIKey:   s.configStore.GetString(keyRemoteAPIKey),
		},
		Rerank: domain.RerankSettings{
			BaseURL:  s.configStore.GetString(keyRerankBaseURL),
			MinScore: s.getFloat(keyRerankMinScore, defaults.Rerank.MinScore),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:           s.getInt(keyTopK, defaults.Retrieval.TopK),
			MinConfidence:  s.getFloat(keyMinConfidence, defaults.Retrieval.MinConfidence),
			FuzzyThreshold: s.getFloat(keyFuzzyThreshold, defaults.Retrieval.FuzzyThreshold),
			RerankSlice:    s.getInt(keyRerankSlice, defaults.Retrieval.RerankSlice),
		},
		Generation: domain.GenerationSettings{
			LocalTimeout:     s.getMillis(keyLocalTimeoutMS, defaults.Generation.LocalTimeout),
			LocalForFallback: s.getBool(keyLocalForFallback, defaults.Generation.LocalForFallback),
			RemoteRPS:        s.getFloat(keyRemoteRPS, defaults.Generation.RemoteRPS),
			RemoteBurst:      s.getInt(keyRemoteBurst, defaults.Generation.RemoteBurst),
		},
		Limits: domain.LimitSettings{
			MaxConcurrentQueries: s.getInt(keyMaxConcurrent, defaults.Limits.MaxConcurrentQueries),
			MaxUploadBytes:       s.getInt(keyMaxUploadBytes, defaults.Limits.MaxUploadBytes),
		},
		KnowledgeBasePath: s.configStore.GetString(keyKnowledgeBasePath),
	}

	// Models default per provider, so a provider switch without a model
	// still gets something sensible.
	settings.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	settings.LocalLLM.Model = s.getString(keyLocalModel, domain.DefaultLLMModels()[settings.LocalLLM.Provider])
	settings.RemoteLLM.Model = s.getString(keyRemoteModel, domain.DefaultLLMModels()[settings.RemoteLLM.Provider])

	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envKey(EnvEmbeddingAPIKey, settings.Embedding.Provider)
	}
	if settings.RemoteLLM.APIKey == "" {
		settings.RemoteLLM.APIKey = s.envKey(EnvRemoteAPIKey, settings.RemoteLLM.Provider)
	}

	return settings, nil
}

// Save persists application settings.
// API keys are only written when non-empty, so keys that came from the
// environment are not copied into the config file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key string
		val any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLocalProvider, settings.LocalLLM.Provider.String()},
		{keyLocalModel, settings.LocalLLM.Model},
		{keyLocalBaseURL, settings.LocalLLM.BaseURL},
		{keyRemoteProvider, settings.RemoteLLM.Provider.String()},
		{keyRemoteModel, settings.RemoteLLM.Model},
		{keyRemoteBaseURL, settings.RemoteLLM.BaseURL},
		{keyRerankBaseURL, settings.Rerank.BaseURL},
		{keyRerankMinScore, settings.Rerank.MinScore},
		{keyTopK, settings.Retrieval.TopK},
		{keyMinConfidence, settings.Retrieval.MinConfidence},
		{keyFuzzyThreshold, settings.Retrieval.FuzzyThreshold},
		{keyRerankSlice, settings.Retrieval.RerankSlice},
		{keyLocalTimeoutMS, int(settings.Generation.LocalTimeout / time.Millisecond)},
		{keyLocalForFallback, settings.Generation.LocalForFallback},
		{keyRemoteRPS, settings.Generation.RemoteRPS},
		{keyRemoteBurst, settings.Generation.RemoteBurst},
		{keyMaxConcurrent, settings.Limits.MaxConcurrentQueries},
		{keyMaxUploadBytes, settings.Limits.MaxUploadBytes},
		{keyKnowledgeBasePath, settings.KnowledgeBasePath},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("saving %s: %w", v.key, err)
		}
	}

	if key := settings.Embedding.APIKey; key != "" && key != s.envKey(EnvEmbeddingAPIKey, settings.Embedding.Provider) {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("saving %s: %w", keyEmbedAPIKey, err)
		}
	}
	if key := settings.RemoteLLM.APIKey; key != "" && key != s.envKey(EnvRemoteAPIKey, settings.RemoteLLM.Provider) {
		if err := s.configStore.Set(keyRemoteAPIKey, settings.RemoteLLM.APIKey); err != nil {
			return fmt.Errorf("saving %s: %w", keyRemoteAPIKey, err)
		}
	}

	return nil
}

// Set parses value according to the key's type and stores it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	value = strings.TrimSpace(value)

	var parsed any
	switch kind {
	case kindString:
		parsed = value
	case kindProvider:
		p := domain.AIProvider(strings.ToLower(value))
		if value != "" && !p.IsValid() {
			return fmt.Errorf("%w: invalid provider %q for %s", domain.ErrInvalidInput, value, key)
		}
		if key != keyEmbedProvider && p == domain.AIProviderBuiltin {
			return fmt.Errorf("%w: provider %s cannot generate text", domain.ErrInvalidInput, p)
		}
		if key == keyEmbedProvider && !supportsEmbedding(p) {
			return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, p)
		}
		parsed = string(p)
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		parsed = n
	case kindFloat, kindUnit:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || (kind == kindUnit && f > 1) {
			if kind == kindUnit {
				return fmt.Errorf("%w: %s must be between 0 and 1", domain.ErrInvalidInput, key)
			}
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidInput, key)
		}
		parsed = f
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		parsed = b
	}

	return s.configStore.Set(key, parsed)
}

// Keys lists every settable config key in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !supportsEmbedding(provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.envKey(EnvEmbeddingAPIKey, provider) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	switch provider {
	case domain.AIProviderOllama:
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	default:
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the local or remote generation model.
func (s *SettingsService) SetLLMProvider(role domain.LLMRole, provider domain.AIProvider, model, apiKey string) error {
	if !role.IsValid() {
		return fmt.Errorf("invalid LLM role: %s", role)
	}
	if !provider.IsValid() || provider == domain.AIProviderBuiltin {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if role == domain.LLMRoleLocal && apiKey != "" {
		return fmt.Errorf("the local model does not take an API key; configure %s as the remote model", provider)
	}
	if role == domain.LLMRoleRemote && provider.RequiresAPIKey() && apiKey == "" &&
		s.envKey(EnvRemoteAPIKey, provider) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	llm := settings.LLM(role)
	llm.Provider = provider
	llm.Model = model
	if model == "" {
		llm.Model = domain.DefaultLLMModels()[provider]
	}
	if provider.IsLocal() {
		if llm.BaseURL == "" {
			llm.BaseURL = "http://localhost:11434"
		}
	} else {
		llm.BaseURL = ""
	}
	llm.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that the settings can serve questions.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not configured", settings.Embedding.Provider)
	}
	if !settings.LocalLLM.IsConfigured() && !settings.RemoteLLM.IsConfigured() {
		return fmt.Errorf("no generation model configured: set llm.local or llm.remote")
	}
	if settings.Retrieval.TopK <= 0 {
		return fmt.Errorf("%s must be positive", keyTopK)
	}
	if settings.Generation.LocalTimeout <= 0 {
		return fmt.Errorf("%s must be positive", keyLocalTimeoutMS)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the configured model for a role by pinging the provider.
func (s *SettingsService) ValidateLLMConfig(role domain.LLMRole) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(settings.LLM(role))
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getFloat distinguishes an explicit zero from a missing key.
func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	ms := s.configStore.GetInt(key)
	if ms <= 0 {
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

// envKey returns the first non-empty API key from the project variable or
// the provider's vendor variable.
func (s *SettingsService) envKey(projectVar string, provider domain.AIProvider) string {
	if !provider.RequiresAPIKey() {
		return ""
	}
	if v := s.getenv(projectVar); v != "" {
		return v
	}
	if vendor, ok := providerEnvKeys[provider]; ok {
		return s.getenv(vendor)
	}
	return ""
}

func supportsEmbedding(p domain.AIProvider) bool {
	if p == "" {
		return false
	}
	for _, ep := range domain.AllEmbeddingProviders() {
		if ep == p {
			return true
		}
	}
	return false
}
