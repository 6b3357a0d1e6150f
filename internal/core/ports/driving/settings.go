package driving

import "github.com/custodia-labs/clausewise/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	// API keys missing from the config file are read from the environment.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set parses and stores a single setting by its config key.
	Set(key, value string) error

	// Keys lists every settable config key.
	Keys() []string

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the local or remote generation model.
	SetLLMProvider(role domain.LLMRole, provider domain.AIProvider, model, apiKey string) error

	// Validate checks that the settings can serve questions.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig validates the configured model for a role by pinging the provider.
	ValidateLLMConfig(role domain.LLMRole) error
}
