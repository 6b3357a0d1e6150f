package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/clausewise/internal/core/domain"
)

const roleEmbedding = "embedding"

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the embedding provider, the local and remote generation
models, retrieval tuning and limits.

Settings are stored in config.toml inside the data directory. API keys may
also come from CLAUSEWISE_REMOTE_API_KEY, CLAUSEWISE_EMBEDDING_API_KEY or the
provider's own variable, including from a .env file.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set a single setting by its config key, for example:

  clausewise settings set retrieval.top_k 20
  clausewise settings set generation.local_timeout_ms 3000
  clausewise settings set knowledge_base.path ./legal_qa.json`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsSetKeyCmd = &cobra.Command{
	Use:       "set-key [local|remote|embedding]",
	Short:     "Configure a model provider and its API key",
	Long:      `Interactively select the provider, model and API key for the local model, the remote model or the embedding provider.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(domain.LLMRoleLocal), string(domain.LLMRoleRemote), roleEmbedding},
	RunE:      runSettingsSetKey,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsSetKeyCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return unavailable("settings")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())

	cmd.Println("[Local LLM]")
	printProvider(cmd, settings.LocalLLM.Provider, settings.LocalLLM.Model,
		settings.LocalLLM.BaseURL, settings.LocalLLM.APIKey, settings.LocalLLM.IsConfigured())

	cmd.Println("[Remote LLM]")
	printProvider(cmd, settings.RemoteLLM.Provider, settings.RemoteLLM.Model,
		settings.RemoteLLM.BaseURL, settings.RemoteLLM.APIKey, settings.RemoteLLM.IsConfigured())

	cmd.Println("[Reranker]")
	if settings.Rerank.IsConfigured() {
		cmd.Printf("  Base URL: %s\n", settings.Rerank.BaseURL)
		cmd.Printf("  Min score: %.2f\n", settings.Rerank.MinScore)
	} else {
		cmd.Println("  Status: disabled")
	}
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Min confidence: %.2f\n", settings.Retrieval.MinConfidence)
	cmd.Printf("  Fuzzy threshold: %.2f\n", settings.Retrieval.FuzzyThreshold)
	cmd.Printf("  Rerank slice: %d\n", settings.Retrieval.RerankSlice)
	cmd.Println()

	cmd.Println("[Generation]")
	cmd.Printf("  Local timeout: %s\n", settings.Generation.LocalTimeout)
	cmd.Printf("  Local for fallback: %t\n", settings.Generation.LocalForFallback)
	cmd.Printf("  Remote rate: %.1f/s (burst %d)\n", settings.Generation.RemoteRPS, settings.Generation.RemoteBurst)
	cmd.Println()

	cmd.Println("[Limits]")
	cmd.Printf("  Concurrent questions: %d\n", settings.Limits.MaxConcurrentQueries)
	cmd.Printf("  Max upload bytes: %d\n", settings.Limits.MaxUploadBytes)
	if settings.KnowledgeBasePath != "" {
		cmd.Printf("  Knowledge base: %s\n", settings.KnowledgeBasePath)
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'clausewise settings set-key remote' to configure a model.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	if provider == "" {
		cmd.Println("  Status: not configured")
		cmd.Println()
		return
	}
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return unavailable("settings")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			cmd.PrintErrln("Available keys:")
			for _, k := range settingsService.Keys() {
				cmd.PrintErrf("  %s\n", k)
			}
		}
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	if strings.HasSuffix(key, "api_key") {
		value = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, value)
	return nil
}

func runSettingsSetKey(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return unavailable("settings")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	switch role := args[0]; role {
	case roleEmbedding:
		return configureEmbeddingProvider(cmd, reader)
	case string(domain.LLMRoleLocal), string(domain.LLMRoleRemote):
		return configureLLMProvider(cmd, reader, domain.LLMRole(role))
	default:
		return fmt.Errorf("unknown role %q: use local, remote or embedding", role)
	}
}

//nolint:dupl // Mirrors configureLLMProvider for embeddings.
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selectedProvider := providers[idx-1]

	defaultModel := domain.DefaultEmbeddingModels()[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key (blank to use the environment): ")
		apiKey = readSecret(cmd, reader)
		cmd.Println()
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n", selectedProvider.Description(), model)
	cmd.Println("Run 'clausewise index rebuild' to re-embed the index.")
	return nil
}

//nolint:dupl // Mirrors configureEmbeddingProvider for generation models.
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader, role domain.LLMRole) error {
	cmd.Printf("Select %s LLM Provider\n", role)
	var providers []domain.AIProvider
	for _, p := range domain.AllLLMProviders() {
		// The local model never takes an API key.
		if role == domain.LLMRoleLocal && !p.IsLocal() {
			continue
		}
		providers = append(providers, p)
	}
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selectedProvider := providers[idx-1]

	defaultModel := domain.DefaultLLMModels()[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if role == domain.LLMRoleRemote && selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key (blank to use the environment): ")
		apiKey = readSecret(cmd, reader)
		cmd.Println()
	}

	if err := settingsService.SetLLMProvider(role, selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s LLM: %w", role, err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(role); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s LLM configuration validation failed: %w", role, err)
	}
	cmd.Println("OK")

	cmd.Printf("%s LLM configured: %s (%s)\n", role, selectedProvider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readSecret reads without echo when the command reads a terminal.
func readSecret(cmd *cobra.Command, reader *bufio.Reader) string {
	if in, ok := cmd.InOrStdin().(*os.File); ok && in == os.Stdin && term.IsTerminal(int(in.Fd())) {
		secret, err := term.ReadPassword(int(in.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
