package ai

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clausewise/internal/core/domain"
)

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		result.Close()
	})

	t.Run("close with services", func(t *testing.T) {
		emb, err := CreateEmbeddingService(&domain.EmbeddingSettings{Provider: domain.AIProviderBuiltin})
		require.NoError(t, err)
		llm, err := CreateLLMService(&domain.LLMSettings{Provider: domain.AIProviderOllama})
		require.NoError(t, err)

		result := &InitResult{EmbeddingService: emb, LocalLLM: llm}
		result.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantNil     bool
		wantErr     bool
		errContains string
	}{
		{name: "nil settings returns nil", settings: nil, wantNil: true},
		{name: "unconfigured settings returns nil", settings: &domain.EmbeddingSettings{}, wantNil: true},
		{
			name:     "builtin provider creates service",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderBuiltin},
		},
		{
			name: "ollama provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "all-minilm",
			},
		},
		{
			name: "openai provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
		},
		{
			name:     "openai without key is not configured",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantNil:  true,
		},
		{
			name:        "anthropic provider returns error",
			settings:    &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			wantNil:     true,
			wantErr:     true,
			errContains: "not supported",
		},
		{
			name:     "unknown provider returns nil (not configured)",
			settings: &domain.EmbeddingSettings{Provider: "unknown", APIKey: "k"},
			wantNil:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if svc != nil {
				defer svc.Close()
			}

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, svc)
			} else {
				require.NotNil(t, svc)
				assert.Equal(t, domain.EmbeddingDimension, svc.Dimensions())
			}
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.LLMSettings
		wantNil   bool
		wantModel string
	}{
		{name: "nil settings returns nil", settings: nil, wantNil: true},
		{name: "unconfigured settings returns nil", settings: &domain.LLMSettings{}, wantNil: true},
		{
			name:     "builtin is not a generation provider",
			settings: &domain.LLMSettings{Provider: domain.AIProviderBuiltin},
			wantNil:  true,
		},
		{
			name:      "ollama provider creates service",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3"},
			wantModel: "llama3",
		},
		{
			name:      "openai provider creates service",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-4o-mini"},
			wantModel: "gpt-4o-mini",
		},
		{
			name:      "gemini provider defaults its model",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderGemini, APIKey: "k"},
			wantModel: "gemini-2.0-flash",
		},
		{
			name:      "anthropic provider creates service",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k", Model: "claude-3-5-haiku-latest"},
			wantModel: "claude-3-5-haiku-latest",
		},
		{
			name:     "unknown provider returns nil (not configured)",
			settings: &domain.LLMSettings{Provider: "unknown", APIKey: "k"},
			wantNil:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			defer svc.Close()
			assert.Equal(t, tt.wantModel, svc.ModelName())
		})
	}
}

func TestCreateAndValidateEmbeddingService_Builtin(t *testing.T) {
	svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{Provider: domain.AIProviderBuiltin})

	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, "hashing-384", svc.ModelName())
}

func TestCreateAndValidateEmbeddingService_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  srv.URL,
	})

	assert.Nil(t, svc)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestCreateAndValidateEmbeddingService_UnsupportedProvider(t *testing.T) {
	svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderAnthropic,
		APIKey:   "k",
	})

	assert.Nil(t, svc)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestCreateAndValidateLLMService(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		svc, err := CreateAndValidateLLMService(&domain.LLMSettings{})
		assert.NoError(t, err)
		assert.Nil(t, svc)
	})

	t.Run("reachable ollama", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"models":[]}`))
		}))
		defer srv.Close()

		svc, err := CreateAndValidateLLMService(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL})
		require.NoError(t, err)
		require.NotNil(t, svc)
		svc.Close()
	})

	t.Run("unreachable ollama", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		svc, err := CreateAndValidateLLMService(&domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL})
		assert.Nil(t, svc)
		assert.True(t, errors.Is(err, domain.ErrLLMUnavailable))
	})
}

func TestCreateAndValidateReranker(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		r, err := CreateAndValidateReranker(&domain.RerankSettings{})
		assert.NoError(t, err)
		assert.Nil(t, r)
	})

	t.Run("healthy", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		defer srv.Close()

		r, err := CreateAndValidateReranker(&domain.RerankSettings{BaseURL: srv.URL})
		require.NoError(t, err)
		assert.NotNil(t, r)
	})

	t.Run("unhealthy", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		r, err := CreateAndValidateReranker(&domain.RerankSettings{BaseURL: srv.URL})
		assert.Nil(t, r)
		assert.ErrorIs(t, err, domain.ErrRerankerUnavailable)
	})
}

func TestValidateEmbeddingConfig(t *testing.T) {
	assert.NoError(t, ValidateEmbeddingConfig(nil))
	assert.NoError(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{}))
	assert.NoError(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{Provider: domain.AIProviderBuiltin}))
	assert.Error(t, ValidateEmbeddingConfig(&domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"}))
}

func TestValidateLLMConfig(t *testing.T) {
	assert.NoError(t, ValidateLLMConfig(nil))
	assert.NoError(t, ValidateLLMConfig(&domain.LLMSettings{}))
	assert.NoError(t, ValidateLLMConfig(&domain.LLMSettings{Provider: "unknown", APIKey: "k"}))
}

func TestInitialise(t *testing.T) {
	t.Run("builtin embeddings only", func(t *testing.T) {
		settings := domain.AppSettings{Embedding: domain.EmbeddingSettings{Provider: domain.AIProviderBuiltin}}

		result, err := Initialise(&settings, t.TempDir())

		require.NoError(t, err)
		defer result.Close()
		assert.NotNil(t, result.EmbeddingService)
		assert.NotNil(t, result.VectorIndex)
		assert.NotNil(t, result.PromptStore)
		assert.Nil(t, result.LocalLLM)
		assert.Nil(t, result.RemoteLLM)
		assert.Nil(t, result.Reranker)
		assert.Equal(t, []string{"no generation model available, questions will fail"}, result.Warnings)
	})

	t.Run("unreachable local model is a warning", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		settings := domain.AppSettings{
			Embedding: domain.EmbeddingSettings{Provider: domain.AIProviderBuiltin},
			LocalLLM:  domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL},
		}

		result, err := Initialise(&settings, t.TempDir())

		require.NoError(t, err)
		defer result.Close()
		assert.Nil(t, result.LocalLLM)
		require.Len(t, result.Warnings, 2)
		assert.Contains(t, result.Warnings[0], "local model disabled")
	})

	t.Run("missing embeddings fail", func(t *testing.T) {
		_, err := Initialise(&domain.AppSettings{}, t.TempDir())
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}
