// Command clausewise answers questions about legal documents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/clausewise/internal/adapters/driven/ai"
	"github.com/custodia-labs/clausewise/internal/adapters/driven/config/file"
	"github.com/custodia-labs/clausewise/internal/adapters/driven/extract"
	"github.com/custodia-labs/clausewise/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/clausewise/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/clausewise/internal/adapters/driving/cli"
	"github.com/custodia-labs/clausewise/internal/core/ports/driven"
	"github.com/custodia-labs/clausewise/internal/core/services"
	"github.com/custodia-labs/clausewise/internal/logger"
	"github.com/custodia-labs/clausewise/internal/postprocessors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is fine; keys may come from the environment or config.toml.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// bootstrap builds every service from the settings under dataDir. Settings
// are returned even when a later stage fails so that 'settings' commands
// can repair the configuration.
func bootstrap(ctx context.Context, dataDir string) (*cli.Services, func(), error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".clausewise")
	}

	configStore, err := file.NewConfigStore(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	svc := &cli.Services{Settings: settingsService}

	settings, err := settingsService.Get()
	if err != nil {
		return svc, nil, fmt.Errorf("read settings: %w", err)
	}

	aiServices, err := ai.Initialise(settings, dataDir)
	if err != nil {
		return svc, nil, err
	}
	for _, w := range aiServices.Warnings {
		logger.Warn("%s", w)
	}

	var (
		docs  driven.DocumentStore
		cache driven.AnswerCache
	)
	closeStore := func() {}
	store, err := sqlite.NewStore(filepath.Join(dataDir, "data"))
	if err != nil {
		logger.Warn("metadata store unavailable, uploads and answers will not persist: %v", err)
		docs, cache = memory.NewDocumentStore(), memory.NewAnswerCache()
	} else {
		docs, cache = store.DocumentStore(), store.AnswerCache()
		closeStore = func() {
			if err := store.Close(); err != nil {
				logger.Warn("close store: %v", err)
			}
		}
	}
	cleanup := func() {
		aiServices.Close()
		closeStore()
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	chunker, err := registry.Build("chunker", nil)
	if err != nil {
		cleanup()
		return svc, nil, fmt.Errorf("build chunker: %w", err)
	}
	pipeline := postprocessors.NewPipeline(chunker)

	analyzer := services.NewQueryAnalyzer()
	classifier := services.NewRiskClassifier()
	router := services.NewGenerationRouter(aiServices.LocalLLM, aiServices.RemoteLLM, aiServices.PromptStore, settings.Generation)
	resolver := services.NewQueryResolver(aiServices.VectorIndex, router, analyzer, classifier, settings.Retrieval)
	if aiServices.Reranker != nil {
		resolver.SetReranker(aiServices.Reranker, settings.Rerank.MinScore)
	}

	legal := services.NewLegalService(aiServices.VectorIndex, pipeline, resolver, router, docs, settings.Limits)
	legal.SetAnswerCache(cache)
	legal.SetExtractor(extract.New())

	index := services.NewIndexService(aiServices.VectorIndex, analyzer, cache, docs, settings.Embedding.Model)
	if err := index.Bootstrap(ctx, settings.KnowledgeBasePath); err != nil {
		cleanup()
		return svc, nil, fmt.Errorf("bootstrap index: %w", err)
	}

	svc.Legal = legal
	svc.Index = index
	return svc, cleanup, nil
}
