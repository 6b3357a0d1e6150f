package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/custodia-labs/clausewise/internal/core/domain"
	"github.com/custodia-labs/clausewise/internal/core/ports/driven"
	"github.com/custodia-labs/clausewise/internal/core/ports/driving"
	"github.com/custodia-labs/clausewise/internal/logger"
)

// Ensure LegalService implements the interface.
var _ driving.LegalService = (*LegalService)(nil)

// LegalService is the boundary the CLI, MCP server and TUI call into.
type LegalService struct {
	index     driven.VectorIndex
	pipeline  driven.PostProcessorPipeline
	resolver  *QueryResolver
	router    *GenerationRouter
	docs      driven.DocumentStore
	cache     driven.AnswerCache
	extractor driven.TextExtractor

	queries  *semaphore.Weighted
	uploadMu sync.Mutex
	maxBytes int
}

// NewLegalService creates a legal service. Zero limits take defaults.
func NewLegalService(
	index driven.VectorIndex,
	pipeline driven.PostProcessorPipeline,
	resolver *QueryResolver,
	router *GenerationRouter,
	docs driven.DocumentStore,
	limits domain.LimitSettings,
) *LegalService {
	if limits.MaxConcurrentQueries <= 0 {
		limits.MaxConcurrentQueries = domain.DefaultMaxConcurrentQueries
	}
	if limits.MaxUploadBytes <= 0 {
		limits.MaxUploadBytes = domain.DefaultMaxUploadBytes
	}
	return &LegalService{
		index:    index,
		pipeline: pipeline,
		resolver: resolver,
		router:   router,
		docs:     docs,
		queries:  semaphore.NewWeighted(int64(limits.MaxConcurrentQueries)),
		maxBytes: limits.MaxUploadBytes,
	}
}

// SetAnswerCache sets the answer cache used by the resolver and purged on upload.
func (s *LegalService) SetAnswerCache(cache driven.AnswerCache) {
	s.cache = cache
	s.resolver.SetAnswerCache(cache)
}

// SetExtractor sets the extractor used by UploadFile.
func (s *LegalService) SetExtractor(extractor driven.TextExtractor) {
	s.extractor = extractor
}

// Upload chunks text and replaces the previously uploaded document.
func (s *LegalService) Upload(ctx context.Context, name, text string) (*domain.UploadResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: document is empty", domain.ErrInvalidInput)
	}
	if len(text) > s.maxBytes {
		return nil, fmt.Errorf("%w: document is %d bytes, limit is %d", domain.ErrInvalidInput, len(text), s.maxBytes)
	}

	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()

	logger.Section("Upload")
	defer logger.Timing("upload", time.Now())

	doc := &domain.Document{
		ID:        uuid.New().String(),
		Name:      name,
		Content:   text,
		CreatedAt: time.Now(),
	}
	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("chunk document: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document produced no chunks", domain.ErrInvalidInput)
	}
	doc.ChunkCount = len(chunks)
	logger.Debug("Document %s produced %d chunks", doc.ID, len(chunks))

	// The previous upload stays searchable until its replacement is embedded.
	added, err := s.index.Replace(ctx, chunks, domain.ChunkSourceUploaded)
	if err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}
	logger.Info("Indexed %d of %d chunks", added, len(chunks))

	if s.cache != nil {
		if n, err := s.cache.PurgeAnswered(ctx); err != nil {
			logger.Warn("Failed to purge answer cache: %v", err)
		} else if n > 0 {
			logger.Debug("Purged %d cached answers", n)
		}
	}
	s.replaceDocument(ctx, doc)
	s.resolver.analyzer.Learn(text)

	if err := s.index.Persist(ctx); err != nil {
		logger.Warn("Failed to persist index: %v", err)
	}

	return &domain.UploadResult{
		DocumentID:    doc.ID,
		ChunksCreated: len(chunks),
		ChunksAdded:   added,
	}, nil
}

func (s *LegalService) replaceDocument(ctx context.Context, doc *domain.Document) {
	if s.docs == nil {
		return
	}
	if prev, err := s.docs.LatestDocument(ctx); err == nil {
		if err := s.docs.DeleteDocument(ctx, prev.ID); err != nil {
			logger.Warn("Failed to delete previous document %s: %v", prev.ID, err)
		}
	}
	if err := s.docs.SaveDocument(ctx, doc); err != nil {
		logger.Warn("Failed to save document %s: %v", doc.ID, err)
	}
}

// UploadFile extracts text from path and uploads it under the file's name.
func (s *LegalService) UploadFile(ctx context.Context, path string) (*domain.UploadResult, error) {
	if s.extractor == nil || !s.extractor.Supports(path) {
		return nil, fmt.Errorf("%w: unsupported file type %q", domain.ErrInvalidInput, filepath.Ext(path))
	}
	text, err := s.extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	return s.Upload(ctx, filepath.Base(path), text)
}

// Ask resolves a question. At most MaxConcurrentQueries run at once.
func (s *LegalService) Ask(ctx context.Context, question string) (*domain.ResolvedAnswer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if err := s.queries.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.queries.Release(1)
	return s.resolver.Resolve(ctx, question)
}

// AnalyzeAll classifies every uploaded chunk.
func (s *LegalService) AnalyzeAll(_ context.Context) (*domain.AnalysisReport, error) {
	report := &domain.AnalysisReport{Chunks: []domain.ChunkRisk{}}
	for _, c := range s.index.Chunks() {
		if c.Source != domain.ChunkSourceUploaded {
			continue
		}
		tag := s.resolver.classifier.Classify(c.Text)
		report.Summary.Add(tag.Level)
		report.Chunks = append(report.Chunks, domain.ChunkRisk{ChunkID: c.ID, Text: c.Text, Risk: tag})
	}
	if report.Summary.TotalChunks == 0 {
		return nil, domain.ErrNoDocumentLoaded
	}
	logger.Debug("Analysed %d chunks, %d risk sections", report.Summary.TotalChunks, report.Summary.RiskSections)
	return report, nil
}

// Summarize summarises the most recently uploaded document as a whole.
func (s *LegalService) Summarize(ctx context.Context) (string, error) {
	if s.docs == nil {
		return "", domain.ErrNoDocumentLoaded
	}
	doc, err := s.docs.LatestDocument(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrNoDocumentLoaded
	}
	if err != nil {
		return "", fmt.Errorf("load document: %w", err)
	}
	logger.Section("Summarise")
	logger.Debug("Document %s (%s), %d bytes", doc.ID, doc.Name, len(doc.Content))
	return s.router.Summarise(ctx, doc.Content)
}
