package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/clausewise/internal/core/domain"
	"github.com/custodia-labs/clausewise/internal/core/ports/driven"
	"github.com/custodia-labs/clausewise/internal/core/ports/driving"
	"github.com/custodia-labs/clausewise/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// CuratedConfidence is the confidence recorded for knowledge-base entries.
const CuratedConfidence = 0.99

// IndexService owns the curated knowledge base and index maintenance.
type IndexService struct {
	index          driven.VectorIndex
	analyzer       *QueryAnalyzer
	cache          driven.AnswerCache
	docs           driven.DocumentStore
	embeddingModel string
}

// NewIndexService creates an index service. cache and docs may be nil.
func NewIndexService(
	index driven.VectorIndex,
	analyzer *QueryAnalyzer,
	cache driven.AnswerCache,
	docs driven.DocumentStore,
	embeddingModel string,
) *IndexService {
	if analyzer == nil {
		analyzer = NewQueryAnalyzer()
	}
	return &IndexService{
		index:          index,
		analyzer:       analyzer,
		cache:          cache,
		docs:           docs,
		embeddingModel: embeddingModel,
	}
}

// ReadKnowledgeBase parses a JSON or YAML list of question/context pairs.
// Files without a .json, .yaml or .yml extension are tried as JSON, then YAML.
func ReadKnowledgeBase(path string) ([]domain.QAPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}

	var pairs []domain.QAPair
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &pairs)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &pairs)
	default:
		if err = json.Unmarshal(data, &pairs); err != nil {
			pairs = nil
			err = yaml.Unmarshal(data, &pairs)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse knowledge base %s: %w", domain.ErrInvalidInput, filepath.Base(path), err)
	}
	return pairs, nil
}

// Bootstrap restores the persisted index and, when it is empty, builds the
// curated portion from the knowledge base at kbPath. The analyzer learns
// every indexed and cached question afterwards.
func (s *IndexService) Bootstrap(ctx context.Context, kbPath string) error {
	logger.Section("Bootstrap")
	defer logger.Timing("bootstrap", time.Now())

	if err := s.index.Load(ctx); err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	logger.Debug("Loaded %d chunks from disk", s.index.Len())

	if s.index.Len() == 0 && kbPath != "" {
		if _, err := os.Stat(kbPath); err == nil {
			if _, err := s.LoadKnowledgeBase(ctx, kbPath); err != nil {
				return err
			}
		} else {
			logger.Debug("No knowledge base at %s", kbPath)
		}
	}

	for _, c := range s.index.Chunks() {
		s.analyzer.Learn(c.Text)
	}
	if s.cache != nil {
		entries, err := s.cache.ListAnswers(ctx)
		if err != nil {
			logger.Warn("Answer cache unavailable: %v", err)
			return nil
		}
		for _, e := range entries {
			s.analyzer.Learn(e.Question)
		}
	}
	return nil
}

// LoadKnowledgeBase replaces the curated chunks with the pairs in path.
// Uploaded chunks are kept. Pairs with an empty context are skipped.
// Returns the number of curated chunks indexed.
func (s *IndexService) LoadKnowledgeBase(ctx context.Context, path string) (int, error) {
	pairs, err := ReadKnowledgeBase(path)
	if err != nil {
		return 0, err
	}
	logger.Info("Loading %d knowledge-base pairs from %s", len(pairs), path)

	curated := make([]domain.Chunk, 0, len(pairs))
	for i, p := range pairs {
		q, c := strings.TrimSpace(p.Question), strings.TrimSpace(p.Context)
		if c == "" {
			logger.Warn("Skipping knowledge-base entry %d: empty context", i)
			continue
		}
		curated = append(curated, domain.Chunk{
			Text:     CuratedChunkText(q, c),
			Source:   domain.ChunkSourceCurated,
			Position: len(curated),
		})
	}

	if err := s.reindex(ctx, curated); err != nil {
		return 0, err
	}

	if s.cache != nil {
		// Old curated entries and answers grounded on old curated chunks go.
		if n, err := s.cache.PurgeCurated(ctx); err != nil {
			logger.Warn("Failed to purge curated answers: %v", err)
		} else if n > 0 {
			logger.Debug("Purged %d curated answers", n)
		}
		if n, err := s.cache.PurgeAnswered(ctx); err != nil {
			logger.Warn("Failed to purge answer cache: %v", err)
		} else if n > 0 {
			logger.Debug("Purged %d cached answers", n)
		}
		for _, p := range pairs {
			q, c := strings.TrimSpace(p.Question), strings.TrimSpace(p.Context)
			if q == "" || c == "" {
				continue
			}
			err := s.cache.SaveAnswer(ctx, &domain.CachedAnswer{
				Question:        q,
				Clause:          c,
				ClauseReference: ClauseReference(CuratedChunkText(q, c)),
				Confidence:      CuratedConfidence,
				Curated:         true,
				CreatedAt:       time.Now(),
			})
			if err != nil {
				logger.Warn("Failed to seed cached question %q: %v", q, err)
			}
		}
	}

	n := 0
	for _, c := range s.index.Chunks() {
		if c.Source == domain.ChunkSourceCurated {
			s.analyzer.Learn(c.Text)
			n++
		}
	}
	return n, nil
}

// Rebuild re-embeds every indexed chunk and persists the result.
func (s *IndexService) Rebuild(ctx context.Context) error {
	logger.Section("Rebuild")
	var curated []domain.Chunk
	for _, c := range s.index.Chunks() {
		if c.Source == domain.ChunkSourceCurated {
			curated = append(curated, c)
		}
	}
	return s.reindex(ctx, curated)
}

// reindex replaces the curated chunks and re-embeds the uploaded ones. Each
// source is swapped atomically, so a failure leaves the last good set in place.
func (s *IndexService) reindex(ctx context.Context, curated []domain.Chunk) error {
	defer logger.Timing("reindex", time.Now())

	var uploaded []domain.Chunk
	for _, c := range s.index.Chunks() {
		if c.Source == domain.ChunkSourceUploaded {
			uploaded = append(uploaded, c)
		}
	}
	if len(uploaded) == 0 {
		if err := s.index.Build(ctx, curated, domain.ChunkSourceCurated); err != nil {
			return fmt.Errorf("build index: %w", err)
		}
	} else {
		if _, err := s.index.Replace(ctx, curated, domain.ChunkSourceCurated); err != nil {
			return fmt.Errorf("index curated chunks: %w", err)
		}
		if _, err := s.index.Replace(ctx, uploaded, domain.ChunkSourceUploaded); err != nil {
			return fmt.Errorf("re-embed uploaded chunks: %w", err)
		}
	}
	logger.Info("Index holds %d curated and %d uploaded chunks", len(curated), len(uploaded))
	if err := s.index.Persist(ctx); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	return nil
}

// Status reports index contents.
func (s *IndexService) Status(ctx context.Context) (*domain.IndexStatus, error) {
	status := &domain.IndexStatus{EmbeddingModel: s.embeddingModel}
	for _, c := range s.index.Chunks() {
		status.TotalChunks++
		switch c.Source {
		case domain.ChunkSourceCurated:
			status.CuratedChunks++
		case domain.ChunkSourceUploaded:
			status.UploadedChunks++
		}
	}
	if s.cache != nil {
		entries, err := s.cache.ListAnswers(ctx)
		if err != nil {
			return nil, fmt.Errorf("list cached answers: %w", err)
		}
		status.CachedAnswers = len(entries)
	}
	if s.docs != nil {
		doc, err := s.docs.LatestDocument(ctx)
		switch {
		case err == nil:
			status.Document = doc.Name
			if status.Document == "" {
				status.Document = doc.ID
			}
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("load document: %w", err)
		}
	}
	return status, nil
}
