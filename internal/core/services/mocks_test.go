package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/clausewise/internal/core/domain"
	"github.com/custodia-labs/clausewise/internal/core/ports/driven"
)

// mockLLM is a scripted LLMService.
type mockLLM struct {
	mu       sync.Mutex
	name     string
	reply    string
	err      error
	delay    time.Duration
	prompts  []string
	generate func(ctx context.Context, prompt string) (string, error)
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.generate != nil {
		return m.generate(ctx, prompt)
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.reply, m.err
}

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *mockLLM) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

func (m *mockLLM) ModelName() string {
	if m.name == "" {
		return "mock-llm"
	}
	return m.name
}

func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockPrompts serves fixed templates.
type mockPrompts struct{}

func (mockPrompts) Load(name string) (string, error) {
	switch name {
	case driven.PromptGroundedAnswer:
		return "CLAUSE<%s> QUESTION<%s>", nil
	case driven.PromptGeneralAnswer:
		return "GENERAL<%s>", nil
	case driven.PromptSummarise:
		return "SUMMARISE<%s>", nil
	default:
		return "", fmt.Errorf("unknown prompt %q", name)
	}
}

func (mockPrompts) Reload() {}

// mockIndex is an in-memory VectorIndex whose Search scores by a fixed
// per-text distance table, falling back to a large distance.
type mockIndex struct {
	mu        sync.Mutex
	chunks    []domain.Chunk
	distances map[string]float64
	searchErr error
	writeErr  error
	loadErr   error
	searches  int
	persisted int
}

func (m *mockIndex) Build(_ context.Context, chunks []domain.Chunk, source domain.ChunkSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.chunks = nil
	m.appendLocked(chunks, source)
	return nil
}

func (m *mockIndex) Add(_ context.Context, chunks []domain.Chunk, source domain.ChunkSource) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(chunks, source), nil
}

func (m *mockIndex) appendLocked(chunks []domain.Chunk, source domain.ChunkSource) int {
	seen := make(map[string]bool, len(m.chunks))
	for _, c := range m.chunks {
		seen[c.Text] = true
	}
	added := 0
	for _, c := range chunks {
		text := strings.TrimSpace(c.Text)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		m.chunks = append(m.chunks, domain.Chunk{ID: len(m.chunks), Text: text, Source: source, Position: c.Position})
		added++
	}
	return added
}

func (m *mockIndex) Replace(_ context.Context, chunks []domain.Chunk, source domain.ChunkSource) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	var kept []domain.Chunk
	for _, c := range m.chunks {
		if c.Source != source {
			c.ID = len(kept)
			kept = append(kept, c)
		}
	}
	m.chunks = kept
	return m.appendLocked(chunks, source), nil
}

func (m *mockIndex) Search(_ context.Context, _ string, k int) ([]domain.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	out := make([]domain.Candidate, 0, len(m.chunks))
	for _, c := range m.chunks {
		d, ok := m.distances[c.Text]
		if !ok {
			d = 100
		}
		out = append(out, domain.Candidate{Chunk: c, Distance: d, RawConfidence: 1 / (1 + d)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (m *mockIndex) Chunks() []domain.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Chunk(nil), m.chunks...)
}

func (m *mockIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks)
}

func (m *mockIndex) Persist(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persisted++
	return nil
}

func (m *mockIndex) Load(_ context.Context) error { return m.loadErr }
func (m *mockIndex) Close() error                 { return nil }

// mockAnswerCache is an in-memory AnswerCache keyed by lowercased question.
type mockAnswerCache struct {
	mu      sync.Mutex
	entries map[string]domain.CachedAnswer
	order   []string
}

func newMockAnswerCache() *mockAnswerCache {
	return &mockAnswerCache{entries: make(map[string]domain.CachedAnswer)}
}

func (m *mockAnswerCache) SaveAnswer(_ context.Context, entry *domain.CachedAnswer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(entry.Question))
	if existing, ok := m.entries[key]; ok && existing.Curated && !entry.Curated {
		return nil
	}
	if _, ok := m.entries[key]; !ok {
		m.order = append(m.order, key)
	}
	m.entries[key] = *entry
	return nil
}

func (m *mockAnswerCache) ListAnswers(_ context.Context) ([]domain.CachedAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CachedAnswer, 0, len(m.order))
	for _, k := range m.order {
		if e, ok := m.entries[k]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockAnswerCache) PurgeAnswered(_ context.Context) (int, error) {
	return m.purge(false), nil
}

func (m *mockAnswerCache) PurgeCurated(_ context.Context) (int, error) {
	return m.purge(true), nil
}

func (m *mockAnswerCache) purge(curated bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.order[:0]
	n := 0
	for _, k := range m.order {
		if e, ok := m.entries[k]; ok && e.Curated == curated {
			delete(m.entries, k)
			n++
			continue
		}
		kept = append(kept, k)
	}
	m.order = kept
	return n
}

func (m *mockAnswerCache) get(question string) (domain.CachedAnswer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[strings.ToLower(strings.TrimSpace(question))]
	return e, ok
}

// mockDocStore is an in-memory DocumentStore.
type mockDocStore struct {
	mu   sync.Mutex
	docs []domain.Document
}

func (m *mockDocStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, *doc)
	return nil
}

func (m *mockDocStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.docs {
		if m.docs[i].ID == id {
			d := m.docs[i]
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocStore) LatestDocument(_ context.Context) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.docs) == 0 {
		return nil, domain.ErrNotFound
	}
	d := m.docs[len(m.docs)-1]
	return &d, nil
}

func (m *mockDocStore) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.docs {
		if m.docs[i].ID == id {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// mockReranker returns fixed scores or an error.
type mockReranker struct {
	scores func(texts []string) []float64
	err    error
	calls  int
}

func (m *mockReranker) Rerank(_ context.Context, _ string, texts []string) ([]float64, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.scores(texts), nil
}

func (m *mockReranker) Close() error { return nil }

// mockPipeline chunks a document on blank lines.
type mockPipeline struct {
	err   error
	empty bool
}

func (m *mockPipeline) Process(_ context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.empty {
		return nil, nil
	}
	var chunks []domain.Chunk
	for _, para := range strings.Split(doc.Content, "\n\n") {
		if para = strings.TrimSpace(para); para != "" {
			chunks = append(chunks, domain.Chunk{Text: para, Source: domain.ChunkSourceUploaded, Position: len(chunks)})
		}
	}
	return chunks, nil
}

// mockExtractor returns fixed text for files with one extension.
type mockExtractor struct {
	ext  string
	text string
	err  error
}

func (m *mockExtractor) Supports(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), m.ext)
}

func (m *mockExtractor) Extract(_ context.Context, _ string) (string, error) {
	return m.text, m.err
}
