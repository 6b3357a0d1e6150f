package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clausewise/internal/core/domain"
)

const kbJSON = `[
  {"question": "What is the notice period for termination?",
   "context": "Clause 12: Either party may terminate this agreement with thirty days written notice."},
  {"question": "What is the punishment for hacking?",
   "context": "Section 66: Computer related offences are punishable with imprisonment up to three years."},
  {"question": "Placeholder", "context": "  "}
]`

const kbYAML = `- question: What is bail?
  context: Bail is the conditional release of an accused person.
- question: What is an FIR?
  context: A First Information Report records a cognisable offence.
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadKnowledgeBase(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    int
		first   string
	}{
		{"json", "legal_qa.json", kbJSON, 3, "What is the notice period for termination?"},
		{"yaml", "legal_qa.yaml", kbYAML, 2, "What is bail?"},
		{"yml", "legal_qa.yml", kbYAML, 2, "What is bail?"},
		{"sniffed json", "legal_qa", kbJSON, 3, "What is the notice period for termination?"},
		{"sniffed yaml", "legal_qa.txt", kbYAML, 2, "What is bail?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs, err := ReadKnowledgeBase(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			require.Len(t, pairs, tt.want)
			assert.Equal(t, tt.first, pairs[0].Question)
			assert.NotEmpty(t, pairs[0].Context)
		})
	}
}

func TestReadKnowledgeBase_Errors(t *testing.T) {
	_, err := ReadKnowledgeBase(writeFile(t, "bad.json", `{"question": 1`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = ReadKnowledgeBase(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

type indexFixture struct {
	index   *mockIndex
	cache   *mockAnswerCache
	docs    *mockDocStore
	service *IndexService
}

func newIndexFixture() *indexFixture {
	f := &indexFixture{
		index: &mockIndex{distances: map[string]float64{}},
		cache: newMockAnswerCache(),
		docs:  &mockDocStore{},
	}
	f.service = NewIndexService(f.index, NewQueryAnalyzer(), f.cache, f.docs, "hashing-384")
	return f
}

func TestIndexService_LoadKnowledgeBase(t *testing.T) {
	f := newIndexFixture()
	ctx := context.Background()
	_, err := f.index.Add(ctx, []domain.Chunk{{Text: "Uploaded clause."}}, domain.ChunkSourceUploaded)
	require.NoError(t, err)

	n, err := f.service.LoadKnowledgeBase(ctx, writeFile(t, "legal_qa.json", kbJSON))

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	chunks := f.index.Chunks()
	require.Len(t, chunks, 3)
	assert.Equal(t, domain.ChunkSourceCurated, chunks[0].Source)
	assert.Equal(t, "Question: What is the notice period for termination?\n"+
		"Clause: Clause 12: Either party may terminate this agreement with thirty days written notice.", chunks[0].Text)
	assert.Equal(t, domain.ChunkSourceUploaded, chunks[2].Source)
	assert.Equal(t, 1, f.index.persisted)

	entry, ok := f.cache.get("What is the punishment for hacking?")
	require.True(t, ok)
	assert.True(t, entry.Curated)
	assert.Empty(t, entry.Answer)
	assert.Equal(t, CuratedConfidence, entry.Confidence)
	assert.Equal(t, "Section 66", entry.ClauseReference)
	_, ok = f.cache.get("Placeholder")
	assert.False(t, ok)
}

func TestIndexService_LoadKnowledgeBaseReplacesCurated(t *testing.T) {
	f := newIndexFixture()
	ctx := context.Background()

	_, err := f.service.LoadKnowledgeBase(ctx, writeFile(t, "a.json", kbJSON))
	require.NoError(t, err)
	require.NoError(t, f.cache.SaveAnswer(ctx, &domain.CachedAnswer{
		Question: "How much notice must be given?", Answer: "Thirty days.", ClauseReference: "Clause 12",
	}))
	n, err := f.service.LoadKnowledgeBase(ctx, writeFile(t, "b.yaml", kbYAML))

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, f.index.Len())
	assert.Contains(t, f.index.Chunks()[0].Text, "What is bail?")

	for _, q := range []string{
		"What is the notice period for termination?",
		"What is the punishment for hacking?",
		"How much notice must be given?",
	} {
		_, ok := f.cache.get(q)
		assert.False(t, ok, q)
	}
	entries, err := f.cache.ListAnswers(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "What is bail?", entries[0].Question)
	assert.True(t, entries[0].Curated)
}

func TestIndexService_LoadKnowledgeBaseFailureKeepsCache(t *testing.T) {
	f := newIndexFixture()
	ctx := context.Background()
	_, err := f.service.LoadKnowledgeBase(ctx, writeFile(t, "a.json", kbJSON))
	require.NoError(t, err)
	before := f.index.Chunks()

	f.index.writeErr = domain.ErrEmbeddingUnavailable
	_, err = f.service.LoadKnowledgeBase(ctx, writeFile(t, "b.yaml", kbYAML))

	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Equal(t, before, f.index.Chunks())
	_, ok := f.cache.get("What is the punishment for hacking?")
	assert.True(t, ok)
	_, ok = f.cache.get("What is bail?")
	assert.False(t, ok)
}

func TestIndexService_LoadKnowledgeBaseInvalid(t *testing.T) {
	f := newIndexFixture()

	_, err := f.service.LoadKnowledgeBase(context.Background(), writeFile(t, "kb.yaml", "question: [unclosed"))

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, f.index.persisted)
}

func TestIndexService_Bootstrap(t *testing.T) {
	t.Run("empty index loads knowledge base", func(t *testing.T) {
		f := newIndexFixture()
		require.NoError(t, f.service.Bootstrap(context.Background(), writeFile(t, "legal_qa.json", kbJSON)))
		assert.Equal(t, 2, f.index.Len())
	})
	t.Run("populated index is kept", func(t *testing.T) {
		f := newIndexFixture()
		_, err := f.index.Add(context.Background(), []domain.Chunk{{Text: "Persisted clause."}}, domain.ChunkSourceCurated)
		require.NoError(t, err)
		require.NoError(t, f.service.Bootstrap(context.Background(), writeFile(t, "legal_qa.json", kbJSON)))
		assert.Equal(t, 1, f.index.Len())
		assert.Equal(t, 0, f.index.persisted)
	})
	t.Run("missing knowledge base", func(t *testing.T) {
		f := newIndexFixture()
		require.NoError(t, f.service.Bootstrap(context.Background(), filepath.Join(t.TempDir(), "none.json")))
		assert.Equal(t, 0, f.index.Len())
	})
	t.Run("corrupt index", func(t *testing.T) {
		f := newIndexFixture()
		f.index.loadErr = domain.ErrIndexUnavailable
		err := f.service.Bootstrap(context.Background(), "")
		assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	})
}

func TestIndexService_BootstrapLearnsCachedQuestions(t *testing.T) {
	f := newIndexFixture()
	ctx := context.Background()
	require.NoError(t, f.cache.SaveAnswer(ctx, &domain.CachedAnswer{Question: "Is a mortmain licence needed?", Answer: "Yes."}))

	require.NoError(t, f.service.Bootstrap(ctx, ""))

	assert.Equal(t, "mortmain", f.service.analyzer.Correct("mortmein"))
}

func TestIndexService_Rebuild(t *testing.T) {
	f := newIndexFixture()
	ctx := context.Background()
	_, err := f.service.LoadKnowledgeBase(ctx, writeFile(t, "legal_qa.json", kbJSON))
	require.NoError(t, err)
	_, err = f.index.Add(ctx, []domain.Chunk{{Text: "Uploaded clause."}}, domain.ChunkSourceUploaded)
	require.NoError(t, err)
	before := f.index.Chunks()

	require.NoError(t, f.service.Rebuild(ctx))

	after := f.index.Chunks()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Text, after[i].Text)
		assert.Equal(t, before[i].Source, after[i].Source)
	}
	assert.Equal(t, 2, f.index.persisted)
}

func TestIndexService_Status(t *testing.T) {
	f := newIndexFixture()
	ctx := context.Background()
	_, err := f.service.LoadKnowledgeBase(ctx, writeFile(t, "legal_qa.json", kbJSON))
	require.NoError(t, err)
	_, err = f.index.Add(ctx, []domain.Chunk{{Text: "Uploaded clause."}}, domain.ChunkSourceUploaded)
	require.NoError(t, err)
	require.NoError(t, f.docs.SaveDocument(ctx, &domain.Document{ID: "d1", Name: "lease.pdf"}))

	status, err := f.service.Status(ctx)

	require.NoError(t, err)
	assert.Equal(t, &domain.IndexStatus{
		TotalChunks:    3,
		CuratedChunks:  2,
		UploadedChunks: 1,
		CachedAnswers:  2,
		EmbeddingModel: "hashing-384",
		Document:       "lease.pdf",
	}, status)
}

func TestIndexService_StatusWithoutDocument(t *testing.T) {
	f := newIndexFixture()

	status, err := f.service.Status(context.Background())

	require.NoError(t, err)
	assert.Zero(t, status.TotalChunks)
	assert.Empty(t, status.Document)
}

func TestKnowledgeBase_MisspelledQuestionMatchesCuratedEntry(t *testing.T) {
	ctx := context.Background()
	index := &mockIndex{distances: map[string]float64{}}
	cache := newMockAnswerCache()
	analyzer := NewQueryAnalyzer()
	indexes := NewIndexService(index, analyzer, cache, nil, "hashing-384")
	require.NoError(t, indexes.Bootstrap(ctx, writeFile(t, "legal_qa.json", kbJSON)))

	local := &mockLLM{reply: "Thirty days."}
	router := newTestRouter(local, nil, domain.GenerationSettings{})
	resolver := NewQueryResolver(index, router, analyzer, nil, domain.RetrievalSettings{})
	legal := NewLegalService(index, &mockPipeline{}, resolver, router, &mockDocStore{}, domain.LimitSettings{})
	legal.SetAnswerCache(cache)

	got, err := legal.Ask(ctx, "What is the notice perod for termination?")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerSourceCachedMatch, got.AnswerSource)
	assert.Equal(t, "Thirty days.", got.Answer)
	assert.Equal(t, "Clause 12", got.ClauseReference)
	assert.Equal(t, CuratedConfidence, got.Confidence)
	assert.Contains(t, local.lastPrompt(), "thirty days written notice")
	assert.Equal(t, 0, index.searches)
}
