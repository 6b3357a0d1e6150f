package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clausewise/internal/core/domain"
)

type resolverFixture struct {
	index    *mockIndex
	cache    *mockAnswerCache
	local    *mockLLM
	remote   *mockLLM
	resolver *QueryResolver
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	f := &resolverFixture{
		index:  &mockIndex{distances: map[string]float64{}},
		cache:  newMockAnswerCache(),
		local:  &mockLLM{name: "local", reply: "local answer"},
		remote: &mockLLM{name: "remote", reply: "remote answer"},
	}
	router := newTestRouter(f.local, f.remote, domain.GenerationSettings{})
	f.resolver = NewQueryResolver(f.index, router, nil, nil, domain.RetrievalSettings{})
	f.resolver.SetAnswerCache(f.cache)
	return f
}

func (f *resolverFixture) add(t *testing.T, source domain.ChunkSource, text string, distance float64) {
	t.Helper()
	_, err := f.index.Add(context.Background(), []domain.Chunk{{Text: text}}, source)
	require.NoError(t, err)
	f.index.distances[text] = distance
}

func TestQueryResolver_EmptyQuestion(t *testing.T) {
	f := newResolverFixture(t)

	_, err := f.resolver.Resolve(context.Background(), "   ")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQueryResolver_PunctuationOnlyQuestion(t *testing.T) {
	f := newResolverFixture(t)
	f.add(t, domain.ChunkSourceUploaded, "The employer may terminate this agreement without notice.", 0.1)

	for _, q := range []string{"???", "?!.", " -- "} {
		_, err := f.resolver.Resolve(context.Background(), q)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, q)
	}
	assert.Zero(t, f.index.searches)
	assert.Empty(t, f.local.prompts)
}

func TestQueryResolver_DirectReference(t *testing.T) {
	f := newResolverFixture(t)
	f.add(t, domain.ChunkSourceUploaded, "Section 10 of the Aadhaar Act covers the central repository.", 0.1)
	f.add(t, domain.ChunkSourceUploaded, "Section 1 of the Aadhaar Act gives the short title and extent.", 50)

	got, err := f.resolver.Resolve(context.Background(), "What is section 1 of the Aadhaar Act?")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerSourceDirectReference, got.AnswerSource)
	assert.Equal(t, 0.99, got.Confidence)
	assert.Equal(t, "Section 1", got.ClauseReference)
	assert.Equal(t, "local answer", got.Answer)
	assert.Contains(t, f.local.lastPrompt(), "short title and extent")
	assert.Equal(t, 0, f.index.searches)
}

func TestQueryResolver_DirectReferenceMissFallsThrough(t *testing.T) {
	f := newResolverFixture(t)
	f.add(t, domain.ChunkSourceUploaded, "Section 1 of the Companies Act gives the short title.", 0.1)

	got, err := f.resolver.Resolve(context.Background(), "What is section 1 of the Aadhaar Act?")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerSourceSemanticRetrieval, got.AnswerSource)
	assert.Equal(t, 1, f.index.searches)
}

func TestQueryResolver_CuratedCachedMatch(t *testing.T) {
	f := newResolverFixture(t)
	require.NoError(t, f.cache.SaveAnswer(context.Background(), &domain.CachedAnswer{
		Question:   "What is the notice period for termination under Section 12?",
		Clause:     "Either party may end this agreement with thirty days written notice.",
		Confidence: 0.99,
		Curated:    true,
	}))

	got, err := f.resolver.Resolve(context.Background(), "What is the notice period for termiation under section 12?")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerSourceCachedMatch, got.AnswerSource)
	assert.GreaterOrEqual(t, got.Confidence, 0.85)
	assert.Equal(t, "local answer", got.Answer)
	assert.Equal(t, "Section 12", got.ClauseReference)
	assert.Equal(t, "Either party may end this agreement with thirty days written notice.", got.Clause)
	assert.Contains(t, f.local.lastPrompt(), "thirty days written notice")
	assert.Equal(t, 0, f.index.searches)
}

func TestQueryResolver_SynonymCachedMatch(t *testing.T) {
	f := newResolverFixture(t)
	require.NoError(t, f.cache.SaveAnswer(context.Background(), &domain.CachedAnswer{
		Question:   "What does the confidentiality clause cover?",
		Clause:     "All proprietary information must be kept confidential.",
		Confidence: 0.99,
		Curated:    true,
	}))

	got, err := f.resolver.Resolve(context.Background(), "What does the secrecy clause cover?")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerSourceCachedMatch, got.AnswerSource)
}

func TestQueryResolver_StoredAnswerReturnedWithoutGeneration(t *testing.T) {
	f := newResolverFixture(t)
	require.NoError(t, f.cache.SaveAnswer(context.Background(), &domain.CachedAnswer{
		Question:        "Who pays the stamp duty?",
		Answer:          "The buyer pays the stamp duty.",
		Clause:          "Stamp duty shall be borne by the buyer, failing which a penalty applies.",
		ClauseReference: "Clause 9",
		Confidence:      0.72,
	}))

	got, err := f.resolver.Resolve(context.Background(), "who pays the stamp duty")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerSourceCachedMatch, got.AnswerSource)
	assert.Equal(t, "The buyer pays the stamp duty.", got.Answer)
	assert.Equal(t, 0.72, got.Confidence)
	assert.Equal(t, "Clause 9", got.ClauseReference)
	assert.Equal(t, domain.RiskMedium, got.Risk.Level)
	assert.Equal(t, 0, f.local.calls()+f.remote.calls())
}

func TestQueryResolver_SemanticRetrieval(t *testing.T) {
	f := newResolverFixture(t)
	f.add(t, domain.ChunkSourceUploaded, "The employee shall give sixty days notice before resignation.", 0.2)
	f.add(t, domain.ChunkSourceUploaded, "The parties shall meet quarterly.", 5)

	question := "How much notice must the employee give before resignation?"
	got, err := f.resolver.Resolve(context.Background(), question)

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerSourceSemanticRetrieval, got.AnswerSource)
	assert.Equal(t, "The employee shall give sixty days notice before resignation.", got.Clause)
	assert.Greater(t, got.Confidence, 0.30)
	assert.LessOrEqual(t, got.Confidence, 1.0)
	assert.Equal(t, domain.RiskLow, got.Risk.Level)
	assert.Equal(t, "local answer", got.Answer)

	stored, ok := f.cache.get(question)
	require.True(t, ok)
	assert.Equal(t, "local answer", stored.Answer)
	assert.False(t, stored.Curated)
}

func TestQueryResolver_SecondAskHitsCache(t *testing.T) {
	f := newResolverFixture(t)
	f.add(t, domain.ChunkSourceUploaded, "The employee shall give sixty days notice before resignation.", 0.2)
	question := "How much notice must the employee give before resignation?"

	_, err := f.resolver.Resolve(context.Background(), question)
	require.NoError(t, err)
	got, err := f.resolver.Resolve(context.Background(), question)

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerSourceCachedMatch, got.AnswerSource)
	assert.Equal(t, 1, f.index.searches)
	assert.Equal(t, 1, f.local.calls())
}

func TestQueryResolver_BelowFloorFallsBack(t *testing.T) {
	f := newResolverFixture(t)
	f.add(t, domain.ChunkSourceUploaded, "Unrelated boilerplate about office hours.", 100)

	got, err := f.resolver.Resolve(context.Background(), "What is bail?")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerSourceGenerativeFallback, got.AnswerSource)
	assert.Equal(t, FallbackDisclaimer+"remote answer", got.Answer)
	assert.Equal(t, 0.0, got.Confidence)
	assert.Empty(t, got.ClauseReference)
	assert.Equal(t, domain.RiskTag{Level: domain.RiskUnknown, Reason: ReasonNoRelevantHit}, got.Risk)
	assert.Equal(t, "GENERAL<What is bail?>", f.remote.lastPrompt())
	assert.Equal(t, 0, f.local.calls())

	_, cached := f.cache.get("What is bail?")
	assert.False(t, cached)
}

func TestQueryResolver_EmptyIndexFallsBack(t *testing.T) {
	f := newResolverFixture(t)

	got, err := f.resolver.Resolve(context.Background(), "What is bail?")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerSourceGenerativeFallback, got.AnswerSource)
	assert.Equal(t, 1, f.index.searches)
}

func TestQueryResolver_InsufficientAnswerSwitchesToGeneral(t *testing.T) {
	f := newResolverFixture(t)
	f.local.reply = "I cannot answer this from the provided document."
	f.add(t, domain.ChunkSourceUploaded, "The employee shall give sixty days notice before resignation.", 0.2)

	got, err := f.resolver.Resolve(context.Background(), "Can the employee work remotely?")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerSourceGenerativeFallback, got.AnswerSource)
	assert.Equal(t, FallbackDisclaimer+"remote answer", got.Answer)
	assert.Equal(t, 0.0, got.Confidence)
	assert.Equal(t, domain.RiskTag{Level: domain.RiskUnknown, Reason: ReasonInsufficient}, got.Risk)
}

func TestQueryResolver_DirectLookupReturnsClauseVerbatim(t *testing.T) {
	f := newResolverFixture(t)
	rr := &mockReranker{scores: func(texts []string) []float64 { return make([]float64, len(texts)) }}
	f.resolver.SetReranker(rr, 0.5)
	f.add(t, domain.ChunkSourceCurated,
		CuratedChunkText("What does section 5 say?", "Section 5. A penalty of Rs 1000 applies for late filing."), 0.1)

	got, err := f.resolver.Resolve(context.Background(), "What does section 5 say?")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerSourceSemanticRetrieval, got.AnswerSource)
	assert.Equal(t, "Section 5. A penalty of Rs 1000 applies for late filing.", got.Answer)
	assert.Equal(t, "Section 5", got.ClauseReference)
	assert.Equal(t, domain.RiskMedium, got.Risk.Level)
	assert.Equal(t, 0, f.local.calls()+f.remote.calls())
	assert.Equal(t, 0, rr.calls)
}

func TestQueryResolver_DualContext(t *testing.T) {
	f := newResolverFixture(t)
	f.add(t, domain.ChunkSourceUploaded, "Upon breach the contract may be ended by the other party.", 0.1)
	f.add(t, domain.ChunkSourceCurated, CuratedChunkText("What is breach?", "Breach means failure to perform."), 1.0)

	got, err := f.resolver.Resolve(context.Background(), "What happens on breach?")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerSourceSemanticRetrieval, got.AnswerSource)
	assert.Equal(t, "Upon breach the contract may be ended by the other party.", got.Clause)
	assert.Contains(t, f.local.lastPrompt(),
		"Knowledge Base Context:\nBreach means failure to perform.\n\n"+
			"Additional Retrieved Context (Uploaded Document):\nUpon breach the contract may be ended by the other party.")
}

func TestQueryResolver_CuratedWinnerUsesSingleContext(t *testing.T) {
	f := newResolverFixture(t)
	f.add(t, domain.ChunkSourceCurated, CuratedChunkText("What is breach?", "Breach means failure to perform."), 0.1)
	f.add(t, domain.ChunkSourceUploaded, "Upon breach the contract may be ended.", 1.0)

	_, err := f.resolver.Resolve(context.Background(), "What happens on breach?")

	require.NoError(t, err)
	assert.Equal(t, "CLAUSE<Breach means failure to perform.> QUESTION<What happens on breach?>", f.local.lastPrompt())
}

func TestQueryResolver_Reranker(t *testing.T) {
	first := "The licence fee is payable monthly in advance."
	second := "The licence fee is payable within thirty days of invoice."
	prefer := func(text string) func([]string) []float64 {
		return func(texts []string) []float64 {
			out := make([]float64, len(texts))
			for i, s := range texts {
				if s == text {
					out[i] = 0.9
				} else {
					out[i] = 0.1
				}
			}
			return out
		}
	}

	tests := []struct {
		name       string
		reranker   *mockReranker
		wantSource domain.AnswerSource
		wantClause string
	}{
		{"promotes", &mockReranker{scores: prefer(second)}, domain.AnswerSourceReranked, second},
		{"failure keeps blended order", &mockReranker{err: domain.ErrRerankerUnavailable}, domain.AnswerSourceSemanticRetrieval, first},
		{"below minimum keeps blended order",
			&mockReranker{scores: func([]string) []float64 { return []float64{0.2, 0.3} }},
			domain.AnswerSourceSemanticRetrieval, first},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResolverFixture(t)
			f.resolver.SetReranker(tt.reranker, 0.5)
			f.add(t, domain.ChunkSourceUploaded, first, 0.1)
			f.add(t, domain.ChunkSourceUploaded, second, 0.2)

			got, err := f.resolver.Resolve(context.Background(), "When is the licence fee payable?")

			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, got.AnswerSource)
			assert.Equal(t, tt.wantClause, got.Clause)
			assert.Equal(t, 1, tt.reranker.calls)
		})
	}
}

func TestQueryResolver_GenerationUnavailable(t *testing.T) {
	f := newResolverFixture(t)
	f.local.err = errors.New("local down")
	f.remote.err = errors.New("remote down")
	f.add(t, domain.ChunkSourceUploaded, "The employee shall give sixty days notice before resignation.", 0.2)

	_, err := f.resolver.Resolve(context.Background(), "How much notice must the employee give?")

	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}

func TestQueryResolver_SearchError(t *testing.T) {
	f := newResolverFixture(t)
	f.index.searchErr = domain.ErrEmbeddingUnavailable

	_, err := f.resolver.Resolve(context.Background(), "What is the notice period?")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestQueryResolver_HighRiskClause(t *testing.T) {
	f := newResolverFixture(t)
	f.add(t, domain.ChunkSourceUploaded, "The employer may terminate this agreement without notice.", 0.1)

	got, err := f.resolver.Resolve(context.Background(), "Can the employer terminate the agreement?")

	require.NoError(t, err)
	assert.Equal(t, domain.RiskHigh, got.Risk.Level)
	assert.True(t, strings.HasPrefix(got.Risk.Reason, "Termination"))
}

func TestIsInsufficientAnswer(t *testing.T) {
	assert.True(t, IsInsufficientAnswer("The clause does NOT contain information about that."))
	assert.True(t, IsInsufficientAnswer("There is not enough information."))
	assert.False(t, IsInsufficientAnswer("Notice is thirty days."))
}
