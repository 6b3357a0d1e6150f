package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/custodia-labs/clausewise/internal/core/domain"
	"github.com/custodia-labs/clausewise/internal/core/ports/driven"
	"github.com/custodia-labs/clausewise/internal/logger"
)

// FallbackDisclaimer prefixes answers produced without a retrieved clause.
const FallbackDisclaimer = "Note: This question was not found in the uploaded document or the knowledge base. " +
	"The following is general legal information, not taken from your document.\n\n"

// insufficientMarkers are phrases a grounded model uses to say the clause
// did not answer the question.
var insufficientMarkers = []string{
	"does not contain information",
	"cannot answer this from the provided document",
	"not enough information",
	"insufficient information",
	"not provided in the clause",
	"there is no information",
	"no information",
}

// IsInsufficientAnswer reports whether a grounded answer declined to answer.
func IsInsufficientAnswer(answer string) bool {
	lowered := strings.ToLower(answer)
	for _, m := range insufficientMarkers {
		if strings.Contains(lowered, m) {
			return true
		}
	}
	return false
}

// selection is the clause chosen by a resolution tier.
type selection struct {
	source     domain.AnswerSource
	chunkText  string // as indexed, used for the clause reference
	clause     string // unwrapped clause text
	context    string // what the model is shown
	confidence float64
}

// QueryResolver answers a question by trying, in order: an explicit legal
// reference, a fuzzy match against known questions, semantic search, and
// finally general-knowledge generation.
type QueryResolver struct {
	index      driven.VectorIndex
	router     *GenerationRouter
	analyzer   *QueryAnalyzer
	classifier *RiskClassifier
	cache      driven.AnswerCache
	reranker   driven.Reranker
	cfg        domain.RetrievalSettings
	rerankMin  float64
}

// NewQueryResolver creates a resolver. Zero retrieval settings take defaults.
func NewQueryResolver(
	index driven.VectorIndex,
	router *GenerationRouter,
	analyzer *QueryAnalyzer,
	classifier *RiskClassifier,
	cfg domain.RetrievalSettings,
) *QueryResolver {
	if cfg.TopK <= 0 {
		cfg.TopK = domain.DefaultTopK
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = domain.DefaultMinConfidence
	}
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = domain.DefaultFuzzyThreshold
	}
	if cfg.RerankSlice <= 0 {
		cfg.RerankSlice = domain.DefaultRerankSlice
	}
	if analyzer == nil {
		analyzer = NewQueryAnalyzer()
	}
	if classifier == nil {
		classifier = NewRiskClassifier()
	}
	return &QueryResolver{
		index:      index,
		router:     router,
		analyzer:   analyzer,
		classifier: classifier,
		cfg:        cfg,
		rerankMin:  domain.DefaultRerankMinScore,
	}
}

// SetAnswerCache enables the fuzzy-match tier and answer caching.
func (r *QueryResolver) SetAnswerCache(cache driven.AnswerCache) {
	r.cache = cache
}

// SetReranker enables reranking of the top candidates. A candidate is only
// promoted when its rerank score reaches minScore.
func (r *QueryResolver) SetReranker(reranker driven.Reranker, minScore float64) {
	r.reranker = reranker
	r.rerankMin = minScore
}

// Resolve runs the tiered pipeline for one question.
func (r *QueryResolver) Resolve(ctx context.Context, question string) (*domain.ResolvedAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if !strings.ContainsFunc(question, isWordRune) {
		return nil, fmt.Errorf("%w: question has no words", domain.ErrInvalidInput)
	}

	logger.Section("Query Resolution")
	logger.Debug("Question: %q", question)
	defer logger.Timing("query resolution", time.Now())

	direct := IsDirectLookup(question)
	terms := r.analyzer.Analyze(question)
	if terms.Corrected != strings.ToLower(question) {
		logger.Debug("Corrected query: %q", terms.Corrected)
	}

	sel := r.legalReferenceTier(question)
	if sel == nil {
		cached, clauseSel := r.cachedTier(ctx, question, terms)
		if cached != nil {
			return cached, nil
		}
		sel = clauseSel
	}
	if sel == nil {
		var err error
		sel, err = r.semanticTier(ctx, question, terms, direct)
		if err != nil {
			return nil, err
		}
	}
	if sel == nil {
		return r.fallback(ctx, question, ReasonNoRelevantHit)
	}

	return r.phrase(ctx, question, sel, direct)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// legalReferenceTier looks for a chunk containing an explicitly named
// section and act.
func (r *QueryResolver) legalReferenceTier(question string) *selection {
	ref, ok := ExtractLegalReference(question)
	if !ok {
		return nil
	}
	logger.Debug("Legal reference: %q in %q", ref.Token(), ref.Act)
	for _, c := range r.index.Chunks() {
		if ref.MatchesText(c.Text) {
			logger.Info("Tier direct_reference: chunk %d", c.ID)
			clause := UnwrapClause(c.Text)
			return &selection{
				source:     domain.AnswerSourceDirectReference,
				chunkText:  c.Text,
				clause:     clause,
				context:    clause,
				confidence: DirectReferenceConfidence,
			}
		}
	}
	logger.Debug("No chunk contains %q and %q", ref.Token(), ref.Act)
	return nil
}

// cachedTier fuzzy-matches the corrected question against known questions.
// A stored answer is returned as is; a curated entry without an answer
// yields a selection to be phrased from its clause.
func (r *QueryResolver) cachedTier(
	ctx context.Context, question string, terms QueryTerms,
) (*domain.ResolvedAnswer, *selection) {
	if r.cache == nil {
		return nil, nil
	}
	entries, err := r.cache.ListAnswers(ctx)
	if err != nil {
		logger.Warn("Answer cache unavailable: %v", err)
		return nil, nil
	}

	lookup := NormaliseLookup(terms.Corrected)
	canonical := CanonicalForm(terms.Corrected)
	best, bestScore := -1, 0.0
	for i := range entries {
		score := max(
			Similarity(lookup, NormaliseLookup(entries[i].Question)),
			Similarity(canonical, CanonicalForm(entries[i].Question)),
		)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < r.cfg.FuzzyThreshold {
		if best >= 0 {
			logger.Debug("Closest known question %q scored %.3f", entries[best].Question, bestScore)
		}
		return nil, nil
	}

	e := entries[best]
	logger.Info("Tier cached_match: %q (similarity %.3f)", e.Question, bestScore)
	if e.Answer != "" {
		return &domain.ResolvedAnswer{
			Question:        question,
			Answer:          e.Answer,
			AnswerSource:    domain.AnswerSourceCachedMatch,
			ClauseReference: e.ClauseReference,
			Clause:          e.Clause,
			Confidence:      clamp01(e.Confidence),
			Risk:            r.classifier.Classify(e.Clause),
		}, nil
	}
	clause := UnwrapClause(e.Clause)
	if clause == "" {
		return nil, nil
	}
	chunkText := e.Clause
	if e.Curated {
		chunkText = CuratedChunkText(e.Question, clause)
	}
	return nil, &selection{
		source:     domain.AnswerSourceCachedMatch,
		chunkText:  chunkText,
		clause:     clause,
		context:    clause,
		confidence: e.Confidence,
	}
}

// semanticTier searches the index, blends scores and optionally reranks.
func (r *QueryResolver) semanticTier(
	ctx context.Context, question string, terms QueryTerms, direct bool,
) (*selection, error) {
	candidates, err := r.index.Search(ctx, terms.Corrected, r.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	if len(candidates) == 0 {
		logger.Debug("Index returned no candidates")
		return nil, nil
	}

	ScoreCandidates(candidates, terms)
	source := domain.AnswerSourceSemanticRetrieval
	if !direct && r.rerank(ctx, question, candidates) {
		source = domain.AnswerSourceReranked
	}

	best := candidates[0]
	logger.Debug("Top candidate: chunk %d combined=%.3f raw=%.3f keywords=%v phrases=%v",
		best.ChunkID(), best.CombinedScore, best.RawConfidence, best.MatchedKeywords, best.MatchedPhrases)
	if best.CombinedScore < r.cfg.MinConfidence {
		logger.Debug("Top score %.3f below floor %.2f", best.CombinedScore, r.cfg.MinConfidence)
		return nil, nil
	}
	logger.Info("Tier %s: chunk %d", source, best.ChunkID())

	clause := UnwrapClause(best.Chunk.Text)
	sel := &selection{
		source:     source,
		chunkText:  best.Chunk.Text,
		clause:     clause,
		context:    clause,
		confidence: best.CombinedScore,
	}
	if best.Chunk.Source == domain.ChunkSourceUploaded {
		if kb := r.curatedCompanion(candidates); kb != nil {
			logger.Debug("Merging knowledge-base chunk %d into context", kb.ChunkID())
			sel.context = "Knowledge Base Context:\n" + UnwrapClause(kb.Chunk.Text) +
				"\n\nAdditional Retrieved Context (Uploaded Document):\n" + clause
			sel.confidence = max(sel.confidence, kb.CombinedScore)
		}
	}
	return sel, nil
}

// curatedCompanion returns the best curated candidate after the winner that
// clears the floor or matched any query term.
func (r *QueryResolver) curatedCompanion(candidates []domain.Candidate) *domain.Candidate {
	for i := 1; i < len(candidates); i++ {
		c := &candidates[i]
		if c.Chunk.Source != domain.ChunkSourceCurated {
			continue
		}
		if c.CombinedScore >= r.cfg.MinConfidence || len(c.MatchedKeywords)+len(c.MatchedPhrases) > 0 {
			return c
		}
	}
	return nil
}

// rerank re-scores the top slice and reorders it when the best rerank
// score clears the minimum. Reports whether the order was overridden.
// Any reranker failure leaves the blended order in place.
func (r *QueryResolver) rerank(ctx context.Context, question string, candidates []domain.Candidate) bool {
	if r.reranker == nil {
		return false
	}
	slice := candidates[:min(r.cfg.RerankSlice, len(candidates))]
	texts := make([]string, len(slice))
	for i, c := range slice {
		texts[i] = UnwrapClause(c.Chunk.Text)
	}
	scores, err := r.reranker.Rerank(ctx, question, texts)
	if err != nil || len(scores) != len(slice) {
		logger.Debug("Reranker skipped: err=%v scores=%d", err, len(scores))
		return false
	}
	for i := range slice {
		s := scores[i]
		slice[i].RerankScore = &s
	}
	sort.SliceStable(slice, func(i, j int) bool {
		return *slice[i].RerankScore > *slice[j].RerankScore
	})
	if *slice[0].RerankScore < r.rerankMin {
		// Restore blended order.
		sort.SliceStable(candidates, func(i, j int) bool { return ranksBefore(candidates[i], candidates[j]) })
		logger.Debug("Top rerank score %.3f below %.2f", *slice[0].RerankScore, r.rerankMin)
		return false
	}
	return true
}

// phrase produces the answer text for a selected clause.
func (r *QueryResolver) phrase(
	ctx context.Context, question string, sel *selection, direct bool,
) (*domain.ResolvedAnswer, error) {
	var answer string
	if direct && sel.clause != "" {
		logger.Debug("Direct lookup: returning clause verbatim")
		answer = sel.clause
	} else {
		var err error
		answer, err = r.router.Answer(ctx, sel.context, question)
		if err != nil {
			return nil, err
		}
		if IsInsufficientAnswer(answer) {
			logger.Info("Grounded answer was insufficient, switching to general knowledge")
			return r.fallback(ctx, question, ReasonInsufficient)
		}
	}

	result := &domain.ResolvedAnswer{
		Question:        question,
		Answer:          answer,
		AnswerSource:    sel.source,
		ClauseReference: ClauseReference(sel.chunkText),
		Clause:          sel.clause,
		Confidence:      clamp01(sel.confidence),
		Risk:            r.classifier.Classify(sel.clause),
	}
	if sel.source != domain.AnswerSourceCachedMatch {
		r.remember(ctx, result)
	}
	return result, nil
}

// fallback answers from general knowledge with a disclaimer.
func (r *QueryResolver) fallback(ctx context.Context, question, reason string) (*domain.ResolvedAnswer, error) {
	logger.Info("Tier generative_fallback: %s", reason)
	answer, err := r.router.Answer(ctx, "", question)
	if err != nil {
		return nil, err
	}
	return &domain.ResolvedAnswer{
		Question:     question,
		Answer:       FallbackDisclaimer + answer,
		AnswerSource: domain.AnswerSourceGenerativeFallback,
		Confidence:   0,
		Risk:         domain.RiskTag{Level: domain.RiskUnknown, Reason: reason},
	}, nil
}

func (r *QueryResolver) remember(ctx context.Context, a *domain.ResolvedAnswer) {
	if r.cache == nil {
		return
	}
	err := r.cache.SaveAnswer(ctx, &domain.CachedAnswer{
		Question:        a.Question,
		Answer:          a.Answer,
		Clause:          a.Clause,
		ClauseReference: a.ClauseReference,
		Confidence:      a.Confidence,
	})
	if err != nil {
		logger.Warn("Failed to cache answer: %v", err)
	}
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}
