package services

import (
	"sort"
	"strings"

	"github.com/custodia-labs/clausewise/internal/core/domain"
)

// Blended score weights.
const (
	ConfidenceWeight = 0.82
	KeywordWeight    = 0.04
	PhraseWeight     = 0.06
	MaxKeywordBoost  = 0.15
	CuratedBonus     = 0.03
)

// DirectReferenceConfidence is reported for explicit legal-reference hits
// and curated knowledge-base entries.
const DirectReferenceConfidence = 0.99

// CombinedScore blends raw embedding confidence with keyword hits and a
// curated-source bonus. The result is at most 1.0 for rawConfidence <= 1.
func CombinedScore(rawConfidence float64, keywordHits, phraseHits int, curated bool) float64 {
	boost := min(MaxKeywordBoost, KeywordWeight*float64(keywordHits)+PhraseWeight*float64(phraseHits))
	score := ConfidenceWeight*rawConfidence + boost
	if curated {
		score += CuratedBonus
	}
	return score
}

// ScoreCandidates fills matched terms and combined scores in place and
// sorts candidates by descending score, then ascending distance, then
// ascending chunk ID.
func ScoreCandidates(candidates []domain.Candidate, terms QueryTerms) {
	for i := range candidates {
		c := &candidates[i]
		text := strings.ToLower(strings.Join(strings.Fields(c.Chunk.Text), " "))
		c.MatchedKeywords = matchedTerms(text, terms.Keywords)
		c.MatchedPhrases = matchedTerms(text, terms.Phrases)
		c.CombinedScore = CombinedScore(c.RawConfidence, len(c.MatchedKeywords), len(c.MatchedPhrases),
			c.Chunk.Source == domain.ChunkSourceCurated)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return ranksBefore(candidates[i], candidates[j])
	})
}

func ranksBefore(a, b domain.Candidate) bool {
	if a.CombinedScore != b.CombinedScore {
		return a.CombinedScore > b.CombinedScore
	}
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Chunk.ID < b.Chunk.ID
}

func matchedTerms(text string, terms []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		if strings.Contains(text, t) {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
