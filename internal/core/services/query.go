package services

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
)

var (
	tokenPattern    = regexp.MustCompile(`[a-z0-9]+`)
	nonAlnumPattern = regexp.MustCompile(`[^a-z0-9\s]+`)
)

// stopWords are skipped when extracting keywords.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "to": {}, "of": {}, "in": {}, "on": {},
	"for": {}, "by": {}, "with": {}, "is": {}, "are": {}, "was": {}, "were": {}, "what": {},
	"which": {}, "who": {}, "whom": {}, "when": {}, "where": {}, "why": {}, "how": {},
	"does": {}, "do": {}, "did": {}, "about": {}, "under": {}, "law": {},
}

// phraseExpansions add domain phrases when the key phrase appears in a query.
var phraseExpansions = map[string][]string{
	"it law": {
		"information technology",
		"information technology act",
		"cyber",
		"electronic record",
		"digital signature",
		"computer",
	},
}

// legalSynonyms expand a query term or phrase into related wording.
var legalSynonyms = map[string][]string{
	"liability":       {"liable", "responsible", "accountability", "obligation"},
	"indemnity":       {"indemnification", "indemnify", "indemnification clause"},
	"breach":          {"violation", "non-compliance", "default", "infringement"},
	"termination":     {"terminate", "ending", "cancellation", "cessation"},
	"confidential":    {"confidentiality", "secret", "proprietary", "non-disclosure"},
	"confidentiality": {"confidential", "secret", "proprietary", "non-disclosure"},
	"clause":          {"section", "article", "provision", "condition", "term"},
	"penalty":         {"fine", "damages", "liquidated damages"},
	"jurisdiction":    {"governing law", "applicable law"},
	"liability cap":   {"limitation of liability", "liability limit", "cap on damages"},
	"force majeure":   {"act of god", "unforeseen circumstances"},
}

// canonicalTerms fold variant wording onto one form before questions are
// compared, so "secrecy clause" and "confidentiality clause" look alike.
var canonicalTerms = map[string]string{
	"secrecy":         "confidentiality",
	"secret":          "confidential",
	"nondisclosure":   "confidentiality",
	"indemnify":       "indemnity",
	"indemnification": "indemnity",
	"terminate":       "termination",
	"cancellation":    "termination",
	"liable":          "liability",
	"violation":       "breach",
	"fine":            "penalty",
}

// baseVocabulary is the known-good vocabulary for spelling correction.
var baseVocabulary = []string{
	"agreement", "arbitration", "article", "assignment", "breach", "chapter", "clause",
	"compensation", "confidential", "confidentiality", "contract", "damages", "default",
	"dispute", "employee", "employer", "governing", "imprisonment", "indemnity",
	"information", "intellectual", "jurisdiction", "liability", "liable", "notice",
	"obligation", "payment", "penalty", "period", "property", "provision", "punishable",
	"remedy", "section", "termination", "terminate", "technology", "warranty",
}

// QueryTerms is the result of analysing a question.
type QueryTerms struct {
	// Corrected is the lowercased query after spelling correction.
	Corrected string

	// Keywords are distinct corrected tokens longer than two characters
	// that are not stop words.
	Keywords []string

	// Phrases are distinct expansion phrases and synonyms.
	Phrases []string
}

// QueryAnalyzer corrects spelling against a vocabulary and expands queries
// with legal synonyms. Safe for concurrent use.
type QueryAnalyzer struct {
	mu    sync.RWMutex
	vocab map[string]struct{}
	words []string // sorted, for deterministic correction
}

// NewQueryAnalyzer creates an analyzer seeded with the built-in legal vocabulary.
func NewQueryAnalyzer() *QueryAnalyzer {
	a := &QueryAnalyzer{vocab: make(map[string]struct{})}
	a.addWords(baseVocabulary)
	for k, syns := range legalSynonyms {
		a.addWords(tokenPattern.FindAllString(k, -1))
		for _, s := range syns {
			a.addWords(tokenPattern.FindAllString(s, -1))
		}
	}
	return a
}

// Learn adds the words of text to the vocabulary. Words already known are
// never corrected.
func (a *QueryAnalyzer) Learn(text string) {
	a.addWords(tokenPattern.FindAllString(strings.ToLower(text), -1))
}

func (a *QueryAnalyzer) addWords(words []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	changed := false
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		if _, ok := a.vocab[w]; !ok {
			a.vocab[w] = struct{}{}
			a.words = append(a.words, w)
			changed = true
		}
	}
	if changed {
		sort.Strings(a.words)
	}
}

// Correct lowercases query and replaces unknown tokens with the closest
// vocabulary word within the allowed edit distance.
func (a *QueryAnalyzer) Correct(query string) string {
	lowered := strings.ToLower(strings.TrimSpace(query))
	a.mu.RLock()
	defer a.mu.RUnlock()
	return tokenPattern.ReplaceAllStringFunc(lowered, a.correctToken)
}

// correctToken must be called with the read lock held.
func (a *QueryAnalyzer) correctToken(tok string) string {
	if len(tok) < 4 || isDigits(tok) {
		return tok
	}
	if _, ok := a.vocab[tok]; ok {
		return tok
	}
	if _, ok := stopWords[tok]; ok {
		return tok
	}
	maxDist := 1
	if len(tok) >= 9 {
		maxDist = 2
	}
	best, bestDist := tok, maxDist+1
	for _, w := range a.words {
		if abs(len(w)-len(tok)) > maxDist {
			continue
		}
		if d := levenshtein.ComputeDistance(tok, w); d < bestDist {
			best, bestDist = w, d
		}
	}
	return best
}

// Analyze corrects the query and extracts keyword and phrase terms.
func (a *QueryAnalyzer) Analyze(query string) QueryTerms {
	corrected := a.Correct(query)
	tokens := tokenPattern.FindAllString(corrected, -1)

	terms := QueryTerms{Corrected: corrected}
	seen := make(map[string]struct{})
	for _, tok := range tokens {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		terms.Keywords = append(terms.Keywords, tok)
	}

	spaced := " " + strings.Join(tokens, " ") + " "
	phrases := make(map[string]struct{})
	addPhrases := func(ps []string) {
		for _, p := range ps {
			if _, dup := phrases[p]; !dup {
				phrases[p] = struct{}{}
				terms.Phrases = append(terms.Phrases, p)
			}
		}
	}
	for _, key := range sortedKeys(phraseExpansions) {
		if strings.Contains(spaced, " "+key+" ") {
			addPhrases(phraseExpansions[key])
		}
	}
	// "it" alone is too short to be a keyword but still signals the IT Act.
	if strings.Contains(spaced, " it ") && strings.Contains(spaced, " act ") {
		addPhrases(phraseExpansions["it law"])
	}
	for _, key := range sortedKeys(legalSynonyms) {
		if strings.Contains(spaced, " "+key+" ") {
			addPhrases(legalSynonyms[key])
		}
	}

	return terms
}

// Canonical corrects query and folds synonyms onto canonical terms, giving
// the form used to compare questions.
func (a *QueryAnalyzer) Canonical(query string) string {
	return CanonicalForm(a.Correct(query))
}

// NormaliseLookup lowercases text, replaces punctuation with spaces and
// collapses whitespace.
func NormaliseLookup(s string) string {
	s = nonAlnumPattern.ReplaceAllString(strings.ToLower(s), " ")
	return strings.Join(strings.Fields(s), " ")
}

// CanonicalForm normalises text and folds synonyms onto canonical terms.
func CanonicalForm(s string) string {
	fields := strings.Fields(NormaliseLookup(s))
	for i, f := range fields {
		if c, ok := canonicalTerms[f]; ok {
			fields[i] = c
		}
	}
	return strings.Join(fields, " ")
}

// Similarity returns a normalised similarity ratio in [0,1] based on edit
// distance: 1 - distance / max(len(a), len(b)), counted in runes.
func Similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
