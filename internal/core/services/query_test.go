package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryAnalyzer_Correct(t *testing.T) {
	a := NewQueryAnalyzer()

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"misspelt breach", "What is the penalty for breatch?", "what is the penalty for breach?"},
		{"missing letter", "Can the employer termiate early", "can the employer terminate early"},
		{"known words unchanged", "Governing law clause", "governing law clause"},
		{"short tokens unchanged", "is it ok", "is it ok"},
		{"digits unchanged", "section 1234", "section 1234"},
		{"stop words unchanged", "where whom", "where whom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Correct(tt.query))
		})
	}
}

func TestQueryAnalyzer_Learn(t *testing.T) {
	a := NewQueryAnalyzer()
	assert.Equal(t, "aadhar", a.Correct("Aadhar"))

	a.Learn("The Aadhaar Act, 2016")

	assert.Equal(t, "aadhaar", a.Correct("Aadhar"))
	assert.Equal(t, "aadhaar", a.Correct("aadhaar"))
}

func TestQueryAnalyzer_Analyze_Keywords(t *testing.T) {
	a := NewQueryAnalyzer()

	terms := a.Analyze("What is the liability for breach of the breach clause?")

	assert.Equal(t, "what is the liability for breach of the breach clause?", terms.Corrected)
	assert.Equal(t, []string{"liability", "breach", "clause"}, terms.Keywords)
}

func TestQueryAnalyzer_Analyze_Synonyms(t *testing.T) {
	a := NewQueryAnalyzer()

	terms := a.Analyze("Is there a breatch penalty?")

	assert.Contains(t, terms.Phrases, "violation")
	assert.Contains(t, terms.Phrases, "liquidated damages")
	assert.NotContains(t, terms.Phrases, "cessation")
}

func TestQueryAnalyzer_Analyze_ITAct(t *testing.T) {
	a := NewQueryAnalyzer()

	for _, q := range []string{"What does the IT act say about hacking?", "explain it law"} {
		terms := a.Analyze(q)
		assert.Contains(t, terms.Phrases, "information technology", q)
		assert.Contains(t, terms.Phrases, "digital signature", q)
	}

	terms := a.Analyze("is it enforceable")
	assert.NotContains(t, terms.Phrases, "information technology")
}

func TestQueryAnalyzer_Analyze_NoDuplicatePhrases(t *testing.T) {
	a := NewQueryAnalyzer()

	terms := a.Analyze("confidential confidentiality")

	seen := map[string]bool{}
	for _, p := range terms.Phrases {
		assert.False(t, seen[p], "duplicate phrase %q", p)
		seen[p] = true
	}
}

func TestCanonicalForm(t *testing.T) {
	assert.Equal(t, "what is the confidentiality clause", CanonicalForm("What is the secrecy clause?"))
	assert.Equal(t, CanonicalForm("Can they terminate?"), CanonicalForm("can they  cancellation"))
	assert.Equal(t, "", CanonicalForm("  ?! "))
}

func TestQueryAnalyzer_Canonical(t *testing.T) {
	a := NewQueryAnalyzer()

	got := a.Canonical("What is the secrecy clause?")

	assert.Equal(t, CanonicalForm("What is the confidentiality clause?"), got)
}

func TestNormaliseLookup(t *testing.T) {
	assert.Equal(t, "what is section 4 2", NormaliseLookup("  What is Section 4.2?  "))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("notice period", "notice period"))
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("abc", ""))
	assert.InDelta(t, 1-3.0/7.0, Similarity("kitten", "sitting"), 1e-9)

	near := Similarity("what is the notice period", "what is the notice periods")
	assert.GreaterOrEqual(t, near, 0.85)
}
