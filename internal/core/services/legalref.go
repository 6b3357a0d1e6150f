package services

import (
	"regexp"
	"strings"
)

var (
	legalReferencePattern = regexp.MustCompile(`(?i)\b(section|clause|article)\s+([\w.()]+)\s+of\s+(?:the\s+)?([\w\s]+?)\s*\b(act|code|regulation)\b`)
	directLookupPattern   = regexp.MustCompile(`\bwhat\s+does\s+(section|clause)\s+\d+[a-z]*\b`)

	curatedPattern    = regexp.MustCompile(`(?s)^\s*Question:\s*(.*?)\s*\nClause:\s*(.*)$`)
	clauseTailPattern = regexp.MustCompile(`(?is)(?:^|\n)Clause:\s*(.*)$`)

	sectionRefPattern = regexp.MustCompile(`(?i)\b(section|clause)\s+(\d+[a-z]*)\b`)
	chapterRefPattern = regexp.MustCompile(`(?i)\b(chapter)\s+([ivxlc0-9]+)\b`)
	articleRefPattern = regexp.MustCompile(`(?i)\b(article)\s+(\d+[a-z]*)\b`)
)

// LegalReference is an explicit "section N of the X Act" style reference.
type LegalReference struct {
	// Kind is section, clause or article, lowercased.
	Kind string

	// Number is the reference token, e.g. "1", "4.2" or "3(a)".
	Number string

	// Act is the instrument name including its suffix, e.g. "aadhaar act".
	Act string
}

// Token returns the reference as it appears in text, e.g. "section 1".
func (r LegalReference) Token() string {
	return r.Kind + " " + r.Number
}

// ExtractLegalReference finds an explicit legal reference in a question.
func ExtractLegalReference(question string) (LegalReference, bool) {
	m := legalReferencePattern.FindStringSubmatch(question)
	if m == nil {
		return LegalReference{}, false
	}
	number := strings.TrimRight(strings.ToLower(m[2]), ".")
	act := strings.Join(strings.Fields(strings.ToLower(m[3]+" "+m[4])), " ")
	if number == "" {
		return LegalReference{}, false
	}
	return LegalReference{Kind: strings.ToLower(m[1]), Number: number, Act: act}, true
}

// MatchesText reports whether text contains both the reference token and
// the act name, ignoring case and whitespace runs. The token must end at a
// boundary so "section 1" does not match "section 10".
func (r LegalReference) MatchesText(text string) bool {
	haystack := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if !strings.Contains(haystack, r.Act) {
		return false
	}
	token := r.Token()
	for offset := 0; ; {
		i := strings.Index(haystack[offset:], token)
		if i < 0 {
			return false
		}
		end := offset + i + len(token)
		if tokenEndsAt(haystack, end) && tokenStartsAt(haystack, offset+i) {
			return true
		}
		offset += i + 1
	}
}

func tokenStartsAt(s string, i int) bool {
	return i == 0 || !isWordByte(s[i-1])
}

func tokenEndsAt(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	if s[i] == '.' {
		// "section 4." ends a sentence; "section 4.2" continues the number.
		return i+1 >= len(s) || s[i+1] < '0' || s[i+1] > '9'
	}
	return !isWordByte(s[i])
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// IsDirectLookup reports whether a question asks what a numbered section
// or clause says, which is answered with the clause text verbatim.
func IsDirectLookup(question string) bool {
	return directLookupPattern.MatchString(strings.ToLower(strings.TrimSpace(question)))
}

// CuratedChunkText wraps a knowledge-base pair in the indexed chunk form.
func CuratedChunkText(question, clause string) string {
	return "Question: " + strings.TrimSpace(question) + "\nClause: " + strings.TrimSpace(clause)
}

// UnwrapClause returns the clause part of a curated chunk, or the trimmed
// text unchanged when it carries no "Clause:" wrapper.
func UnwrapClause(text string) string {
	if m := clauseTailPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// curatedQuestion returns the question line of a curated chunk.
func curatedQuestion(text string) (string, bool) {
	m := curatedPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ClauseReference extracts a display reference such as "Section 43",
// "Chapter VII" or "Article 5" from clause text. The question line of a
// curated chunk is searched first. Returns "" when nothing is found.
func ClauseReference(text string) string {
	if q, ok := curatedQuestion(text); ok {
		if ref := firstReference(q, sectionRefPattern); ref != "" {
			return ref
		}
	}
	for _, p := range []*regexp.Regexp{sectionRefPattern, chapterRefPattern, articleRefPattern} {
		if ref := firstReference(text, p); ref != "" {
			return ref
		}
	}
	return ""
}

func firstReference(text string, p *regexp.Regexp) string {
	m := p.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	kind := strings.ToLower(m[1])
	return strings.ToUpper(kind[:1]) + kind[1:] + " " + strings.ToUpper(m[2])
}
