// Package chunker provides a structure-aware chunking processor for legal text.
//
// Text is split in three levels: ARTICLE/SECTION headings delimit buffers,
// numbered clauses (3.14, 3.14.1) split each buffer, and buffers without
// clauses fall back to overlapping word windows.
package chunker

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/clausewise/internal/core/domain"
)

// Window defaults, in words.
const (
	DefaultTargetWords = 150
	DefaultWindowMax   = 300
)

var (
	headingPattern = regexp.MustCompile(`(?i)\b(?:article|section)[\s\x{2014}-]*[ivx0-9]+\b`)
	clausePattern  = regexp.MustCompile(`\b\d+\.\d+(?:\.\d+)?\b`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// Processor splits document content into legal chunks.
// It implements the PostProcessor interface.
type Processor struct {
	targetWords int
	minWords    int
	maxWords    int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithTargetWords sets the sliding-window size. Windows advance by half this value.
func WithTargetWords(n int) Option {
	return func(p *Processor) {
		if n > 1 && n <= DefaultWindowMax {
			p.targetWords = n
		}
	}
}

// WithMinWords sets the minimum chunk size in words.
func WithMinWords(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.minWords = n
		}
	}
}

// WithMaxWords sets the maximum chunk size in words.
func WithMaxWords(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxWords = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		targetWords: DefaultTargetWords,
		minWords:    domain.MinChunkWords,
		maxWords:    domain.MaxChunkWords,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Windows must be able to satisfy both bounds.
	if p.maxWords < p.targetWords {
		p.maxWords = p.targetWords
	}
	if p.minWords > p.targetWords/2 {
		p.minWords = p.targetWords / 2
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into uploaded chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	spans := p.Split(doc.Content)
	if len(spans) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, len(spans))
	for i, text := range spans {
		chunks[i] = domain.Chunk{
			Text:     text,
			Source:   domain.ChunkSourceUploaded,
			Position: i,
		}
	}
	return chunks, nil
}

// Split returns the chunk texts for a document, in document order.
// Every chunk is within [minWords, maxWords] except a short buffer that
// yields a single span, and the document tail.
func (p *Processor) Split(text string) []string {
	text = NormaliseWhitespace(text)
	if text == "" {
		return nil
	}

	var out []string
	for _, b := range splitHeadings(text) {
		out = append(out, p.coalesce(p.splitBuffer(b))...)
	}
	return out
}

// NormaliseWhitespace collapses runs of whitespace to single spaces.
func NormaliseWhitespace(text string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

// buffer is a structural span of the document.
type buffer struct {
	heading string // empty for text before the first heading
	body    string // text after the heading
}

func splitHeadings(text string) []buffer {
	locs := headingPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []buffer{{body: text}}
	}

	var out []buffer
	if pre := strings.TrimSpace(text[:locs[0][0]]); pre != "" {
		out = append(out, buffer{body: pre})
	}
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out = append(out, buffer{
			heading: text[loc[0]:loc[1]],
			body:    strings.TrimSpace(text[loc[1]:end]),
		})
	}
	return out
}

func (p *Processor) splitBuffer(b buffer) []string {
	markers := clausePattern.FindAllStringIndex(b.body, -1)
	if len(markers) == 0 {
		return p.window(strings.Fields(join(b.heading, b.body)))
	}

	// The lead (heading plus any text before the first clause) stands alone
	// only when it is long enough; otherwise it opens the first clause.
	lead := join(b.heading, strings.TrimSpace(b.body[:markers[0][0]]))
	var spans []string
	if wordCount(lead) >= p.minWords {
		spans = append(spans, lead)
		lead = ""
	}
	for i, m := range markers {
		end := len(b.body)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		clause := strings.TrimSpace(b.body[m[0]:end])
		if i == 0 && lead != "" {
			spans = append(spans, join(lead, clause))
			continue
		}
		spans = append(spans, join(b.heading, clause))
	}
	return spans
}

// window splits words into overlapping windows of targetWords advancing by half.
// Input shorter than one window is returned whole.
func (p *Processor) window(words []string) []string {
	if len(words) == 0 {
		return nil
	}
	if len(words) <= p.targetWords {
		return []string{strings.Join(words, " ")}
	}

	step := p.targetWords / 2
	var out []string
	for start := 0; ; start += step {
		end := min(start+p.targetWords, len(words))
		out = append(out, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return out
}

// coalesce enforces the word bounds on the spans of one buffer. Short spans
// are carried forward into the next span rather than dropped; a short tail
// folds back into the previous chunk when it fits. Oversized spans are
// re-windowed. Spans never merge across a heading.
func (p *Processor) coalesce(spans []string) []string {
	var out []string
	pending := ""

	for _, s := range spans {
		s = join(pending, s)
		pending = ""

		n := wordCount(s)
		switch {
		case n < p.minWords:
			pending = s
		case n > p.maxWords:
			out = append(out, p.window(strings.Fields(s))...)
		default:
			out = append(out, s)
		}
	}

	if pending != "" {
		if last := len(out) - 1; last >= 0 && wordCount(out[last])+wordCount(pending) <= p.maxWords {
			out[last] = join(out[last], pending)
		} else {
			out = append(out, pending)
		}
	}
	return out
}

func join(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
