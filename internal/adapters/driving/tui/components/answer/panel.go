// Package answer provides the scrollable answer panel for the TUI.
package answer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/clausewise/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/clausewise/internal/core/domain"
)

// Panel renders the latest answer with its source, confidence, clause
// reference and colour-coded risk.
type Panel struct {
	styles     *styles.Styles
	viewport   viewport.Model
	question   string
	answer     *domain.ResolvedAnswer
	err        error
	showClause bool
	width      int
}

// NewPanel creates an empty answer panel.
func NewPanel(s *styles.Styles) *Panel {
	if s == nil {
		s = styles.DefaultStyles()
	}
	vp := viewport.New(78, 12)
	// Scrolling is driven by the app so that typing never moves the panel.
	vp.KeyMap = viewport.KeyMap{}
	p := &Panel{styles: s, viewport: vp, width: 78}
	p.refresh()
	return p
}

// SetAnswer shows a resolved answer.
func (p *Panel) SetAnswer(question string, answer *domain.ResolvedAnswer) {
	p.question, p.answer, p.err = question, answer, nil
	p.refresh()
	p.viewport.GotoTop()
}

// SetError shows a failure in place of an answer.
func (p *Panel) SetError(question string, err error) {
	p.question, p.answer, p.err = question, nil, err
	p.refresh()
	p.viewport.GotoTop()
}

// ToggleClause shows or hides the supporting clause text.
func (p *Panel) ToggleClause() {
	p.showClause = !p.showClause
	p.refresh()
}

// ShowClause reports whether the clause text is shown.
func (p *Panel) ShowClause() bool {
	return p.showClause
}

// Clear empties the panel.
func (p *Panel) Clear() {
	p.question, p.answer, p.err = "", nil, nil
	p.refresh()
}

// Answer returns the answer on display, if any.
func (p *Panel) Answer() *domain.ResolvedAnswer {
	return p.answer
}

// ScrollUp moves half a page up.
func (p *Panel) ScrollUp() {
	p.viewport.SetYOffset(p.viewport.YOffset - max(p.viewport.Height/2, 1))
}

// ScrollDown moves half a page down.
func (p *Panel) ScrollDown() {
	p.viewport.SetYOffset(p.viewport.YOffset + max(p.viewport.Height/2, 1))
}

// SetSize sets the outer dimensions of the panel.
func (p *Panel) SetSize(width, height int) {
	frameW, frameH := p.styles.Panel.GetFrameSize()
	p.width = max(width-frameW, 20)
	p.viewport.Width = p.width
	p.viewport.Height = max(height-frameH, 3)
	p.refresh()
}

// View renders the panel.
func (p *Panel) View() string {
	return p.styles.Panel.Render(p.viewport.View())
}

// Content returns the unscrolled panel text.
func (p *Panel) Content() string {
	return p.render()
}

func (p *Panel) refresh() {
	p.viewport.SetContent(p.render())
}

func (p *Panel) render() string {
	s := p.styles
	wrap := lipgloss.NewStyle().Width(p.width)

	if p.answer == nil && p.err == nil {
		return s.Muted.Render("Upload a document with 'clausewise upload', then ask a question below.")
	}

	var b strings.Builder
	b.WriteString(s.Label.Render("Q: ") + s.Normal.Render(p.question) + "\n\n")

	if p.err != nil {
		msg := p.err.Error()
		if errors.Is(p.err, domain.ErrGenerationUnavailable) {
			msg = "No language model could answer. Check that Ollama is running or configure a remote model."
		}
		b.WriteString(s.Error.Render(wrap.Render(msg)))
		return b.String()
	}

	a := p.answer
	b.WriteString(wrap.Render(a.Answer) + "\n\n")
	b.WriteString(field(s, "Source", a.AnswerSource.Description()))
	b.WriteString(field(s, "Confidence", fmt.Sprintf("%.0f%%", a.Confidence*100)))
	if a.HasClauseReference() {
		b.WriteString(field(s, "Reference", a.ClauseReference))
	}
	risk := s.Risk(a.Risk.Level).Render(a.Risk.Level.String())
	if a.Risk.Reason != "" {
		risk += " " + s.Muted.Render(a.Risk.Reason)
	}
	b.WriteString(s.Label.Render("Risk: ") + risk + "\n")

	if p.showClause && a.Clause != "" {
		b.WriteString("\n" + s.Label.Render("Clause") + "\n")
		b.WriteString(s.Muted.Render(wrap.Render(a.Clause)) + "\n")
	}
	return b.String()
}

func field(s *styles.Styles, label, value string) string {
	return s.Label.Render(label+": ") + s.Normal.Render(value) + "\n"
}
