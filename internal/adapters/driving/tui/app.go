package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/clausewise/internal/adapters/driving/tui/components/answer"
	"github.com/custodia-labs/clausewise/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/clausewise/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/clausewise/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/clausewise/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/clausewise/internal/adapters/driving/tui/styles"
)

// App is the TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	input     *input.QuestionInput
	panel     *answer.Panel
	statusbar *status.Bar

	// asking is true while a question is in flight; further questions wait.
	asking  bool
	started time.Time

	err    error
	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:     ports,
		ctx:       context.Background(),
		styles:    s,
		keymap:    km,
		input:     input.NewQuestionInput(s),
		panel:     answer.NewPanel(s),
		statusbar: status.NewBar(s, km),
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("clausewise"),
		a.input.Init(),
		a.loadStatus(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.AnswerReceived:
		a.asking = false
		elapsed := time.Since(a.started).Round(time.Millisecond)
		if msg.Err != nil {
			a.err = msg.Err
			a.panel.SetError(msg.Question, msg.Err)
			a.statusbar.SetState(status.StateError)
			a.statusbar.SetMessage(msg.Err.Error())
		} else {
			a.err = nil
			a.panel.SetAnswer(msg.Question, msg.Answer)
			a.statusbar.SetState(status.StateAnswered)
			a.statusbar.SetMessage(fmt.Sprintf("Answered in %s", elapsed))
		}
		return a, a.input.Focus()

	case messages.StatusLoaded:
		if msg.Err == nil {
			a.statusbar.SetIndexStatus(msg.Status)
		}
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		a.statusbar.SetState(status.StateError)
		a.statusbar.SetMessage(msg.Err.Error())
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.statusbar, cmd = a.statusbar.Update(msg)
	cmds = append(cmds, cmd)
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, a.keymap.Quit):
		return a, tea.Quit

	case keymap.Matches(k, a.keymap.Ask):
		question := a.input.Value()
		if question == "" || a.asking {
			return a, nil
		}
		a.asking = true
		a.started = time.Now()
		a.input.Reset()
		a.input.Blur()
		a.statusbar.SetMessage("")
		return a, tea.Batch(a.statusbar.SetState(status.StateAsking), a.ask(question))

	case keymap.Matches(k, a.keymap.Clear):
		a.input.Reset()
		a.panel.Clear()
		a.statusbar.Clear()
		a.err = nil
		return a, nil

	case keymap.Matches(k, a.keymap.ScrollUp):
		a.panel.ScrollUp()
		return a, nil

	case keymap.Matches(k, a.keymap.ScrollDown):
		a.panel.ScrollDown()
		return a, nil

	case keymap.Matches(k, a.keymap.ToggleClause):
		a.panel.ToggleClause()
		return a, nil
	}

	if a.asking {
		return a, nil
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// ask resolves a question off the event loop.
func (a *App) ask(question string) tea.Cmd {
	return func() tea.Msg {
		resolved, err := a.ports.Legal.Ask(a.ctx, question)
		return messages.AnswerReceived{Question: question, Answer: resolved, Err: err}
	}
}

// loadStatus fetches the index summary for the status line.
func (a *App) loadStatus() tea.Cmd {
	if a.ports.Index == nil {
		return nil
	}
	return func() tea.Msg {
		st, err := a.ports.Index.Status(a.ctx)
		return messages.StatusLoaded{Status: st, Err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	header := a.styles.Title.Render("clausewise") + a.styles.Muted.Render("  legal document Q&A")
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		a.panel.View(),
		a.input.View(),
		a.statusbar.View(),
	)
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Asking reports whether a question is in flight.
func (a *App) Asking() bool {
	return a.asking
}

// Panel returns the answer panel.
func (a *App) Panel() *answer.Panel {
	return a.panel
}

// Ready returns whether the app has been sized.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions lays the screen out for a terminal size.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	// Header, input box and status line take six rows.
	a.panel.SetSize(width, max(height-6, 5))
	a.input.SetWidth(width)
	a.statusbar.SetWidth(width)
}
