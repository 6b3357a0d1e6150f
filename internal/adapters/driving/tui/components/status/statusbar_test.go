package status

import (
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clausewise/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/clausewise/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/clausewise/internal/core/domain"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 80, bar.Width())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestStatusBar_Init(t *testing.T) {
	assert.Nil(t, NewBar(nil, nil).Init())
}

func TestStatusBar_SetStateAskingStartsSpinner(t *testing.T) {
	bar := NewBar(nil, nil)

	cmd := bar.SetState(StateAsking)

	assert.NotNil(t, cmd)
	assert.Equal(t, StateAsking, bar.State())
	assert.Nil(t, bar.SetState(StateAnswered))
}

func TestStatusBar_UpdateIgnoresTicksWhenIdle(t *testing.T) {
	bar := NewBar(nil, nil)

	updated, cmd := bar.Update(spinner.TickMsg{})

	assert.Equal(t, bar, updated)
	assert.Nil(t, cmd)
}

func TestStatusBar_UpdateIgnoresKeys(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateAsking)

	updated, cmd := bar.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, bar, updated)
	assert.Nil(t, cmd)
}

func TestStatusBar_View(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*Bar)
		expect string
	}{
		{"ready", func(*Bar) {}, "Ready"},
		{"asking", func(b *Bar) { b.SetState(StateAsking) }, "Thinking..."},
		{"error with message", func(b *Bar) {
			b.SetState(StateError)
			b.SetMessage("generation unavailable")
		}, "Error: generation unavailable"},
		{"error without message", func(b *Bar) { b.SetState(StateError) }, "Error"},
		{"answered message", func(b *Bar) {
			b.SetState(StateAnswered)
			b.SetMessage("Answered in 12ms")
		}, "Answered in 12ms"},
		{"index status", func(b *Bar) {
			b.SetIndexStatus(&domain.IndexStatus{TotalChunks: 12, CuratedChunks: 8, Document: "lease.pdf"})
		}, "lease.pdf | 12 chunks (8 curated)"},
		{"index without document", func(b *Bar) {
			b.SetIndexStatus(&domain.IndexStatus{TotalChunks: 8, CuratedChunks: 8})
		}, "no document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(160)
			tt.setup(bar)

			view := bar.View()

			assert.Contains(t, view, tt.expect)
			assert.Contains(t, view, "enter: ask")
		})
	}
}

func TestStatusBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("boom")

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
}
