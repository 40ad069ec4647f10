package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var loadingTextStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// loadingIndicator is the centered placeholder shown while the list is
// resolved.
type loadingIndicator struct {
	spin spinner.Model
}

func newLoadingIndicator() loadingIndicator {
	return loadingIndicator{
		spin: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(ColorBlue)),
		),
	}
}

func (l loadingIndicator) Tick() tea.Cmd {
	return l.spin.Tick
}

// Update advances the animation. Ticks owned by another spinner return nil.
func (l *loadingIndicator) Update(msg spinner.TickMsg) tea.Cmd {
	var cmd tea.Cmd
	l.spin, cmd = l.spin.Update(msg)
	return cmd
}

func (l loadingIndicator) View(width, height int, label string) string {
	text := l.spin.View() + " " + loadingTextStyle.Render(label)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, text)
}
