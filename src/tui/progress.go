package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ProgressMsg updates the loading stage.
type ProgressMsg struct {
	Stage string
}

// ProgressModel shows a spinner and the current loading stage.
type ProgressModel struct {
	spinner spinner.Model
	stage   string
}

func NewProgressModel(styles *Palette) ProgressModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(styles.Highlight)
	return ProgressModel{spinner: s}
}

// Tick starts the spinner animation.
func (m ProgressModel) Tick() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) Update(msg tea.Msg) (ProgressModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.stage = msg.Stage
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ProgressModel) View() string {
	stage := m.stage
	if stage == "" {
		stage = "Loading"
	}
	return m.spinner.View() + " " + stage + "..."
}
