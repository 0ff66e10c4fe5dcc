package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// panelDimensions holds calculated layout dimensions
type panelDimensions struct {
	availableHeight int
	leftPanelWidth  int
	rightPanelWidth int
}

// calculateDimensions computes panel sizes based on terminal dimensions.
func (m MainModel) calculateDimensions() panelDimensions {
	headerHeight := lipgloss.Height(m.header.Render(m.width))
	// header + help line + panel column header row + panel borders
	availableHeight := max(1, m.height-headerHeight-1-1-2)

	// Group list 45% | occurrences 55%
	leftPanelWidth := int(float64(m.width) * 0.45)

	return panelDimensions{
		availableHeight: availableHeight,
		leftPanelWidth:  leftPanelWidth,
		rightPanelWidth: m.width - leftPanelWidth,
	}
}

// View renders the complete TUI layout
func (m MainModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	header := m.header.Render(m.width)

	var body string
	switch {
	case m.status == StatusError:
		body = lipgloss.NewStyle().
			Foreground(m.styles.Failure).
			Width(m.width).
			Align(lipgloss.Center).
			PaddingTop(2).
			Render(fmt.Sprintf("Failed to load events: %v", m.err))

	case m.status == StatusLoading && len(m.items) == 0:
		body = lipgloss.NewStyle().
			Width(m.width).
			Align(lipgloss.Center).
			PaddingTop(2).
			Render(m.progress.View())

	case len(m.items) == 0:
		body = lipgloss.NewStyle().
			Foreground(m.styles.Muted).
			Width(m.width).
			Align(lipgloss.Center).
			PaddingTop(2).
			Render("No failure events in this build's artifacts")

	default:
		dims := m.calculateDimensions()
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			m.groups.Panel(dims.leftPanelWidth, dims.availableHeight, !m.detailFocused),
			m.renderDetailPanel(dims.rightPanelWidth, dims.availableHeight))
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderHelpText())
}

// renderHelpText renders context-aware help text at the bottom
func (m MainModel) renderHelpText() string {
	keyStyle := m.styles.Heading()
	sep := lipgloss.NewStyle().Foreground(m.styles.Muted).Render("•")

	var helpText string
	switch {
	case m.searchMode:
		helpText = fmt.Sprintf("%s: Apply %s %s: Cancel",
			keyStyle.Render("Enter"), sep, keyStyle.Render("Esc"))
	case m.detailFocused:
		helpText = fmt.Sprintf("%s: Scroll %s %s: Back %s %s: Quit",
			keyStyle.Render("j/k"), sep,
			keyStyle.Render("Esc"), sep,
			keyStyle.Render("q"))
	default:
		helpText = fmt.Sprintf("%s: Nav %s %s: View %s %s: Source %s %s: Search %s %s: Reload %s %s: Quit  (%d events, %d groups)",
			keyStyle.Render("j/k"), sep,
			keyStyle.Render("Enter"), sep,
			keyStyle.Render("Tab"), sep,
			keyStyle.Render("/"), sep,
			keyStyle.Render("r"), sep,
			keyStyle.Render("q"),
			m.total, len(m.items))
	}

	return m.styles.Help().Render(helpText)
}

// resizeComponents handles window resize events
func (m *MainModel) resizeComponents() {
	dims := m.calculateDimensions()

	m.groups.SetSize(dims.leftPanelWidth-2, dims.availableHeight)

	// Borders and the column header row.
	m.detailViewport.Width = max(1, dims.rightPanelWidth-2)
	m.detailViewport.Height = max(1, dims.availableHeight-1)

	if selectedItem, ok := m.groups.Selected(); ok {
		m.updateDetailContent(selectedItem)
	}
}
