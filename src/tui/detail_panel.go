package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderDetail lists every occurrence of a group with its location.
func (m MainModel) renderDetail(item Item, maxWidth int) string {
	var content strings.Builder

	header := m.styles.Heading().Render(fmt.Sprintf("Group %s | %d occurrences", Truncate(item.Group.ID, 12, false), item.Count()))
	fmt.Fprintf(&content, "%s\n\n", header)

	locStyle := lipgloss.NewStyle().Foreground(m.styles.Muted).Faint(true)
	textStyle := lipgloss.NewStyle().Foreground(m.styles.Highlight)

	for _, ev := range item.Group.Events {
		fmt.Fprintln(&content, locStyle.Render(fmt.Sprintf("%s:%d", ev.File, ev.Line)))
		// Wrap before styling so widths are measured on plain text.
		fmt.Fprintln(&content, textStyle.Render(Wrap(CleanLogText(ev.Text), maxWidth)))
		fmt.Fprintln(&content)
	}

	return content.String()
}

// updateDetailContent updates the viewport with content from the selected item
func (m *MainModel) updateDetailContent(item Item) {
	maxWidth := max(1, m.detailViewport.Width-2)
	m.detailViewport.SetContent(m.renderDetail(item, maxWidth))
	m.detailViewport.GotoTop()
}

// renderDetailPanel renders the right panel with detail viewport
func (m MainModel) renderDetailPanel(width, height int) string {
	selected, ok := m.groups.Selected()
	if !ok {
		placeholder := lipgloss.NewStyle().Padding(0, 1).Render(" ")
		empty := m.styles.Panel(false).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(m.styles.Muted).
			Faint(true).
			Render("No group matches the filter")
		return lipgloss.JoinVertical(lipgloss.Left, placeholder, empty)
	}

	headerRow := m.styles.Heading().Padding(0, 1).Render(Truncate(fmt.Sprintf("Files: %s", strings.Join(selected.Sections(), ", ")), width-2, true))

	panel := m.styles.Panel(m.detailFocused).
		Width(width).
		Height(height).
		Render(m.detailViewport.View())

	return lipgloss.JoinVertical(lipgloss.Left, headerRow, panel)
}
