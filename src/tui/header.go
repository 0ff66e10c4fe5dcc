package tui

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/lipgloss"

	"arcalog/src/contracts"
)

// AllSections is the filter value that shows every group.
const AllSections = "ALL"

// Header is the status bar: build identity, source filter and search state.
type Header struct {
	info     *contracts.BuildInfo
	palette  *Palette
	sections []string
	filter   string

	query     string
	searching bool
}

func NewHeader(info *contracts.BuildInfo, palette *Palette) Header {
	return Header{info: info, palette: palette, filter: AllSections}
}

// SetSections sets the values the filter cycles through and clears it.
func (h *Header) SetSections(sections []string) {
	h.sections = sections
	h.filter = AllSections
}

func (h Header) Filter() string {
	return h.filter
}

// NextFilter advances the filter, wrapping back to AllSections.
func (h *Header) NextFilter() {
	cycle := append([]string{AllSections}, h.sections...)
	i := slices.Index(cycle, h.filter)
	h.filter = cycle[(i+1)%len(cycle)]
}

func (h *Header) SetSearch(query string, active bool) {
	h.query = query
	h.searching = active
}

func (h Header) searchLabel() string {
	switch {
	case h.searching:
		return fmt.Sprintf("Search: %s█", h.query)
	case h.query != "":
		return fmt.Sprintf("Search: %s", h.query)
	}
	return "[/] to search"
}

func (h Header) Render(width int) string {
	pad := func(n int) lipgloss.Style { return lipgloss.NewStyle().Padding(0, n) }
	title := h.palette.Heading().Padding(0, 2)

	search := pad(2).Foreground(h.palette.Muted)
	if h.searching {
		search = search.Foreground(h.palette.Title)
	}

	segments := []string{
		title.Render("Build " + h.info.BuildID),
		pad(1).Render(h.palette.State(h.info.State).Render(h.info.State)),
		pad(1).Foreground(h.palette.Text).Render(h.info.JobType),
		title.Render("Source: " + h.filter),
		search.Render(h.searchLabel()),
	}

	return lipgloss.NewStyle().
		Background(h.palette.Bar).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(h.palette.Border).
		Width(width).
		MaxWidth(width).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, segments...))
}
