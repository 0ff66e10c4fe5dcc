package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// listChrome is the width bubbles/list padding and the panel border take.
const listChrome = 10

// columns holds the widths of the numeric table columns.
type columns struct {
	rank, hits, sources int
}

func (c columns) fixed() int {
	// Three " │ " separators.
	return c.rank + c.hits + c.sources + 9
}

func (c columns) row(rank, hits, sources, message string) string {
	return fmt.Sprintf("%*s │ %*s │ %*s │ %s", c.rank, rank, c.hits, hits, c.sources, sources, message)
}

// rowDelegate draws one event group per line.
type rowDelegate struct {
	cols    *columns
	palette *Palette
}

func (d rowDelegate) Height() int                         { return 1 }
func (d rowDelegate) Spacing() int                        { return 0 }
func (d rowDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d rowDelegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	item, ok := li.(Item)
	if !ok {
		return
	}

	var message string
	if room := m.Width() - d.cols.fixed() - listChrome; room > 0 {
		message = TruncateAndPad(CleanLogText(item.Group.Message), room, true)
	}
	line := d.cols.row(fmt.Sprint(item.Rank), fmt.Sprint(item.Count()), fmt.Sprint(len(item.Sections())), message)

	style := lipgloss.NewStyle().Foreground(d.palette.Muted)
	if index == m.Index() {
		style = style.Bold(true).Foreground(d.palette.Title).Background(d.palette.Selection)
	}
	fmt.Fprint(w, style.Render(line))
}

// groupList is the left-hand table of event groups.
type groupList struct {
	model   list.Model
	cols    *columns
	palette *Palette
}

func newGroupList(palette *Palette) groupList {
	cols := &columns{rank: 2, hits: 4, sources: 3}
	l := list.New(nil, rowDelegate{cols: cols, palette: palette}, 0, 0)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	return groupList{model: l, cols: cols, palette: palette}
}

func (g groupList) Update(msg tea.Msg) (groupList, tea.Cmd) {
	var cmd tea.Cmd
	g.model, cmd = g.model.Update(msg)
	return g, cmd
}

func (g *groupList) SetSize(width, height int) {
	g.model.SetSize(width, height)
}

// Show replaces the rows, resizes the columns to fit them and selects the
// first row.
func (g *groupList) Show(items []Item) {
	*g.cols = columns{rank: 2, hits: 4, sources: 3}
	rows := make([]list.Item, len(items))
	for i, it := range items {
		g.cols.rank = max(g.cols.rank, len(fmt.Sprint(it.Rank)))
		g.cols.hits = max(g.cols.hits, len(fmt.Sprint(it.Count())))
		g.cols.sources = max(g.cols.sources, len(fmt.Sprint(len(it.Sections()))))
		rows[i] = it
	}
	g.model.SetItems(rows)
	g.model.ResetSelected()
}

func (g groupList) Len() int {
	return len(g.model.Items())
}

// Selected returns the highlighted group, if any row is shown.
func (g groupList) Selected() (Item, bool) {
	item, ok := g.model.SelectedItem().(Item)
	return item, ok
}

// Panel renders the column titles above the bordered table.
func (g groupList) Panel(width, height int, focused bool) string {
	titles := lipgloss.NewStyle().
		Foreground(g.palette.Title).
		Bold(true).
		Width(width-2).
		Padding(0, 1).
		Render(Truncate(g.cols.row("#", "Hits", "Src", "Message"), width-4, true))

	table := g.palette.Panel(focused).
		Width(width - 2).
		Height(height).
		Render(g.model.View())

	return lipgloss.JoinVertical(lipgloss.Left, titles, table)
}
