// Package tui is a terminal viewer for the failure events of one build.
package tui

import (
	"context"
	"sort"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"arcalog/src/contracts"
	"arcalog/src/events"
)

// Status is the loading state of the viewer.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusError
)

// Loader returns the events of the build being viewed. It may mirror the
// build's artifacts first, so it can be slow.
type Loader func(ctx context.Context) ([]contracts.Event, error)

// EventsLoadedMsg carries the result of a Loader call.
type EventsLoadedMsg struct {
	Events []contracts.Event
	Err    error
}

// MainModel is the Bubble Tea model of the event viewer: a header, the
// list of event groups on the left and the occurrences of the selected
// group on the right.
type MainModel struct {
	ctx    context.Context
	load   Loader
	styles *Palette

	header         Header
	groups         groupList
	detailViewport viewport.Model
	progress       ProgressModel

	items  []Item
	total  int
	status Status
	err    error

	searchQuery   string
	searchMode    bool
	detailFocused bool

	width, height int
	ready         bool
}

// NewMainModel creates the viewer for info; events are fetched with load.
func NewMainModel(ctx context.Context, info *contracts.BuildInfo, load Loader) MainModel {
	styles := DefaultPalette()
	return MainModel{
		ctx:            ctx,
		load:           load,
		styles:         styles,
		header:         NewHeader(info, styles),
		groups:         newGroupList(styles),
		detailViewport: viewport.New(0, 0),
		progress:       NewProgressModel(styles),
		status:         StatusLoading,
	}
}

// Init starts the spinner and the first load.
func (m MainModel) Init() tea.Cmd {
	return tea.Batch(m.progress.Tick(), m.loadCmd())
}

func (m MainModel) loadCmd() tea.Cmd {
	ctx, load := m.ctx, m.load
	return func() tea.Msg {
		evs, err := load(ctx)
		return EventsLoadedMsg{Events: evs, Err: err}
	}
}

// Update handles messages and updates the model state.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.resizeComponents()
		return m, nil

	case EventsLoadedMsg:
		m.setEvents(msg.Events, msg.Err)
		return m, nil

	case tea.KeyMsg:
		if m.searchMode {
			return m.updateSearch(msg), nil
		}
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.progress, cmd = m.progress.Update(msg)
	return m, cmd
}

func (m *MainModel) setEvents(evs []contracts.Event, err error) {
	if err != nil {
		m.status, m.err = StatusError, err
		return
	}

	m.status, m.err = StatusReady, nil
	m.total = len(evs)
	m.items = itemsFromGroups(events.GroupByFingerprint(evs))

	seen := make(map[string]bool)
	var sections []string
	for _, item := range m.items {
		for _, s := range item.Sections() {
			if !seen[s] {
				seen[s] = true
				sections = append(sections, s)
			}
		}
	}
	sort.Strings(sections)
	m.header.SetSections(sections)

	m.applyFilter()
}

func (m MainModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "r":
		if m.status == StatusLoading {
			return m, nil
		}
		m.status = StatusLoading
		m.progress, _ = m.progress.Update(ProgressMsg{Stage: "Reloading"})
		return m, tea.Batch(m.progress.Tick(), m.loadCmd())

	case "/":
		m.searchMode = true
		m.header.SetSearch(m.searchQuery, true)
		return m, nil

	case "tab":
		m.header.NextFilter()
		m.applyFilter()
		return m, nil

	case "enter":
		if m.groups.Len() > 0 {
			m.detailFocused = true
		}
		return m, nil

	case "esc":
		if m.detailFocused {
			m.detailFocused = false
		} else if m.searchQuery != "" {
			m.searchQuery = ""
			m.header.SetSearch("", false)
			m.applyFilter()
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.detailFocused {
		m.detailViewport, cmd = m.detailViewport.Update(msg)
		return m, cmd
	}

	before, _ := m.groups.Selected()
	m.groups, cmd = m.groups.Update(msg)
	if after, ok := m.groups.Selected(); ok && after.Group.ID != before.Group.ID {
		m.updateDetailContent(after)
	}
	return m, cmd
}

func (m MainModel) updateSearch(msg tea.KeyMsg) MainModel {
	switch msg.Type {
	case tea.KeyEnter:
		m.searchMode = false
	case tea.KeyEsc:
		m.searchMode = false
		m.searchQuery = ""
	case tea.KeyBackspace:
		if r := []rune(m.searchQuery); len(r) > 0 {
			m.searchQuery = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.searchQuery += " "
	case tea.KeyRunes:
		m.searchQuery += string(msg.Runes)
	default:
		return m
	}

	m.header.SetSearch(m.searchQuery, m.searchMode)
	m.applyFilter()
	return m
}

// Run shows the viewer until the user quits or ctx is done.
func Run(ctx context.Context, info *contracts.BuildInfo, load Loader) error {
	p := tea.NewProgram(NewMainModel(ctx, info, load), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
