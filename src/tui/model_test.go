package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"arcalog/src/contracts"
	"arcalog/src/events"
)

var testInfo = &contracts.BuildInfo{BuildID: "b1", State: "failure", JobType: "jobA", Label: "unknown"}

var testEvents = []contracts.Event{
	ev("build-log.txt", 3, "error: exit status 1"),
	ev("artifacts/e2e/pod.log", 10, "error: dial tcp 10.0.0.1:443: i/o timeout"),
	ev("artifacts/e2e/pod.log", 12, "error: dial tcp 10.0.0.2:443: i/o timeout"),
	ev("artifacts/gather/events.log", 1, "error: node not ready"),
}

func ev(file string, line int, text string) contracts.Event {
	return contracts.Event{BuildID: "b1", File: file, Line: line, Text: text, Fingerprint: events.Fingerprint(text)}
}

func loaded(t *testing.T) MainModel {
	t.Helper()
	m := NewMainModel(context.Background(), testInfo, nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	next, _ = next.Update(EventsLoadedMsg{Events: testEvents})
	return next.(MainModel)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m MainModel, keys ...string) MainModel {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(MainModel)
	}
	return m
}

func TestMainModel_LoadsAndGroups(t *testing.T) {
	m := loaded(t)

	if m.status != StatusReady || m.total != 4 || len(m.items) != 3 {
		t.Fatalf("status=%v total=%d items=%d", m.status, m.total, len(m.items))
	}

	first, ok := m.groups.Selected()
	if !ok || first.Count() != 2 || first.Rank != 1 {
		t.Errorf("unexpected first item %+v", first)
	}

	view := ansi.Strip(m.View())
	for _, want := range []string{"Build b1", "failure", "jobA", "Source: ALL", "4 events, 3 groups", "artifacts/e2e/pod.log:10"} {
		if !strings.Contains(view, want) {
			t.Errorf("view does not contain %q", want)
		}
	}
}

func TestMainModel_InitRunsLoader(t *testing.T) {
	calls := 0
	m := NewMainModel(context.Background(), testInfo, func(ctx context.Context) ([]contracts.Event, error) {
		calls++
		return testEvents, nil
	})

	msg := m.loadCmd()()
	loadedMsg, ok := msg.(EventsLoadedMsg)
	if !ok || calls != 1 || len(loadedMsg.Events) != 4 {
		t.Errorf("loadCmd produced %T after %d calls", msg, calls)
	}
	if m.Init() == nil {
		t.Error("Init() returned no command")
	}
}

func TestMainModel_LoadError(t *testing.T) {
	m := NewMainModel(context.Background(), testInfo, nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	next, _ = next.Update(EventsLoadedMsg{Err: errors.New("listing unavailable")})
	m = next.(MainModel)

	if m.status != StatusError {
		t.Fatalf("status = %v, want StatusError", m.status)
	}
	if view := ansi.Strip(m.View()); !strings.Contains(view, "listing unavailable") {
		t.Errorf("error not shown: %s", view)
	}
}

func TestMainModel_SectionFilter(t *testing.T) {
	m := loaded(t)

	if diff := strings.Join(m.header.sections, ","); diff != "artifacts,build-log.txt" {
		t.Fatalf("sections = %q", diff)
	}

	m = press(m, "tab")
	if m.header.Filter() != "artifacts" || m.groups.Len() != 2 {
		t.Errorf("filter %q shows %d groups, want artifacts and 2", m.header.Filter(), m.groups.Len())
	}

	m = press(m, "tab")
	if m.header.Filter() != "build-log.txt" || m.groups.Len() != 1 {
		t.Errorf("filter %q shows %d groups, want build-log.txt and 1", m.header.Filter(), m.groups.Len())
	}

	m = press(m, "tab")
	if m.header.Filter() != AllSections || m.groups.Len() != 3 {
		t.Errorf("filter did not cycle back to ALL")
	}
}

func TestMainModel_Search(t *testing.T) {
	m := loaded(t)

	m = press(m, "/", "n", "o", "d", "e")
	if !m.searchMode || m.searchQuery != "node" || m.groups.Len() != 1 {
		t.Fatalf("searchMode=%v query=%q shown=%d", m.searchMode, m.searchQuery, m.groups.Len())
	}

	m = press(m, "enter")
	if m.searchMode || m.searchQuery != "node" {
		t.Error("enter did not apply the search")
	}

	m = press(m, "esc")
	if m.searchQuery != "" || m.groups.Len() != 3 {
		t.Error("esc did not clear the search")
	}

	m = press(m, "/", "z", "z", "backspace", "backspace", "esc")
	if m.searchMode || m.groups.Len() != 3 {
		t.Error("cancelled search left a filter behind")
	}
}

func TestMainModel_NoMatchesClearsDetail(t *testing.T) {
	m := loaded(t)

	m = press(m, "enter")
	if !m.detailFocused {
		t.Fatal("enter did not focus the detail panel")
	}
	m = press(m, "esc", "/", "x", "y", "z", "enter")

	if m.groups.Len() != 0 || m.detailFocused {
		t.Errorf("shown=%d detailFocused=%v", m.groups.Len(), m.detailFocused)
	}
	if view := ansi.Strip(m.View()); !strings.Contains(view, "No group matches the filter") {
		t.Error("empty state not rendered")
	}
}

func TestMainModel_Quit(t *testing.T) {
	m := loaded(t)

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestMainModel_NoEvents(t *testing.T) {
	m := NewMainModel(context.Background(), testInfo, nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	next, _ = next.Update(EventsLoadedMsg{Events: []contracts.Event{}})

	if view := ansi.Strip(next.(MainModel).View()); !strings.Contains(view, "No failure events") {
		t.Errorf("empty build not reported: %s", view)
	}
}
