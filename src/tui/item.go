package tui

import (
	"strings"

	"arcalog/src/events"
)

// Item is one event group in the list. It implements bubbles/list.Item.
type Item struct {
	Group events.Group
	Rank  int
}

// FilterValue is the value used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Group.Message }

// Title returns the primary text for the item (required by list.Item).
func (i Item) Title() string { return i.Group.Message }

// Description returns the file of the first occurrence.
func (i Item) Description() string {
	if len(i.Group.Events) == 0 {
		return ""
	}
	return i.Group.Events[0].File
}

// Count returns the number of occurrences.
func (i Item) Count() int { return i.Group.Count() }

// Sections returns the distinct top-level entries (first path segment) the
// group's events come from.
func (i Item) Sections() []string {
	seen := make(map[string]bool)
	var out []string
	for _, ev := range i.Group.Events {
		s := section(ev.File)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func section(file string) string {
	if i := strings.IndexByte(file, '/'); i >= 0 {
		return file[:i]
	}
	return file
}

// itemsFromGroups ranks groups in the order given.
func itemsFromGroups(groups []events.Group) []Item {
	items := make([]Item, len(groups))
	for i, g := range groups {
		items[i] = Item{Group: g, Rank: i + 1}
	}
	return items
}
