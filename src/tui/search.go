package tui

import "strings"

// applyFilter filters items by source section and search query.
func (m *MainModel) applyFilter() {
	filter := m.header.Filter()
	query := strings.ToLower(m.searchQuery)

	var filtered []Item
	for _, item := range m.items {
		if filter != AllSections && !contains(item.Sections(), filter) {
			continue
		}
		if query != "" && !matches(item, query) {
			continue
		}
		filtered = append(filtered, item)
	}

	m.groups.Show(filtered)
	if selectedItem, ok := m.groups.Selected(); ok {
		m.updateDetailContent(selectedItem)
	} else {
		m.detailViewport.SetContent("")
		m.detailFocused = false
	}
}

// matches searches the group message, id and every occurrence.
func matches(item Item, query string) bool {
	if strings.Contains(strings.ToLower(item.Group.Message), query) ||
		strings.HasPrefix(strings.ToLower(item.Group.ID), query) {
		return true
	}
	for _, ev := range item.Group.Events {
		if strings.Contains(strings.ToLower(ev.Text), query) ||
			strings.Contains(strings.ToLower(ev.File), query) {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
