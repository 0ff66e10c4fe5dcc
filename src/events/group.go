package events

import (
	"sort"

	"arcalog/src/contracts"
)

// Group is every occurrence of one normalized line.
type Group struct {
	ID string
	// Message is the display form of the first occurrence.
	Message string
	Events  []contracts.Event
}

// Count returns the number of occurrences.
func (g Group) Count() int { return len(g.Events) }

// GroupByFingerprint folds events with the same fingerprint, most frequent
// group first and ties in order of first appearance. Events without a
// fingerprint are fingerprinted here.
func GroupByFingerprint(evs []contracts.Event) []Group {
	index := make(map[string]int)
	var groups []Group

	for _, ev := range evs {
		id := ev.Fingerprint
		if id == "" {
			id = Fingerprint(ev.Text)
		}
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, Group{ID: id, Message: Display(ev.Text)})
		}
		groups[i].Events = append(groups[i].Events, ev)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Events) > len(groups[j].Events)
	})
	return groups
}
