package mcp

import (
	"fmt"

	"arcalog/src/contracts"
	"arcalog/src/events"
	"arcalog/src/sanitize"
)

const (
	// DefaultGroupLimit is the number of groups returned when the caller
	// sets no limit.
	DefaultGroupLimit = 15

	// maxMessageLength bounds the representative line of a group.
	maxMessageLength = 200

	// maxFilesPerGroup bounds the file list of a group.
	maxFilesPerGroup = 5

	// maxTestsReported bounds get_test_failures; Total still counts all.
	maxTestsReported = 50

	// maxOutputLines bounds the output quoted per failed test.
	maxOutputLines = 10
)

// GroupEvents folds events with the same fingerprint into one group, most
// frequent first. limit <= 0 means DefaultGroupLimit; the number of dropped
// groups is returned.
func GroupEvents(evs []contracts.Event, limit int) ([]EventGroup, int) {
	if limit <= 0 {
		limit = DefaultGroupLimit
	}

	all := events.GroupByFingerprint(evs)
	omitted := 0
	if len(all) > limit {
		omitted = len(all) - limit
		all = all[:limit]
	}

	groups := make([]EventGroup, len(all))
	for i, g := range all {
		first := g.Events[0]
		groups[i] = EventGroup{
			ID:      g.ID,
			Message: truncate(g.Message, maxMessageLength),
			Count:   g.Count(),
			Files:   distinctFiles(g.Events, maxFilesPerGroup),
			First:   fmt.Sprintf("%s:%d", first.File, first.Line),
		}
	}
	return groups, omitted
}

func distinctFiles(evs []contracts.Event, max int) []string {
	seen := make(map[string]bool)
	var files []string
	for _, ev := range evs {
		if seen[ev.File] {
			continue
		}
		seen[ev.File] = true
		files = append(files, ev.File)
		if len(files) == max {
			break
		}
	}
	return files
}

// cleanEvents returns copies of evs with display-safe text. Fingerprints
// are kept, so grouping is unaffected.
func cleanEvents(evs []contracts.Event) []contracts.Event {
	out := make([]contracts.Event, len(evs))
	for i, ev := range evs {
		ev.Text = sanitize.Line(ev.Text)
		out[i] = ev
	}
	return out
}

func cleanLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = sanitize.Line(l)
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
