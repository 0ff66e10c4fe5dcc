package mcp

import (
	"slices"
	"sync"

	"arcalog/src/contracts"
	"arcalog/src/events"
)

// recentBuilds is how many builds the server keeps grouped events for.
const recentBuilds = 32

// EventStore keeps the events of recently grouped builds for drill-down.
type EventStore interface {
	// Store replaces the events held for buildID.
	Store(buildID string, evs []contracts.Event)
	// Get returns the occurrences of one group of buildID.
	Get(buildID, groupID string) ([]contracts.Event, bool)
}

// InMemoryStore holds the groups of at most capacity builds. Storing one
// more evicts the build stored longest ago.
type InMemoryStore struct {
	mu       sync.Mutex
	capacity int
	order    []string
	byBuild  map[string]map[string][]contracts.Event
}

func NewInMemoryStore(capacity int) *InMemoryStore {
	return &InMemoryStore{
		capacity: max(1, capacity),
		byBuild:  make(map[string]map[string][]contracts.Event),
	}
}

func (s *InMemoryStore) Store(buildID string, evs []contracts.Event) {
	groups := make(map[string][]contracts.Event)
	for _, g := range events.GroupByFingerprint(evs) {
		groups[g.ID] = g.Events
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := slices.Index(s.order, buildID); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	s.order = append(s.order, buildID)
	s.byBuild[buildID] = groups

	for len(s.order) > s.capacity {
		delete(s.byBuild, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *InMemoryStore) Get(buildID, groupID string) ([]contracts.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evs, ok := s.byBuild[buildID][groupID]
	return evs, ok
}
