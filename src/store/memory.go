package store

import (
	"context"
	"sync"

	"arcalog/src/contracts"
	"arcalog/src/provider"
)

type recordKey struct{ build, state string }

// MemoryStore keeps the index in process. It stands in for PostgresStore
// where no database is available.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]contracts.BuildRecord
	builds  map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[recordKey]contracts.BuildRecord),
		builds:  make(map[string]struct{}),
	}
}

func (s *MemoryStore) RecordBuilds(_ context.Context, generationID string, records []contracts.BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		r = stamped(r, generationID)
		key := recordKey{r.BuildID, r.State}
		if old, ok := s.records[key]; ok && old.Generation > r.Generation {
			continue
		}
		s.records[key] = r
		s.builds[r.BuildID] = struct{}{}
	}
	return nil
}

// FindBuild returns a copy of the preferred record for buildID.
func (s *MemoryStore) FindBuild(_ context.Context, buildID string) (*contracts.BuildRecord, error) {
	if err := checkBuildID(buildID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, state := range lookupOrder {
		if r, ok := s.records[recordKey{buildID, state}]; ok {
			return &r, nil
		}
	}
	return nil, &provider.NotFoundError{BuildID: buildID}
}

// Len is the number of distinct builds indexed.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.builds)
}

func (s *MemoryStore) Close() error { return nil }
