// Package store defines the secondary build index. Snapshot files stay the
// source of truth; a store lets lookups skip the scan over every generation.
package store

import (
	"context"

	"arcalog/src/contracts"
	"arcalog/src/provider"
)

// Store persists build records extracted from snapshot generations.
type Store interface {
	// RecordBuilds stores the records of one generation. A record only
	// replaces an existing one of the same build and state when its
	// generation is not older.
	RecordBuilds(ctx context.Context, generationID string, records []contracts.BuildRecord) error

	// FindBuild returns the record for buildID. A failure record wins over a
	// success record; otherwise the newest generation wins. Unknown builds
	// yield *provider.NotFoundError.
	FindBuild(ctx context.Context, buildID string) (*contracts.BuildRecord, error)

	Close() error
}

// lookupOrder is the order in which states answer a lookup.
var lookupOrder = []string{contracts.StateFailure, contracts.StateSuccess}

func checkBuildID(buildID string) error {
	if buildID == "" {
		return &provider.InputError{Field: "build_id", Err: provider.ErrEmptyBuildID}
	}
	return nil
}

// stamped fills in the generation of records that do not carry one.
func stamped(r contracts.BuildRecord, generationID string) contracts.BuildRecord {
	if r.Generation == "" {
		r.Generation = generationID
	}
	return r
}
