// Package snapshot persists job-list snapshots and their derived indices as
// immutable, timestamped JSON files, and looks builds up across them.
package snapshot

import (
	"encoding/json"
	"fmt"

	"arcalog/src/contracts"
)

// BuildEntry is the value of a build index: where a build's results live and
// which job produced it. It is encoded as the JSON pair [url, job_type].
type BuildEntry struct {
	URL     string
	JobType string
}

// MarshalJSON encodes the entry as [url, job_type].
func (e BuildEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{e.URL, e.JobType})
}

// UnmarshalJSON decodes a [url, job_type] pair.
func (e *BuildEntry) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("failed to decode build entry: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("build entry has %d elements, want 2", len(pair))
	}
	e.URL, e.JobType = pair[0], pair[1]
	return nil
}

// BuildIndex maps build ids to their entry.
type BuildIndex map[string]BuildEntry

// TypeIndex maps job types to the build ids seen for them.
type TypeIndex map[string][]string

// Indices are the three maps derived from one job list.
type Indices struct {
	Failures  BuildIndex
	Successes BuildIndex
	Types     TypeIndex

	// Rejected holds build ids that cannot name an artifact directory.
	// Their records appear in no index.
	Rejected []string
}

// BuildIndices classifies records in one pass. A record lands in the failure
// index or the success index depending on its state, and every record lands
// in the type index. Other states (pending, aborted, unset) appear only in the
// type index. A record without a build id cannot be looked up, so it is
// recorded under its job type only.
func BuildIndices(records []contracts.JobRecord) Indices {
	idx := Indices{
		Failures:  BuildIndex{},
		Successes: BuildIndex{},
		Types:     TypeIndex{},
	}
	seen := make(map[string]map[string]bool)

	for _, record := range records {
		id := record.BuildID()
		if id != "" {
			if err := CheckBuildID(id); err != nil {
				idx.Rejected = append(idx.Rejected, id)
				continue
			}
		}
		jobType := record.JobType()

		if id != "" {
			entry := BuildEntry{URL: record.Status.URL, JobType: jobType}
			switch record.Status.State {
			case contracts.StateFailure:
				idx.Failures[id] = entry
			case contracts.StateSuccess:
				idx.Successes[id] = entry
			}
		}

		if seen[jobType] == nil {
			seen[jobType] = make(map[string]bool)
		}
		if !seen[jobType][id] {
			seen[jobType][id] = true
			idx.Types[jobType] = append(idx.Types[jobType], id)
		}
	}

	return idx
}
