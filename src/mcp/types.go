// Package mcp exposes build lookups and collection as MCP tools.
package mcp

import "arcalog/src/contracts"

// EventsResponse is the get_build_events result: the build with its events
// grouped by fingerprint, most frequent first.
type EventsResponse struct {
	Build       *contracts.BuildInfo `json:"build"`
	TotalEvents int                  `json:"total_events"`
	Groups      []EventGroup         `json:"groups"`
	// Omitted counts the groups cut by the limit.
	Omitted int `json:"omitted,omitempty"`
}

// EventGroup is every occurrence of one normalized line.
type EventGroup struct {
	ID      string   `json:"id"`
	Message string   `json:"message"`
	Count   int      `json:"count"`
	Files   []string `json:"files"`
	// First is the file:line of the first occurrence.
	First string `json:"first"`
}

// EventDetails is the get_event_details result.
type EventDetails struct {
	BuildID     string            `json:"build_id"`
	ID          string            `json:"id"`
	Occurrences []contracts.Event `json:"occurrences"`
}

// CollectSummary is the collect_metadata result.
type CollectSummary struct {
	Source         string `json:"source"`
	Location       string `json:"location"`
	Generation     string `json:"generation"`
	Jobs           int    `json:"jobs"`
	Failures       int    `json:"failures"`
	Successes      int    `json:"successes"`
	JobTypes       int    `json:"job_types"`
	Skipped        int    `json:"skipped,omitempty"`
	Mirrored       int    `json:"mirrored,omitempty"`
	MirrorFailures int    `json:"mirror_failures,omitempty"`
}

// TestFailuresResponse is the get_test_failures result.
type TestFailuresResponse struct {
	BuildID string        `json:"build_id"`
	Total   int           `json:"total"`
	Tests   []TestSummary `json:"tests"`
}

// TestSummary is one failed test case.
type TestSummary struct {
	Name    string   `json:"name"`
	Suite   string   `json:"suite,omitempty"`
	Kind    string   `json:"kind"`
	Message string   `json:"message,omitempty"`
	Output  []string `json:"output,omitempty"`
	File    string   `json:"file"`
}
