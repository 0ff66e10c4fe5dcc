// Package contracts defines the data structures shared between the collector,
// the resolver and the outer surfaces (CLI, MCP, TUI, broker consumers).
package contracts

// Job states reported by the CI orchestrator.
const (
	StateSuccess = "success"
	StateFailure = "failure"
	StatePending = "pending"
)

// JobList is the decoded job-list document served by the orchestrator.
type JobList struct {
	Items []JobRecord `json:"items"`
}

// JobRecord is one CI job execution taken from a job-list snapshot.
// Only the fields the pipeline relies on are modelled; the raw document is
// persisted verbatim next to the derived indices.
type JobRecord struct {
	Kind     string      `json:"kind"`
	Metadata JobMetadata `json:"metadata"`
	Spec     JobSpec     `json:"spec"`
	Status   JobStatus   `json:"status"`
}

// JobMetadata carries the identifying and free-form labeling metadata of a job.
type JobMetadata struct {
	Name              string            `json:"name"`
	Namespace         string            `json:"namespace,omitempty"`
	CreationTimestamp string            `json:"creationTimestamp,omitempty"`
	Labels            map[string]string `json:"labels,omitempty"`
	Annotations       map[string]string `json:"annotations,omitempty"`
}

// JobSpec is the subset of the job specification used for display.
type JobSpec struct {
	Type string `json:"type"`
	Job  string `json:"job"`
}

// JobStatus describes the outcome of a job.
type JobStatus struct {
	StartTime      string `json:"startTime,omitempty"`
	CompletionTime string `json:"completionTime,omitempty"`
	State          string `json:"state,omitempty"`
	Description    string `json:"description,omitempty"`
	URL            string `json:"url,omitempty"`
	BuildID        string `json:"build_id,omitempty"`
}

// JobLabelKey is the label holding the job type.
const JobLabelKey = "prow.k8s.io/job"

// BuildID returns the build identifier, or "" when the orchestrator has not
// assigned one yet.
func (r JobRecord) BuildID() string {
	return r.Status.BuildID
}

// JobType returns the job type from the job label, falling back to spec.job.
func (r JobRecord) JobType() string {
	if jt := r.Metadata.Labels[JobLabelKey]; jt != "" {
		return jt
	}
	return r.Spec.Job
}

// BuildRecord is a build recovered from a failure or success index.
type BuildRecord struct {
	BuildID string `json:"build_id"`
	URL     string `json:"url"`
	JobType string `json:"job_type"`
	// State is StateFailure or StateSuccess depending on the index it came from.
	State string `json:"state"`
	// Generation is the snapshot the record was read from.
	Generation string `json:"generation,omitempty"`
}

// BuildInfo is the record handed to the presentation layers.
// Error set with every optional field absent signals invalid input or an
// unknown build.
type BuildInfo struct {
	BuildID  string   `json:"build_id"`
	BuildURL string   `json:"build_url,omitempty"`
	Label    string   `json:"label,omitempty"`
	State    string   `json:"state,omitempty"`
	JobType  string   `json:"job_type,omitempty"`
	Events   []string `json:"events,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Event is one candidate failure line extracted from a mirrored artifact.
type Event struct {
	BuildID string `json:"build_id"`
	// File is the path of the originating file relative to the artifact root.
	File string `json:"file,omitempty"`
	// Line is the 1-based line number within File.
	Line int    `json:"line"`
	Text string `json:"text"`
	// Fingerprint groups lines that differ only in timestamps, ids and numbers.
	Fingerprint string `json:"fingerprint"`
}

// CollectRequest asks a collector agent to fetch and index one location.
// Published to: arcalog.collect.requests
// Key: {request_id}
type CollectRequest struct {
	RequestID        string `json:"request_id"`
	Source           string `json:"source"`
	Location         string `json:"location"`
	CollectArtifacts bool   `json:"collect_artifacts"`
	Timestamp        string `json:"timestamp"`
}

// SnapshotNotice announces a newly written snapshot generation.
// Published to: arcalog.snapshots
// Key: {generation}
type SnapshotNotice struct {
	RequestID  string `json:"request_id,omitempty"`
	Source     string `json:"source"`
	Location   string `json:"location"`
	Generation string `json:"generation"`
	Jobs       int    `json:"jobs"`
	Failures   int    `json:"failures"`
	Successes  int    `json:"successes"`
	JobTypes   int    `json:"job_types"`
	// Mirrored and MirrorFailures are only set when artifacts were collected.
	Mirrored       int    `json:"mirrored,omitempty"`
	MirrorFailures int    `json:"mirror_failures,omitempty"`
	Error          string `json:"error,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// Topic names used on the message broker.
const (
	// TopicCollectRequests carries CollectRequest messages.
	TopicCollectRequests = "arcalog.collect.requests"

	// TopicSnapshots carries SnapshotNotice messages.
	TopicSnapshots = "arcalog.snapshots"
)
