package provider

import (
	"time"

	"arcalog/src/contracts"
)

// JobListing is one downloaded job-list document.
type JobListing struct {
	// URL the document was fetched from
	URL string
	// Raw is the document exactly as served
	Raw []byte
	// Jobs are the decoded job records
	Jobs []contracts.JobRecord
	// Skipped holds one *RemoteFormatError per item that failed to decode
	Skipped []error
}

// Options controls HTTP behaviour shared by every source.
type Options struct {
	Timeout    time.Duration // per-request timeout
	Attempts   int           // total attempts for transient failures
	Backoff    time.Duration // initial backoff
	MaxBackoff time.Duration // backoff cap
	UserAgent  string
}

// DefaultOptions returns the options used when configuration leaves them unset.
func DefaultOptions() Options {
	return Options{
		Timeout:    30 * time.Second,
		Attempts:   3,
		Backoff:    500 * time.Millisecond,
		MaxBackoff: 5 * time.Second,
		UserAgent:  "arcalog/0.1",
	}
}
