package prow

import (
	"context"

	"arcalog/src/provider"
)

// SourceName is the collection source name used in configuration.
const SourceName = "prow"

func init() {
	provider.RegisterSource(SourceName, func(opts provider.Options) provider.Source {
		return NewSource(opts)
	})
}

// Source implements provider.Source for Prow.
type Source struct {
	client *Client
}

// NewSource creates a Prow source with the given HTTP options.
func NewSource(opts provider.Options) *Source {
	return &Source{client: NewClient(opts)}
}

// Name returns "prow"
func (s *Source) Name() string {
	return SourceName
}

// FetchJobs retrieves the job list published at location.
func (s *Source) FetchJobs(ctx context.Context, location string) (*provider.JobListing, error) {
	return s.client.GetJobList(ctx, location)
}

// Client returns the page client used for result pages and artifact listings.
func (s *Source) Client() provider.PageClient {
	return s.client
}
