package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

var ErrSourceUnknown = errors.New("unknown collection source")

// Source defines the interface for CI orchestrators that publish a job-list document.
type Source interface {
	// Name returns the source name as used in configuration (e.g., "prow")
	Name() string

	// FetchJobs downloads and decodes the job-list document served at location
	FetchJobs(ctx context.Context, location string) (*JobListing, error)

	// Client returns the HTTP client used for artifact pages served by the same orchestrator
	Client() PageClient
}

// PageClient fetches HTML pages and artifact bodies.
type PageClient interface {
	GetPage(ctx context.Context, url string) (string, error)
	Download(ctx context.Context, url string, dst io.Writer) (int64, error)
}

// Factory builds a Source from HTTP options.
type Factory func(opts Options) Source

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// RegisterSource makes a source available by name. Sources register
// themselves from an init function in their own package.
func RegisterSource(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// GetSource returns the named source built with opts.
func GetSource(name string, opts Options) (Source, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceUnknown, name)
	}
	return factory(opts), nil
}

// SourceNames lists registered sources in sorted order.
func SourceNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
