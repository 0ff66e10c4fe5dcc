// Package resolver answers "what happened to build X" from the stored
// snapshots, mirroring the build's artifacts on first access.
package resolver

import (
	"context"
	"errors"

	"arcalog/src/contracts"
	"arcalog/src/crawler"
	"arcalog/src/events"
	"arcalog/src/junit"
	"arcalog/src/logger"
	"arcalog/src/metrics"
	"arcalog/src/paths"
	"arcalog/src/provider"
	"arcalog/src/snapshot"
)

// Finder locates the newest indexed record of a build.
type Finder interface {
	FindBuild(ctx context.Context, buildID string) (*contracts.BuildRecord, error)
}

// Mirrorer copies a build's artifact tree to a local directory.
type Mirrorer interface {
	MirrorBuild(ctx context.Context, resultURL, dest string) (*crawler.Stats, error)
}

// Resolver turns build ids into BuildInfo records.
type Resolver struct {
	finder    Finder
	mirrorer  Mirrorer
	extractor *events.Extractor
	layout    snapshot.Layout
	logger    logger.Logger
	metrics   *metrics.Metrics
}

// New creates a resolver. mirrorer may be nil, in which case missing
// artifact trees are not fetched and yield no events. m may be nil.
func New(finder Finder, mirrorer Mirrorer, extractor *events.Extractor, layout snapshot.Layout, log logger.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{
		finder:    finder,
		mirrorer:  mirrorer,
		extractor: extractor,
		layout:    layout,
		logger:    log,
		metrics:   m,
	}
}

// Resolve looks buildID up and returns its info with the events extracted
// from its artifact tree. An empty id, or one that cannot name a directory,
// yields *provider.InputError before any index is read; an unknown id
// yields *provider.NotFoundError.
func (r *Resolver) Resolve(ctx context.Context, buildID string) (*contracts.BuildInfo, error) {
	record, dir, err := r.locate(ctx, buildID)
	if err != nil {
		var inputErr *provider.InputError
		switch {
		case errors.As(err, &inputErr):
			r.metrics.Resolved("invalid")
		case errors.Is(err, provider.ErrBuildNotFound):
			r.metrics.Resolved("not_found")
		}
		return nil, err
	}
	r.metrics.Resolved("found")

	found, err := r.extractor.Extract(ctx, buildID, dir)
	if err != nil {
		return nil, err
	}
	return buildInfo(record, found), nil
}

func buildInfo(record *contracts.BuildRecord, found []contracts.Event) *contracts.BuildInfo {
	lines := make([]string, 0, len(found))
	for _, ev := range found {
		lines = append(lines, ev.Text)
	}
	return &contracts.BuildInfo{
		BuildID:  record.BuildID,
		BuildURL: record.URL,
		Label:    contracts.LabelUnknown.String(),
		State:    record.State,
		JobType:  record.JobType,
		Events:   lines,
	}
}

// Events returns the full event records of a build whose artifacts are
// already mirrored, or mirrors them first.
func (r *Resolver) Events(ctx context.Context, buildID string) ([]contracts.Event, error) {
	_, dir, err := r.locate(ctx, buildID)
	if err != nil {
		return nil, err
	}
	return r.extractor.Extract(ctx, buildID, dir)
}

// ResolveEvents is Resolve that also returns the full event records, from
// a single pass over the artifact tree.
func (r *Resolver) ResolveEvents(ctx context.Context, buildID string) (*contracts.BuildInfo, []contracts.Event, error) {
	record, dir, err := r.locate(ctx, buildID)
	if err != nil {
		return nil, nil, err
	}
	found, err := r.extractor.Extract(ctx, buildID, dir)
	if err != nil {
		return nil, nil, err
	}
	return buildInfo(record, found), found, nil
}

// TestFailures returns the failed test cases recorded in the JUnit reports
// of a build's artifacts, mirroring them first when needed.
func (r *Resolver) TestFailures(ctx context.Context, buildID string) ([]junit.TestFailure, error) {
	_, dir, err := r.locate(ctx, buildID)
	if err != nil {
		return nil, err
	}
	return junit.Scan(ctx, dir, r.logger)
}

// locate validates buildID, finds its record and makes sure its artifact
// directory is populated.
func (r *Resolver) locate(ctx context.Context, buildID string) (*contracts.BuildRecord, string, error) {
	dir, err := r.layout.ArtifactDir(buildID)
	if err != nil {
		return nil, "", err
	}
	record, err := r.finder.FindBuild(ctx, buildID)
	if err != nil {
		return nil, "", err
	}
	if record.BuildID == "" {
		record.BuildID = buildID
	}
	r.ensureArtifacts(ctx, record, dir)
	return record, dir, nil
}

// ensureArtifacts mirrors the build when its artifact directory is absent.
// A failed mirror is logged; the lookup continues with whatever is on disk.
func (r *Resolver) ensureArtifacts(ctx context.Context, record *contracts.BuildRecord, dir string) {
	if paths.Exists(dir) {
		return
	}
	if r.mirrorer == nil || record.URL == "" {
		r.logger.Debug("[Resolver] No artifacts for build %s and no way to fetch them", record.BuildID)
		return
	}

	r.logger.Info("[Resolver] Artifacts for build %s not found locally, mirroring %s", record.BuildID, record.URL)
	if _, err := r.mirrorer.MirrorBuild(ctx, record.URL, dir); err != nil {
		r.logger.Error("[Resolver] Failed to mirror build %s: %v", record.BuildID, err)
	}
}

// Info is Resolve for presentation layers: it never fails, and reports
// invalid or unknown ids through the Error field with no other field set.
func (r *Resolver) Info(ctx context.Context, buildID string) *contracts.BuildInfo {
	info, err := r.Resolve(ctx, buildID)
	if err == nil {
		return info
	}

	var userErr *provider.UserError
	if errors.As(provider.WrapError(err), &userErr) {
		return &contracts.BuildInfo{BuildID: buildID, Error: userErr.Message}
	}
	return &contracts.BuildInfo{BuildID: buildID, Error: err.Error()}
}
