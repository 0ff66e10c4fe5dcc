// Package collector fetches a job-list document, indexes it into a new
// snapshot generation and optionally mirrors the artifacts of every build.
package collector

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"arcalog/src/broker"
	"arcalog/src/contracts"
	"arcalog/src/crawler"
	"arcalog/src/logger"
	"arcalog/src/metrics"
	"arcalog/src/provider"
	"arcalog/src/snapshot"
	"arcalog/src/store"
)

// DefaultBuildConcurrency is the number of builds mirrored at once.
const DefaultBuildConcurrency = 2

// Mirrorer copies a build's artifact tree to a local directory.
type Mirrorer interface {
	MirrorBuild(ctx context.Context, resultURL, dest string) (*crawler.Stats, error)
}

// Deps are the collaborators of a Collector. Source and Snapshots are
// required; the rest are optional.
type Deps struct {
	Source    provider.Source
	Snapshots *snapshot.Store

	// Index receives the records of every generation when set.
	Index store.Store
	// Broker receives a SnapshotNotice per generation when set.
	Broker broker.Broker
	// Mirrorer defaults to a crawler over Source.Client().
	Mirrorer Mirrorer

	CrawlerOptions   crawler.Options
	BuildConcurrency int

	Logger  logger.Logger
	Metrics *metrics.Metrics
}

// Report summarises one FetchAndIndex call.
type Report struct {
	Generation *snapshot.Generation `json:"generation"`
	Location   string               `json:"location"`
	Jobs       int                  `json:"jobs"`

	// Skipped counts job-list items that could not be decoded or whose
	// build id cannot name an artifact directory.
	Skipped int `json:"skipped,omitempty"`

	// Mirrored and MirrorFailures count builds, not files.
	Mirrored       int `json:"mirrored"`
	MirrorFailures int `json:"mirror_failures"`
}

// Collector runs the metadata fetch for one source.
type Collector struct {
	source    provider.Source
	snapshots *snapshot.Store
	index     store.Store
	broker    broker.Broker
	mirrorer  Mirrorer
	builds    int
	logger    logger.Logger
	metrics   *metrics.Metrics
}

// New creates a collector from deps.
func New(deps Deps) (*Collector, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("collector requires a source")
	}
	if deps.Snapshots == nil {
		return nil, fmt.Errorf("collector requires a snapshot store")
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewSilentLogger()
	}
	if deps.BuildConcurrency <= 0 {
		deps.BuildConcurrency = DefaultBuildConcurrency
	}
	if deps.Mirrorer == nil {
		deps.Mirrorer = crawler.New(deps.Source.Client(), deps.CrawlerOptions, deps.Logger, deps.Metrics)
	}

	return &Collector{
		source:    deps.Source,
		snapshots: deps.Snapshots,
		index:     deps.Index,
		broker:    deps.Broker,
		mirrorer:  deps.Mirrorer,
		builds:    deps.BuildConcurrency,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
	}, nil
}

// FetchAndIndex downloads the job list at sourceURL once and writes it,
// with its failure, success and job-type indices, as a new snapshot
// generation. When collectArtifacts is set it then mirrors every distinct
// build of the failure and success indices. A failed fetch, decode or write
// is returned; a failed mirror is logged and counted in the report.
func (c *Collector) FetchAndIndex(ctx context.Context, sourceURL string, collectArtifacts bool) (*Report, error) {
	return c.collect(ctx, "", sourceURL, collectArtifacts)
}

func (c *Collector) collect(ctx context.Context, requestID, sourceURL string, collectArtifacts bool) (*Report, error) {
	c.logger.Info("[Collector] Fetching %s job list from %s", c.source.Name(), sourceURL)

	start := time.Now()
	listing, err := c.source.FetchJobs(ctx, sourceURL)
	c.metrics.ObserveFetch(c.source.Name(), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job list: %w", err)
	}

	for _, err := range listing.Skipped {
		c.logger.Error("[Collector] Skipped job-list item: %v", err)
	}

	idx := snapshot.BuildIndices(listing.Jobs)
	for _, id := range idx.Rejected {
		c.logger.Error("[Collector] Skipped job with unusable build id %q", id)
	}
	gen, err := c.snapshots.Write(listing.Raw, idx)
	if err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	c.metrics.SnapshotWritten(c.source.Name())

	report := &Report{
		Generation: gen,
		Location:   sourceURL,
		Jobs:       len(listing.Jobs),
		Skipped:    len(listing.Skipped) + len(idx.Rejected),
	}

	if c.index != nil {
		if err := c.index.RecordBuilds(ctx, gen.ID, snapshot.Records(gen.ID, idx)); err != nil {
			// The snapshot files remain authoritative.
			c.logger.Error("[Collector] Failed to record generation %s in the build index: %v", gen.ID, err)
		}
	}

	if collectArtifacts {
		if err := c.mirrorAll(ctx, idx, report); err != nil {
			return report, err
		}
	}

	c.notify(ctx, requestID, report, collectArtifacts)

	c.logger.Info("[Collector] Generation %s: %d jobs, %d failures, %d successes, %d job types",
		gen.ID, report.Jobs, gen.Failures, gen.Successes, gen.JobTypes)
	return report, nil
}

// mirrorAll mirrors each distinct build once. Only cancellation is returned.
func (c *Collector) mirrorAll(ctx context.Context, idx snapshot.Indices, report *Report) error {
	targets := distinctBuilds(idx)
	layout := c.snapshots.Layout()

	c.logger.Info("[Collector] Mirroring artifacts of %d builds", len(targets))

	var mirrored, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.builds)

	for _, t := range targets {
		dest, err := layout.ArtifactDir(t.id)
		if err != nil {
			failed.Add(1)
			c.logger.Error("[Collector] Not mirroring build %q: %v", t.id, err)
			continue
		}
		g.Go(func() error {
			if _, err := c.mirrorer.MirrorBuild(gctx, t.url, dest); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				c.logger.Error("[Collector] Failed to mirror build %s: %v", t.id, err)
				return nil
			}
			mirrored.Add(1)
			return nil
		})
	}

	err := g.Wait()
	report.Mirrored = int(mirrored.Load())
	report.MirrorFailures = int(failed.Load())
	return err
}

type target struct {
	id  string
	url string
}

// distinctBuilds lists the builds of both indices sorted by id. A build in
// both indices is mirrored from its failure entry.
func distinctBuilds(idx snapshot.Indices) []target {
	urls := make(map[string]string, len(idx.Failures)+len(idx.Successes))
	for id, entry := range idx.Successes {
		urls[id] = entry.URL
	}
	for id, entry := range idx.Failures {
		urls[id] = entry.URL
	}

	out := make([]target, 0, len(urls))
	for id, url := range urls {
		if url == "" {
			continue
		}
		out = append(out, target{id: id, url: url})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (c *Collector) notify(ctx context.Context, requestID string, report *Report, collectArtifacts bool) {
	if c.broker == nil {
		return
	}

	notice := contracts.SnapshotNotice{
		RequestID:  requestID,
		Source:     c.source.Name(),
		Location:   report.Location,
		Generation: report.Generation.ID,
		Jobs:       report.Jobs,
		Failures:   report.Generation.Failures,
		Successes:  report.Generation.Successes,
		JobTypes:   report.Generation.JobTypes,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if collectArtifacts {
		notice.Mirrored = report.Mirrored
		notice.MirrorFailures = report.MirrorFailures
	}

	if err := broker.PublishJSON(ctx, c.broker, contracts.TopicSnapshots, notice.Generation, notice); err != nil {
		c.logger.Error("[Collector] Failed to publish snapshot notice: %v", err)
	}
}
