// Package crawler mirrors remote HTML directory listings onto the local
// filesystem.
package crawler

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"arcalog/src/logger"
	"arcalog/src/metrics"
	"arcalog/src/paths"
	"arcalog/src/provider"
)

// stalePartialAge is how long a download temp file must sit untouched
// before a new mirror of the same tree removes it.
const stalePartialAge = 10 * time.Minute

// Options bounds a crawl.
type Options struct {
	// Concurrency is the number of siblings expanded at once per directory.
	Concurrency int
	// MaxDepth is the deepest directory level below the start URL.
	MaxDepth int
	// RequestLimit caps in-flight HTTP requests across the whole crawl.
	RequestLimit int64
}

// DefaultOptions returns the options used when configuration leaves them unset.
func DefaultOptions() Options {
	return Options{
		Concurrency:  4,
		MaxDepth:     16,
		RequestLimit: 8,
	}
}

// Stats counts what one Mirror call did.
type Stats struct {
	Directories int64 `json:"directories"`
	Downloaded  int64 `json:"downloaded"`
	Skipped     int64 `json:"skipped"`
	Rejected    int64 `json:"rejected"`
	Failed      int64 `json:"failed"`
}

// Crawler mirrors remote listings through a provider.PageClient.
type Crawler struct {
	client  provider.PageClient
	opts    Options
	logger  logger.Logger
	metrics *metrics.Metrics
}

// New creates a crawler. Zero option fields take their defaults; m may be nil.
func New(client provider.PageClient, opts Options, log logger.Logger, m *metrics.Metrics) *Crawler {
	defaults := DefaultOptions()
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaults.Concurrency
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaults.MaxDepth
	}
	if opts.RequestLimit <= 0 {
		opts.RequestLimit = defaults.RequestLimit
	}

	return &Crawler{
		client:  client,
		opts:    opts,
		logger:  log,
		metrics: m,
	}
}

// crawl is the state of one Mirror call.
type crawl struct {
	c    *Crawler
	root string
	sem  *semaphore.Weighted

	mu      sync.Mutex
	visited map[string]bool

	directories, downloaded, skipped, rejected, failed atomic.Int64
}

func (r *crawl) stats() *Stats {
	return &Stats{
		Directories: r.directories.Load(),
		Downloaded:  r.downloaded.Load(),
		Skipped:     r.skipped.Load(),
		Rejected:    r.rejected.Load(),
		Failed:      r.failed.Load(),
	}
}

// Mirror copies the listing at remoteURL, and everything below it, into
// localPath. Files that already exist locally are not fetched again. Only
// a failure to read the top-level listing is returned; failures further down
// are logged and counted in Stats.Failed.
func (c *Crawler) Mirror(ctx context.Context, remoteURL, localPath string) (*Stats, error) {
	start, err := url.Parse(paths.CheckSlash(remoteURL))
	if err != nil || start.Scheme == "" || start.Host == "" {
		if err == nil {
			err = fmt.Errorf("not an absolute URL")
		}
		return &Stats{}, &provider.RemoteFormatError{URL: remoteURL, Err: err}
	}
	start.RawQuery, start.Fragment = "", ""

	root, err := filepath.Abs(localPath)
	if err != nil {
		return &Stats{}, &provider.LocalIOError{Path: localPath, Err: err}
	}

	r := &crawl{
		c:       c,
		root:    root,
		sem:     semaphore.NewWeighted(c.opts.RequestLimit),
		visited: map[string]bool{start.String(): true},
	}

	c.logger.Info("[Crawler] Mirroring %s into %s", start, root)

	if n, err := paths.RemovePartials(root, stalePartialAge); err != nil {
		c.logger.Error("[Crawler] %v", err)
	} else if n > 0 {
		c.logger.Info("[Crawler] Removed %d interrupted downloads below %s", n, root)
	}

	links, err := r.list(ctx, start)
	if err != nil {
		return r.stats(), err
	}
	r.directories.Add(1)
	c.metrics.CrawlEntry(metrics.OutcomeDirectory)

	if err := r.expand(ctx, start, root, links, 0); err != nil {
		return r.stats(), err
	}

	stats := r.stats()
	c.logger.Info("[Crawler] Mirrored %s: %d directories, %d downloaded, %d skipped, %d rejected, %d failed",
		start, stats.Directories, stats.Downloaded, stats.Skipped, stats.Rejected, stats.Failed)
	return stats, nil
}

// list fetches and parses one directory listing.
func (r *crawl) list(ctx context.Context, dir *url.URL) ([]Link, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	page, err := r.c.client.GetPage(ctx, dir.String())
	r.sem.Release(1)
	if err != nil {
		return nil, err
	}

	links, err := ParseLinks(page)
	if err != nil {
		return nil, &provider.RemoteFormatError{URL: dir.String(), Err: err}
	}
	return links, nil
}

// expand fans out over the entries of one listing. It only returns an error
// when ctx is cancelled.
func (r *crawl) expand(ctx context.Context, dir *url.URL, local string, links []Link, depth int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.c.opts.Concurrency)

	for _, link := range links {
		child, target, ok := r.accept(dir, local, link.Href, depth)
		if !ok {
			continue
		}

		if strings.HasSuffix(child.Path, "/") {
			g.Go(func() error {
				r.directory(gctx, child, target, depth+1)
				return gctx.Err()
			})
			continue
		}
		g.Go(func() error {
			r.file(gctx, child, target)
			return gctx.Err()
		})
	}

	return g.Wait()
}

// accept applies the traversal guard to one href and returns the resolved
// URL and local target. Rejections are logged and counted.
func (r *crawl) accept(dir *url.URL, local, href string, depth int) (*url.URL, string, bool) {
	reject := func(reason string) (*url.URL, string, bool) {
		r.rejected.Add(1)
		r.c.metrics.CrawlEntry(metrics.OutcomeRejected)
		r.c.logger.Debug("[Crawler] Rejected %q under %s: %s", href, dir, reason)
		return nil, "", false
	}

	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "?") {
		// Page-local anchors and column sort links.
		return nil, "", false
	}

	name := path.Base(strings.TrimSuffix(href, "/"))
	if name == "." || name == ".." {
		return reject("dot entry")
	}

	ref, err := url.Parse(href)
	if err != nil {
		return reject(fmt.Sprintf("malformed: %v", err))
	}
	child := resolve(dir, ref)

	if child.Scheme != dir.Scheme || child.Host != dir.Host {
		return reject("foreign host")
	}
	if !strings.HasPrefix(child.Path, dir.Path) || child.Path == dir.Path {
		return reject("not below the current directory")
	}

	rel := strings.TrimSuffix(strings.TrimPrefix(child.Path, dir.Path), "/")
	for _, segment := range strings.Split(rel, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return reject("unsafe path segment")
		}
	}

	isDir := strings.HasSuffix(child.Path, "/")
	if isDir && depth+1 > r.c.opts.MaxDepth {
		return reject("maximum depth reached")
	}

	target := filepath.Join(local, filepath.FromSlash(rel))
	if !paths.Within(r.root, target) || target == r.root {
		return reject("local target escapes the mirror root")
	}

	key := child.String()
	r.mu.Lock()
	seen := r.visited[key]
	r.visited[key] = true
	r.mu.Unlock()
	if seen {
		// Listings commonly link each entry twice (icon and name).
		r.c.logger.Debug("[Crawler] Already visited %s", key)
		return nil, "", false
	}

	return child, target, true
}

// resolve turns href into an absolute URL. Root-relative references keep
// the scheme and host of the listing.
func resolve(dir *url.URL, ref *url.URL) *url.URL {
	var child *url.URL
	if ref.Scheme == "" && ref.Host == "" && strings.HasPrefix(ref.Path, "/") {
		child = &url.URL{Scheme: dir.Scheme, Host: dir.Host, User: dir.User, Path: path.Clean(ref.Path)}
		if strings.HasSuffix(ref.Path, "/") && child.Path != "/" {
			child.Path += "/"
		}
	} else {
		child = dir.ResolveReference(ref)
	}
	child.RawPath, child.RawQuery, child.Fragment = "", "", ""
	return child
}

// directory mirrors one nested listing. Failures are logged and counted.
func (r *crawl) directory(ctx context.Context, dir *url.URL, local string, depth int) {
	links, err := r.list(ctx, dir)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.failed.Add(1)
		r.c.metrics.CrawlEntry(metrics.OutcomeFailed)
		r.c.logger.Error("[Crawler] Skipping directory %s: %v", dir, err)
		return
	}
	r.directories.Add(1)
	r.c.metrics.CrawlEntry(metrics.OutcomeDirectory)

	_ = r.expand(ctx, dir, local, links, depth)
}

// file downloads one leaf unless it already exists locally. The content is
// written to a temporary sibling and renamed into place, so an interrupted
// download never leaves a file that looks complete.
func (r *crawl) file(ctx context.Context, u *url.URL, target string) {
	if paths.Exists(target) {
		r.skipped.Add(1)
		r.c.metrics.CrawlEntry(metrics.OutcomeSkipped)
		return
	}

	if err := r.download(ctx, u, target); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.failed.Add(1)
		r.c.metrics.CrawlEntry(metrics.OutcomeFailed)
		r.c.logger.Error("[Crawler] Skipping file %s: %v", u, err)
		return
	}

	r.downloaded.Add(1)
	r.c.metrics.CrawlEntry(metrics.OutcomeDownloaded)
	r.c.logger.Debug("[Crawler] Downloaded %s", target)
}

func (r *crawl) download(ctx context.Context, u *url.URL, target string) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &provider.LocalIOError{Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, paths.PartialPattern(target))
	if err != nil {
		return &provider.LocalIOError{Path: dir, Err: err}
	}
	tmpName := tmp.Name()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	_, err = r.c.client.Download(ctx, u.String(), tmp)
	r.sem.Release(1)

	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = &provider.LocalIOError{Path: tmpName, Err: closeErr}
	}
	if err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return &provider.LocalIOError{Path: target, Err: err}
	}
	return nil
}
