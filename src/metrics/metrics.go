// Package metrics exposes pipeline counters in the Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"arcalog/src/logger"
)

// Crawl outcomes recorded per listing entry.
const (
	OutcomeDirectory  = "directory"
	OutcomeDownloaded = "downloaded"
	OutcomeSkipped    = "skipped"
	OutcomeRejected   = "rejected"
	OutcomeFailed     = "failed"
)

// Metrics holds the collectors of one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	crawlEntries     *prometheus.CounterVec
	snapshotsWritten *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	resolves         *prometheus.CounterVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.crawlEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arcalog",
		Subsystem: "crawler",
		Name:      "entries_total",
		Help:      "Directory listing entries by outcome",
	}, []string{"outcome"})
	m.snapshotsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arcalog",
		Subsystem: "collector",
		Name:      "snapshots_total",
		Help:      "Snapshot generations written by source",
	}, []string{"source"})
	m.fetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arcalog",
		Subsystem: "collector",
		Name:      "fetch_duration_seconds",
		Help:      "Time spent fetching and indexing one job list",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source", "status"})
	m.resolves = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arcalog",
		Subsystem: "resolver",
		Name:      "lookups_total",
		Help:      "Build lookups by result",
	}, []string{"result"})

	m.registry.MustRegister(
		m.crawlEntries, m.snapshotsWritten, m.fetchDuration, m.resolves,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// CrawlEntry counts one listing entry with the given outcome.
func (m *Metrics) CrawlEntry(outcome string) {
	if m == nil {
		return
	}
	m.crawlEntries.WithLabelValues(outcome).Inc()
}

// SnapshotWritten counts a written generation.
func (m *Metrics) SnapshotWritten(source string) {
	if m == nil {
		return
	}
	m.snapshotsWritten.WithLabelValues(source).Inc()
}

// ObserveFetch records the duration of one fetch-and-index run.
func (m *Metrics) ObserveFetch(source string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.fetchDuration.WithLabelValues(source, status).Observe(d.Seconds())
}

// Resolved counts a build lookup. result is "found", "not_found" or "invalid".
func (m *Metrics) Resolved(result string) {
	if m == nil {
		return
	}
	m.resolves.WithLabelValues(result).Inc()
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics and /healthz on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("[Metrics] Serving on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
