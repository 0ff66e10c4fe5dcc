package main

import (
	"context"
	"fmt"
	"io"

	"arcalog/src/broker"
	"arcalog/src/collector"
	"arcalog/src/config"
	"arcalog/src/crawler"
	"arcalog/src/events"
	"arcalog/src/logger"
	"arcalog/src/metrics"
	"arcalog/src/prow"
	"arcalog/src/provider"
	"arcalog/src/resolver"
	"arcalog/src/snapshot"
	"arcalog/src/store"
)

// app carries what every subcommand shares once flags and config are read.
type app struct {
	cfg      config.Config
	dataFlag string
	logger   logger.Logger
	metrics  *metrics.Metrics
}

func newApp(cfg config.Config, dataFlag string, logOut io.Writer) *app {
	return &app{
		cfg:      cfg,
		dataFlag: dataFlag,
		logger:   logger.NewSlogLogger(logOut, cfg.Logging.Format, cfg.Logging.Level),
		metrics:  metrics.New(),
	}
}

// layout returns the storage layout of one source below the data root.
func (a *app) layout(source string) snapshot.Layout {
	return snapshot.Layout{Root: a.cfg.DataPath(a.dataFlag), Domain: source}
}

func (a *app) crawlerOptions() crawler.Options {
	return crawler.Options{
		Concurrency:  a.cfg.Crawler.Concurrency,
		MaxDepth:     a.cfg.Crawler.MaxDepth,
		RequestLimit: a.cfg.Crawler.RequestLimit,
	}
}

// keywords merges the literal keywords with the selected vocabulary
// categories. The extractor drops duplicates.
func (a *app) keywords() ([]string, error) {
	kw := append([]string(nil), a.cfg.Events.Keywords...)
	cats := make([]events.Category, 0, len(a.cfg.Events.Categories))
	for _, c := range a.cfg.Events.Categories {
		cats = append(cats, events.Category(c))
	}
	vocab, err := events.DefaultVocabulary().Keywords(cats...)
	if err != nil {
		return nil, err
	}
	return append(kw, vocab...), nil
}

// openIndex connects the Postgres build index when a DSN is configured.
// It returns nil when none is.
func (a *app) openIndex(ctx context.Context) (*store.PostgresStore, error) {
	if a.cfg.Store.PostgresDSN == "" {
		return nil, nil
	}
	pg, err := store.NewPostgresStore(ctx, a.cfg.Store.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open build index: %w", err)
	}
	return pg, nil
}

// newCollector wires a collector for source. index and brk may be nil.
func (a *app) newCollector(source string, index *store.PostgresStore, brk broker.Broker) (*collector.Collector, error) {
	src, err := provider.GetSource(source, a.cfg.ProviderOptions())
	if err != nil {
		return nil, err
	}

	deps := collector.Deps{
		Source:           src,
		Snapshots:        snapshot.NewStore(a.layout(source), a.logger),
		CrawlerOptions:   a.crawlerOptions(),
		BuildConcurrency: a.cfg.Crawler.BuildConcurrency,
		Logger:           a.logger,
		Metrics:          a.metrics,
	}
	if index != nil {
		deps.Index = index
	}
	if brk != nil {
		deps.Broker = brk
	}
	return collector.New(deps)
}

// newResolver wires a resolver over the prow snapshots. When the Postgres
// index is open it is asked first, and builds it does not know are looked
// up in the snapshot files.
func (a *app) newResolver(index *store.PostgresStore) (*resolver.Resolver, error) {
	kw, err := a.keywords()
	if err != nil {
		return nil, err
	}

	layout := a.layout(prow.SourceName)
	var finder resolver.Finder = snapshot.NewStore(layout, a.logger)
	if index != nil {
		finder = resolver.Chain(index, finder)
	}

	src := prow.NewSource(a.cfg.ProviderOptions())
	mirrorer := crawler.New(src.Client(), a.crawlerOptions(), a.logger, a.metrics)

	return resolver.New(finder, mirrorer, events.NewExtractor(kw, a.logger), layout, a.logger, a.metrics), nil
}
