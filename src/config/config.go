// Package config loads the arcalog YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"arcalog/src/paths"
	"arcalog/src/provider"
)

// DefaultDataPath is the storage root used when neither flag nor file sets one.
const DefaultDataPath = "data/"

// Config holds the application configuration.
type Config struct {
	Collection Collection    `yaml:"collection"`
	Data       string        `yaml:"data"`
	HTTP       HTTPConfig    `yaml:"http"`
	Crawler    CrawlerConfig `yaml:"crawler"`
	Events     EventsConfig  `yaml:"events"`
	Store      StoreConfig   `yaml:"store"`
	Broker     BrokerConfig  `yaml:"broker"`
	Logging    LoggingConfig `yaml:"logging"`
	Metrics    MetricsConfig `yaml:"metrics"`
}

// Collection lists the configured collection sources.
type Collection struct {
	Prow *ProwConfig `yaml:"prow"`
}

// ProwConfig lists the Prow deployments to collect from.
type ProwConfig struct {
	Location   []string `yaml:"location"`
	Parameters string   `yaml:"parameters"`
}

type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout"`     // per-request timeout
	Attempts   int           `yaml:"attempts"`    // total attempts for transient failures
	Backoff    time.Duration `yaml:"backoff"`     // initial backoff (e.g. 500ms)
	MaxBackoff time.Duration `yaml:"max_backoff"` // cap (e.g. 5s)
	UserAgent  string        `yaml:"user_agent"`
}

type CrawlerConfig struct {
	Concurrency      int   `yaml:"concurrency"`       // siblings per directory
	MaxDepth         int   `yaml:"max_depth"`         // directory levels below the start URL
	RequestLimit     int64 `yaml:"request_limit"`     // in-flight HTTP requests per crawl
	BuildConcurrency int   `yaml:"build_concurrency"` // builds mirrored at once during collection
}

type EventsConfig struct {
	Keywords   []string `yaml:"keywords"`   // literal, case-sensitive
	Categories []string `yaml:"categories"` // nouns | verbs | adjectives
}

type StoreConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
}

type BrokerConfig struct {
	Brokers []string `yaml:"brokers"`
	Group   string   `yaml:"group"`
}

type LoggingConfig struct {
	Format string `yaml:"format"` // text | json
	Level  string `yaml:"level"`  // debug | info | warn | error
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // e.g. :9090; empty disables the endpoint
}

// Default returns the configuration used when no file is present.
func Default() Config {
	opts := provider.DefaultOptions()
	return Config{
		HTTP: HTTPConfig{
			Timeout:    opts.Timeout,
			Attempts:   opts.Attempts,
			Backoff:    opts.Backoff,
			MaxBackoff: opts.MaxBackoff,
			UserAgent:  opts.UserAgent,
		},
		Crawler: CrawlerConfig{
			Concurrency:      4,
			MaxDepth:         16,
			RequestLimit:     8,
			BuildConcurrency: 2,
		},
		Events:  EventsConfig{Keywords: []string{"error"}},
		Broker:  BrokerConfig{Group: "arcalog-collector"},
		Logging: LoggingConfig{Format: "text", Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	c := Default()

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	c.applyEnv()
	c.fillDefaults()

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ARCALOG_DATA"); v != "" {
		c.Data = v
	}
	if v := os.Getenv("REDPANDA_BROKERS"); v != "" {
		c.Broker.Brokers = splitList(v)
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Store.PostgresDSN = v
	}
}

// fillDefaults restores defaults for fields a partial file left zero.
func (c *Config) fillDefaults() {
	d := Default()
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = d.HTTP.Timeout
	}
	if c.HTTP.Attempts <= 0 {
		c.HTTP.Attempts = d.HTTP.Attempts
	}
	if c.HTTP.Backoff <= 0 {
		c.HTTP.Backoff = d.HTTP.Backoff
	}
	if c.HTTP.MaxBackoff <= 0 {
		c.HTTP.MaxBackoff = d.HTTP.MaxBackoff
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = d.HTTP.UserAgent
	}
	if c.Crawler.Concurrency <= 0 {
		c.Crawler.Concurrency = d.Crawler.Concurrency
	}
	if c.Crawler.MaxDepth <= 0 {
		c.Crawler.MaxDepth = d.Crawler.MaxDepth
	}
	if c.Crawler.RequestLimit <= 0 {
		c.Crawler.RequestLimit = d.Crawler.RequestLimit
	}
	if c.Crawler.BuildConcurrency <= 0 {
		c.Crawler.BuildConcurrency = d.Crawler.BuildConcurrency
	}
	if len(c.Events.Keywords) == 0 && len(c.Events.Categories) == 0 {
		c.Events.Keywords = d.Events.Keywords
	}
	if c.Broker.Group == "" {
		c.Broker.Group = d.Broker.Group
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	if c.HTTP.MaxBackoff < c.HTTP.Backoff {
		return fmt.Errorf("http.max_backoff (%s) is below http.backoff (%s)", c.HTTP.MaxBackoff, c.HTTP.Backoff)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	for _, cat := range c.Events.Categories {
		switch cat {
		case "nouns", "verbs", "adjectives":
		default:
			return fmt.Errorf("events.categories: unknown category %q", cat)
		}
	}
	return nil
}

// DataPath resolves the storage root: an explicit flag wins over the file,
// which wins over DefaultDataPath. The result always ends with a slash.
func (c Config) DataPath(flag string) string {
	if flag != "" && flag != DefaultDataPath {
		return paths.CheckSlash(flag)
	}
	if c.Data != "" {
		return paths.CheckSlash(c.Data)
	}
	return DefaultDataPath
}

// Locations returns the non-empty locations configured for source.
func (c Config) Locations(source string) ([]string, error) {
	switch source {
	case "prow":
		if c.Collection.Prow == nil {
			return nil, fmt.Errorf("no prow collection configured")
		}
		var out []string
		for _, loc := range c.Collection.Prow.Location {
			if strings.TrimSpace(loc) != "" {
				out = append(out, loc)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", provider.ErrSourceUnknown, source)
	}
}

// ProviderOptions converts the http block.
func (c Config) ProviderOptions() provider.Options {
	return provider.Options{
		Timeout:    c.HTTP.Timeout,
		Attempts:   c.HTTP.Attempts,
		Backoff:    c.HTTP.Backoff,
		MaxBackoff: c.HTTP.MaxBackoff,
		UserAgent:  c.HTTP.UserAgent,
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
