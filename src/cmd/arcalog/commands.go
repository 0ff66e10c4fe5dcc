package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"arcalog/src/broker"
	"arcalog/src/collector"
	"arcalog/src/contracts"
	"arcalog/src/crawler"
	"arcalog/src/mcp"
	"arcalog/src/prow"
	"arcalog/src/tui"
)

var (
	collectSource    string
	collectArtifacts bool
)

// collectCmd fetches and indexes every configured location of a source
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch and index the configured job lists",
	Long: `Downloads the job-list document of every location configured for the
source, writes it as a new snapshot generation with its failure, success and
job-type indices and, with --artifacts, mirrors the artifacts of every build.

A failing location does not stop the others; the command exits non-zero
when any location failed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCollect(cmd.Context(), application, cmd.OutOrStdout(), collectSource, collectArtifacts)
	},
}

func runCollect(ctx context.Context, a *app, out io.Writer, source string, artifacts bool) error {
	locations, err := a.cfg.Locations(source)
	if err != nil {
		return err
	}
	if len(locations) == 0 {
		return fmt.Errorf("no %s locations configured", source)
	}

	index, err := a.openIndex(ctx)
	if err != nil {
		return err
	}
	if index != nil {
		defer index.Close()
	}

	var brk broker.Broker
	if len(a.cfg.Broker.Brokers) > 0 {
		if brk, err = broker.New(a.cfg.Broker.Brokers, a.logger); err != nil {
			return fmt.Errorf("failed to create broker: %w", err)
		}
		defer brk.Close()
	}

	c, err := a.newCollector(source, index, brk)
	if err != nil {
		return err
	}

	var errs []error
	for _, loc := range locations {
		report, err := c.FetchAndIndex(ctx, loc, artifacts)
		if err != nil {
			a.logger.Error("[Collect] %s: %v", loc, err)
			errs = append(errs, fmt.Errorf("%s: %w", loc, err))
			continue
		}
		if err := printJSON(out, report); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

// buildCmd prints the BuildInfo of one build
var buildCmd = &cobra.Command{
	Use:   "build [build-id]",
	Short: "Print what is known about a build as JSON",
	Long: `Looks the build up in the collected snapshots, newest first, mirrors its
artifacts if they are not on disk yet and prints its URL, state, job type
and the matching log lines.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		index, err := application.openIndex(ctx)
		if err != nil {
			return err
		}
		if index != nil {
			defer index.Close()
		}

		r, err := application.newResolver(index)
		if err != nil {
			return err
		}

		info, err := r.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), info)
	},
}

// testsCmd prints the failed tests of one build
var testsCmd = &cobra.Command{
	Use:   "tests [build-id]",
	Short: "Print the failed JUnit test cases of a build as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		index, err := application.openIndex(ctx)
		if err != nil {
			return err
		}
		if index != nil {
			defer index.Close()
		}

		r, err := application.newResolver(index)
		if err != nil {
			return err
		}

		failures, err := r.TestFailures(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), failures)
	},
}

// viewCmd launches the TUI over a build's events
var viewCmd = &cobra.Command{
	Use:   "view [build-id]",
	Short: "Browse the failure events of a build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		index, err := application.openIndex(ctx)
		if err != nil {
			return err
		}
		if index != nil {
			defer index.Close()
		}

		r, err := application.newResolver(index)
		if err != nil {
			return err
		}

		// Resolve first so an unknown id fails before the screen is taken over.
		info, err := r.Resolve(ctx, args[0])
		if err != nil {
			return err
		}

		load := func(ctx context.Context) ([]contracts.Event, error) {
			return r.Events(ctx, info.BuildID)
		}
		return tui.Run(ctx, info, load)
	},
}

// mirrorCmd copies one remote listing to disk
var mirrorCmd = &cobra.Command{
	Use:   "mirror [url] [directory]",
	Short: "Mirror a remote artifact listing into a local directory",
	Long: `Recursively copies the HTML directory listing at url, and every file
below it, into directory. Files already present are not fetched again.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := prow.NewSource(application.cfg.ProviderOptions())
		c := crawler.New(src.Client(), application.crawlerOptions(), application.logger, application.metrics)

		stats, err := c.Mirror(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), stats)
	},
}

// submitCmd queues a collection for an agent
var submitCmd = &cobra.Command{
	Use:   "submit [location]",
	Short: "Queue a collection request for a running agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		brk, err := application.requireBroker()
		if err != nil {
			return err
		}
		defer brk.Close()

		request := collector.NewRequest(collectSource, args[0], collectArtifacts)
		if err := collector.Submit(cmd.Context(), brk, request); err != nil {
			return fmt.Errorf("failed to submit request: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Request ID: %s\n", request.RequestID)
		return nil
	},
}

// agentCmd consumes collection requests
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run collections requested over the broker",
	Long: `Consumes collect requests from the broker and runs them. Every finished
collection is announced on the snapshots topic. Requires broker.brokers
or REDPANDA_BROKERS.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		brk, err := application.requireBroker()
		if err != nil {
			return err
		}
		defer brk.Close()

		index, err := application.openIndex(ctx)
		if err != nil {
			return err
		}
		if index != nil {
			defer index.Close()
		}

		c, err := application.newCollector(prow.SourceName, index, brk)
		if err != nil {
			return err
		}

		agent := collector.NewAgent(brk, application.cfg.Broker.Group, application.logger, c)
		application.logger.Info("[Agent] Collect agent started, waiting for requests...")
		if err := agent.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("agent error: %w", err)
		}
		application.logger.Info("[Agent] Collect agent stopped")
		return nil
	},
}

// mcpCmd serves the MCP tools over stdio
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve build lookups to MCP clients over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := application.openIndex(cmd.Context())
		if err != nil {
			return err
		}
		if index != nil {
			defer index.Close()
		}

		r, err := application.newResolver(index)
		if err != nil {
			return err
		}
		c, err := application.newCollector(prow.SourceName, index, nil)
		if err != nil {
			return err
		}

		srv := mcp.NewServer(version, r, map[string]mcp.Collector{prow.SourceName: c}, application.logger)
		return srv.Run()
	},
}

func init() {
	collectCmd.Flags().StringVar(&collectSource, "collect", prow.SourceName, "collection source to fetch")
	collectCmd.Flags().BoolVarP(&collectArtifacts, "artifacts", "a", false, "also mirror the artifacts of every indexed build")

	submitCmd.Flags().StringVar(&collectSource, "collect", prow.SourceName, "collection source to fetch")
	submitCmd.Flags().BoolVarP(&collectArtifacts, "artifacts", "a", false, "also mirror the artifacts of every indexed build")
}

// requireBroker connects to the configured brokers. An in-memory broker
// would never see another process, so one must be configured.
func (a *app) requireBroker() (broker.Broker, error) {
	if len(a.cfg.Broker.Brokers) == 0 {
		return nil, fmt.Errorf("no broker configured: set broker.brokers or REDPANDA_BROKERS (e.g. localhost:19092)")
	}
	brk, err := broker.New(a.cfg.Broker.Brokers, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create broker: %w", err)
	}
	return brk, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
