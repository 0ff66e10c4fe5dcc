// Package main provides the arcalog CLI: collection of Prow job metadata,
// artifact mirroring and build lookups, built on the Cobra framework.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"arcalog/src/config"
	"arcalog/src/provider"
)

// version is overridden at link time.
var version = "dev"

var (
	configPath  string
	dataPath    string
	metricsAddr string

	// Shared state set up before any subcommand runs
	application *app
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "arcalog",
	Short: "arcalog - CI artifact collection and failure lookup for Prow",
	Long: `arcalog snapshots the job list of a Prow deployment, indexes its builds
by outcome and job type, mirrors their artifact trees and answers
"what happened to build X" from the local copy.

Commands:
- collect: fetch and index the configured job lists
- build:   print what is known about one build
- tests:   print the failed JUnit tests of one build
- view:    browse a build's failure events interactively
- mirror:  copy one remote artifact listing to disk
- submit:  queue a collection for a running agent
- agent:   run collections requested over the broker
- mcp:     serve build lookups to MCP clients over stdio`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if metricsAddr != "" {
			cfg.Metrics.Addr = metricsAddr
		}

		// Logs go to stderr so stdout stays clean for JSON and the MCP transport.
		application = newApp(cfg, dataPath, os.Stderr)

		if addr := cfg.Metrics.Addr; addr != "" {
			ctx := cmd.Context()
			go func() {
				if err := application.metrics.Serve(ctx, addr, application.logger); err != nil {
					application.logger.Error("[Metrics] Endpoint stopped: %v", err)
				}
			}()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", config.DefaultDataPath, "storage root for snapshots and artifacts")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	rootCmd.AddCommand(collectCmd, buildCmd, testsCmd, viewCmd, mirrorCmd, submitCmd, agentCmd, mcpCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, provider.WrapError(err))
		os.Exit(1)
	}
}
