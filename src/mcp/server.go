package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"arcalog/src/collector"
	"arcalog/src/contracts"
	"arcalog/src/junit"
	"arcalog/src/logger"
	"arcalog/src/provider"
	"arcalog/src/sanitize"
)

// DefaultSource is the collection source used when a call names none.
const DefaultSource = "prow"

// BuildResolver answers build lookups.
type BuildResolver interface {
	Info(ctx context.Context, buildID string) *contracts.BuildInfo
	ResolveEvents(ctx context.Context, buildID string) (*contracts.BuildInfo, []contracts.Event, error)
	TestFailures(ctx context.Context, buildID string) ([]junit.TestFailure, error)
}

// Collector runs one metadata collection.
type Collector interface {
	FetchAndIndex(ctx context.Context, sourceURL string, collectArtifacts bool) (*collector.Report, error)
}

// Server is the MCP server for arcalog.
type Server struct {
	mcpServer  *server.MCPServer
	resolver   BuildResolver
	collectors map[string]Collector
	store      EventStore
	logger     logger.Logger
}

// NewServer creates a new MCP server. collectors is keyed by source name and
// may be empty, in which case collect_metadata reports an error.
func NewServer(version string, resolver BuildResolver, collectors map[string]Collector, log logger.Logger) *Server {
	s := server.NewMCPServer(
		"arcalog",
		version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer:  s,
		resolver:   resolver,
		collectors: collectors,
		store:      NewInMemoryStore(recentBuilds),
		logger:     log,
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	infoTool := mcp.NewTool("get_build_info",
		mcp.WithDescription("Look up a build by ID in the collected snapshots. Returns its result URL, state (failure or success), job type and the log lines that matched the configured failure keywords. Artifacts are mirrored on first access."),
		mcp.WithString("build_id",
			mcp.Required(),
			mcp.Description("Build ID as shown by the CI system"),
		),
	)

	eventsTool := mcp.NewTool("get_build_events",
		mcp.WithDescription("Return the failure events of a build grouped by normalized message, most frequent first. Use get_event_details with a group id to see every occurrence."),
		mcp.WithString("build_id",
			mcp.Required(),
			mcp.Description("Build ID as shown by the CI system"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Max groups to return (default: %d)", DefaultGroupLimit)),
		),
	)

	detailsTool := mcp.NewTool("get_event_details",
		mcp.WithDescription("List every occurrence of one event group, with file and line. Use after get_build_events."),
		mcp.WithString("build_id",
			mcp.Required(),
			mcp.Description("Build ID passed to get_build_events"),
		),
		mcp.WithString("group_id",
			mcp.Required(),
			mcp.Description("Group id from the get_build_events response"),
		),
	)

	testsTool := mcp.NewTool("get_test_failures",
		mcp.WithDescription("List the failed test cases recorded in the JUnit reports among a build's artifacts, with the first lines of their output."),
		mcp.WithString("build_id",
			mcp.Required(),
			mcp.Description("Build ID as shown by the CI system"),
		),
	)

	collectTool := mcp.NewTool("collect_metadata",
		mcp.WithDescription("Download the job list of a CI deployment and index it as a new snapshot generation. Optionally mirrors the artifacts of every indexed build, which can take a long time."),
		mcp.WithString("location",
			mcp.Required(),
			mcp.Description("Base URL of the deployment (the job list is read from <location>/prowjobs.js)"),
		),
		mcp.WithString("source",
			mcp.Description("Collection source (default: prow)"),
		),
		mcp.WithBoolean("artifacts",
			mcp.Description("Also mirror build artifacts (default: false)"),
		),
	)

	s.mcpServer.AddTool(infoTool, s.handleGetBuildInfo)
	s.mcpServer.AddTool(eventsTool, s.handleGetBuildEvents)
	s.mcpServer.AddTool(detailsTool, s.handleGetEventDetails)
	s.mcpServer.AddTool(testsTool, s.handleGetTestFailures)
	s.mcpServer.AddTool(collectTool, s.handleCollectMetadata)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// handleGetBuildInfo returns the BuildInfo record. Unknown or empty ids are
// reported through its error field, not as a tool error.
func (s *Server) handleGetBuildInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	buildID := strings.TrimSpace(request.GetString("build_id", ""))
	return jsonResult(s.resolver.Info(ctx, buildID))
}

func (s *Server) handleGetBuildEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	buildID := strings.TrimSpace(request.GetString("build_id", ""))
	limit := request.GetInt("limit", DefaultGroupLimit)

	info, evs, err := s.resolver.ResolveEvents(ctx, buildID)
	if err != nil {
		return mcp.NewToolResultError(userMessage(err)), nil
	}
	evs = cleanEvents(evs)
	s.store.Store(buildID, evs)

	groups, omitted := GroupEvents(evs, limit)
	info.Events = nil

	return jsonResult(EventsResponse{
		Build:       info,
		TotalEvents: len(evs),
		Groups:      groups,
		Omitted:     omitted,
	})
}

func (s *Server) handleGetEventDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	buildID := strings.TrimSpace(request.GetString("build_id", ""))
	if buildID == "" {
		return mcp.NewToolResultError("build_id parameter is required"), nil
	}

	groupID := strings.TrimSpace(request.GetString("group_id", ""))
	if groupID == "" {
		return mcp.NewToolResultError("group_id parameter is required"), nil
	}

	occurrences, found := s.store.Get(buildID, groupID)
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("group not found: build_id=%s, group_id=%s (call get_build_events first)", buildID, groupID)), nil
	}

	return jsonResult(EventDetails{BuildID: buildID, ID: groupID, Occurrences: occurrences})
}

func (s *Server) handleGetTestFailures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	buildID := strings.TrimSpace(request.GetString("build_id", ""))

	failures, err := s.resolver.TestFailures(ctx, buildID)
	if err != nil {
		return mcp.NewToolResultError(userMessage(err)), nil
	}

	resp := TestFailuresResponse{BuildID: buildID, Total: len(failures), Tests: []TestSummary{}}
	for _, f := range failures {
		if len(resp.Tests) == maxTestsReported {
			break
		}
		resp.Tests = append(resp.Tests, TestSummary{
			Name:    f.FullName(),
			Suite:   f.Suite,
			Kind:    f.Kind,
			Message: truncate(sanitize.Line(f.Message), maxMessageLength),
			Output:  cleanLines(f.OutputLines(maxOutputLines)),
			File:    f.File,
		})
	}
	return jsonResult(resp)
}

func (s *Server) handleCollectMetadata(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	location := strings.TrimSpace(request.GetString("location", ""))
	if location == "" {
		return mcp.NewToolResultError("location parameter is required"), nil
	}

	source := request.GetString("source", DefaultSource)
	c, ok := s.collectors[source]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown source %q (configured: %s)", source, strings.Join(s.sourceNames(), ", "))), nil
	}

	report, err := c.FetchAndIndex(ctx, location, request.GetBool("artifacts", false))
	if err != nil {
		s.logger.Error("[MCP] collect_metadata %s failed: %v", location, err)
		return mcp.NewToolResultError(userMessage(err)), nil
	}

	gen := report.Generation
	return jsonResult(CollectSummary{
		Source:         source,
		Location:       location,
		Generation:     gen.ID,
		Jobs:           report.Jobs,
		Failures:       gen.Failures,
		Successes:      gen.Successes,
		JobTypes:       gen.JobTypes,
		Skipped:        report.Skipped,
		Mirrored:       report.Mirrored,
		MirrorFailures: report.MirrorFailures,
	})
}

func (s *Server) sourceNames() []string {
	names := make([]string, 0, len(s.collectors))
	for name := range s.collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// userMessage renders err the way the CLI does.
func userMessage(err error) string {
	var userErr *provider.UserError
	if errors.As(provider.WrapError(err), &userErr) {
		if userErr.Hint != "" {
			return userErr.Message + " " + userErr.Hint
		}
		return userErr.Message
	}
	return err.Error()
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
