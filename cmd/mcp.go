package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/biothings/trapi-testing-tools/internal/config"
	"github.com/biothings/trapi-testing-tools/internal/disposition"
	"github.com/biothings/trapi-testing-tools/internal/environment"
	"github.com/biothings/trapi-testing-tools/internal/history"
	"github.com/biothings/trapi-testing-tools/internal/probe"
	"github.com/biothings/trapi-testing-tools/internal/testing"
	"github.com/biothings/trapi-testing-tools/pkg/logging"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve tt as an MCP server over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout so AI assistants
can list environments, ping instances and run queries. The server never
prompts, views or saves response bodies; each run returns a JSON report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			logging.Info("MCP", "Starting tt MCP server (stdio transport)")
			return server.ServeStdio(newMCPServer(cfg).mcpServer)
		},
	}
}

// mcpServer exposes tt operations as MCP tools.
type mcpServer struct {
	cfg       config.Config
	registry  *environment.Registry
	mcpServer *server.MCPServer
}

func newMCPServer(cfg config.Config) *mcpServer {
	m := &mcpServer{
		cfg:      cfg,
		registry: environment.New(cfg.Environments),
		mcpServer: server.NewMCPServer(
			"tt",
			GetVersion(),
			server.WithToolCapabilities(false),
		),
	}
	m.registerTools()
	return m
}

func (m *mcpServer) registerTools() {
	m.mcpServer.AddTool(mcp.NewTool("list_environments",
		mcp.WithDescription("List the environment keys queries can be run against, with their base URLs"),
	), m.handleListEnvironments)

	m.mcpServer.AddTool(mcp.NewTool("ping",
		mcp.WithDescription("Check which instances of an application respond"),
		mcp.WithString("app",
			mcp.Description("Application to check; the default application when omitted"),
		),
		mcp.WithBoolean("all",
			mcp.Description("Check every configured application"),
		),
	), m.handlePing)

	m.mcpServer.AddTool(mcp.NewTool("run_query",
		mcp.WithDescription("Run query files against an environment and return the assertion results"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Query name, directory or glob under the queries directory, e.g. routine/sync/general"),
		),
		mcp.WithString("environment",
			mcp.Description("Environment key such as bte.ci; the default application when omitted"),
		),
	), m.handleRunQuery)
}

func (m *mcpServer) handleListEnvironments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(m.registry.Entries())
}

func (m *mcpServer) handlePing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apps, err := pingTargets(m.registry, request.GetString("app", ""), request.GetBool("all", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report := probe.NewProber(probe.FromConfig(m.cfg.Probe)...).Probe(ctx, apps)
	return jsonResult(report)
}

func (m *mcpServer) handleRunQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path argument is required"), nil
	}
	key := request.GetString("environment", m.registry.DefaultApp())

	entry, err := m.registry.Lookup(key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	seedQueries(m.cfg.QueriesDir)
	opts := testing.FrameworkOptions{
		Mode:         testing.ExecutionModeMCPServer,
		QueriesDir:   m.cfg.QueriesDir,
		TemplateVars: templateVars(entry),
		HTTPClient:   httpClientFor(ctx, m.cfg, entry.App),
		PollInterval: m.cfg.Poll.Interval,
		PollTimeout:  m.cfg.Poll.Timeout,
		UserAgent:    "tt/" + GetVersion(),
		Disposer:     disposition.NewController(disposition.NonInteractive()),
	}
	if m.cfg.History.Enabled {
		store, err := history.NewSQLiteStore(m.cfg.History.Path)
		if err != nil {
			logging.Warn("History", "Run history disabled: %v", err)
		} else {
			defer store.Close()
			opts.Recorder = store
		}
	}
	framework := testing.NewTestFramework(opts)

	queries, err := framework.Loader.Load(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load queries: %v", err)), nil
	}

	testCfg := testing.TestConfiguration{
		Environment: entry.Key,
		BaseURL:     entry.URL,
		Selection:   []string{path},
	}
	if _, err := framework.Runner.Run(ctx, testCfg, queries); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Run interrupted: %v", err)), nil
	}

	reporter, ok := framework.Reporter.(*testing.StructuredReporter)
	if !ok {
		return mcp.NewToolResultError("no structured results available"), nil
	}
	data, err := reporter.ResultsAsJSON()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format results: %v", err)), nil
	}
	return mcp.NewToolResultText(data), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
