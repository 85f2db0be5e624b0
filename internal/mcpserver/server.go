package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"slices"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"that/internal/reporting"
	"that/pkg/logging"
	"that/pkg/registry"
	"that/pkg/runner"
)

// Server exposes a registry to MCP clients over stdio.
type Server struct {
	reg *registry.Registry
	mcp *server.MCPServer

	// Test bodies may patch package state, so runs never overlap.
	runMu sync.Mutex
}

// New builds the MCP server and registers its tools.
func New(reg *registry.Registry, version string) *Server {
	s := &Server{
		reg: reg,
		mcp: server.NewMCPServer("that", version, server.WithToolCapabilities(false)),
	}
	s.mcp.AddTools(s.tools()...)
	return s
}

// MCPServer returns the underlying server, mainly for tests.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// Serve speaks MCP over in/out until ctx is cancelled or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(logWriter{}, "", 0))
	logging.Info("MCP", "serving %d tests over stdio", s.reg.Len())
	return stdio.Listen(ctx, in, out)
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: listTestsTool(), Handler: s.handleListTests},
		{Tool: runTestsTool(), Handler: s.handleRunTests},
		{Tool: describeTestTool(), Handler: s.handleDescribeTest},
	}
}

func listTestsTool() mcp.Tool {
	return mcp.NewTool("that_list_tests",
		mcp.WithDescription("List registered tests, optionally narrowed by suite and tags"),
		mcp.WithString("suite",
			mcp.Description("Only tests of this suite"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags; a test needs at least one"),
		),
	)
}

func runTestsTool() mcp.Tool {
	return mcp.NewTool("that_run_tests",
		mcp.WithDescription("Run tests and return the JSON report"),
		mcp.WithString("suite",
			mcp.Description("Only run this suite"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags; a test needs at least one"),
		),
		mcp.WithString("exclude_tags",
			mcp.Description("Comma-separated tags to skip"),
		),
		mcp.WithBoolean("fail_fast",
			mcp.Description("Stop after the first failed or errored test"),
			mcp.DefaultBool(false),
		),
	)
}

func describeTestTool() mcp.Tool {
	return mcp.NewTool("that_describe_test",
		mcp.WithDescription("Show the suite, tags and hooks of one test"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Full name (\"Suite › description\") or description"),
		),
	)
}

// testInfo is the listing shape of one test.
type testInfo struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Suite       string   `json:"suite,omitempty"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Slow        bool     `json:"slow,omitempty"`
	SkipReason  string   `json:"skip_reason,omitempty"`
	Location    string   `json:"location,omitempty"`
}

func infoOf(tc *registry.TestCase) testInfo {
	return testInfo{
		ID:          tc.ID,
		Name:        tc.FullName(),
		Suite:       tc.Suite,
		Description: tc.Description,
		Tags:        tc.TagList(),
		Slow:        tc.Slow,
		SkipReason:  tc.SkipReason,
		Location:    tc.Location(),
	}
}

func filterFrom(req mcp.CallToolRequest) registry.Filter {
	var f registry.Filter
	if suite := req.GetString("suite", ""); suite != "" {
		f.Suites = []string{suite}
	}
	f.Include = registry.ParseTags(req.GetString("tags", ""))
	f.Exclude = registry.ParseTags(req.GetString("exclude_tags", ""))
	return f
}

func (s *Server) handleListTests(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := filterFrom(req)
	if err := s.reg.Validate(f); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	tests := s.reg.Select(f)
	infos := make([]testInfo, 0, len(tests))
	for _, tc := range tests {
		infos = append(infos, infoOf(tc))
	}
	return jsonResult(map[string]any{"total": len(infos), "tests": infos})
}

func (s *Server) handleRunTests(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := filterFrom(req)
	if err := s.reg.Validate(f); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	r := runner.New(s.reg,
		runner.WithFilter(f),
		runner.WithFailFast(req.GetBool("fail_fast", false)),
	)
	summary, outcomes := r.Run(ctx)
	logging.Info("MCP", "run %s finished: %d passed, %d failed, %d errored",
		summary.RunID, summary.Passed, summary.Failed, summary.Errored)
	return jsonResult(reporting.BuildReport(*summary, outcomes))
}

func (s *Server) handleDescribeTest(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required"), nil
	}
	tc, ok := s.reg.Find(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no test named %q", name)), nil
	}

	desc := struct {
		testInfo
		Parametrized bool     `json:"parametrized"`
		Param        string   `json:"param,omitempty"`
		HasSetup     bool     `json:"has_setup"`
		HasTeardown  bool     `json:"has_teardown"`
		Fixtures     []string `json:"fixtures,omitempty"`
	}{testInfo: infoOf(tc)}
	if tc.Param != nil {
		desc.Parametrized = true
		desc.Param = fmt.Sprint(tc.Param)
	}
	if tc.Suite != "" {
		if def, ok := s.reg.Lookup(tc.Suite); ok {
			desc.HasSetup = def.Setup != nil
			desc.HasTeardown = def.Teardown != nil
			for name := range def.Providers {
				desc.Fixtures = append(desc.Fixtures, name)
			}
			slices.Sort(desc.Fixtures)
		}
	}
	return jsonResult(desc)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// logWriter routes the stdio server's error log into the MCP subsystem.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	logging.Warn("MCP", "%s", bytes.TrimRight(p, "\r\n"))
	return len(p), nil
}
