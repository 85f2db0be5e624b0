package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"that/pkg/registry"
	"that/pkg/that"
)

func testRegistry() *registry.Registry {
	reg := registry.New()
	reg.Test("standalone passes", func(*registry.T) {})
	reg.Suite("math", func(s *registry.SuiteBuilder) {
		s.Setup(func(*registry.T) (any, error) { return 2, nil })
		s.Provide("three", func(*registry.T) (any, error) { return 3, nil })
		s.Test("adds", func(t *registry.T) {
			that.That(t.Fixture().(int) + 1).Equals(3)
		}, registry.WithTags(registry.TagUnit))
		s.Test("is wrong", func(t *registry.T) {
			that.That(1 + 1).Equals(3)
		}, registry.WithTags(registry.TagSmoke))
	})
	return reg
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return text.Text
}

func TestToolsAreRegistered(t *testing.T) {
	s := New(testRegistry(), "1.2.3")
	var names []string
	for _, tool := range s.tools() {
		names = append(names, tool.Tool.Name)
	}
	assert.Equal(t, []string{"that_list_tests", "that_run_tests", "that_describe_test"}, names)
	assert.NotNil(t, s.MCPServer())
}

func TestListTests(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]any
		wantTotal int
		wantErr   string
	}{
		{name: "all", args: map[string]any{}, wantTotal: 3},
		{name: "by suite", args: map[string]any{"suite": "math"}, wantTotal: 2},
		{name: "by tag", args: map[string]any{"tags": "smoke"}, wantTotal: 1},
		{name: "unknown suite", args: map[string]any{"suite": "nope"}, wantErr: `unknown suite "nope"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(testRegistry(), "dev")
			res, err := s.handleListTests(context.Background(), callRequest("that_list_tests", tt.args))
			require.NoError(t, err)

			text := resultText(t, res)
			if tt.wantErr != "" {
				assert.True(t, res.IsError)
				assert.Contains(t, text, tt.wantErr)
				return
			}
			var out struct {
				Total int        `json:"total"`
				Tests []testInfo `json:"tests"`
			}
			require.NoError(t, json.Unmarshal([]byte(text), &out))
			assert.Equal(t, tt.wantTotal, out.Total)
			assert.Len(t, out.Tests, tt.wantTotal)
		})
	}
}

func TestRunTestsReturnsReport(t *testing.T) {
	s := New(testRegistry(), "dev")
	res, err := s.handleRunTests(context.Background(), callRequest("that_run_tests", map[string]any{
		"suite": "math",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var report struct {
		RunID   string `json:"run_id"`
		Summary struct {
			Total   int  `json:"total"`
			Passed  int  `json:"passed"`
			Failed  int  `json:"failed"`
			Success bool `json:"success"`
		} `json:"summary"`
		Outcomes []struct {
			Description string `json:"description"`
			Status      string `json:"status"`
			Failure     *struct {
				Message string `json:"message"`
			} `json:"failure"`
		} `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &report))

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.Passed)
	assert.Equal(t, 1, report.Summary.Failed)
	assert.False(t, report.Summary.Success)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, "FAILED", report.Outcomes[1].Status)
	require.NotNil(t, report.Outcomes[1].Failure)
}

func TestRunTestsExcludeTags(t *testing.T) {
	s := New(testRegistry(), "dev")
	res, err := s.handleRunTests(context.Background(), callRequest("that_run_tests", map[string]any{
		"exclude_tags": "smoke",
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), `"success": true`)
}

func TestDescribeTest(t *testing.T) {
	s := New(testRegistry(), "dev")

	res, err := s.handleDescribeTest(context.Background(), callRequest("that_describe_test", map[string]any{
		"name": "math › adds",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var desc map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &desc))
	assert.Equal(t, "math", desc["suite"])
	assert.Equal(t, true, desc["has_setup"])
	assert.Equal(t, false, desc["has_teardown"])
	assert.Equal(t, []any{"three"}, desc["fixtures"])
	assert.Equal(t, []any{"unit"}, desc["tags"])
	assert.Regexp(t, `^server_test\.go:\d+$`, desc["location"])
}

func TestDescribeTestErrors(t *testing.T) {
	s := New(testRegistry(), "dev")

	res, err := s.handleDescribeTest(context.Background(), callRequest("that_describe_test", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "name is required", resultText(t, res))

	res, err = s.handleDescribeTest(context.Background(), callRequest("that_describe_test", map[string]any{"name": "ghost"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), `no test named "ghost"`)
}

func TestProtocolRoundTrip(t *testing.T) {
	s := New(testRegistry(), "1.2.3")
	c, err := client.NewInProcessClient(s.MCPServer())
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{Name: "that-test", Version: "1.0.0"}
	info, err := c.Initialize(ctx, initRequest)
	require.NoError(t, err)
	assert.Equal(t, "that", info.ServerInfo.Name)
	assert.Equal(t, "1.2.3", info.ServerInfo.Version)

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	assert.Len(t, tools.Tools, 3)

	res, err := c.CallTool(ctx, callRequest("that_run_tests", map[string]any{"tags": "unit"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), `"success": true`)
}
