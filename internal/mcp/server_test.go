package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	mcpgo "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func resultText(t *testing.T, res *mcpgo.CallToolResult) string {
	t.Helper()

	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(*mcpgo.TextContent)
	require.True(t, ok, "expected text content")

	return text.Text
}

func echoServer(t *testing.T) *Server {
	t.Helper()

	server := NewServer(discardLogger(), "demo", "1.2.3")

	err := server.AddTool(
		&mcpgo.Tool{
			Name:        "echo",
			Description: "echoes text",
			InputSchema: ObjectSchema(
				Param{Name: "text", Types: []string{"string"}, Required: true},
				Param{Name: "times", Types: []string{"int"}},
			),
		},
		func(_ context.Context, req *mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			args, err := ParseArguments(req)
			if err != nil {
				return nil, err
			}

			text, _ := args["text"].(string)

			return TextResult("echo: " + text), nil
		},
	)
	require.NoError(t, err)

	return server
}

func TestServerCallTool(t *testing.T) {
	server := echoServer(t)

	require.Equal(t, "demo", server.Name())
	require.Equal(t, "1.2.3", server.Version())
	require.Len(t, server.Tools(), 1)

	res := server.CallTool(context.Background(), "echo", map[string]any{"text": "hello"})
	require.False(t, res.IsError)
	require.Equal(t, "echo: hello", resultText(t, res))

	tests := []struct {
		name  string
		tool  string
		input map[string]any
		want  string
	}{
		{name: "unknown tool", tool: "unknown", want: "Tool not found: unknown"},
		{name: "missing required", tool: "echo", input: map[string]any{}, want: "Invalid arguments"},
		{name: "wrong type", tool: "echo", input: map[string]any{"text": 3}, want: "Invalid arguments"},
		{name: "fractional integer", tool: "echo", input: map[string]any{"text": "x", "times": 1.5}, want: "Invalid arguments"},
		{name: "unknown property", tool: "echo", input: map[string]any{"text": "x", "loud": true}, want: "Invalid arguments"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := server.CallTool(context.Background(), tc.tool, tc.input)
			require.True(t, res.IsError)
			require.Contains(t, resultText(t, res), tc.want)
		})
	}
}

func TestServerHandlerError(t *testing.T) {
	server := NewServer(discardLogger(), "demo", "1.0.0")
	require.NoError(t, server.AddTool(
		&mcpgo.Tool{Name: "fails", Description: "always fails", InputSchema: ObjectSchema()},
		func(_ context.Context, _ *mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			return nil, errors.New("boom")
		},
	))

	res := server.CallTool(context.Background(), "fails", nil)
	require.True(t, res.IsError)
	require.Equal(t, "Tool execution failed: boom", resultText(t, res))
}

func TestServerAddToolRejectsSchemas(t *testing.T) {
	server := NewServer(discardLogger(), "demo", "1.0.0")
	noop := func(context.Context, *mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) { return nil, nil }

	require.Error(t, server.AddTool(&mcpgo.Tool{Name: "none"}, noop))
	require.Error(t, server.AddTool(&mcpgo.Tool{Name: "raw", InputSchema: map[string]any{"type": "object"}}, noop))
	require.Empty(t, server.Tools())
}

func TestServerReplacesTool(t *testing.T) {
	server := echoServer(t)

	require.NoError(t, server.AddTool(
		&mcpgo.Tool{Name: "echo", InputSchema: ObjectSchema()},
		func(context.Context, *mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			return TextResult("replaced"), nil
		},
	))

	require.Len(t, server.Tools(), 1)
	require.Equal(t, "replaced", resultText(t, server.CallTool(context.Background(), "echo", nil)))
}

func TestServerOverSDKTransport(t *testing.T) {
	server := echoServer(t)
	ctx := context.Background()

	serverTransport, clientTransport := mcpgo.NewInMemoryTransports()

	ss, err := server.SDK().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	defer ss.Close()

	client := mcpgo.NewClient(&mcpgo.Implementation{Name: "test-client", Version: "0.0.1"}, nil)

	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 1)
	require.Equal(t, "echo", tools.Tools[0].Name)

	res, err := cs.CallTool(ctx, &mcpgo.CallToolParams{Name: "echo", Arguments: map[string]any{"text": "over the wire"}})
	require.NoError(t, err)
	require.Equal(t, "echo: over the wire", resultText(t, res))

	res, err = cs.CallTool(ctx, &mcpgo.CallToolParams{Name: "echo", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.True(t, res.IsError)
}

func TestParseArguments(t *testing.T) {
	args, err := ParseArguments(&mcpgo.CallToolRequest{Params: &mcpgo.CallToolParamsRaw{
		Arguments: []byte(`{"i": 3, "f": 1.5, "whole": 2.0, "list": [1, {"n": 4}]}`),
	}})
	require.NoError(t, err)
	require.Equal(t, int64(3), args["i"])
	require.Equal(t, 1.5, args["f"])
	require.Equal(t, 2.0, args["whole"], "a fraction keeps the value a float")
	require.Equal(t, []any{int64(1), map[string]any{"n": int64(4)}}, args["list"])

	args, err = ParseArguments(nil)
	require.NoError(t, err)
	require.Empty(t, args)

	_, err = ParseArguments(&mcpgo.CallToolRequest{Params: &mcpgo.CallToolParamsRaw{Arguments: []byte(`{`)}})
	require.Error(t, err)
}
