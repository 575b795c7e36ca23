package hostbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	internalmcp "github.com/wagiedev/host-bridge-go/internal/mcp"
)

// MCPServer is the bridge's MCP tool server. Serve it with Run, e.g. over
// &mcp.StdioTransport{}.
type MCPServer = internalmcp.Server

// Tool is an extra MCP tool served next to the bridge tools.
//
// Example:
//
//	tool := hostbridge.NewTool(
//	    "track_count",
//	    "Returns the number of tracks",
//	    map[string]any{"type": "object", "properties": map[string]any{}},
//	    func(ctx context.Context, input map[string]any) (map[string]any, error) {
//	        n, err := b.Call(ctx, "CountTracks")
//	        if err != nil {
//	            return nil, err
//	        }
//	        return map[string]any{"count": n}, nil
//	    },
//	)
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description for the MCP client.
	Description() string

	// InputSchema returns a JSON schema of type "object" describing the input.
	// Input is validated against it before Execute runs.
	InputSchema() map[string]any

	// Execute runs the tool with the provided input.
	Execute(ctx context.Context, input map[string]any) (map[string]any, error)
}

// ToolFunc is a function-based tool implementation.
type ToolFunc func(ctx context.Context, input map[string]any) (map[string]any, error)

// NewTool creates a Tool from a function.
func NewTool(name, description string, schema map[string]any, fn ToolFunc) Tool {
	return &tool{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
	}
}

type tool struct {
	name        string
	description string
	schema      map[string]any
	fn          ToolFunc
}

// Compile-time verification that *tool implements the Tool interface.
var _ Tool = (*tool)(nil)

func (t *tool) Name() string                { return t.name }
func (t *tool) Description() string         { return t.description }
func (t *tool) InputSchema() map[string]any { return t.schema }
func (t *tool) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	return t.fn(ctx, input)
}

// NewMCPServer builds an MCP server exposing b: the generic "call" tool,
// one tool per DSL command, and any extra tools.
func NewMCPServer(b *Bridge, name, version string, extra ...Tool) (*MCPServer, error) {
	srv := internalmcp.NewServer(b.log, name, version)

	if err := internalmcp.RegisterTools(srv, b.client, b.commands); err != nil {
		return nil, err
	}

	for _, t := range extra {
		schema, err := mapToJSONSchema(t.InputSchema())
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", t.Name(), err)
		}

		mcpTool := &mcp.Tool{Name: t.Name(), Description: t.Description(), InputSchema: schema}
		if err := srv.AddTool(mcpTool, toolToMCPHandler(t)); err != nil {
			return nil, err
		}
	}

	return srv, nil
}

// toolToMCPHandler adapts a Tool.Execute to an mcp.ToolHandler.
func toolToMCPHandler(t Tool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := internalmcp.ParseArguments(req)
		if err != nil {
			return internalmcp.ErrorResult(fmt.Sprintf("failed to parse arguments: %v", err)), nil
		}

		result, err := t.Execute(ctx, args)
		if err != nil {
			return internalmcp.ErrorResult(err.Error()), nil
		}

		return internalmcp.JSONResult(result, false), nil
	}
}

// mapToJSONSchema converts a map[string]any JSON schema to *jsonschema.Schema.
func mapToJSONSchema(m map[string]any) (*jsonschema.Schema, error) {
	if m == nil {
		return nil, fmt.Errorf("missing input schema")
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("invalid input schema: %w", err)
	}

	return &schema, nil
}
