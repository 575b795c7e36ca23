package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server is a registry of MCP tools.
type Server struct {
	log     *slog.Logger
	name    string
	version string

	mu    sync.RWMutex
	tools map[string]*registeredTool
	order []string
}

type registeredTool struct {
	tool     *mcp.Tool
	handler  mcp.ToolHandler
	resolved *jsonschema.Resolved
}

// NewServer creates an empty tool registry.
func NewServer(log *slog.Logger, name, version string) *Server {
	return &Server{
		log:     log.With("component", "mcp_server"),
		name:    name,
		version: version,
		tools:   make(map[string]*registeredTool, 16),
	}
}

// AddTool registers a tool. Its input schema must be a *jsonschema.Schema
// of type object. Registering a name again replaces the earlier tool.
func (s *Server) AddTool(tool *mcp.Tool, handler mcp.ToolHandler) error {
	schema, ok := tool.InputSchema.(*jsonschema.Schema)
	if !ok || schema.Type != "object" {
		return fmt.Errorf("tool %s: input schema must be an object schema", tool.Name)
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("tool %s: %w", tool.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tools[tool.Name]; !exists {
		s.order = append(s.order, tool.Name)
	}

	s.tools[tool.Name] = &registeredTool{tool: tool, handler: handler, resolved: resolved}

	return nil
}

// Name returns the server name.
func (s *Server) Name() string {
	return s.name
}

// Version returns the server version.
func (s *Server) Version() string {
	return s.version
}

// Tools returns the registered tools in registration order.
func (s *Server) Tools() []*mcp.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*mcp.Tool, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tools[name].tool)
	}

	return out
}

// CallTool invokes a tool directly. Unknown tools, invalid input and
// handler errors are reported as error results.
func (s *Server) CallTool(ctx context.Context, name string, input map[string]any) *mcp.CallToolResult {
	s.mu.RLock()
	t, exists := s.tools[name]
	s.mu.RUnlock()

	if !exists {
		return ErrorResult("Tool not found: " + name)
	}

	if input == nil {
		input = map[string]any{}
	}

	raw, err := json.Marshal(input)
	if err != nil {
		return ErrorResult("Failed to marshal input: " + err.Error())
	}

	result, err := s.handle(t)(ctx, &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: name, Arguments: raw},
	})
	if err != nil {
		return ErrorResult("Tool execution failed: " + err.Error())
	}

	return result
}

// handle wraps a tool's handler with input validation.
func (s *Server) handle(t *registeredTool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := ParseArguments(req)
		if err != nil {
			return ErrorResult(err.Error()), nil
		}

		if err := t.resolved.Validate(args); err != nil {
			s.log.Debug("Rejected tool input", "tool", t.tool.Name, "error", err)

			return ErrorResult("Invalid arguments: " + err.Error()), nil
		}

		return t.handler(ctx, req)
	}
}

// SDK builds an MCP SDK server exposing every registered tool.
func (s *Server) SDK() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: s.name, Version: s.version}, nil)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, name := range s.order {
		t := s.tools[name]
		srv.AddTool(t.tool, s.handle(t))
	}

	return srv
}

// Run serves the registered tools over t until the client disconnects or
// ctx is done.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	s.log.Info("Serving MCP tools", "tools", len(s.order))

	return s.SDK().Run(ctx, t)
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}

// JSONResult renders v as indented JSON text. isError marks the result as
// a failure.
func JSONResult(v any, isError bool) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ErrorResult("Failed to encode result: " + err.Error())
	}

	res := TextResult(string(data))
	res.IsError = isError

	return res
}

// ParseArguments decodes CallToolRequest arguments into a map. Integer
// literals become int64 and other numbers float64, matching the wire
// codecs.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return make(map[string]any), nil
	}

	dec := json.NewDecoder(bytes.NewReader(req.Params.Arguments))
	dec.UseNumber()

	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	if args == nil {
		args = make(map[string]any)
	}

	for k, v := range args {
		args[k] = normalizeNumbers(v)
	}

	return args, nil
}

func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}

		f, _ := x.Float64()

		return f
	case []any:
		for i, item := range x {
			x[i] = normalizeNumbers(item)
		}

		return x
	case map[string]any:
		for k, item := range x {
			x[k] = normalizeNumbers(item)
		}

		return x
	default:
		return v
	}
}
