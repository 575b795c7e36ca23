// Package mcp exposes the bridge as Model Context Protocol tools.
//
// Server keeps a registry of tools with their input schemas. Registered
// tools can be served over any MCP transport through the official SDK, or
// invoked directly with CallTool. Inputs are validated against the tool's
// schema before its handler runs.
package mcp
