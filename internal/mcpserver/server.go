// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes tokodata tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tokodata/internal/datasvc"
)

// Server wraps the MCP server with tokodata tools.
type Server struct {
	mcp *server.MCPServer
	svc *datasvc.Service
}

// New creates a new MCP server with all tokodata tools registered.
func New(svc *datasvc.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"tokodata",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_collection",
		mcp.WithDescription("Read one collection (customers, products, orders, or line-items) "+
			"through the cache. Field names follow the data dictionary; read it first via "+
			"the get_data_dictionary tool or the tokodata://data-dictionary resource."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Collection table name (e.g. penjualan)")),
		mcp.WithBoolean("refresh", mcp.Description("Bypass the freshness window and fetch now")),
	), s.getCollection)

	s.mcp.AddTool(mcp.NewTool("revenue_summary",
		mcp.WithDescription("Reconcile order headers and line-items into per-order, monthly, "+
			"and total revenue. Line-items win over header subtotals."),
	), s.revenueSummary)

	s.mcp.AddTool(mcp.NewTool("dashboard_summary",
		mcp.WithDescription("Record counts per collection plus the reconciled revenue total."),
	), s.dashboardSummary)

	s.mcp.AddTool(mcp.NewTool("cache_info",
		mcp.WithDescription("Inspect the cache: freshness window plus per-collection age and size."),
	), s.cacheInfo)

	s.mcp.AddTool(mcp.NewTool("invalidate_cache",
		mcp.WithDescription("Drop the cached copy of one collection so the next read re-fetches."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Collection table name")),
	), s.invalidateCache)

	s.mcp.AddTool(mcp.NewTool("get_data_dictionary",
		mcp.WithDescription("Returns the data dictionary: collection tables, their fields, "+
			"and the key and date conventions used for reconciliation."),
	), s.getDataDictionary)

	// Resource: data dictionary.
	s.mcp.AddResource(
		mcp.NewResource("tokodata://data-dictionary", "Data Dictionary",
			mcp.WithResourceDescription("Collection tables, fields, and reconciliation conventions."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDataDictionaryResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) getCollection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refresh := req.GetBool("refresh", false)

	res, err := s.svc.GetCollection(ctx, name, refresh)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown collection: %s (valid: %s)",
			name, strings.Join(s.svc.Collections().All(), ", "))), nil
	}

	out, _ := json.MarshalIndent(map[string]any{
		"records":    res.Records,
		"count":      len(res.Records),
		"from_cache": res.FromCache,
		"status":     res.Status.String(),
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) revenueSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.svc.Revenue(ctx), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) dashboardSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.svc.Dashboard(ctx), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) cacheInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.svc.Cache(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) invalidateCache(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.InvalidateCollection(name); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown collection: %s", name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("invalidated: %s", name)), nil
}

func (s *Server) getDataDictionary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DataDictionary), nil
}

func (s *Server) readDataDictionaryResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "tokodata://data-dictionary",
			MIMEType: "text/markdown",
			Text:     DataDictionary,
		},
	}, nil
}
