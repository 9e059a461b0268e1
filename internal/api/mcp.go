package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/shiftbrief/internal/cache"
	"github.com/kalambet/shiftbrief/internal/mesdb"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Orchestrator Orchestrator
	Store        SchemaStore
	Cache        *cache.Manager
}

// SchemaStore is the slice of the MES store the MCP tools need.
type SchemaStore interface {
	ExecuteQuery(ctx context.Context, query string) mesdb.QueryResult
	Schema(ctx context.Context, table string) (mesdb.SchemaInfo, error)
}

// NewMCPServer creates an MCP server with the meeting tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"shiftbrief",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("shiftbrief — production meeting assistant for manufacturing analysis and daily briefings."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("analyze",
			mcp.WithDescription("Answer a manufacturing question with a synthesized cross-domain analysis."),
			mcp.WithString("query", mcp.Description("Natural-language question about production, quality, equipment, or inventory"), mcp.Required()),
		),
		mcpAnalyze(deps),
	)

	s.AddTool(
		mcp.NewTool("daily_briefing",
			mcp.WithDescription("Generate the comprehensive daily production meeting briefing."),
			mcp.WithString("date", mcp.Description("Briefing date (YYYY-MM-DD, default today)")),
		),
		mcpDailyBriefing(deps),
	)

	s.AddTool(
		mcp.NewTool("run_query",
			mcp.WithDescription("Run a read-only SQL query against the MES database."),
			mcp.WithString("sql", mcp.Description("SELECT or WITH query; modifying statements are rejected"), mcp.Required()),
		),
		mcpRunQuery(deps),
	)

	s.AddTool(
		mcp.NewTool("get_schema",
			mcp.WithDescription("Describe the MES database schema."),
			mcp.WithString("table", mcp.Description("Table name; empty returns every table")),
		),
		mcpGetSchema(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"meeting://status",
			"Meeting Status",
			mcp.WithResourceDescription("Current meeting context and session state as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceStatus(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"meeting://latest-briefing",
			"Latest Briefing",
			mcp.WithResourceDescription("Most recent cached daily analysis bundle"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceLatestBriefing(deps),
	)

	return s
}

func mcpAnalyze(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		res := deps.Orchestrator.Run(ctx, query)
		if res.Synthesis != "" {
			return mcpText(res.Synthesis), nil
		}
		if res.ErrorAnalysis != nil {
			return mcpError(res.ErrorAnalysis.UserMessage), nil
		}
		return mcpError("analysis produced no result"), nil
	}
}

func mcpDailyBriefing(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		date := req.GetString("date", "")

		res := deps.Orchestrator.DailyBriefing(ctx, date)
		if res.Synthesis != "" {
			return mcpText(res.Synthesis), nil
		}
		if res.ErrorAnalysis != nil {
			return mcpError(res.ErrorAnalysis.UserMessage), nil
		}
		return mcpError("briefing produced no result"), nil
	}
}

func mcpRunQuery(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return mcpError("sql is required"), nil
		}

		result := deps.Store.ExecuteQuery(ctx, sql)
		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		if !result.Success {
			return mcpError(string(b)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetSchema(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table := req.GetString("table", "")

		schema, err := deps.Store.Schema(ctx, table)
		if err != nil {
			return mcpError(fmt.Sprintf("schema lookup failed: %v", err)), nil
		}
		b, err := json.Marshal(schema)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal schema: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceStatus(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Orchestrator.Status())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal status: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceLatestBriefing(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		entry := deps.Cache.Latest(7 * 24 * time.Hour)
		if entry == nil {
			return nil, fmt.Errorf("no cached briefing available")
		}
		b, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal briefing: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
