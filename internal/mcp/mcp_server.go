// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the Fleetscan MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.ResultManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Fleetscan Results Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: list_repositories ---
	s.AddTool(mcp.NewTool("list_repositories",
		mcp.WithDescription("List every repository with stored scan results."),
		mcp.WithNumber("limit", mcp.Description("Limit the number of names returned.")),
	), h.handleListRepositories)

	// --- 2. Tool: get_repository_health ---
	s.AddTool(mcp.NewTool("get_repository_health",
		mcp.WithDescription("Get the stored engineering-health record for one repository: metrics, dimension scores, rating and risk level."),
		mcp.WithString("repository", mcp.Description("Repository name as stored by the scan."), mcp.Required()),
	), h.handleGetRepositoryHealth)

	// --- 3. Tool: get_fleet_summary ---
	s.AddTool(mcp.NewTool("get_fleet_summary",
		mcp.WithDescription("Summarize stored results across the fleet: average aberrancy, rating and risk distributions, worst repositories."),
		mcp.WithNumber("worst", mcp.Description("Number of worst repositories to include. Defaults to 5.")),
	), h.handleGetFleetSummary)

	return s
}

// StartMCPServer starts the Fleetscan MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.ResultManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
