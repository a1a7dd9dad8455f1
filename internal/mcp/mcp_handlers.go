package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.ResultManager
}

func (h *toolHandler) handleListRepositories(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", h.baseCfg.ResultLimit)

	store := h.mgr.GetResultStore()
	repos, err := store.ListRepositories()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list repositories: %v", err)), nil
	}
	if limit > 0 && len(repos) > limit {
		repos = repos[:limit]
	}

	jsonData, err := json.MarshalIndent(repos, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize repositories: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetRepositoryHealth(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo := request.GetString("repository", "")
	if repo == "" {
		return mcp.NewToolResultError("repository is required"), nil
	}

	store := h.mgr.GetResultStore()
	record, err := store.GetLatest(repo)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load repository %s: %v", repo, err)), nil
	}
	if record == nil {
		return mcp.NewToolResultError(fmt.Sprintf("No stored results for repository %s", repo)), nil
	}

	jsonData, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize record: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetFleetSummary(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	worst := request.GetInt("worst", 5)

	store := h.mgr.GetResultStore()
	records, err := store.ListRecords()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list records: %v", err)), nil
	}

	summary := schema.BuildFleetSummary(records, worst)
	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize summary: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
