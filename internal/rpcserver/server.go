// Package rpcserver exposes Laminark's memory over the Model Context
// Protocol so any MCP-speaking agent can recall, save, and inspect its
// own persisted context by adding Laminark as a stdio server.
package rpcserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/laminark/laminark/internal/capture"
	"github.com/laminark/laminark/internal/config"
	"github.com/laminark/laminark/internal/embedding"
	"github.com/laminark/laminark/internal/store"
)

// responseCharBudget caps a tool result's rendered text to roughly the
// 2000-token budget a context window can comfortably spend on one
// recall call.
const responseCharBudget = 8000

const serverInstructions = `Laminark provides persistent, project-scoped memory that survives ` +
	`across sessions and context compactions. Use recall to search past ` +
	`decisions, changes, and findings; use save_memory to record something ` +
	`worth remembering; use discover_tools to see what else is available in ` +
	`this project; use graph_stats and query_graph to inspect detected work ` +
	`units (thought branches, debug paths).`

// New builds an MCP server with every Laminark tool registered against
// repos. embedder is optional: when nil, recall falls back to
// keyword-only search. privacy supplies the live privacy rules;
// save_memory applies their additional redaction patterns to
// agent-submitted content, as the hook's capture pipeline does to tool
// output.
func New(repos *store.Repositories, embedder *embedding.Client, privacy func() config.Privacy) *server.MCPServer {
	srv := server.NewMCPServer(
		"laminark",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(serverInstructions),
	)

	srv.AddTool(
		mcp.NewTool("recall",
			mcp.WithDescription("Search persisted project memory for past decisions, changes, and findings relevant to a query."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language or keyword search query")),
			mcp.WithNumber("limit", mcp.Description("Max results (default 10)")),
		),
		handleRecall(repos, embedder),
	)

	srv.AddTool(
		mcp.NewTool("save_memory",
			mcp.WithDescription("Save an observation to persistent memory. Use for decisions, findings, or reference material worth recalling later."),
			mcp.WithString("content", mcp.Required(), mcp.Description("The text to remember")),
			mcp.WithString("kind", mcp.Description("change, decision, finding, or reference (default: unclassified)")),
		),
		handleSaveMemory(repos, privacy),
	)

	srv.AddTool(
		mcp.NewTool("discover_tools",
			mcp.WithDescription("List tools, commands, and skills available in this project, ranked by recent relevance."),
		),
		handleDiscoverTools(repos),
	)

	srv.AddTool(
		mcp.NewTool("graph_stats",
			mcp.WithDescription("Summarize the memory graph: thought branch and debug path counts, open/unresolved totals."),
		),
		handleGraphStats(repos),
	)

	srv.AddTool(
		mcp.NewTool("query_graph",
			mcp.WithDescription("Find which thought branches and debug paths an observation belongs to."),
			mcp.WithString("observation_id", mcp.Required(), mcp.Description("Observation id to look up")),
		),
		handleQueryGraph(repos),
	)

	return srv
}

func handleRecall(repos *store.Repositories, embedder *embedding.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, _ := req.GetArguments()["query"].(string)
		if strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		limit := intArg(req, "limit", 10)

		var queryVec []float32
		if embedder != nil {
			if v, err := embedder.Embed(ctx, query); err == nil {
				queryVec = v
			}
		}

		results, err := repos.Search.HybridSearch(query, queryVec, store.SearchOptions{Limit: limit})
		if err != nil {
			return mcp.NewToolResultError("recall failed: " + err.Error()), nil
		}
		if len(results) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No memories found for: %q", query)), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Found %d memories:\n\n", len(results))
		for i, r := range results {
			obs := r.Observation
			fmt.Fprintf(&b, "[%d] %s (%s, %s) — %s\n\n", i+1, idHandle(obs.ID), obs.Kind, obs.CreatedAt.Format("2006-01-02"), truncate(obs.Content, 300))
		}
		return mcp.NewToolResultText(truncate(b.String(), responseCharBudget)), nil
	}
}

func handleSaveMemory(repos *store.Repositories, privacy func() config.Privacy) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, _ := req.GetArguments()["content"].(string)
		if strings.TrimSpace(content) == "" {
			return mcp.NewToolResultError("content is required"), nil
		}
		kindArg, _ := req.GetArguments()["kind"].(string)
		kind := store.KindUnclassified
		if kindArg != "" {
			kind = store.Kind(kindArg)
		}

		content = capture.Redact(content, privacy().AdditionalPatterns)
		obs, err := repos.Observations.Create(store.ObservationInput{
			Source:  "mcp:save_memory",
			Content: content,
			Kind:    kind,
		})
		if err != nil {
			return mcp.NewToolResultError("save failed: " + err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Saved as %s", idHandle(obs.ID))), nil
	}
}

func handleDiscoverTools(repos *store.Repositories) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		entries, err := repos.ToolRegistry.GetAvailableForSession()
		if err != nil {
			return mcp.NewToolResultError("discover_tools failed: " + err.Error()), nil
		}
		if len(entries) == 0 {
			return mcp.NewToolResultText("No tools recorded yet."), nil
		}
		var b strings.Builder
		for _, e := range entries {
			fmt.Fprintf(&b, "- %s [%s/%s] used %d times\n", e.Name, e.ToolType, e.Scope, e.UsageCount)
		}
		return mcp.NewToolResultText(truncate(b.String(), responseCharBudget)), nil
	}
}

func handleGraphStats(repos *store.Repositories) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := repos.Graph.Stats()
		if err != nil {
			return mcp.NewToolResultError("graph_stats failed: " + err.Error()), nil
		}
		result := fmt.Sprintf(
			"Thought branches: %d (%d open)\nDebug paths: %d (%d unresolved)\nWaypoints: %d",
			stats.ThoughtBranchCount, stats.OpenThoughtBranches,
			stats.DebugPathCount, stats.UnresolvedDebugPaths,
			stats.WaypointCount,
		)
		return mcp.NewToolResultText(result), nil
	}
}

func handleQueryGraph(repos *store.Repositories) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, _ := req.GetArguments()["observation_id"].(string)
		if strings.TrimSpace(id) == "" {
			return mcp.NewToolResultError("observation_id is required"), nil
		}

		membership, err := repos.Graph.QueryGraph(id)
		if err != nil {
			return mcp.NewToolResultError("query_graph failed: " + err.Error()), nil
		}

		var b strings.Builder
		if len(membership.Branches) == 0 && len(membership.Paths) == 0 {
			return mcp.NewToolResultText("No thought branches or debug paths reference this observation."), nil
		}
		for _, branch := range membership.Branches {
			fmt.Fprintf(&b, "- branch %s: %s\n", idHandle(branch.ID), branch.Title)
		}
		for _, path := range membership.Paths {
			fmt.Fprintf(&b, "- debug path %s: %s (resolved=%v)\n", idHandle(path.ID), path.Title, path.Resolved)
		}
		return mcp.NewToolResultText(b.String()), nil
	}
}

func idHandle(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func intArg(req mcp.CallToolRequest, name string, def int) int {
	if v, ok := req.GetArguments()[name].(float64); ok {
		return int(v)
	}
	return def
}
