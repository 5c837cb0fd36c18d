package rpcserver

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	mcppkg "github.com/mark3labs/mcp-go/mcp"

	"github.com/laminark/laminark/internal/config"
	"github.com/laminark/laminark/internal/store"
)

func noPrivacy() config.Privacy { return config.Privacy{} }

func newTestRepos(t *testing.T) *store.Repositories {
	t.Helper()
	cfg := store.Config{DataDir: t.TempDir(), BusyTimeoutMS: 2000, CacheSizeKB: -2000, WALAutoCheckpointPages: 1000}
	d, err := store.Open(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	repos, err := store.NewRepositories(d, "proj-fingerprint")
	if err != nil {
		t.Fatalf("build repositories: %v", err)
	}
	return repos
}

func callResultText(t *testing.T, res *mcppkg.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("expected non-empty tool result")
	}
	text, ok := mcppkg.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("expected text content")
	}
	return text.Text
}

func TestNewRegistersAllTools(t *testing.T) {
	srv := New(newTestRepos(t), nil, noPrivacy)
	if srv == nil {
		t.Fatalf("expected non-nil server")
	}
}

func TestSaveMemoryThenRecallFindsIt(t *testing.T) {
	repos := newTestRepos(t)

	save := handleSaveMemory(repos, noPrivacy)
	res, err := save(context.Background(), mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{
		Arguments: map[string]any{"content": "decided to switch to RRF for hybrid ranking", "kind": "decision"},
	}})
	if err != nil {
		t.Fatalf("save handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected save error: %s", callResultText(t, res))
	}

	recall := handleRecall(repos, nil)
	res, err = recall(context.Background(), mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{
		Arguments: map[string]any{"query": "RRF ranking"},
	}})
	if err != nil {
		t.Fatalf("recall handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected recall error: %s", callResultText(t, res))
	}
	if !strings.Contains(callResultText(t, res), "RRF") {
		t.Fatalf("expected recall to surface the saved memory, got %q", callResultText(t, res))
	}
}

func TestRecallRequiresQuery(t *testing.T) {
	recall := handleRecall(newTestRepos(t), nil)
	res, err := recall(context.Background(), mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{
		Arguments: map[string]any{},
	}})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected error result for missing query")
	}
}

func TestGraphStatsReportsZeroForEmptyProject(t *testing.T) {
	h := handleGraphStats(newTestRepos(t))
	res, err := h(context.Background(), mcppkg.CallToolRequest{})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(callResultText(t, res), "Thought branches: 0") {
		t.Fatalf("unexpected stats output: %q", callResultText(t, res))
	}
}
